package application

import "errors"

var (
	// ErrAuthentication covers wrong passwords and unusable tokens alike.
	ErrAuthentication = errors.New("authentication failed")
	// ErrMisconfigured means the server has no admin password or signing secret.
	ErrMisconfigured = errors.New("operator authentication is not configured")
)
