package application

import (
	"errors"
	"fmt"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
	"github.com/localborga/milling-orders/internal/domains/orders/ports"
)

var (
	// ErrInvalidInput signals a malformed order draft or status value.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrOrderNotFound is returned for unknown order ids.
	ErrOrderNotFound = ports.ErrNotFound
	// ErrIllegalTransition is returned when the transition table forbids a status change.
	ErrIllegalTransition = domain.ErrIllegalTransition
	// ErrStoreUnavailable wraps persistence failures other than not-found.
	ErrStoreUnavailable = errors.New("order store unavailable")
)

func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrItemNameRequired) ||
		errors.Is(err, domain.ErrTotalPriceRequired) ||
		errors.Is(err, domain.ErrInvalidTotalPrice) ||
		errors.Is(err, domain.ErrInvalidWeight) ||
		errors.Is(err, domain.ErrInvalidStatus)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isValidationError(err) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

// mapStoreError keeps not-found and validation errors intact and classifies everything else as an outage.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ports.ErrNotFound), errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrIllegalTransition):
		return err
	case isValidationError(err):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}
