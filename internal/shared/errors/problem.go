// Package errors renders RFC 7807 problem details for the orders API.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ProblemDetail is an RFC 7807 problem. Extension members are written next to the standard
// members, as section 3.2 of the RFC requires.
// See: https://www.rfc-editor.org/rfc/rfc7807
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string
	// Title is a short, human-readable summary of the problem type.
	Title string
	// Status is the HTTP status code for this occurrence.
	Status int
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string
	// Instance is the request path the problem occurred on.
	Instance string
	// Extensions holds additional problem-specific members such as "fields" or "retryAfter".
	Extensions map[string]any
}

var standardMembers = map[string]bool{"type": true, "title": true, "status": true, "detail": true, "instance": true}

// Error implements the error interface.
func (p ProblemDetail) Error() string {
	if p.Detail != "" {
		return fmt.Sprintf("%s: %s", p.Title, p.Detail)
	}
	return p.Title
}

// MarshalJSON flattens extensions into the top-level object. Extensions never shadow the
// standard members.
func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extensions)+5)
	for k, v := range p.Extensions {
		if !standardMembers[k] {
			out[k] = v
		}
	}
	out["type"] = p.Type
	out["title"] = p.Title
	out["status"] = p.Status
	if p.Detail != "" {
		out["detail"] = p.Detail
	}
	if p.Instance != "" {
		out["instance"] = p.Instance
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the standard members and keeps everything else as extensions.
func (p *ProblemDetail) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ProblemDetail{}
	fields := map[string]any{
		"type":     &p.Type,
		"title":    &p.Title,
		"status":   &p.Status,
		"detail":   &p.Detail,
		"instance": &p.Instance,
	}
	for key, value := range raw {
		if dst, ok := fields[key]; ok {
			if err := json.Unmarshal(value, dst); err != nil {
				return fmt.Errorf("problem member %q: %w", key, err)
			}
			continue
		}
		var ext any
		if err := json.Unmarshal(value, &ext); err != nil {
			return fmt.Errorf("problem member %q: %w", key, err)
		}
		if p.Extensions == nil {
			p.Extensions = map[string]any{}
		}
		p.Extensions[key] = ext
	}
	return nil
}

// WithDetail returns a copy with the given detail message.
func (p ProblemDetail) WithDetail(detail string) ProblemDetail {
	p.Detail = detail
	return p
}

// WithExtension returns a copy with an additional extension member.
func (p ProblemDetail) WithExtension(key string, value any) ProblemDetail {
	ext := make(map[string]any, len(p.Extensions)+1)
	for k, v := range p.Extensions {
		ext[k] = v
	}
	ext[key] = value
	p.Extensions = ext
	return p
}

// Problem type URI references.
const (
	TypeValidation   = "/problems/validation-error"
	TypeNotFound     = "/problems/not-found"
	TypeConflict     = "/problems/conflict"
	TypeInternal     = "/problems/internal-error"
	TypeUnauthorized = "/problems/unauthorized"
	TypeBadRequest   = "/problems/bad-request"
	TypeUnavailable  = "/problems/service-unavailable"
)

var (
	// ErrNotFound is the generic 404; NewNotFoundProblem names the resource.
	ErrNotFound = ProblemDetail{
		Type:   TypeNotFound,
		Title:  "Resource Not Found",
		Status: http.StatusNotFound,
	}

	// ErrValidation covers rejected drafts, statuses, quantities and weights.
	ErrValidation = ProblemDetail{
		Type:   TypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
	}

	// ErrBadRequest covers bodies and parameters that cannot be parsed.
	ErrBadRequest = ProblemDetail{
		Type:   TypeBadRequest,
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
	}

	// ErrConflict covers illegal status transitions and reused idempotency keys.
	ErrConflict = ProblemDetail{
		Type:   TypeConflict,
		Title:  "Conflict",
		Status: http.StatusConflict,
	}

	ErrInternal = ProblemDetail{
		Type:   TypeInternal,
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
	}

	// ErrUnauthorized is returned to operators without a valid session.
	ErrUnauthorized = ProblemDetail{
		Type:   TypeUnauthorized,
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
	}

	// ErrServiceUnavailable indicates the order store or the status bus is down; clients may retry.
	ErrServiceUnavailable = ProblemDetail{
		Type:   TypeUnavailable,
		Title:  "Service Unavailable",
		Status: http.StatusServiceUnavailable,
	}
)

// NewFieldProblem is a validation problem listing the offending request fields.
func NewFieldProblem(fields map[string]string) ProblemDetail {
	return ErrValidation.WithDetail("request has invalid fields").WithExtension("fields", fields)
}

// NewNotFoundProblem is titled the way the storefront shows it, e.g. "Order Not Found".
func NewNotFoundProblem(resource string) ProblemDetail {
	problem := ErrNotFound
	problem.Title = resource + " Not Found"
	return problem
}

// NewUnavailableProblem reports a transient outage. The responder mirrors retryAfterSeconds in
// the Retry-After header.
func NewUnavailableProblem(detail string, retryAfterSeconds int) ProblemDetail {
	return ErrServiceUnavailable.WithDetail(detail).WithExtension("retryAfter", retryAfterSeconds)
}
