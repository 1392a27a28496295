package errors

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ContentTypeProblemJSON is the media type for Problem Details responses.
const ContentTypeProblemJSON = "application/problem+json"

// Responder writes problem responses and aborts the gin chain.
type Responder struct {
	// BaseURI is prepended to relative problem type URIs.
	BaseURI string
	logger  *slog.Logger
}

// NewResponder creates a responder. A nil logger falls back to slog.Default at write time.
func NewResponder(baseURI string, logger *slog.Logger) *Responder {
	return &Responder{BaseURI: baseURI, logger: logger}
}

// DefaultResponder uses relative URIs for problem types.
var DefaultResponder = NewResponder("", nil)

// Respond sends the problem with the problem+json media type. A 503 carrying a retryAfter
// extension also sets the Retry-After header.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.BaseURI != "" && strings.HasPrefix(problem.Type, "/") {
		problem.Type = r.BaseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	if problem.Status == http.StatusServiceUnavailable {
		if retry, ok := problem.Extensions["retryAfter"].(int); ok && retry > 0 {
			c.Header("Retry-After", strconv.Itoa(retry))
		}
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.AbortWithStatusJSON(problem.Status, problem)
}

// RespondError answers with err itself when it is a ProblemDetail and with an opaque 500
// otherwise. The cause is logged and attached to the gin context, never sent to the client.
func (r *Responder) RespondError(c *gin.Context, err error) {
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.Respond(c, problem)
		return
	}
	_ = c.Error(err)
	r.log().ErrorContext(c.Request.Context(), "unhandled request error",
		slog.String("http.method", c.Request.Method),
		slog.String("http.route", c.FullPath()),
		slog.String("error", err.Error()))
	r.Respond(c, ErrInternal.WithDetail("an unexpected error occurred"))
}

// BindingError answers a request body that failed to bind. Validation failures name the
// offending fields; anything else is a plain bad request.
func (r *Responder) BindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe.Namespace())] = describeTag(fe)
		}
		r.Respond(c, NewFieldProblem(fields))
		return
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		r.Respond(c, NewFieldProblem(map[string]string{typeErr.Field: "must be a " + typeErr.Type.String()}))
		return
	}
	if errors.Is(err, io.EOF) {
		r.BadRequest(c, "request body is required")
		return
	}
	r.BadRequest(c, err.Error())
}

// NotFound sends a 404 titled after the resource.
func (r *Responder) NotFound(c *gin.Context, resource string) {
	r.Respond(c, NewNotFoundProblem(resource))
}

// BadRequest sends a 400 problem response.
func (r *Responder) BadRequest(c *gin.Context, detail string) {
	r.Respond(c, ErrBadRequest.WithDetail(detail))
}

// Unauthorized sends a 401 problem response.
func (r *Responder) Unauthorized(c *gin.Context, detail string) {
	r.Respond(c, ErrUnauthorized.WithDetail(detail))
}

func (r *Responder) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// Respond is a convenience function using the default responder.
func Respond(c *gin.Context, problem ProblemDetail) {
	DefaultResponder.Respond(c, problem)
}

// ErrorMapper maps domain/application errors to ProblemDetail.
type ErrorMapper func(err error) (ProblemDetail, bool)

// ChainedResponder consults its mappers in order before the default handling.
type ChainedResponder struct {
	*Responder
	mappers []ErrorMapper
}

func NewChainedResponder(responder *Responder, mappers ...ErrorMapper) *ChainedResponder {
	if responder == nil {
		responder = DefaultResponder
	}
	return &ChainedResponder{Responder: responder, mappers: mappers}
}

// RespondError tries each mapper before falling back to default handling.
func (r *ChainedResponder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.Respond(c, problem)
			return
		}
	}
	r.Responder.RespondError(c, err)
}

// fieldPath turns "CartRequest.Lines[0].ItemName" into "lines[0].itemName".
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = lowerFirst(part)
	}
	return strings.Join(parts, ".")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
