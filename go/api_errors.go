package borgaserver

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	cartapp "github.com/localborga/milling-orders/internal/domains/cart/application"
	catalogports "github.com/localborga/milling-orders/internal/domains/catalog/ports"
	operatorsapp "github.com/localborga/milling-orders/internal/domains/operators/application"
	ordersapp "github.com/localborga/milling-orders/internal/domains/orders/application"
	orderdomain "github.com/localborga/milling-orders/internal/domains/orders/domain"
	orderports "github.com/localborga/milling-orders/internal/domains/orders/ports"
	"github.com/localborga/milling-orders/internal/domains/pricing"
	apierrors "github.com/localborga/milling-orders/internal/shared/errors"
)

// retryAfterSeconds is the hint sent with 503 responses.
const retryAfterSeconds = 5

var causeMappers = []apierrors.ErrorMapper{
	mapValidationError,
	mapNotFoundError,
	mapConflictError,
	mapAuthError,
	mapUnavailableError,
}

var responder = apierrors.NewChainedResponder(nil, append([]apierrors.ErrorMapper{mapPartialCheckout}, causeMappers...)...)

func respondError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	responder.RespondError(c, err)
}

func respondBadRequest(c *gin.Context, err error) {
	responder.BindingError(c, err)
}

// mapPartialCheckout answers with the problem for the failed line and lists the orders that were
// placed before it, plus the key that resumes the checkout.
func mapPartialCheckout(err error) (apierrors.ProblemDetail, bool) {
	var partial *cartapp.PartialCheckoutError
	if !errors.As(err, &partial) {
		return apierrors.ProblemDetail{}, false
	}
	problem := apierrors.ErrInternal.WithDetail("checkout stopped before every line was placed")
	for _, mapper := range causeMappers {
		if mapped, ok := mapper(partial.Err); ok {
			problem = mapped
			break
		}
	}
	ids := make([]int64, 0, len(partial.Placed))
	for _, order := range partial.Placed {
		ids = append(ids, order.ID)
	}
	return problem.
		WithExtension("placedOrderIds", ids).
		WithExtension("checkoutKey", partial.Key), true
}

func mapValidationError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ordersapp.ErrInvalidInput),
		errors.Is(err, cartapp.ErrInvalidInput),
		errors.Is(err, orderdomain.ErrInvalidStatus),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrInvalidWeight),
		errors.Is(err, pricing.ErrUnknownLineType):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapNotFoundError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ordersapp.ErrOrderNotFound):
		return apierrors.NewNotFoundProblem("Order"), true
	case errors.Is(err, catalogports.ErrNotFound):
		return apierrors.NewNotFoundProblem("Product"), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapConflictError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ordersapp.ErrIllegalTransition):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, orderports.ErrIdempotencyConflict):
		return apierrors.ErrConflict.WithDetail("Idempotency-Key was already used with a different request"), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapAuthError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, operatorsapp.ErrMisconfigured):
		return apierrors.ErrInternal.WithDetail("Server misconfiguration"), true
	case errors.Is(err, operatorsapp.ErrAuthentication):
		return apierrors.ErrUnauthorized.WithDetail("Unauthorized Access"), true
	}
	return apierrors.ProblemDetail{}, false
}

func mapUnavailableError(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, ordersapp.ErrStoreUnavailable):
		return apierrors.NewUnavailableProblem("order store unavailable", retryAfterSeconds), true
	case errors.Is(err, orderports.ErrBusUnavailable):
		return apierrors.NewUnavailableProblem("status updates unavailable", retryAfterSeconds), true
	case errors.Is(err, context.DeadlineExceeded):
		return apierrors.NewUnavailableProblem("request timed out", retryAfterSeconds), true
	}
	return apierrors.ProblemDetail{}, false
}
