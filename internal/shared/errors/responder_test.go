package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

type placeRequest struct {
	ItemName string `json:"itemName" binding:"required"`
	Quantity int    `json:"quantity" binding:"min=1"`
}

func serve(t *testing.T, method, body string, handler gin.HandlerFunc) (*httptest.ResponseRecorder, ProblemDetail) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Handle(method, "/api/orders/:id", handler)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/api/orders/7", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return rec, problem
}

func TestRespond_NotFoundUsesResourceTitle(t *testing.T) {
	rec, problem := serve(t, http.MethodGet, "", func(c *gin.Context) {
		DefaultResponder.NotFound(c, "Order")
	})

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	require.Equal(t, "Order Not Found", problem.Title)
	require.Equal(t, "/api/orders/7", problem.Instance)
}

func TestRespond_UnavailableSetsRetryAfter(t *testing.T) {
	rec, problem := serve(t, http.MethodGet, "", func(c *gin.Context) {
		Respond(c, NewUnavailableProblem("order store unavailable", 5))
	})

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "5", rec.Header().Get("Retry-After"))
	require.Equal(t, TypeUnavailable, problem.Type)
	require.EqualValues(t, 5, problem.Extensions["retryAfter"])
}

func TestProblemDetail_ExtensionsAreTopLevel(t *testing.T) {
	body, err := json.Marshal(NewFieldProblem(map[string]string{"weightKg": "is required"}).
		WithExtension("title", "shadowed"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	require.Equal(t, "Validation Error", raw["title"])
	require.Equal(t, map[string]any{"weightKg": "is required"}, raw["fields"])
	require.NotContains(t, raw, "extensions")
	require.NotContains(t, raw, "instance")
}

func TestBindingError_ReportsFields(t *testing.T) {
	rec, problem := serve(t, http.MethodPost, `{"quantity":0}`, func(c *gin.Context) {
		var req placeRequest
		err := c.ShouldBindJSON(&req)
		require.Error(t, err)
		DefaultResponder.BindingError(c, err)
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, TypeValidation, problem.Type)
	require.Equal(t, map[string]any{
		"itemName": "is required",
		"quantity": "must be at least 1",
	}, problem.Extensions["fields"])
}

func TestBindingError_TypeMismatchAndMalformed(t *testing.T) {
	bind := func(c *gin.Context) {
		var req placeRequest
		DefaultResponder.BindingError(c, c.ShouldBindJSON(&req))
	}

	rec, problem := serve(t, http.MethodPost, `{"itemName":"Gari","quantity":"two"}`, bind)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, problem.Extensions["fields"], "quantity")

	rec, problem = serve(t, http.MethodPost, `{"itemName":`, bind)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, TypeBadRequest, problem.Type)
}

func TestChainedResponder_FallsBackToInternal(t *testing.T) {
	var logs bytes.Buffer
	base := NewResponder("https://borga.example", slog.New(slog.NewTextHandler(&logs, nil)))
	responder := NewChainedResponder(base, func(err error) (ProblemDetail, bool) {
		if errors.Is(err, errStoreDown) {
			return NewUnavailableProblem(err.Error(), 1), true
		}
		return ProblemDetail{}, false
	})

	rec, problem := serve(t, http.MethodGet, "", func(c *gin.Context) {
		responder.RespondError(c, errStoreDown)
	})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "https://borga.example"+TypeUnavailable, problem.Type)
	require.Empty(t, logs.String())

	rec, problem = serve(t, http.MethodGet, "", func(c *gin.Context) {
		responder.RespondError(c, errors.New("boom"))
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, problem.Detail, "boom")
	require.Contains(t, logs.String(), "boom")
}
