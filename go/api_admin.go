package borgaserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	operatorsdomain "github.com/localborga/milling-orders/internal/domains/operators/domain"
	operatorsports "github.com/localborga/milling-orders/internal/domains/operators/ports"
	apierrors "github.com/localborga/milling-orders/internal/shared/errors"
)

// operatorContextKey holds the authenticated *operatorsdomain.Principal.
const operatorContextKey = "borga.operator"

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminAPI issues and revokes operator tokens.
type AdminAPI struct {
	service operatorsports.Service
}

func NewAdminAPI(service operatorsports.Service) AdminAPI {
	return AdminAPI{service: service}
}

// Post /api/admin/login
// Exchange the admin password for a bearer token
func (api *AdminAPI) Login(c *gin.Context) {
	var payload loginRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	token, err := api.service.Login(c.Request.Context(), payload.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Success: true, Token: token.Value, ExpiresAt: token.ExpiresAt.UTC()})
}

// Post /api/admin/logout
// Revoke the caller's token
func (api *AdminAPI) Logout(c *gin.Context) {
	if err := api.service.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequireOperator authenticates the bearer token of operator routes.
func RequireOperator(service operatorsports.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			responder.Unauthorized(c, "Unauthorized Access")
			return
		}
		principal, err := service.Authenticate(c.Request.Context(), token)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(operatorContextKey, principal)
		c.Next()
	}
}

// operatorFromContext returns the principal set by RequireOperator.
func operatorFromContext(c *gin.Context) (*operatorsdomain.Principal, bool) {
	value, ok := c.Get(operatorContextKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*operatorsdomain.Principal)
	return principal, ok
}

func denyOperator(c *gin.Context) {
	apierrors.Respond(c, apierrors.ErrUnauthorized.WithDetail("Unauthorized Access"))
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
