package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vozip/isp-api/internal/middleware"
	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/response"
)

type authUseCase interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, claims *models.JWTClaims, meta models.RequestMeta)
	ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest, meta models.RequestMeta) error
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authUseCase
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authUseCase) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate staff user
// @Description Validates username and password and issues an 8 hour session token
// @Tags Autenticación
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.RequestMeta = middleware.RequestMeta(c)

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Verify godoc
// @Summary Verify session token
// @Tags Autenticación
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/verificar [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPrincipalMissing, ""))
		return
	}
	response.JSON(c, http.StatusOK, models.SessionUser{
		ID:       claims.UserID,
		Nombre:   claims.Nombre,
		Funcion:  claims.Funcion,
		Permisos: claims.Permisos,
	}, nil, map[string]interface{}{"expires_at": claims.ExpiresAt})
}

// Logout godoc
// @Summary Close session
// @Description Records the logout. Tokens stay valid until they expire.
// @Tags Autenticación
// @Security BearerAuth
// @Success 204
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	h.service.Logout(c.Request.Context(), claimsFromContext(c), middleware.RequestMeta(c))
	response.NoContent(c)
}

// ChangePassword godoc
// @Summary Change own password
// @Tags Autenticación
// @Accept json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Password payload"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPrincipalMissing, ""))
		return
	}
	var req models.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), claims.UserID, req, middleware.RequestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
