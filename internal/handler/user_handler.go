package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vozip/isp-api/internal/middleware"
	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/internal/service"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/response"
)

type userUseCase interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, req service.CreateUserRequest) (*models.User, error)
	Update(ctx context.Context, id int64, req service.UpdateUserRequest) (*models.User, *models.User, error)
	Delete(ctx context.Context, actorID, id int64) (*models.User, error)
}

// UserHandler exposes staff account endpoints.
type UserHandler struct {
	users userUseCase
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users userUseCase) *UserHandler {
	return &UserHandler{users: users}
}

// List godoc
// @Summary List staff users
// @Tags Usuarios
// @Produce json
// @Security BearerAuth
// @Param search query string false "Username, name or surname"
// @Param funcion query string false "Role"
// @Param estado_id query int false "Status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /usuarios [get]
func (h *UserHandler) List(c *gin.Context) {
	filter := models.UserFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		EstadoID: optionalInt64(c.Query("estado_id")),
		Paging:   paging(c),
	}
	if raw := c.Query("funcion"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			response.Error(c, appErrors.Validation(err, "función inválida"))
			return
		}
		filter.Funcion = &role
	}
	users, pagination, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Get godoc
// @Summary Get staff user
// @Tags Usuarios
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Router /usuarios/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Create godoc
// @Summary Create staff user
// @Tags Usuarios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateUserRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /usuarios [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditCreate,
		Descripcion: fmt.Sprintf("usuario %s creado", user.Username),
		Nuevo:       req,
	})
	response.Created(c, user)
}

// Update godoc
// @Summary Update staff user
// @Tags Usuarios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param payload body service.UpdateUserRequest true "User payload"
// @Success 200 {object} response.Envelope
// @Router /usuarios/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	after, before, err := h.users.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditUpdate,
		Descripcion: fmt.Sprintf("usuario %s actualizado", after.Username),
		Anterior:    before,
		Nuevo:       req,
	})
	response.JSON(c, http.StatusOK, after, nil)
}

// Delete godoc
// @Summary Delete staff user
// @Tags Usuarios
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /usuarios/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrPrincipalMissing, ""))
		return
	}
	before, err := h.users.Delete(c.Request.Context(), claims.UserID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditDelete,
		Descripcion: fmt.Sprintf("usuario %s eliminado", before.Username),
		Anterior:    before,
	})
	response.NoContent(c)
}
