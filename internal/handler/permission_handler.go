package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vozip/isp-api/internal/middleware"
	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/internal/service"
	"github.com/vozip/isp-api/pkg/response"
)

type permissionUseCase interface {
	List(ctx context.Context) ([]models.Permission, error)
	Get(ctx context.Context, id int64) (*models.Permission, error)
	Create(ctx context.Context, req service.PermissionRequest) (*models.Permission, error)
	Update(ctx context.Context, id int64, req service.PermissionRequest) (*models.Permission, *models.Permission, error)
	Delete(ctx context.Context, id int64) (*models.Permission, error)
	ListForUser(ctx context.Context, userID int64) ([]models.AssignedPermission, error)
	Assign(ctx context.Context, userID int64, req service.AssignPermissionRequest) (*service.PermissionAssignment, error)
	Revoke(ctx context.Context, userID, permissionID int64) (*service.PermissionAssignment, error)
}

// PermissionHandler manages permissions and their assignment to users.
type PermissionHandler struct {
	permissions permissionUseCase
}

// NewPermissionHandler constructs PermissionHandler.
func NewPermissionHandler(permissions permissionUseCase) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

// List godoc
// @Summary List permissions
// @Tags Permisos
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /permisos [get]
func (h *PermissionHandler) List(c *gin.Context) {
	perms, err := h.permissions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perms, nil)
}

// Get godoc
// @Summary Get permission
// @Tags Permisos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Permission ID"
// @Success 200 {object} response.Envelope
// @Router /permisos/{id} [get]
func (h *PermissionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	perm, err := h.permissions.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perm, nil)
}

// Create godoc
// @Summary Create permission
// @Tags Permisos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.PermissionRequest true "Permission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /permisos [post]
func (h *PermissionHandler) Create(c *gin.Context) {
	var req service.PermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	perm, err := h.permissions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{Accion: models.AuditCreate, Descripcion: fmt.Sprintf("permiso %s creado", perm.Nombre), Nuevo: perm})
	response.Created(c, perm)
}

// Update godoc
// @Summary Update permission
// @Tags Permisos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Permission ID"
// @Param payload body service.PermissionRequest true "Permission payload"
// @Success 200 {object} response.Envelope
// @Router /permisos/{id} [put]
func (h *PermissionHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.PermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	after, before, err := h.permissions.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{Accion: models.AuditUpdate, Descripcion: fmt.Sprintf("permiso %s actualizado", after.Nombre), Anterior: before, Nuevo: after})
	response.JSON(c, http.StatusOK, after, nil)
}

// Delete godoc
// @Summary Delete permission
// @Description Removes the permission and every assignment of it
// @Tags Permisos
// @Security BearerAuth
// @Param id path int true "Permission ID"
// @Success 204
// @Router /permisos/{id} [delete]
func (h *PermissionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	before, err := h.permissions.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{Accion: models.AuditDelete, Descripcion: fmt.Sprintf("permiso %s eliminado", before.Nombre), Anterior: before})
	response.NoContent(c)
}

// ListForUser godoc
// @Summary List a user's permissions
// @Tags Usuarios
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /usuarios/{id}/permisos [get]
func (h *PermissionHandler) ListForUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	perms, err := h.permissions.ListForUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, perms, nil)
}

// Assign godoc
// @Summary Grant a permission to a user
// @Description Takes effect on the user's next login
// @Tags Usuarios
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param payload body service.AssignPermissionRequest true "Permission to grant"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /usuarios/{id}/permisos [post]
func (h *PermissionHandler) Assign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.AssignPermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.permissions.Assign(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditAssignPerm,
		Descripcion: fmt.Sprintf("permiso %s asignado a %s", assignment.Permiso.Nombre, assignment.Usuario.Username),
		Nuevo:       map[string]int64{"usuario_id": assignment.Usuario.ID, "permiso_id": assignment.Permiso.ID},
	})
	response.Created(c, assignment)
}

// Revoke godoc
// @Summary Revoke a permission from a user
// @Tags Usuarios
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param permisoId path int true "Permission ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /usuarios/{id}/permisos/{permisoId} [delete]
func (h *PermissionHandler) Revoke(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	permID, ok := pathID(c, "permisoId")
	if !ok {
		return
	}
	assignment, err := h.permissions.Revoke(c.Request.Context(), id, permID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditRevokePerm,
		Descripcion: fmt.Sprintf("permiso %s revocado a %s", assignment.Permiso.Nombre, assignment.Usuario.Username),
		Anterior:    map[string]int64{"usuario_id": assignment.Usuario.ID, "permiso_id": assignment.Permiso.ID},
	})
	response.NoContent(c)
}
