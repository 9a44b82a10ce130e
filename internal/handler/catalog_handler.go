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

type catalogUseCase interface {
	List(ctx context.Context) ([]models.CatalogItem, error)
	Get(ctx context.Context, id int64) (*models.CatalogItem, error)
	Create(ctx context.Context, req service.CatalogRequest) (*models.CatalogItem, error)
	Update(ctx context.Context, id int64, req service.CatalogRequest) (*models.CatalogItem, *models.CatalogItem, error)
	Delete(ctx context.Context, id int64) (*models.CatalogItem, error)
}

// CatalogHandler exposes one lookup table. The same handler type serves
// planes, sectores, tipos-servicio, estados and metodos-pago.
type CatalogHandler struct {
	catalog catalogUseCase
	label   string
}

// NewCatalogHandler constructs CatalogHandler. label names a row in audit
// descriptions.
func NewCatalogHandler(catalog catalogUseCase, label string) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, label: label}
}

// List godoc
// @Summary List catalog rows
// @Tags Catálogos
// @Produce json
// @Security BearerAuth
// @Param catalogo path string true "planes, sectores, tipos-servicio, estados or metodos-pago"
// @Success 200 {object} response.Envelope
// @Router /{catalogo} [get]
func (h *CatalogHandler) List(c *gin.Context) {
	items, err := h.catalog.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get catalog row
// @Tags Catálogos
// @Produce json
// @Security BearerAuth
// @Param catalogo path string true "Catalog"
// @Param id path int true "Row ID"
// @Success 200 {object} response.Envelope
// @Router /{catalogo}/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create catalog row
// @Tags Catálogos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param catalogo path string true "Catalog"
// @Param payload body service.CatalogRequest true "Row payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /{catalogo} [post]
func (h *CatalogHandler) Create(c *gin.Context) {
	var req service.CatalogRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.catalog.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{Accion: models.AuditCreate, Descripcion: fmt.Sprintf("%s %q creado", h.label, item.Nombre), Nuevo: item})
	response.Created(c, item)
}

// Update godoc
// @Summary Update catalog row
// @Tags Catálogos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param catalogo path string true "Catalog"
// @Param id path int true "Row ID"
// @Param payload body service.CatalogRequest true "Row payload"
// @Success 200 {object} response.Envelope
// @Router /{catalogo}/{id} [put]
func (h *CatalogHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.CatalogRequest
	if !bindJSON(c, &req) {
		return
	}
	after, before, err := h.catalog.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{Accion: models.AuditUpdate, Descripcion: fmt.Sprintf("%s %d actualizado", h.label, id), Anterior: before, Nuevo: after})
	response.JSON(c, http.StatusOK, after, nil)
}

// Delete godoc
// @Summary Delete catalog row
// @Description Refused with 409 while customers, payments or users reference the row
// @Tags Catálogos
// @Security BearerAuth
// @Param catalogo path string true "Catalog"
// @Param id path int true "Row ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /{catalogo}/{id} [delete]
func (h *CatalogHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	before, err := h.catalog.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{Accion: models.AuditDelete, Descripcion: fmt.Sprintf("%s %d eliminado", h.label, id), Anterior: before})
	response.NoContent(c)
}
