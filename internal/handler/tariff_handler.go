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

type tariffUseCase interface {
	List(ctx context.Context) ([]models.Tariff, error)
	Get(ctx context.Context, id int64) (*models.Tariff, error)
	Create(ctx context.Context, req service.TariffRequest) (*models.Tariff, error)
	Update(ctx context.Context, id int64, req service.TariffRequest) (*models.Tariff, *models.Tariff, error)
	Delete(ctx context.Context, id int64) (*models.Tariff, error)
}

// TariffHandler exposes tariff endpoints.
type TariffHandler struct {
	tariffs tariffUseCase
}

// NewTariffHandler constructs TariffHandler.
func NewTariffHandler(tariffs tariffUseCase) *TariffHandler {
	return &TariffHandler{tariffs: tariffs}
}

// List godoc
// @Summary List tariffs
// @Tags Tarifas
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /tarifas [get]
func (h *TariffHandler) List(c *gin.Context) {
	tariffs, err := h.tariffs.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tariffs, nil)
}

// Get godoc
// @Summary Get tariff
// @Tags Tarifas
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tariff ID"
// @Success 200 {object} response.Envelope
// @Router /tarifas/{id} [get]
func (h *TariffHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tariff, err := h.tariffs.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tariff, nil)
}

// Create godoc
// @Summary Create tariff
// @Tags Tarifas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.TariffRequest true "Tariff payload"
// @Success 201 {object} response.Envelope
// @Router /tarifas [post]
func (h *TariffHandler) Create(c *gin.Context) {
	var req service.TariffRequest
	if !bindJSON(c, &req) {
		return
	}
	tariff, err := h.tariffs.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{Accion: models.AuditCreate, Descripcion: fmt.Sprintf("tarifa %d creada", tariff.ID), Nuevo: tariff})
	response.Created(c, tariff)
}

// Update godoc
// @Summary Update tariff
// @Tags Tarifas
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tariff ID"
// @Param payload body service.TariffRequest true "Tariff payload"
// @Success 200 {object} response.Envelope
// @Router /tarifas/{id} [put]
func (h *TariffHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.TariffRequest
	if !bindJSON(c, &req) {
		return
	}
	after, before, err := h.tariffs.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{Accion: models.AuditUpdate, Descripcion: fmt.Sprintf("tarifa %d actualizada", id), Anterior: before, Nuevo: after})
	response.JSON(c, http.StatusOK, after, nil)
}

// Delete godoc
// @Summary Delete tariff
// @Tags Tarifas
// @Security BearerAuth
// @Param id path int true "Tariff ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /tarifas/{id} [delete]
func (h *TariffHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	before, err := h.tariffs.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{Accion: models.AuditDelete, Descripcion: fmt.Sprintf("tarifa %d eliminada", id), Anterior: before})
	response.NoContent(c)
}
