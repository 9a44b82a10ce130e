package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vozip/isp-api/internal/middleware"
	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/internal/service"
	"github.com/vozip/isp-api/pkg/export"
	"github.com/vozip/isp-api/pkg/response"
)

type customerUseCase interface {
	List(ctx context.Context, filter models.CustomerFilter) ([]models.CustomerDetail, *models.Pagination, error)
	Search(ctx context.Context, term string, limit int) ([]models.CustomerDetail, error)
	Get(ctx context.Context, id int64) (*models.CustomerDetail, error)
	Create(ctx context.Context, req service.CustomerRequest) (*models.CustomerDetail, error)
	Update(ctx context.Context, id int64, req service.CustomerRequest) (*models.CustomerDetail, *models.CustomerDetail, error)
	Delete(ctx context.Context, id int64) (*models.CustomerDetail, error)
	Export(ctx context.Context, filter models.CustomerFilter, format export.Format) (*service.ExportFile, error)
}

// CustomerHandler exposes subscriber endpoints.
type CustomerHandler struct {
	customers customerUseCase
}

// NewCustomerHandler constructs CustomerHandler.
func NewCustomerHandler(customers customerUseCase) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

func customerFilter(c *gin.Context) models.CustomerFilter {
	return models.CustomerFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		EstadoID:  optionalInt64(c.Query("estado_id")),
		SectorID:  optionalInt64(c.Query("sector_id")),
		PlanID:    optionalInt64(c.Query("plan_id")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
		Paging:    paging(c),
	}
}

// List godoc
// @Summary List customers
// @Tags Clientes
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, surname or cedula"
// @Param estado_id query int false "Status"
// @Param sector_id query int false "Sector"
// @Param plan_id query int false "Plan"
// @Param sort query string false "nombre, apellido, cedula, fecha_instalacion"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clientes [get]
func (h *CustomerHandler) List(c *gin.Context) {
	customers, pagination, err := h.customers.List(c.Request.Context(), customerFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, customers, pagination)
}

// Search godoc
// @Summary Quick customer search
// @Tags Clientes
// @Produce json
// @Security BearerAuth
// @Param q query string true "Search term"
// @Param limit query int false "Max results"
// @Success 200 {object} response.Envelope
// @Router /clientes/buscar [get]
func (h *CustomerHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	customers, err := h.customers.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, customers, nil)
}

// Get godoc
// @Summary Get customer
// @Tags Clientes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clientes/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	customer, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, customer, nil)
}

// Create godoc
// @Summary Create customer
// @Tags Clientes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CustomerRequest true "Customer payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /clientes [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req service.CustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.customers.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditCreate,
		Descripcion: fmt.Sprintf("cliente %d creado", customer.ID),
		Nuevo:       customer,
	})
	response.Created(c, customer)
}

// Update godoc
// @Summary Update customer
// @Description The installation date cannot change once the customer has payments
// @Tags Clientes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Param payload body service.CustomerRequest true "Customer payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /clientes/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.CustomerRequest
	if !bindJSON(c, &req) {
		return
	}
	after, before, err := h.customers.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditUpdate,
		Descripcion: fmt.Sprintf("cliente %d actualizado", id),
		Anterior:    before,
		Nuevo:       after,
	})
	response.JSON(c, http.StatusOK, after, nil)
}

// Delete godoc
// @Summary Delete customer
// @Tags Clientes
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /clientes/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	before, err := h.customers.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditDelete,
		Descripcion: fmt.Sprintf("cliente %d eliminado", id),
		Anterior:    before,
	})
	response.NoContent(c)
}

// Export godoc
// @Summary Export customers
// @Tags Clientes
// @Produce application/octet-stream
// @Security BearerAuth
// @Param formato query string false "xlsx, csv or pdf"
// @Success 200 {file} file
// @Router /clientes/exportar [get]
func (h *CustomerHandler) Export(c *gin.Context) {
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	file, err := h.customers.Export(c.Request.Context(), customerFilter(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	exportIntent(c, "clientes", format, file.Rows)
	response.File(c, file.Filename, file.ContentType, file.Data)
}
