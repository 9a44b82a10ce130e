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
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
	"github.com/vozip/isp-api/pkg/response"
)

type paymentUseCase interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error)
	ListForCustomer(ctx context.Context, customerID int64, paging models.Paging) ([]models.PaymentDetail, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.PaymentDetail, error)
	Create(ctx context.Context, req service.PaymentRequest) (*models.PaymentDetail, error)
	Update(ctx context.Context, id int64, req service.PaymentRequest) (*models.PaymentDetail, *models.PaymentDetail, error)
	Delete(ctx context.Context, id int64) (*models.PaymentDetail, error)
	MonthlyIncome(ctx context.Context, year int) ([]models.MonthlyIncome, error)
	Export(ctx context.Context, filter models.PaymentFilter, format export.Format) (*service.ExportFile, error)
}

// PaymentHandler exposes payment endpoints.
type PaymentHandler struct {
	payments paymentUseCase
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentUseCase) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func paymentFilter(c *gin.Context) (models.PaymentFilter, bool) {
	filter := models.PaymentFilter{
		ClienteID: optionalInt64(c.Query("cliente_id")),
		Mes:       strings.TrimSpace(c.Query("mes")),
		Paging:    paging(c),
	}
	if raw := c.Query("anio"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "anio inválido"))
			return filter, false
		}
		filter.Anio = &year
	}
	return filter, true
}

// List godoc
// @Summary List payments
// @Tags Pagos
// @Produce json
// @Security BearerAuth
// @Param cliente_id query int false "Customer"
// @Param anio query int false "Billing year"
// @Param mes query string false "Billing month name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /pagos [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter, ok := paymentFilter(c)
	if !ok {
		return
	}
	payments, pagination, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// ListForCustomer godoc
// @Summary List a customer's payments
// @Tags Clientes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clientes/{id}/pagos [get]
func (h *PaymentHandler) ListForCustomer(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	payments, pagination, err := h.payments.ListForCustomer(c.Request.Context(), id, paging(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Get godoc
// @Summary Get payment
// @Tags Pagos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /pagos/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Create godoc
// @Summary Record payment
// @Tags Pagos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.PaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /pagos [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.payments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditCreate,
		Descripcion: fmt.Sprintf("pago %d de %s %d para cliente %d", payment.ID, payment.Mes, payment.Anio, payment.ClienteID),
		Nuevo:       payment,
	})
	response.Created(c, payment)
}

// Update godoc
// @Summary Update payment
// @Tags Pagos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Param payload body service.PaymentRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Router /pagos/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.PaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	after, before, err := h.payments.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditUpdate,
		Descripcion: fmt.Sprintf("pago %d actualizado", id),
		Anterior:    before,
		Nuevo:       after,
	})
	response.JSON(c, http.StatusOK, after, nil)
}

// Delete godoc
// @Summary Delete payment
// @Tags Pagos
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 204
// @Router /pagos/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	before, err := h.payments.Delete(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditDelete,
		Descripcion: fmt.Sprintf("pago %d eliminado", id),
		Anterior:    before,
	})
	response.NoContent(c)
}

// MonthlyIncome godoc
// @Summary Income per month
// @Tags Pagos
// @Produce json
// @Security BearerAuth
// @Param anio query int false "Year (default current)"
// @Success 200 {object} response.Envelope
// @Router /pagos/ingresos-mensuales [get]
func (h *PaymentHandler) MonthlyIncome(c *gin.Context) {
	year := 0
	if raw := c.Query("anio"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "anio inválido"))
			return
		}
		year = n
	}
	rows, err := h.payments.MonthlyIncome(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Export payments
// @Tags Pagos
// @Produce application/octet-stream
// @Security BearerAuth
// @Param formato query string false "xlsx, csv or pdf"
// @Success 200 {file} file
// @Router /pagos/exportar [get]
func (h *PaymentHandler) Export(c *gin.Context) {
	filter, ok := paymentFilter(c)
	if !ok {
		return
	}
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	file, err := h.payments.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	exportIntent(c, "pagos", format, file.Rows)
	response.File(c, file.Filename, file.ContentType, file.Data)
}
