package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/internal/service"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
	"github.com/vozip/isp-api/pkg/response"
)

type delinquencyUseCase interface {
	List(ctx context.Context, threshold int) ([]models.DelinquentCustomer, error)
	Assess(ctx context.Context, customerID int64) (*models.DelinquencyAssessment, error)
	Export(ctx context.Context, threshold int, format export.Format) (*service.ExportFile, error)
}

// DelinquencyHandler exposes the morosos report.
type DelinquencyHandler struct {
	service delinquencyUseCase
}

// NewDelinquencyHandler constructs DelinquencyHandler.
func NewDelinquencyHandler(svc delinquencyUseCase) *DelinquencyHandler {
	return &DelinquencyHandler{service: svc}
}

// List godoc
// @Summary List delinquent customers
// @Description Customers with at least umbral unpaid billing periods, most owed first
// @Tags Morosos
// @Produce json
// @Security BearerAuth
// @Param umbral query int false "Unpaid periods threshold (default 3)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /morosos [get]
func (h *DelinquencyHandler) List(c *gin.Context) {
	threshold, ok := thresholdParam(c)
	if !ok {
		return
	}
	rows, err := h.service.List(c.Request.Context(), threshold)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil, map[string]interface{}{"total": len(rows)})
}

// Export godoc
// @Summary Export delinquent customers
// @Tags Morosos
// @Produce application/octet-stream
// @Security BearerAuth
// @Param umbral query int false "Unpaid periods threshold"
// @Param formato query string false "xlsx, csv or pdf"
// @Success 200 {file} file
// @Router /morosos/exportar [get]
func (h *DelinquencyHandler) Export(c *gin.Context) {
	threshold, ok := thresholdParam(c)
	if !ok {
		return
	}
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	file, err := h.service.Export(c.Request.Context(), threshold, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	exportIntent(c, "morosos", format, file.Rows)
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// Debt godoc
// @Summary Customer debt standing
// @Description Billing periods owed by one customer, even below the threshold
// @Tags Clientes
// @Produce json
// @Security BearerAuth
// @Param id path int true "Customer ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clientes/{id}/deuda [get]
func (h *DelinquencyHandler) Debt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	assessment, err := h.service.Assess(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

func thresholdParam(c *gin.Context) (int, bool) {
	raw := c.Query("umbral")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "umbral debe ser un entero positivo"))
		return 0, false
	}
	return n, true
}
