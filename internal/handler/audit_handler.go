package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vozip/isp-api/internal/middleware"
	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/internal/service"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
	"github.com/vozip/isp-api/pkg/response"
)

type auditUseCase interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.AuditRecord, error)
	Stats(ctx context.Context) (*models.AuditStats, error)
	Export(ctx context.Context, filter models.AuditFilter, format export.Format) (*service.ExportFile, error)
	Cleanup(ctx context.Context, days int) (int64, error)
}

// AuditHandler exposes the bitácora for review.
type AuditHandler struct {
	audit auditUseCase
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit auditUseCase) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary List bitácora rows
// @Tags Bitácora
// @Produce json
// @Security BearerAuth
// @Param usuario_id query int false "Actor"
// @Param accion query string false "Action"
// @Param modulo query string false "Module"
// @Param desde query string false "From date (YYYY-MM-DD)"
// @Param hasta query string false "To date inclusive (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bitacora [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter, ok := auditFilter(c)
	if !ok {
		return
	}
	records, pagination, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get bitácora row
// @Tags Bitácora
// @Produce json
// @Security BearerAuth
// @Param id path int true "Row ID"
// @Success 200 {object} response.Envelope
// @Router /bitacora/{id} [get]
func (h *AuditHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	record, err := h.audit.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Stats godoc
// @Summary Bitácora statistics
// @Tags Bitácora
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /bitacora/estadisticas [get]
func (h *AuditHandler) Stats(c *gin.Context) {
	stats, err := h.audit.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export bitácora rows
// @Tags Bitácora
// @Produce application/octet-stream
// @Security BearerAuth
// @Param formato query string false "xlsx, csv or pdf"
// @Success 200 {file} file
// @Router /bitacora/exportar [get]
func (h *AuditHandler) Export(c *gin.Context) {
	filter, ok := auditFilter(c)
	if !ok {
		return
	}
	format, ok := exportFormat(c)
	if !ok {
		return
	}
	file, err := h.audit.Export(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	exportIntent(c, "bitácora", format, file.Rows)
	response.File(c, file.Filename, file.ContentType, file.Data)
}

// Cleanup godoc
// @Summary Purge old bitácora rows
// @Description Restricted to manager roles. dias defaults to the configured retention
// @Tags Bitácora
// @Produce json
// @Security BearerAuth
// @Param dias query int false "Keep rows newer than this many days"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /bitacora/limpiar [delete]
func (h *AuditHandler) Cleanup(c *gin.Context) {
	days := 0
	if raw := c.Query("dias"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "dias inválido"))
			return
		}
		days = n
	}
	removed, err := h.audit.Cleanup(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditIntent(c, models.AuditIntent{
		Accion:      models.AuditDelete,
		Descripcion: "limpieza de bitácora",
		Nuevo:       map[string]interface{}{"dias": days, "eliminados": removed},
	})
	response.JSON(c, http.StatusOK, gin.H{"eliminados": removed}, nil)
}

func auditFilter(c *gin.Context) (models.AuditFilter, bool) {
	filter := models.AuditFilter{
		UsuarioID: optionalInt64(c.Query("usuario_id")),
		Accion:    models.AuditAction(strings.ToUpper(strings.TrimSpace(c.Query("accion")))),
		Modulo:    models.AuditModule(strings.ToUpper(strings.TrimSpace(c.Query("modulo")))),
		Paging:    paging(c),
	}
	var ok bool
	if filter.Desde, ok = queryDate(c, "desde"); !ok {
		return filter, false
	}
	if filter.Hasta, ok = queryDate(c, "hasta"); !ok {
		return filter, false
	}
	if filter.Hasta != nil {
		end := filter.Hasta.AddDate(0, 0, 1).Add(-time.Nanosecond)
		filter.Hasta = &end
	}
	return filter, true
}

func queryDate(c *gin.Context, name string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		response.Error(c, appErrors.Validation(err, name+" debe tener formato AAAA-MM-DD"))
		return nil, false
	}
	return &t, true
}
