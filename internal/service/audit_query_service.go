package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
)

// maxAuditExportRows bounds a single bitácora export.
const maxAuditExportRows = 10000

type auditReader interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, int, error)
	ListAll(ctx context.Context, filter models.AuditFilter, limit int) ([]models.AuditRecord, error)
	FindByID(ctx context.Context, id int64) (*models.AuditRecord, error)
	Stats(ctx context.Context, since time.Time) (*models.AuditStats, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditQueryService serves bitácora listings, statistics, exports and purges.
type AuditQueryService struct {
	repo          auditReader
	logger        *zap.Logger
	retentionDays int
	now           func() time.Time
	render        datasetRenderer
}

// NewAuditQueryService constructs an AuditQueryService.
func NewAuditQueryService(repo auditReader, logger *zap.Logger, retentionDays int) *AuditQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &AuditQueryService{repo: repo, logger: logger, retentionDays: retentionDays, now: time.Now, render: export.Render}
}

func validateAuditFilter(filter models.AuditFilter) error {
	if filter.Accion != "" && !filter.Accion.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "acción desconocida")
	}
	if filter.Modulo != "" && !filter.Modulo.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "módulo desconocido")
	}
	if filter.Desde != nil && filter.Hasta != nil && filter.Hasta.Before(*filter.Desde) {
		return appErrors.Clone(appErrors.ErrValidation, "rango de fechas inválido")
	}
	return nil
}

// List returns a page of rows.
func (s *AuditQueryService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, *models.Pagination, error) {
	if err := validateAuditFilter(filter); err != nil {
		return nil, nil, err
	}
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list audit records")
	}
	return records, filter.Pagination(total), nil
}

// Get returns a single row.
func (s *AuditQueryService) Get(ctx context.Context, id int64) (*models.AuditRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registro de bitácora no encontrado")
		}
		return nil, appErrors.Internal(err, "failed to load audit record")
	}
	return record, nil
}

// Stats summarises the log with per-day volume for the last 30 days.
func (s *AuditQueryService) Stats(ctx context.Context) (*models.AuditStats, error) {
	since := s.now().AddDate(0, 0, -30)
	stats, err := s.repo.Stats(ctx, since)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to compute audit statistics")
	}
	return stats, nil
}

// Export renders the rows matching filter.
func (s *AuditQueryService) Export(ctx context.Context, filter models.AuditFilter, format export.Format) (*ExportFile, error) {
	if err := validateAuditFilter(filter); err != nil {
		return nil, err
	}
	records, err := s.repo.ListAll(ctx, filter, maxAuditExportRows)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load audit records")
	}

	data := export.Dataset{
		Title:   "Bitácora",
		Headers: []string{"ID", "Fecha", "Usuario", "Acción", "Módulo", "Descripción", "IP", "Navegador"},
		Rows:    make([][]interface{}, 0, len(records)),
	}
	for _, r := range records {
		user := "Sistema"
		if r.Username != nil {
			user = *r.Username
		}
		data.Rows = append(data.Rows, []interface{}{r.ID, r.Fecha, user, string(r.Accion), string(r.Modulo), r.Descripcion, r.IP, r.UserAgent})
	}

	file, err := renderExport(s.render, format, "bitacora", data, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render audit export")
	}
	return file, nil
}

// Cleanup purges rows older than days, or the retention window when days is 0.
func (s *AuditQueryService) Cleanup(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "los días deben ser positivos")
	}
	if days == 0 {
		days = s.retentionDays
	}
	cutoff := s.now().AddDate(0, 0, -days)
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to purge audit records")
	}
	s.logger.Info("audit records purged", zap.Int("dias", days), zap.Int64("eliminados", removed))
	return removed, nil
}
