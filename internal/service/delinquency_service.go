package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
)

type delinquencyRepository interface {
	Roster(ctx context.Context) ([]models.DelinquencyCandidate, error)
	Candidate(ctx context.Context, customerID int64) (*models.DelinquencyCandidate, error)
}

type delinquencyMetrics interface {
	ObserveDelinquencyScan(duration time.Duration, flagged int)
}

// DelinquencyService runs the morosos engine over the stored roster.
type DelinquencyService struct {
	repo    delinquencyRepository
	metrics delinquencyMetrics
	logger  *zap.Logger
	cfg     DelinquencyConfig
	now     func() time.Time
	render  datasetRenderer
}

// NewDelinquencyService constructs a DelinquencyService.
func NewDelinquencyService(repo delinquencyRepository, metrics delinquencyMetrics, logger *zap.Logger, cfg DelinquencyConfig) *DelinquencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DelinquencyService{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		render:  export.Render,
	}
}

// List returns the customers whose unpaid periods reach threshold, most
// owed first. threshold <= 0 uses the configured default.
func (s *DelinquencyService) List(ctx context.Context, threshold int) ([]models.DelinquentCustomer, error) {
	start := time.Now()
	roster, err := s.repo.Roster(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load delinquency roster")
	}

	cfg := s.cfg
	if threshold > 0 {
		cfg.Threshold = threshold
	}
	today := s.now()

	result := make([]models.DelinquentCustomer, 0)
	skipped := 0
	for _, c := range roster {
		res, ok := ComputeDelinquency(c, today, cfg)
		if !ok {
			if res.Motivo == ReasonUnparseablePays {
				skipped++
				s.logger.Debug("delinquency skipped customer", zap.Int64("cliente_id", c.ClienteID), zap.String("motivo", res.Motivo))
			}
			continue
		}
		if res.PagosDuplicados > 0 {
			s.logger.Info("duplicate payments for period", zap.Int64("cliente_id", c.ClienteID), zap.Int("duplicados", res.PagosDuplicados))
		}
		if !res.Moroso {
			continue
		}
		result = append(result, models.DelinquentCustomer{
			ClienteID:          c.ClienteID,
			Nombre:             c.Nombre,
			Apellido:           c.Apellido,
			Cedula:             c.Cedula,
			Telefono:           c.Telefono,
			SectorNombre:       c.SectorNombre,
			TipoServicioNombre: c.TipoServicioNombre,
			FechaInstalacion:   c.FechaInstalacion,
			MesesPendientes:    res.MesesPendientes,
			MontoAdeudado:      res.MontoAdeudado,
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].MesesPendientes != result[j].MesesPendientes {
			return result[i].MesesPendientes > result[j].MesesPendientes
		}
		a := strings.ToLower(result[i].Apellido + " " + result[i].Nombre)
		b := strings.ToLower(result[j].Apellido + " " + result[j].Nombre)
		return a < b
	})

	if s.metrics != nil {
		s.metrics.ObserveDelinquencyScan(time.Since(start), len(result))
	}
	s.logger.Debug("delinquency scan finished", zap.Int("roster", len(roster)), zap.Int("morosos", len(result)), zap.Int("omitidos", skipped))
	return result, nil
}

// Assess computes the standing of one customer regardless of threshold.
func (s *DelinquencyService) Assess(ctx context.Context, customerID int64) (*models.DelinquencyAssessment, error) {
	c, err := s.repo.Candidate(ctx, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cliente no encontrado")
		}
		return nil, appErrors.Internal(err, "failed to load customer")
	}
	res, _ := ComputeDelinquency(*c, s.now(), s.cfg)
	return &res, nil
}

// Export renders the morosos listing.
func (s *DelinquencyService) Export(ctx context.Context, threshold int, format export.Format) (*ExportFile, error) {
	rows, err := s.List(ctx, threshold)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   "Clientes morosos",
		Headers: []string{"ID", "Nombre", "Apellido", "Cédula", "Teléfono", "Sector", "Tipo de servicio", "Fecha de instalación", "Meses pendientes", "Monto adeudado"},
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, r := range rows {
		data.Rows = append(data.Rows, []interface{}{
			r.ClienteID, r.Nombre, r.Apellido, r.Cedula, r.Telefono, r.SectorNombre,
			r.TipoServicioNombre, r.FechaInstalacion, r.MesesPendientes, r.MontoAdeudado,
		})
	}

	file, err := renderExport(s.render, format, "morosos", data, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render delinquency export")
	}
	return file, nil
}
