package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vozip/isp-api/internal/models"
)

const rosterQuery = `SELECT c.id, c.nombre, c.apellido, c.cedula, c.telefono, c.fecha_instalacion, c.estado_id, s.nombre AS sector_nombre, ts.nombre AS tipo_servicio_nombre, t.valor AS tarifa_valor FROM clientes c JOIN sectores s ON s.id = c.sector_id JOIN tipos_servicio ts ON ts.id = c.tipo_servicio_id JOIN tarifas t ON t.id = c.tarifa_id`

// DelinquencyRepository loads the roster consumed by the delinquency engine.
type DelinquencyRepository struct {
	db *sqlx.DB
}

// NewDelinquencyRepository creates a new instance of DelinquencyRepository.
func NewDelinquencyRepository(db *sqlx.DB) *DelinquencyRepository {
	return &DelinquencyRepository{db: db}
}

// Roster returns every customer with its payment periods attached. It runs
// two queries regardless of roster size.
func (r *DelinquencyRepository) Roster(ctx context.Context) ([]models.DelinquencyCandidate, error) {
	var candidates []models.DelinquencyCandidate
	if err := r.db.SelectContext(ctx, &candidates, rosterQuery+` ORDER BY c.id`); err != nil {
		return nil, fmt.Errorf("load delinquency roster: %w", err)
	}

	const paymentsQuery = `SELECT cliente_id, mes, anio FROM pagos ORDER BY cliente_id, anio DESC, mes DESC`
	var periods []models.PaymentPeriod
	if err := r.db.SelectContext(ctx, &periods, paymentsQuery); err != nil {
		return nil, fmt.Errorf("load roster payments: %w", err)
	}

	index := make(map[int64]int, len(candidates))
	for i := range candidates {
		index[candidates[i].ClienteID] = i
	}
	for _, p := range periods {
		if i, ok := index[p.ClienteID]; ok {
			candidates[i].Pagos = append(candidates[i].Pagos, p)
		}
	}
	return candidates, nil
}

// Candidate returns a single customer with its payment periods.
func (r *DelinquencyRepository) Candidate(ctx context.Context, customerID int64) (*models.DelinquencyCandidate, error) {
	var candidate models.DelinquencyCandidate
	if err := r.db.GetContext(ctx, &candidate, rosterQuery+` WHERE c.id = $1`, customerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load delinquency candidate: %w", err)
	}

	const paymentsQuery = `SELECT cliente_id, mes, anio FROM pagos WHERE cliente_id = $1 ORDER BY anio DESC, mes DESC`
	if err := r.db.SelectContext(ctx, &candidate.Pagos, paymentsQuery, customerID); err != nil {
		return nil, fmt.Errorf("load candidate payments: %w", err)
	}
	return &candidate, nil
}
