package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vozip/isp-api/internal/models"
)

// TariffRepository provides database access for tariffs.
type TariffRepository struct {
	db *sqlx.DB
}

// NewTariffRepository creates a new instance of TariffRepository.
func NewTariffRepository(db *sqlx.DB) *TariffRepository {
	return &TariffRepository{db: db}
}

// List returns every tariff ordered by value.
func (r *TariffRepository) List(ctx context.Context) ([]models.Tariff, error) {
	const query = `SELECT id, valor, descripcion FROM tarifas ORDER BY valor, id`
	var tariffs []models.Tariff
	if err := r.db.SelectContext(ctx, &tariffs, query); err != nil {
		return nil, fmt.Errorf("list tariffs: %w", err)
	}
	return tariffs, nil
}

// FindByID returns a tariff by identifier.
func (r *TariffRepository) FindByID(ctx context.Context, id int64) (*models.Tariff, error) {
	const query = `SELECT id, valor, descripcion FROM tarifas WHERE id = $1 LIMIT 1`
	var tariff models.Tariff
	if err := r.db.GetContext(ctx, &tariff, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tariff by id: %w", err)
	}
	return &tariff, nil
}

// Exists reports whether the tariff id is present.
func (r *TariffRepository) Exists(ctx context.Context, id int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM tarifas WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check tariff: %w", err)
	}
	return exists, nil
}

// Create inserts a tariff.
func (r *TariffRepository) Create(ctx context.Context, tariff *models.Tariff) error {
	const query = `INSERT INTO tarifas (valor, descripcion) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, tariff.Valor, tariff.Descripcion).Scan(&tariff.ID); err != nil {
		return fmt.Errorf("create tariff: %w", translate(err))
	}
	return nil
}

// Update stores value and description.
func (r *TariffRepository) Update(ctx context.Context, tariff *models.Tariff) error {
	const query = `UPDATE tarifas SET valor = :valor, descripcion = :descripcion WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tariff); err != nil {
		return fmt.Errorf("update tariff: %w", translate(err))
	}
	return nil
}

// CountCustomers returns how many customers are billed with the tariff.
func (r *TariffRepository) CountCustomers(ctx context.Context, id int64) (int, error) {
	const query = `SELECT COUNT(*) FROM clientes WHERE tarifa_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, id); err != nil {
		return 0, fmt.Errorf("count tariff customers: %w", err)
	}
	return total, nil
}

// Delete removes a tariff.
func (r *TariffRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM tarifas WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete tariff: %w", translate(err))
	}
	return nil
}
