package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vozip/isp-api/internal/models"
)

const customerDetailColumns = `c.id, c.nombre, c.apellido, c.cedula, c.telefono, c.direccion, c.fecha_instalacion, c.estado_id, c.tipo_servicio_id, c.plan_id, c.sector_id, c.tarifa_id, c.created_at, c.updated_at, e.nombre AS estado_nombre, ts.nombre AS tipo_servicio_nombre, p.nombre AS plan_nombre, p.velocidad AS plan_velocidad, s.nombre AS sector_nombre, t.valor AS tarifa_valor`

const customerJoins = `FROM clientes c JOIN estados e ON e.id = c.estado_id JOIN tipos_servicio ts ON ts.id = c.tipo_servicio_id JOIN planes p ON p.id = c.plan_id JOIN sectores s ON s.id = c.sector_id JOIN tarifas t ON t.id = c.tarifa_id`

// CustomerRepository provides database access for subscribers.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// List returns customers matching filter with the total count.
func (r *CustomerRepository) List(ctx context.Context, filter models.CustomerFilter) ([]models.CustomerDetail, int, error) {
	baseQuery := customerJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.EstadoID != nil {
		conditions = append(conditions, fmt.Sprintf("c.estado_id = $%d", len(args)+1))
		args = append(args, *filter.EstadoID)
	}
	if filter.SectorID != nil {
		conditions = append(conditions, fmt.Sprintf("c.sector_id = $%d", len(args)+1))
		args = append(args, *filter.SectorID)
	}
	if filter.PlanID != nil {
		conditions = append(conditions, fmt.Sprintf("c.plan_id = $%d", len(args)+1))
		args = append(args, *filter.PlanID)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(c.nombre) LIKE $%d OR LOWER(c.apellido) LIKE $%d OR c.cedula LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"nombre":            "c.nombre",
		"apellido":          "c.apellido",
		"cedula":            "c.cedula",
		"fecha_instalacion": "c.fecha_instalacion",
		"created_at":        "c.created_at",
	}
	sortBy, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortBy = "c.apellido"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "ASC"
	}
	_, size, offset := filter.Normalize()

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", customerDetailColumns, baseQuery, sortBy, sortOrder, size, offset)
	var customers []models.CustomerDetail
	if err := r.db.SelectContext(ctx, &customers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}
	return customers, total, nil
}

// Search matches name, surname or national id for quick lookups.
func (r *CustomerRepository) Search(ctx context.Context, term string, limit int) ([]models.CustomerDetail, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := fmt.Sprintf("SELECT %s %s WHERE LOWER(c.nombre) LIKE $1 OR LOWER(c.apellido) LIKE $1 OR c.cedula LIKE $1 ORDER BY c.apellido, c.nombre LIMIT %d", customerDetailColumns, customerJoins, limit)
	var customers []models.CustomerDetail
	if err := r.db.SelectContext(ctx, &customers, query, "%"+strings.ToLower(strings.TrimSpace(term))+"%"); err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	return customers, nil
}

// FindByID returns a customer with joined catalog names.
func (r *CustomerRepository) FindByID(ctx context.Context, id int64) (*models.CustomerDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE c.id = $1 LIMIT 1", customerDetailColumns, customerJoins)
	var customer models.CustomerDetail
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find customer by id: %w", err)
	}
	return &customer, nil
}

// ExistsByCedula reports whether another customer holds cedula.
func (r *CustomerRepository) ExistsByCedula(ctx context.Context, cedula string, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM clientes WHERE cedula = $1 AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, cedula, excludeID); err != nil {
		return false, fmt.Errorf("check customer cedula: %w", err)
	}
	return exists, nil
}

// CountPayments returns how many payments reference the customer.
func (r *CustomerRepository) CountPayments(ctx context.Context, id int64) (int, error) {
	const query = `SELECT COUNT(*) FROM pagos WHERE cliente_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, id); err != nil {
		return 0, fmt.Errorf("count customer payments: %w", err)
	}
	return total, nil
}

// Create inserts customer and fills its id and timestamps.
func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	const query = `INSERT INTO clientes (nombre, apellido, cedula, telefono, direccion, fecha_instalacion, estado_id, tipo_servicio_id, plan_id, sector_id, tarifa_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		customer.Nombre, customer.Apellido, customer.Cedula, customer.Telefono, customer.Direccion,
		customer.FechaInstalacion, customer.EstadoID, customer.TipoServicioID, customer.PlanID,
		customer.SectorID, customer.TarifaID, customer.CreatedAt, customer.UpdatedAt,
	).Scan(&customer.ID)
	if err != nil {
		return fmt.Errorf("create customer: %w", translate(err))
	}
	return nil
}

// Update stores every mutable column of customer.
func (r *CustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	customer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE clientes SET nombre = :nombre, apellido = :apellido, cedula = :cedula, telefono = :telefono, direccion = :direccion, fecha_instalacion = :fecha_instalacion, estado_id = :estado_id, tipo_servicio_id = :tipo_servicio_id, plan_id = :plan_id, sector_id = :sector_id, tarifa_id = :tarifa_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, customer); err != nil {
		return fmt.Errorf("update customer: %w", translate(err))
	}
	return nil
}

// Delete removes the customer row.
func (r *CustomerRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM clientes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete customer: %w", translate(err))
	}
	return nil
}
