package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vozip/isp-api/internal/models"
)

// CatalogReference is a foreign key column pointing at a catalog table.
type CatalogReference struct {
	Table  string
	Column string
}

// CatalogTable describes one lookup table.
type CatalogTable struct {
	Table        string
	HasVelocidad bool
	References   []CatalogReference
}

// Lookup tables referenced by customers, users and payments.
var (
	PlansTable = CatalogTable{
		Table:        "planes",
		HasVelocidad: true,
		References:   []CatalogReference{{Table: "clientes", Column: "plan_id"}},
	}
	SectorsTable = CatalogTable{
		Table:      "sectores",
		References: []CatalogReference{{Table: "clientes", Column: "sector_id"}},
	}
	ServiceTypesTable = CatalogTable{
		Table:      "tipos_servicio",
		References: []CatalogReference{{Table: "clientes", Column: "tipo_servicio_id"}},
	}
	StatusesTable = CatalogTable{
		Table: "estados",
		References: []CatalogReference{
			{Table: "clientes", Column: "estado_id"},
			{Table: "usuarios", Column: "estado_id"},
		},
	}
	PaymentMethodsTable = CatalogTable{
		Table:      "metodos_pago",
		References: []CatalogReference{{Table: "pagos", Column: "metodo_pago_id"}},
	}
)

func (t CatalogTable) columns() string {
	if t.HasVelocidad {
		return "id, nombre, descripcion, velocidad"
	}
	return "id, nombre, descripcion, NULL AS velocidad"
}

// CatalogRepository provides database access for one lookup table.
type CatalogRepository struct {
	db    *sqlx.DB
	table CatalogTable
}

// NewCatalogRepository creates a repository bound to table.
func NewCatalogRepository(db *sqlx.DB, table CatalogTable) *CatalogRepository {
	return &CatalogRepository{db: db, table: table}
}

// Table returns the bound table name.
func (r *CatalogRepository) Table() string {
	return r.table.Table
}

// List returns every item ordered by name.
func (r *CatalogRepository) List(ctx context.Context) ([]models.CatalogItem, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY nombre", r.table.columns(), r.table.Table)
	var items []models.CatalogItem
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table.Table, err)
	}
	return items, nil
}

// FindByID returns an item by identifier.
func (r *CatalogRepository) FindByID(ctx context.Context, id int64) (*models.CatalogItem, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 LIMIT 1", r.table.columns(), r.table.Table)
	var item models.CatalogItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find %s by id: %w", r.table.Table, err)
	}
	return &item, nil
}

// Exists reports whether id is present.
func (r *CatalogRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", r.table.Table)
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("check %s: %w", r.table.Table, err)
	}
	return exists, nil
}

// ExistsByName reports whether another row already uses nombre.
func (r *CatalogRepository) ExistsByName(ctx context.Context, nombre string, excludeID int64) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE LOWER(nombre) = LOWER($1) AND id <> $2)", r.table.Table)
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, nombre, excludeID); err != nil {
		return false, fmt.Errorf("check %s name: %w", r.table.Table, err)
	}
	return exists, nil
}

// Create inserts item and fills its id.
func (r *CatalogRepository) Create(ctx context.Context, item *models.CatalogItem) error {
	var err error
	if r.table.HasVelocidad {
		query := fmt.Sprintf("INSERT INTO %s (nombre, descripcion, velocidad) VALUES ($1, $2, $3) RETURNING id", r.table.Table)
		err = r.db.QueryRowxContext(ctx, query, item.Nombre, item.Descripcion, item.Velocidad).Scan(&item.ID)
	} else {
		item.Velocidad = nil
		query := fmt.Sprintf("INSERT INTO %s (nombre, descripcion) VALUES ($1, $2) RETURNING id", r.table.Table)
		err = r.db.QueryRowxContext(ctx, query, item.Nombre, item.Descripcion).Scan(&item.ID)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", r.table.Table, translate(err))
	}
	return nil
}

// Update stores name, description and, for plans, speed.
func (r *CatalogRepository) Update(ctx context.Context, item *models.CatalogItem) error {
	query := fmt.Sprintf("UPDATE %s SET nombre = :nombre, descripcion = :descripcion WHERE id = :id", r.table.Table)
	if r.table.HasVelocidad {
		query = fmt.Sprintf("UPDATE %s SET nombre = :nombre, descripcion = :descripcion, velocidad = :velocidad WHERE id = :id", r.table.Table)
	}
	if _, err := r.db.NamedExecContext(ctx, query, item); err != nil {
		return fmt.Errorf("update %s: %w", r.table.Table, translate(err))
	}
	return nil
}

// CountReferences sums the rows of every referencing table pointing at id.
func (r *CatalogRepository) CountReferences(ctx context.Context, id int64) (int, error) {
	total := 0
	for _, ref := range r.table.References {
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", ref.Table, ref.Column)
		var n int
		if err := r.db.GetContext(ctx, &n, query, id); err != nil {
			return 0, fmt.Errorf("count %s references: %w", r.table.Table, err)
		}
		total += n
	}
	return total, nil
}

// Delete removes an item.
func (r *CatalogRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.table.Table)
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete %s: %w", r.table.Table, translate(err))
	}
	return nil
}
