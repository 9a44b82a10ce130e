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

const auditColumns = `b.id, b.usuario_id, u.username, b.accion, b.modulo, b.descripcion, b.datos_anteriores, b.datos_nuevos, b.ip, b.user_agent, b.fecha`

const auditJoins = `FROM bitacora b LEFT JOIN usuarios u ON u.id = b.usuario_id`

// AuditRepository persists and queries bitácora rows.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends one row.
func (r *AuditRepository) Create(ctx context.Context, record *models.AuditRecord) error {
	if record.Fecha.IsZero() {
		record.Fecha = time.Now().UTC()
	}
	const query = `INSERT INTO bitacora (usuario_id, accion, modulo, descripcion, datos_anteriores, datos_nuevos, ip, user_agent, fecha) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		record.UsuarioID, string(record.Accion), string(record.Modulo), record.Descripcion,
		record.DatosAnteriores, record.DatosNuevos, record.IP, record.UserAgent, record.Fecha,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("create audit record: %w", err)
	}
	return nil
}

func auditWhere(filter models.AuditFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.UsuarioID != nil {
		conditions = append(conditions, fmt.Sprintf("b.usuario_id = $%d", len(args)+1))
		args = append(args, *filter.UsuarioID)
	}
	if filter.Accion != "" {
		conditions = append(conditions, fmt.Sprintf("b.accion = $%d", len(args)+1))
		args = append(args, string(filter.Accion))
	}
	if filter.Modulo != "" {
		conditions = append(conditions, fmt.Sprintf("b.modulo = $%d", len(args)+1))
		args = append(args, string(filter.Modulo))
	}
	if filter.Desde != nil {
		conditions = append(conditions, fmt.Sprintf("b.fecha >= $%d", len(args)+1))
		args = append(args, *filter.Desde)
	}
	if filter.Hasta != nil {
		conditions = append(conditions, fmt.Sprintf("b.fecha <= $%d", len(args)+1))
		args = append(args, *filter.Hasta)
	}
	where := " WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// List returns rows matching filter, newest first.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, int, error) {
	where, args := auditWhere(filter)
	_, size, offset := filter.Normalize()

	listQuery := fmt.Sprintf("SELECT %s %s%s ORDER BY b.fecha DESC, b.id DESC LIMIT %d OFFSET %d", auditColumns, auditJoins, where, size, offset)
	var records []models.AuditRecord
	if err := r.db.SelectContext(ctx, &records, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list audit records: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM bitacora b"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit records: %w", err)
	}
	return records, total, nil
}

// ListAll returns every row matching filter without paging, for exports.
func (r *AuditRepository) ListAll(ctx context.Context, filter models.AuditFilter, limit int) ([]models.AuditRecord, error) {
	where, args := auditWhere(filter)
	query := fmt.Sprintf("SELECT %s %s%s ORDER BY b.fecha DESC, b.id DESC LIMIT %d", auditColumns, auditJoins, where, limit)
	var records []models.AuditRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("export audit records: %w", err)
	}
	return records, nil
}

// FindByID returns a row by identifier.
func (r *AuditRepository) FindByID(ctx context.Context, id int64) (*models.AuditRecord, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE b.id = $1 LIMIT 1", auditColumns, auditJoins)
	var record models.AuditRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find audit record: %w", err)
	}
	return &record, nil
}

// Stats computes totals by action and module, the ten most active users
// and the per-day volume since the given instant.
func (r *AuditRepository) Stats(ctx context.Context, since time.Time) (*models.AuditStats, error) {
	stats := &models.AuditStats{}
	if err := r.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM bitacora`); err != nil {
		return nil, fmt.Errorf("audit stats total: %w", err)
	}

	queries := []struct {
		dest  *[]models.CountBy
		query string
		args  []interface{}
		label string
	}{
		{&stats.PorAccion, `SELECT accion AS clave, COUNT(*) AS total FROM bitacora GROUP BY accion ORDER BY total DESC`, nil, "by action"},
		{&stats.PorModulo, `SELECT modulo AS clave, COUNT(*) AS total FROM bitacora GROUP BY modulo ORDER BY total DESC`, nil, "by module"},
		{&stats.PorUsuario, `SELECT COALESCE(u.username, 'anonimo') AS clave, COUNT(*) AS total FROM bitacora b LEFT JOIN usuarios u ON u.id = b.usuario_id GROUP BY clave ORDER BY total DESC LIMIT 10`, nil, "by user"},
		{&stats.PorDia, `SELECT TO_CHAR(fecha, 'YYYY-MM-DD') AS clave, COUNT(*) AS total FROM bitacora WHERE fecha >= $1 GROUP BY clave ORDER BY clave`, []interface{}{since}, "by day"},
	}
	for _, q := range queries {
		rows := []models.CountBy{}
		if err := r.db.SelectContext(ctx, &rows, q.query, q.args...); err != nil {
			return nil, fmt.Errorf("audit stats %s: %w", q.label, err)
		}
		*q.dest = rows
	}
	return stats, nil
}

// DeleteOlderThan purges rows dated before cutoff and returns how many went.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM bitacora WHERE fecha < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge audit records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge audit records: %w", err)
	}
	return n, nil
}
