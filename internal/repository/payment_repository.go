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

const paymentDetailColumns = `pg.id, pg.cliente_id, pg.fecha_pago, pg.mes, pg.anio, pg.monto, pg.metodo_pago_id, pg.plan_nombre, pg.tarifa_valor, pg.velocidad, pg.created_at, c.nombre AS cliente_nombre, c.apellido AS cliente_apellido, mp.nombre AS metodo_pago_nombre`

const paymentJoins = `FROM pagos pg JOIN clientes c ON c.id = pg.cliente_id JOIN metodos_pago mp ON mp.id = pg.metodo_pago_id`

// PaymentRepository provides database access for payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// List returns payments matching filter, newest first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	baseQuery := paymentJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ClienteID != nil {
		conditions = append(conditions, fmt.Sprintf("pg.cliente_id = $%d", len(args)+1))
		args = append(args, *filter.ClienteID)
	}
	if filter.Anio != nil {
		conditions = append(conditions, fmt.Sprintf("pg.anio = $%d", len(args)+1))
		args = append(args, *filter.Anio)
	}
	if filter.Mes != "" {
		conditions = append(conditions, fmt.Sprintf("UPPER(TRIM(pg.mes)) = $%d", len(args)+1))
		args = append(args, strings.ToUpper(strings.TrimSpace(filter.Mes)))
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	_, size, offset := filter.Normalize()

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY pg.fecha_pago DESC, pg.id DESC LIMIT %d OFFSET %d", paymentDetailColumns, baseQuery, size, offset)
	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// FindByID returns a payment by identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, id int64) (*models.PaymentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE pg.id = $1 LIMIT 1", paymentDetailColumns, paymentJoins)
	var payment models.PaymentDetail
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by id: %w", err)
	}
	return &payment, nil
}

// CountForPeriod counts payments already recorded for the customer period.
func (r *PaymentRepository) CountForPeriod(ctx context.Context, customerID int64, month models.Month, year int) (int, error) {
	const query = `SELECT COUNT(*) FROM pagos WHERE cliente_id = $1 AND UPPER(TRIM(mes)) = $2 AND anio = $3`
	var total int
	if err := r.db.GetContext(ctx, &total, query, customerID, month.String(), year); err != nil {
		return 0, fmt.Errorf("count payments for period: %w", err)
	}
	return total, nil
}

// Create inserts payment and fills its id.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO pagos (cliente_id, fecha_pago, mes, anio, monto, metodo_pago_id, plan_nombre, tarifa_valor, velocidad, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		payment.ClienteID, payment.FechaPago, payment.Mes, payment.Anio, payment.Monto,
		payment.MetodoPagoID, payment.PlanNombre, payment.TarifaValor, payment.Velocidad, payment.CreatedAt,
	).Scan(&payment.ID)
	if err != nil {
		return fmt.Errorf("create payment: %w", translate(err))
	}
	return nil
}

// Update stores the editable payment columns. The plan snapshot is kept.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	const query = `UPDATE pagos SET fecha_pago = :fecha_pago, mes = :mes, anio = :anio, monto = :monto, metodo_pago_id = :metodo_pago_id WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("update payment: %w", translate(err))
	}
	return nil
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM pagos WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

// MonthlyIncome sums payment amounts per calendar month of fecha_pago.
func (r *PaymentRepository) MonthlyIncome(ctx context.Context, year int) ([]models.MonthlyIncome, error) {
	const query = `SELECT EXTRACT(MONTH FROM fecha_pago)::int AS mes, COALESCE(SUM(monto), 0) AS total, COUNT(*) AS cantidad FROM pagos WHERE EXTRACT(YEAR FROM fecha_pago)::int = $1 GROUP BY mes ORDER BY mes`
	var rows []models.MonthlyIncome
	if err := r.db.SelectContext(ctx, &rows, query, year); err != nil {
		return nil, fmt.Errorf("monthly income: %w", err)
	}
	return rows, nil
}
