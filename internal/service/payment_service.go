package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
)

const (
	minPaymentYear = 2000
	maxPaymentYear = 2100
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.PaymentDetail, error)
	CountForPeriod(ctx context.Context, customerID int64, month models.Month, year int) (int, error)
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id int64) error
	MonthlyIncome(ctx context.Context, year int) ([]models.MonthlyIncome, error)
}

type customerLookup interface {
	FindByID(ctx context.Context, id int64) (*models.CustomerDetail, error)
}

// PaymentRequest holds the payload for recording a payment.
type PaymentRequest struct {
	ClienteID    int64           `json:"cliente_id" validate:"required,gt=0"`
	FechaPago    string          `json:"fecha_pago" validate:"required" example:"2024-05-02"`
	Mes          string          `json:"mes" validate:"required" example:"MAYO"`
	Anio         int             `json:"anio" validate:"required"`
	Monto        decimal.Decimal `json:"monto" swaggertype:"string" example:"25.00"`
	MetodoPagoID int64           `json:"metodo_pago_id" validate:"required,gt=0"`
}

// PaymentService handles payment use cases.
type PaymentService struct {
	repo      paymentRepository
	customers customerLookup
	methods   existenceChecker
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	render    datasetRenderer
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo paymentRepository, customers customerLookup, methods existenceChecker, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, customers: customers, methods: methods, validator: validate, logger: logger, now: time.Now, render: export.Render}
}

// List returns payments and pagination metadata.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	if filter.Mes != "" {
		month, err := models.ParseMonth(filter.Mes)
		if err != nil {
			return nil, nil, appErrors.Validation(err, "mes inválido")
		}
		filter.Mes = month.String()
	}
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list payments")
	}
	return payments, filter.Paging.Pagination(total), nil
}

// ListForCustomer returns the payments of one customer.
func (s *PaymentService) ListForCustomer(ctx context.Context, customerID int64, paging models.Paging) ([]models.PaymentDetail, *models.Pagination, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, nil, loadError(err, "cliente no encontrado", "failed to load customer")
	}
	return s.List(ctx, models.PaymentFilter{ClienteID: &customerID, Paging: paging})
}

// Get returns a payment.
func (s *PaymentService) Get(ctx context.Context, id int64) (*models.PaymentDetail, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "pago no encontrado", "failed to load payment")
	}
	return payment, nil
}

// Create records a payment, capturing the customer's current plan and tariff.
// A second payment for the same period is accepted and logged.
func (s *PaymentService) Create(ctx context.Context, req PaymentRequest) (*models.PaymentDetail, error) {
	payment, month, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByID(ctx, req.ClienteID)
	if err != nil {
		return nil, loadError(err, "cliente no encontrado", "failed to load customer")
	}
	plan := customer.PlanNombre
	payment.PlanNombre = &plan
	payment.Velocidad = customer.PlanVelocidad
	payment.TarifaValor = decimal.NewNullDecimal(customer.TarifaValor)
	payment.ClienteID = customer.ID

	existing, err := s.repo.CountForPeriod(ctx, customer.ID, month, payment.Anio)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check payment period")
	}
	if existing > 0 {
		s.logger.Info("duplicate payment for period",
			zap.Int64("cliente_id", customer.ID),
			zap.String("mes", payment.Mes),
			zap.Int("anio", payment.Anio),
			zap.Int("existentes", existing),
		)
	}

	payment.CreatedAt = s.now().UTC()
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, writeError(err, "pago en conflicto", "failed to create payment")
	}
	return s.Get(ctx, payment.ID)
}

// Update edits date, period, amount and method. The customer and the plan
// snapshot of a payment never change.
func (s *PaymentService) Update(ctx context.Context, id int64, req PaymentRequest) (*models.PaymentDetail, *models.PaymentDetail, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.ClienteID != before.ClienteID {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "el cliente de un pago no puede cambiar")
	}
	payment, _, err := s.prepare(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	payment.ID = id
	payment.ClienteID = before.ClienteID
	if err := s.repo.Update(ctx, payment); err != nil {
		return nil, nil, writeError(err, "pago en conflicto", "failed to update payment")
	}
	after, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return after, before, nil
}

// Delete removes a payment.
func (s *PaymentService) Delete(ctx context.Context, id int64) (*models.PaymentDetail, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, appErrors.Internal(err, "failed to delete payment")
	}
	return before, nil
}

// MonthlyIncome returns twelve rows for year, zero-filled. year 0 means the
// current year.
func (s *PaymentService) MonthlyIncome(ctx context.Context, year int) ([]models.MonthlyIncome, error) {
	if year == 0 {
		year = s.now().Year()
	}
	if year < minPaymentYear || year > maxPaymentYear {
		return nil, appErrors.Clone(appErrors.ErrValidation, "año fuera de rango")
	}
	rows, err := s.repo.MonthlyIncome(ctx, year)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to aggregate income")
	}

	result := make([]models.MonthlyIncome, 12)
	for i := range result {
		result[i] = models.MonthlyIncome{Mes: i + 1, Total: decimal.Zero}
	}
	for _, row := range rows {
		if row.Mes < 1 || row.Mes > 12 {
			continue
		}
		result[row.Mes-1].Total = row.Total
		result[row.Mes-1].Cantidad = row.Cantidad
	}
	for i := range result {
		result[i].Nombre = models.Month(result[i].Mes).String()
	}
	return result, nil
}

// Export renders every payment matching filter.
func (s *PaymentService) Export(ctx context.Context, filter models.PaymentFilter, format export.Format) (*ExportFile, error) {
	rows := make([]models.PaymentDetail, 0)
	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		batch, _, err := s.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
		if len(batch) < exportPageSize {
			break
		}
	}

	data := export.Dataset{
		Title:   "Pagos",
		Headers: []string{"ID", "Cliente", "Fecha de pago", "Mes", "Año", "Monto", "Método de pago", "Plan", "Tarifa"},
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, p := range rows {
		tarifa := ""
		if p.TarifaValor.Valid {
			tarifa = p.TarifaValor.Decimal.StringFixed(2)
		}
		data.Rows = append(data.Rows, []interface{}{
			p.ID, p.ClienteNombre + " " + p.ClienteApellido, p.FechaPago.Format(dateLayout), p.Mes, p.Anio,
			p.Monto.StringFixed(2), p.MetodoPagoNombre, optionalString(p.PlanNombre), tarifa,
		})
	}
	file, err := renderExport(s.render, format, "pagos", data, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render payments export")
	}
	return file, nil
}

func (s *PaymentService) prepare(ctx context.Context, req PaymentRequest) (*models.Payment, models.Month, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, 0, appErrors.Validation(err, "datos de pago inválidos")
	}
	month, err := models.ParseMonth(req.Mes)
	if err != nil {
		return nil, 0, appErrors.Validation(err, "mes inválido")
	}
	if req.Anio < minPaymentYear || req.Anio > maxPaymentYear {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "año fuera de rango")
	}
	if !req.Monto.IsPositive() {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "el monto debe ser mayor que cero")
	}
	paidAt, err := parseDate(req.FechaPago, "fecha_pago")
	if err != nil {
		return nil, 0, err
	}

	if s.methods != nil {
		ok, err := s.methods.Exists(ctx, req.MetodoPagoID)
		if err != nil {
			return nil, 0, appErrors.Internal(err, "failed to validate payment method")
		}
		if !ok {
			return nil, 0, appErrors.Clone(appErrors.ErrNotFound, "método de pago no encontrado")
		}
	}

	return &models.Payment{
		FechaPago:    paidAt,
		Mes:          month.String(),
		Anio:         req.Anio,
		Monto:        req.Monto,
		MetodoPagoID: req.MetodoPagoID,
	}, month, nil
}
