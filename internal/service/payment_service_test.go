package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
)

type mockPaymentRepo struct {
	payments map[int64]models.PaymentDetail
	periods  map[string]int
	income   []models.MonthlyIncome
	nextID   int64
	lastList models.PaymentFilter
	updated  *models.Payment
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: map[int64]models.PaymentDetail{}, periods: map[string]int{}}
}

func (m *mockPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	m.lastList = filter
	out := make([]models.PaymentDetail, 0, len(m.payments))
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, id int64) (*models.PaymentDetail, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (m *mockPaymentRepo) CountForPeriod(ctx context.Context, customerID int64, month models.Month, year int) (int, error) {
	return m.periods[month.String()], nil
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	m.nextID++
	payment.ID = m.nextID
	m.payments[payment.ID] = models.PaymentDetail{Payment: *payment}
	m.periods[payment.Mes]++
	return nil
}

func (m *mockPaymentRepo) Update(ctx context.Context, payment *models.Payment) error {
	m.updated = payment
	stored := m.payments[payment.ID]
	stored.FechaPago = payment.FechaPago
	stored.Mes = payment.Mes
	stored.Anio = payment.Anio
	stored.Monto = payment.Monto
	stored.MetodoPagoID = payment.MetodoPagoID
	m.payments[payment.ID] = stored
	return nil
}

func (m *mockPaymentRepo) Delete(ctx context.Context, id int64) error {
	delete(m.payments, id)
	return nil
}

func (m *mockPaymentRepo) MonthlyIncome(ctx context.Context, year int) ([]models.MonthlyIncome, error) {
	return m.income, nil
}

type stubCustomerLookup map[int64]models.CustomerDetail

func (s stubCustomerLookup) FindByID(ctx context.Context, id int64) (*models.CustomerDetail, error) {
	c, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func paymentCustomers() stubCustomerLookup {
	speed := "50 Mbps"
	return stubCustomerLookup{5: {
		Customer:      models.Customer{ID: 5, Nombre: "Luis"},
		PlanNombre:    "Hogar 50",
		PlanVelocidad: &speed,
		TarifaValor:   decimal.RequireFromString("22.50"),
	}}
}

func paymentReq() PaymentRequest {
	return PaymentRequest{ClienteID: 5, FechaPago: "2024-05-02", Mes: " mayo ", Anio: 2024, Monto: decimal.RequireFromString("22.50"), MetodoPagoID: 1}
}

func TestPaymentCreateCapturesSnapshot(t *testing.T) {
	repo := newMockPaymentRepo()
	svc := NewPaymentService(repo, paymentCustomers(), staticExists{1: true}, nil, nil)

	created, err := svc.Create(context.Background(), paymentReq())
	require.NoError(t, err)
	assert.Equal(t, "MAYO", created.Mes)
	require.NotNil(t, created.PlanNombre)
	assert.Equal(t, "Hogar 50", *created.PlanNombre)
	assert.Equal(t, "50 Mbps", *created.Velocidad)
	assert.True(t, created.TarifaValor.Valid)
	assert.True(t, created.TarifaValor.Decimal.Equal(decimal.RequireFromString("22.5")))
}

func TestPaymentCreateValidation(t *testing.T) {
	svc := NewPaymentService(newMockPaymentRepo(), paymentCustomers(), staticExists{1: true}, nil, nil)

	cases := map[string]func(*PaymentRequest){
		"unknown month": func(r *PaymentRequest) { r.Mes = "Mayoo" },
		"year too low":  func(r *PaymentRequest) { r.Anio = 1999 },
		"year too high": func(r *PaymentRequest) { r.Anio = 2101 },
		"zero amount":   func(r *PaymentRequest) { r.Monto = decimal.Zero },
		"bad date":      func(r *PaymentRequest) { r.FechaPago = "ayer" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := paymentReq()
			mutate(&req)
			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}

	req := paymentReq()
	req.MetodoPagoID = 3
	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	req = paymentReq()
	req.ClienteID = 77
	_, err = svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestPaymentDuplicatePeriodAcceptedAndLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	repo := newMockPaymentRepo()
	svc := NewPaymentService(repo, paymentCustomers(), staticExists{1: true}, nil, zap.New(core))

	_, err := svc.Create(context.Background(), paymentReq())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), paymentReq())
	require.NoError(t, err)

	assert.Len(t, repo.payments, 2)
	assert.Equal(t, 1, logs.FilterMessage("duplicate payment for period").Len())
}

func TestPaymentUpdateKeepsCustomer(t *testing.T) {
	repo := newMockPaymentRepo()
	svc := NewPaymentService(repo, paymentCustomers(), staticExists{1: true}, nil, nil)
	created, err := svc.Create(context.Background(), paymentReq())
	require.NoError(t, err)

	req := paymentReq()
	req.ClienteID = 6
	_, _, err = svc.Update(context.Background(), created.ID, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = paymentReq()
	req.Mes = "junio"
	after, before, err := svc.Update(context.Background(), created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "MAYO", before.Mes)
	assert.Equal(t, "JUNIO", after.Mes)
	assert.Equal(t, "Hogar 50", *after.PlanNombre)
}

func TestPaymentMonthlyIncomeZeroFills(t *testing.T) {
	repo := newMockPaymentRepo()
	repo.income = []models.MonthlyIncome{{Mes: 3, Total: decimal.NewFromInt(120), Cantidad: 4}}
	svc := NewPaymentService(repo, paymentCustomers(), nil, nil, nil)
	svc.now = func() time.Time { return date(2024, time.July, 1) }

	rows, err := svc.MonthlyIncome(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 12)
	assert.Equal(t, "ENERO", rows[0].Nombre)
	assert.True(t, rows[0].Total.IsZero())
	assert.Equal(t, "MARZO", rows[2].Nombre)
	assert.Equal(t, 4, rows[2].Cantidad)

	_, err = svc.MonthlyIncome(context.Background(), 1800)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPaymentListNormalisesMonthFilter(t *testing.T) {
	repo := newMockPaymentRepo()
	svc := NewPaymentService(repo, paymentCustomers(), nil, nil, nil)

	_, _, err := svc.List(context.Background(), models.PaymentFilter{Mes: "setiembre"})
	require.NoError(t, err)
	assert.Equal(t, "SEPTIEMBRE", repo.lastList.Mes)

	_, _, err = svc.List(context.Background(), models.PaymentFilter{Mes: "13"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
