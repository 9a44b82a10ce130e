package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
)

type mockDelinquencyRepo struct {
	roster    []models.DelinquencyCandidate
	rosterErr error
	single    *models.DelinquencyCandidate
	singleErr error
}

func (m *mockDelinquencyRepo) Roster(ctx context.Context) ([]models.DelinquencyCandidate, error) {
	return m.roster, m.rosterErr
}

func (m *mockDelinquencyRepo) Candidate(ctx context.Context, customerID int64) (*models.DelinquencyCandidate, error) {
	return m.single, m.singleErr
}

type spyScanMetrics struct {
	calls   int
	flagged int
}

func (s *spyScanMetrics) ObserveDelinquencyScan(d time.Duration, flagged int) {
	s.calls++
	s.flagged = flagged
}

func rosterEntry(id int64, apellido string, installed time.Time, status int64, pagos ...models.PaymentPeriod) models.DelinquencyCandidate {
	return models.DelinquencyCandidate{
		ClienteID:        id,
		Nombre:           "N",
		Apellido:         apellido,
		FechaInstalacion: installed,
		EstadoID:         status,
		Tarifa:           decimal.NewFromInt(100),
		Pagos:            pagos,
	}
}

func newTestDelinquencyService(repo *mockDelinquencyRepo, metrics delinquencyMetrics, today time.Time) *DelinquencyService {
	svc := NewDelinquencyService(repo, metrics, nil, DelinquencyConfig{Threshold: 3, ReferenceYear: 2024})
	svc.now = func() time.Time { return today }
	return svc
}

func TestDelinquencyListFiltersAndSorts(t *testing.T) {
	repo := &mockDelinquencyRepo{roster: []models.DelinquencyCandidate{
		rosterEntry(1, "Zapata", date(2024, 1, 5), models.CustomerStatusActive),
		rosterEntry(2, "Alvarez", date(2024, 3, 5), models.CustomerStatusActive),
		rosterEntry(3, "Borges", date(2024, 1, 5), models.CustomerStatusSuspended),
		rosterEntry(4, "Castro", date(2024, 1, 5), models.CustomerStatusActive, paid("MAYO", 2024)),
		rosterEntry(5, "Duarte", date(2024, 1, 5), models.CustomerStatusActive, paid("XX", 2024)),
		rosterEntry(6, "Arias", date(2024, 3, 5), models.CustomerStatusAgreement),
	}}
	metrics := &spyScanMetrics{}
	svc := newTestDelinquencyService(repo, metrics, date(2024, 6, 10))

	list, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, int64(1), list[0].ClienteID)
	assert.Equal(t, 6, list[0].MesesPendientes)
	assert.Equal(t, int64(2), list[1].ClienteID)
	assert.Equal(t, int64(6), list[2].ClienteID)
	assert.True(t, decimal.NewFromInt(400).Equal(list[1].MontoAdeudado))
	assert.Equal(t, 1, metrics.calls)
	assert.Equal(t, 3, metrics.flagged)
}

func TestDelinquencyListCustomThreshold(t *testing.T) {
	repo := &mockDelinquencyRepo{roster: []models.DelinquencyCandidate{
		rosterEntry(1, "A", date(2024, 1, 5), models.CustomerStatusActive),
		rosterEntry(2, "B", date(2024, 5, 5), models.CustomerStatusActive),
	}}
	svc := newTestDelinquencyService(repo, nil, date(2024, 6, 10))

	list, err := svc.List(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ClienteID)
}

func TestDelinquencyListRepositoryFailure(t *testing.T) {
	svc := newTestDelinquencyService(&mockDelinquencyRepo{rosterErr: errors.New("db down")}, nil, time.Now())

	_, err := svc.List(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestDelinquencyAssessBelowThreshold(t *testing.T) {
	c := rosterEntry(9, "A", date(2024, 1, 31), models.CustomerStatusActive, paid("ENERO", 2024))
	svc := newTestDelinquencyService(&mockDelinquencyRepo{single: &c}, nil, date(2024, 3, 15))

	res, err := svc.Assess(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 2, res.MesesPendientes)
	assert.False(t, res.Moroso)
	assert.Len(t, res.Pendientes, 2)
}

func TestDelinquencyAssessNotFound(t *testing.T) {
	svc := newTestDelinquencyService(&mockDelinquencyRepo{singleErr: sql.ErrNoRows}, nil, time.Now())

	_, err := svc.Assess(context.Background(), 9)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDelinquencyExportCSV(t *testing.T) {
	repo := &mockDelinquencyRepo{roster: []models.DelinquencyCandidate{
		rosterEntry(1, "Zapata", date(2024, 1, 5), models.CustomerStatusActive),
	}}
	svc := newTestDelinquencyService(repo, nil, date(2024, 6, 10))

	file, err := svc.Export(context.Background(), 0, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "morosos_20240610_000000.csv", file.Filename)
	assert.Equal(t, 1, file.Rows)
	assert.Contains(t, string(file.Data), "Zapata")
	assert.Contains(t, string(file.Data), "600.00")
}
