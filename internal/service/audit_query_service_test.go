package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
)

type mockAuditReader struct {
	records   []models.AuditRecord
	total     int
	err       error
	findErr   error
	since     time.Time
	cutoff    time.Time
	removed   int64
	lastLimit int
}

func (m *mockAuditReader) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, int, error) {
	return m.records, m.total, m.err
}

func (m *mockAuditReader) ListAll(ctx context.Context, filter models.AuditFilter, limit int) ([]models.AuditRecord, error) {
	m.lastLimit = limit
	return m.records, m.err
}

func (m *mockAuditReader) FindByID(ctx context.Context, id int64) (*models.AuditRecord, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return &m.records[0], nil
}

func (m *mockAuditReader) Stats(ctx context.Context, since time.Time) (*models.AuditStats, error) {
	m.since = since
	return &models.AuditStats{Total: m.total}, m.err
}

func (m *mockAuditReader) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.cutoff = cutoff
	return m.removed, m.err
}

func newTestAuditQuery(repo *mockAuditReader, now time.Time) *AuditQueryService {
	svc := NewAuditQueryService(repo, nil, 90)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAuditQueryListPaginates(t *testing.T) {
	repo := &mockAuditReader{records: []models.AuditRecord{{ID: 1}}, total: 41}
	svc := newTestAuditQuery(repo, time.Now())

	records, page, err := svc.List(context.Background(), models.AuditFilter{Paging: models.Paging{Page: 2, PageSize: 20}})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 41, page.TotalCount)
	assert.Equal(t, 2, page.Page)
}

func TestAuditQueryRejectsUnknownFilters(t *testing.T) {
	svc := newTestAuditQuery(&mockAuditReader{}, time.Now())

	_, _, err := svc.List(context.Background(), models.AuditFilter{Accion: "NADA"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	from := time.Now()
	to := from.Add(-time.Hour)
	_, _, err = svc.List(context.Background(), models.AuditFilter{Desde: &from, Hasta: &to})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuditQueryGetNotFound(t *testing.T) {
	svc := newTestAuditQuery(&mockAuditReader{findErr: sql.ErrNoRows}, time.Now())
	_, err := svc.Get(context.Background(), 3)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAuditQueryStatsWindow(t *testing.T) {
	now := time.Date(2024, 5, 31, 12, 0, 0, 0, time.UTC)
	repo := &mockAuditReader{total: 3}
	svc := newTestAuditQuery(repo, now)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), repo.since)
}

func TestAuditQueryCleanupDefaultsToRetention(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockAuditReader{removed: 7}
	svc := newTestAuditQuery(repo, now)

	n, err := svc.Cleanup(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, now.AddDate(0, 0, -90), repo.cutoff)

	_, err = svc.Cleanup(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -10), repo.cutoff)

	_, err = svc.Cleanup(context.Background(), -1)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAuditQueryExport(t *testing.T) {
	user := "admin"
	repo := &mockAuditReader{records: []models.AuditRecord{
		{ID: 1, Username: &user, Accion: models.AuditLogin, Modulo: models.ModuleAuth, Fecha: time.Now()},
		{ID: 2, Accion: models.AuditLoginFailed, Modulo: models.ModuleAuth, Fecha: time.Now()},
	}}
	svc := newTestAuditQuery(repo, time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC))

	file, err := svc.Export(context.Background(), models.AuditFilter{}, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "bitacora_20240601_083000.csv", file.Filename)
	assert.Contains(t, string(file.Data), "admin")
	assert.Contains(t, string(file.Data), "Sistema")
	assert.Equal(t, maxAuditExportRows, repo.lastLimit)
}
