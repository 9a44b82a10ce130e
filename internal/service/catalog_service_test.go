package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
)

type mockCatalogRepo struct {
	table   string
	items   map[int64]models.CatalogItem
	refs    map[int64]int
	nextID  int64
	deleted []int64
}

func newMockCatalogRepo(table string, items ...models.CatalogItem) *mockCatalogRepo {
	m := &mockCatalogRepo{table: table, items: map[int64]models.CatalogItem{}, refs: map[int64]int{}}
	for _, it := range items {
		m.items[it.ID] = it
		if it.ID > m.nextID {
			m.nextID = it.ID
		}
	}
	return m
}

func (m *mockCatalogRepo) Table() string { return m.table }

func (m *mockCatalogRepo) List(ctx context.Context) ([]models.CatalogItem, error) {
	return nil, nil
}

func (m *mockCatalogRepo) FindByID(ctx context.Context, id int64) (*models.CatalogItem, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &it, nil
}

func (m *mockCatalogRepo) ExistsByName(ctx context.Context, nombre string, excludeID int64) (bool, error) {
	for id, it := range m.items {
		if id != excludeID && strings.EqualFold(it.Nombre, nombre) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCatalogRepo) Create(ctx context.Context, item *models.CatalogItem) error {
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = *item
	return nil
}

func (m *mockCatalogRepo) Update(ctx context.Context, item *models.CatalogItem) error {
	m.items[item.ID] = *item
	return nil
}

func (m *mockCatalogRepo) CountReferences(ctx context.Context, id int64) (int, error) {
	return m.refs[id], nil
}

func (m *mockCatalogRepo) Delete(ctx context.Context, id int64) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func TestCatalogListNeverNil(t *testing.T) {
	svc := NewCatalogService(newMockCatalogRepo("sectores"), "sector", nil, nil)
	items, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
}

func TestCatalogCreateUniqueName(t *testing.T) {
	repo := newMockCatalogRepo("planes", models.CatalogItem{ID: 1, Nombre: "Hogar 50"})
	svc := NewCatalogService(repo, "plan", nil, nil)

	_, err := svc.Create(context.Background(), CatalogRequest{Nombre: "hogar 50"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	speed := " 100 Mbps "
	item, err := svc.Create(context.Background(), CatalogRequest{Nombre: " Hogar 100 ", Velocidad: &speed})
	require.NoError(t, err)
	assert.Equal(t, "Hogar 100", item.Nombre)
	assert.Equal(t, "100 Mbps", *item.Velocidad)

	_, err = svc.Create(context.Background(), CatalogRequest{Nombre: "   "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCatalogUpdateKeepsOwnName(t *testing.T) {
	repo := newMockCatalogRepo("sectores", models.CatalogItem{ID: 1, Nombre: "Centro"}, models.CatalogItem{ID: 2, Nombre: "Norte"})
	svc := NewCatalogService(repo, "sector", nil, nil)

	after, before, err := svc.Update(context.Background(), 1, CatalogRequest{Nombre: "Centro"})
	require.NoError(t, err)
	assert.Equal(t, "Centro", before.Nombre)
	assert.Equal(t, int64(1), after.ID)

	_, _, err = svc.Update(context.Background(), 1, CatalogRequest{Nombre: "Norte"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestCatalogDeleteRefusedWhileReferenced(t *testing.T) {
	repo := newMockCatalogRepo("metodos_pago", models.CatalogItem{ID: 1, Nombre: "Efectivo"})
	repo.refs[1] = 3
	svc := NewCatalogService(repo, "método de pago", nil, nil)

	_, err := svc.Delete(context.Background(), 1)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 409, appErr.Status)
	assert.Equal(t, 3, appErr.Details["referencias"])
	assert.Empty(t, repo.deleted)

	repo.refs[1] = 0
	deleted, err := svc.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Efectivo", deleted.Nombre)
}

type mockTariffRepo struct {
	tariffs   map[int64]models.Tariff
	customers map[int64]int
	nextID    int64
}

func (m *mockTariffRepo) List(ctx context.Context) ([]models.Tariff, error) { return nil, nil }

func (m *mockTariffRepo) FindByID(ctx context.Context, id int64) (*models.Tariff, error) {
	t, ok := m.tariffs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (m *mockTariffRepo) Create(ctx context.Context, tariff *models.Tariff) error {
	m.nextID++
	tariff.ID = m.nextID
	m.tariffs[tariff.ID] = *tariff
	return nil
}

func (m *mockTariffRepo) Update(ctx context.Context, tariff *models.Tariff) error {
	m.tariffs[tariff.ID] = *tariff
	return nil
}

func (m *mockTariffRepo) CountCustomers(ctx context.Context, id int64) (int, error) {
	return m.customers[id], nil
}

func (m *mockTariffRepo) Delete(ctx context.Context, id int64) error {
	delete(m.tariffs, id)
	return nil
}

func TestTariffValueRules(t *testing.T) {
	repo := &mockTariffRepo{tariffs: map[int64]models.Tariff{}, customers: map[int64]int{}}
	svc := NewTariffService(repo, nil, nil)

	_, err := svc.Create(context.Background(), TariffRequest{Valor: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	free, err := svc.Create(context.Background(), TariffRequest{Valor: decimal.Zero})
	require.NoError(t, err)
	assert.False(t, free.Billable())

	repo.customers[free.ID] = 2
	_, err = svc.Delete(context.Background(), free.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
}
