package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesForUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	rows := sqlmock.NewRows([]string{"nombre"}).AddRow("clientes.crear").AddRow("clientes.leer")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT p.nombre FROM usuario_permisos up JOIN permisos p ON p.id = up.permiso_id WHERE up.usuario_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	names, err := repo.NamesForUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"clientes.crear", "clientes.leer"}, names)
}

func TestNamesForUserEmptyIsNotNil(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	mock.ExpectQuery("FROM usuario_permisos").WillReturnRows(sqlmock.NewRows([]string{"nombre"}))

	names, err := repo.NamesForUser(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestAssignAndRevoke(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPermissionRepository(db)

	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO usuario_permisos (usuario_id, permiso_id, asignado_en) VALUES ($1, $2, $3)")).
		WithArgs(int64(1), int64(2), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM usuario_permisos WHERE usuario_id = $1 AND permiso_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Assign(context.Background(), 1, 2, at))
	removed, err := repo.Revoke(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
