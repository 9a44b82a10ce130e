package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonthNormalises(t *testing.T) {
	cases := map[string]Month{
		"ENERO":         Enero,
		" febrero ":     Febrero,
		"Septiembre":    Septiembre,
		"setiembre":     Septiembre,
		"\tdiciembre\n": Diciembre,
	}
	for raw, want := range cases {
		got, err := ParseMonth(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := ParseMonth("ENE")
	assert.Error(t, err)
	_, err = ParseMonth("")
	assert.Error(t, err)
}

func TestMonthString(t *testing.T) {
	assert.Equal(t, "MARZO", Marzo.String())
	assert.Equal(t, "", Month(13).String())
	assert.False(t, Month(0).Valid())

	m, err := MonthFromNumber(12)
	require.NoError(t, err)
	assert.Equal(t, Diciembre, m)
	_, err = MonthFromNumber(0)
	assert.Error(t, err)
}

func TestPermissionSets(t *testing.T) {
	granted := []string{"clientes.leer"}
	required := []string{"clientes.leer", "clientes.eliminar"}

	assert.True(t, HasAnyPermission(granted, required))
	assert.False(t, HasAllPermissions(granted, required))
	assert.True(t, HasAllPermissions([]string{"clientes.eliminar", "clientes.leer", "pagos.leer"}, required))
	assert.False(t, HasAnyPermission(granted, nil))
	assert.False(t, HasAllPermissions(granted, nil))
}

func TestManagerRoleIsExact(t *testing.T) {
	assert.True(t, IsManagerRole("Administrador"))
	assert.True(t, IsManagerRole("Gerente"))
	assert.True(t, IsManagerRole("Admin"))
	assert.False(t, IsManagerRole("administrador"))
	assert.False(t, IsManagerRole("Administrador General"))
	assert.False(t, IsManagerRole("Técnico"))

	_, err := ParseRole("Técnico")
	assert.NoError(t, err)
	_, err = ParseRole("Supervisor")
	assert.Error(t, err)
}

func TestUserActiveIgnoresCase(t *testing.T) {
	assert.True(t, User{EstadoNombre: "ACTIVO"}.Active())
	assert.True(t, User{EstadoNombre: " activo"}.Active())
	assert.False(t, User{EstadoNombre: "inactivo"}.Active())
	assert.Equal(t, "Ana Pérez", User{Nombre: "Ana", Apellido: "Pérez"}.DisplayName())
}

func TestJSONBRoundTrip(t *testing.T) {
	var j JSONB
	require.NoError(t, j.Scan([]byte(`{"a":1}`)))
	v, err := j.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	out, err := json.Marshal(AuditRecord{DatosNuevos: j})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"datos_nuevos":{"a":1}`)
	assert.Contains(t, string(out), `"datos_anteriores":null`)

	var empty JSONB
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Error(t, j.Scan(42))
}

func TestPagingNormalize(t *testing.T) {
	page, size, offset := Paging{Page: 3, PageSize: 10}.Normalize()
	assert.Equal(t, 3, page)
	assert.Equal(t, 10, size)
	assert.Equal(t, 20, offset)

	page, size, offset = Paging{PageSize: 500}.Normalize()
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
	assert.Equal(t, 0, offset)
}
