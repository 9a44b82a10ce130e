package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozip/isp-api/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func candidate(installed time.Time, tariff int64, pagos ...models.PaymentPeriod) models.DelinquencyCandidate {
	return models.DelinquencyCandidate{
		ClienteID:        1,
		Nombre:           "Ana",
		Apellido:         "Pérez",
		FechaInstalacion: installed,
		EstadoID:         models.CustomerStatusActive,
		Tarifa:           decimal.NewFromInt(tariff),
		Pagos:            pagos,
	}
}

func paid(mes string, anio int) models.PaymentPeriod {
	return models.PaymentPeriod{ClienteID: 1, Mes: mes, Anio: anio}
}

var defaultCfg = DelinquencyConfig{Threshold: 3, ReferenceYear: 2024}

func TestDelinquencyNoPaymentsSinceInstallation(t *testing.T) {
	res, ok := ComputeDelinquency(candidate(date(2024, 1, 15), 50000), date(2024, 7, 20), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 7, res.MesesPendientes)
	assert.True(t, res.Moroso)
	assert.True(t, decimal.NewFromInt(350000).Equal(res.MontoAdeudado))
	assert.Equal(t, models.Enero, res.Pendientes[0].Mes)
	assert.Equal(t, models.Julio, res.Pendientes[6].Mes)
	assert.Equal(t, 15, res.DiaCorte)
}

func TestDelinquencyClampedMonthEndBelowThreshold(t *testing.T) {
	res, ok := ComputeDelinquency(candidate(date(2024, 1, 31), 50000, paid("ENERO", 2024)), date(2024, 3, 15), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 3, res.PeriodosTotales)
	assert.Equal(t, 1, res.PeriodosPagados)
	assert.Equal(t, 2, res.MesesPendientes)
	assert.False(t, res.Moroso)
	require.Len(t, res.Pendientes, 2)
	assert.Equal(t, date(2024, 2, 29), res.Pendientes[0].Vencimiento)
	assert.Equal(t, date(2024, 3, 31), res.Pendientes[1].Vencimiento)
}

func TestBillingDateClampsFebruary(t *testing.T) {
	assert.Equal(t, date(2024, 2, 29), BillingDate(2024, time.February, 31, time.UTC))
	assert.Equal(t, date(2023, 2, 28), BillingDate(2023, time.February, 31, time.UTC))
	assert.Equal(t, date(2024, 4, 30), BillingDate(2024, time.April, 31, nil))
	assert.Equal(t, date(2024, 5, 31), BillingDate(2024, time.May, 31, time.UTC))
}

func TestDelinquencyNonBillableTariffNeverFlagged(t *testing.T) {
	for _, tariff := range []int64{0, -10} {
		res, ok := ComputeDelinquency(candidate(date(2024, 1, 1), tariff), date(2026, 1, 1), defaultCfg)
		assert.True(t, ok)
		assert.False(t, res.Moroso)
		assert.Equal(t, 0, res.MesesPendientes)
		assert.True(t, res.MontoAdeudado.IsZero())
		assert.Equal(t, ReasonNotBillable, res.Motivo)
	}
}

func TestDelinquencyExcludedStatuses(t *testing.T) {
	for _, status := range []int64{models.CustomerStatusSuspended, models.CustomerStatusRetired} {
		c := candidate(date(2024, 1, 1), 50000)
		c.EstadoID = status
		res, ok := ComputeDelinquency(c, date(2025, 1, 1), defaultCfg)
		assert.False(t, ok)
		assert.False(t, res.Moroso)
		assert.Equal(t, ReasonExcludedStatus, res.Motivo)
	}

	c := candidate(date(2024, 1, 1), 50000)
	c.EstadoID = models.CustomerStatusAgreement
	res, ok := ComputeDelinquency(c, date(2024, 6, 1), defaultCfg)
	assert.True(t, ok)
	assert.True(t, res.Moroso)
}

func TestDelinquencyAnchorFlooredToReferenceYear(t *testing.T) {
	res, ok := ComputeDelinquency(candidate(date(2019, 6, 10), 1000), date(2024, 2, 20), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 2024, res.Desde.Anio)
	assert.Equal(t, models.Enero, res.Desde.Mes)
	assert.Equal(t, 2, res.MesesPendientes)
}

func TestDelinquencyAnchorEqualsInstallationAfterReference(t *testing.T) {
	res, ok := ComputeDelinquency(candidate(date(2024, 9, 5), 1000), date(2024, 9, 6), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 2024, res.Desde.Anio)
	assert.Equal(t, models.Septiembre, res.Desde.Mes)
	assert.Equal(t, 1, res.MesesPendientes)
}

func TestDelinquencyAnchorUsesCalendarLatestPayment(t *testing.T) {
	// Lexically MARZO sorts before ENERO, so order of arrival must not matter.
	c := candidate(date(2024, 1, 10), 1000, paid("ENERO", 2024), paid("MARZO", 2024), paid("FEBRERO", 2024))
	res, ok := ComputeDelinquency(c, date(2024, 6, 15), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, models.Marzo, res.Desde.Mes)
	assert.Equal(t, 3, res.MesesPendientes)
	assert.True(t, res.Moroso)
}

func TestDelinquencyOlderUnparseableMonthsIgnored(t *testing.T) {
	c := candidate(date(2024, 1, 10), 1000, paid(" enero ", 2024), paid("ENE", 2024))
	res, ok := ComputeDelinquency(c, date(2024, 2, 15), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 1, res.PagosIgnorados)
	assert.Equal(t, 1, res.MesesPendientes)
}

func TestDelinquencyUnparseableLastPaymentSkipsCustomer(t *testing.T) {
	// XYZ is listed before ENERO by the roster query, so it is the last payment.
	c := candidate(date(2024, 1, 10), 1000, paid("ENERO", 2024), paid("XYZ", 2024))
	res, ok := ComputeDelinquency(c, date(2024, 7, 20), defaultCfg)
	assert.False(t, ok)
	assert.Equal(t, ReasonUnparseablePays, res.Motivo)
	assert.False(t, res.Moroso)
	assert.Zero(t, res.MesesPendientes)
}

func TestDelinquencyUnparseableRowInOlderYearIgnored(t *testing.T) {
	c := candidate(date(2023, 1, 10), 1000, paid("XYZ", 2023), paid("ENERO", 2024))
	res, ok := ComputeDelinquency(c, date(2024, 7, 20), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 1, res.PagosIgnorados)
	assert.Equal(t, models.Enero, res.Desde.Mes)
	assert.Equal(t, 6, res.MesesPendientes)
	assert.True(t, res.Moroso)
}

func TestDelinquencyAllPaymentsUnparseableSkipsCustomer(t *testing.T) {
	c := candidate(date(2024, 1, 10), 1000, paid("ENE", 2024), paid("???", 2024))
	res, ok := ComputeDelinquency(c, date(2024, 12, 15), defaultCfg)
	assert.False(t, ok)
	assert.Equal(t, ReasonUnparseablePays, res.Motivo)
	assert.False(t, res.Moroso)
}

func TestDelinquencyDuplicatePaymentsCountOnce(t *testing.T) {
	c := candidate(date(2024, 1, 10), 1000, paid("ENERO", 2024), paid("enero", 2024))
	res, ok := ComputeDelinquency(c, date(2024, 4, 15), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 1, res.PagosDuplicados)
	assert.Equal(t, 3, res.MesesPendientes)
}

func TestDelinquencyGapsBeforeLatestPaymentAreNotCounted(t *testing.T) {
	c := candidate(date(2024, 1, 10), 1000, paid("MAYO", 2024))
	res, ok := ComputeDelinquency(c, date(2024, 6, 1), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 1, res.MesesPendientes)
}

func TestDelinquencyFutureInstallationOwesNothing(t *testing.T) {
	res, ok := ComputeDelinquency(candidate(date(2025, 3, 1), 1000), date(2025, 1, 15), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 0, res.MesesPendientes)
	assert.NotNil(t, res.Pendientes)
}

func TestDelinquencyUnpaidMonotoneInToday(t *testing.T) {
	c := candidate(date(2024, 3, 31), 1250, paid("ABRIL", 2024), paid("JUNIO", 2024))
	prev := -1
	for today := date(2024, 1, 1); today.Before(date(2026, 1, 1)); today = today.AddDate(0, 0, 9) {
		res, ok := ComputeDelinquency(c, today, defaultCfg)
		require.True(t, ok)
		assert.GreaterOrEqual(t, res.MesesPendientes, prev, today.String())
		prev = res.MesesPendientes
	}
}

func TestDelinquencyOwedIsExactMultiple(t *testing.T) {
	tariff := decimal.RequireFromString("33333.33")
	c := candidate(date(2024, 1, 1), 0)
	c.Tarifa = tariff
	res, ok := ComputeDelinquency(c, date(2024, 12, 31), defaultCfg)
	require.True(t, ok)
	assert.Equal(t, 12, res.MesesPendientes)
	assert.Equal(t, "399999.96", res.MontoAdeudado.String())
	assert.True(t, tariff.Mul(decimal.NewFromInt(int64(res.MesesPendientes))).Equal(res.MontoAdeudado))
}

func TestDelinquencyThresholdDefaults(t *testing.T) {
	res, ok := ComputeDelinquency(candidate(date(2024, 1, 1), 1000), date(2024, 3, 1), DelinquencyConfig{})
	require.True(t, ok)
	assert.Equal(t, 3, res.MesesPendientes)
	assert.True(t, res.Moroso)

	res, _ = ComputeDelinquency(candidate(date(2024, 1, 1), 1000), date(2024, 3, 1), DelinquencyConfig{Threshold: 4})
	assert.False(t, res.Moroso)
}
