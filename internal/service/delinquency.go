package service

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vozip/isp-api/internal/models"
)

// DelinquencyConfig carries the morosos policy knobs.
type DelinquencyConfig struct {
	Threshold     int
	ReferenceYear int
}

func (c DelinquencyConfig) withDefaults() DelinquencyConfig {
	if c.Threshold <= 0 {
		c.Threshold = 3
	}
	if c.ReferenceYear <= 0 {
		c.ReferenceYear = 2024
	}
	return c
}

// Values of DelinquencyAssessment.Motivo.
const (
	ReasonExcludedStatus  = "estado_excluido"
	ReasonUnparseablePays = "pagos_ilegibles"
	ReasonNotBillable     = "tarifa_no_facturable"
)

type period struct {
	year  int
	month time.Month
}

func (p period) before(o period) bool {
	if p.year != o.year {
		return p.year < o.year
	}
	return p.month < o.month
}

func (p period) next() period {
	if p.month == time.December {
		return period{year: p.year + 1, month: time.January}
	}
	return period{year: p.year, month: p.month + 1}
}

// BillingDate returns day of the given month, clamped to its last day.
func BillingDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// ComputeDelinquency assesses one customer against today. The boolean is
// false when the customer takes no part in the roster: excluded status, or a
// last recorded payment whose month name does not parse. Motivo says which.
//
// The walk starts at the latest paid period in calendar order, or at the
// installation month floored to January of the reference year when nothing
// was paid, and yields one period per month that has begun by today.
func ComputeDelinquency(c models.DelinquencyCandidate, today time.Time, cfg DelinquencyConfig) (models.DelinquencyAssessment, bool) {
	cfg = cfg.withDefaults()
	day := c.FechaInstalacion.Day()
	out := models.DelinquencyAssessment{
		ClienteID:     c.ClienteID,
		DiaCorte:      day,
		Tarifa:        c.Tarifa,
		MontoAdeudado: decimal.Zero,
		Pendientes:    []models.BillingPeriod{},
	}

	if c.EstadoID == models.CustomerStatusSuspended || c.EstadoID == models.CustomerStatusRetired {
		out.Motivo = ReasonExcludedStatus
		return out, false
	}

	paid := make(map[period]struct{}, len(c.Pagos))
	var latest period
	for _, p := range c.Pagos {
		m, err := models.ParseMonth(p.Mes)
		if err != nil {
			out.PagosIgnorados++
			continue
		}
		key := period{year: p.Anio, month: time.Month(m)}
		if _, dup := paid[key]; dup {
			out.PagosDuplicados++
			continue
		}
		if len(paid) == 0 || latest.before(key) {
			latest = key
		}
		paid[key] = struct{}{}
	}
	if len(c.Pagos) > 0 && len(paid) == 0 {
		out.Motivo = ReasonUnparseablePays
		return out, false
	}
	if last, ok := lastRecorded(c.Pagos); ok {
		if _, err := models.ParseMonth(last.Mes); err != nil {
			out.Motivo = ReasonUnparseablePays
			return out, false
		}
	}

	anchor := latest
	if len(paid) == 0 {
		anchor = period{year: c.FechaInstalacion.Year(), month: c.FechaInstalacion.Month()}
		floor := period{year: cfg.ReferenceYear, month: time.January}
		if anchor.before(floor) {
			anchor = floor
		}
	}
	loc := today.Location()
	out.Desde = billingPeriod(anchor, day, loc)

	if !c.Tarifa.IsPositive() {
		out.Motivo = ReasonNotBillable
		return out, true
	}

	current := period{year: today.Year(), month: today.Month()}
	for p := anchor; !current.before(p); p = p.next() {
		out.PeriodosTotales++
		if _, ok := paid[p]; ok {
			out.PeriodosPagados++
			continue
		}
		out.Pendientes = append(out.Pendientes, billingPeriod(p, day, loc))
	}

	out.MesesPendientes = len(out.Pendientes)
	out.MontoAdeudado = c.Tarifa.Mul(decimal.NewFromInt(int64(out.MesesPendientes)))
	out.Moroso = out.MesesPendientes >= cfg.Threshold
	return out, true
}

// lastRecorded returns the row the roster query lists first: highest year,
// then the greatest stored month name in text order.
func lastRecorded(pagos []models.PaymentPeriod) (models.PaymentPeriod, bool) {
	if len(pagos) == 0 {
		return models.PaymentPeriod{}, false
	}
	last := pagos[0]
	for _, p := range pagos[1:] {
		if p.Anio > last.Anio || (p.Anio == last.Anio && normalizedMes(p.Mes) > normalizedMes(last.Mes)) {
			last = p
		}
	}
	return last, true
}

func normalizedMes(mes string) string {
	return strings.ToUpper(strings.TrimSpace(mes))
}

func billingPeriod(p period, day int, loc *time.Location) models.BillingPeriod {
	m := models.Month(p.month)
	return models.BillingPeriod{
		Anio:        p.year,
		Mes:         m,
		MesNombre:   m.String(),
		Vencimiento: BillingDate(p.year, p.month, day, loc),
	}
}
