package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentPeriod is the (month name, year) pair a payment was recorded for.
type PaymentPeriod struct {
	ClienteID int64  `db:"cliente_id"`
	Mes       string `db:"mes"`
	Anio      int    `db:"anio"`
}

// DelinquencyCandidate is one roster row fed to the delinquency engine.
type DelinquencyCandidate struct {
	ClienteID          int64           `db:"id"`
	Nombre             string          `db:"nombre"`
	Apellido           string          `db:"apellido"`
	Cedula             string          `db:"cedula"`
	Telefono           *string         `db:"telefono"`
	FechaInstalacion   time.Time       `db:"fecha_instalacion"`
	EstadoID           int64           `db:"estado_id"`
	SectorNombre       string          `db:"sector_nombre"`
	TipoServicioNombre string          `db:"tipo_servicio_nombre"`
	Tarifa             decimal.Decimal `db:"tarifa_valor"`
	Pagos              []PaymentPeriod `db:"-"`
}

// BillingPeriod is one month owed, with its clamped due date.
type BillingPeriod struct {
	Anio        int       `json:"anio"`
	Mes         Month     `json:"-"`
	MesNombre   string    `json:"mes"`
	Vencimiento time.Time `json:"vencimiento"`
}

// DelinquencyAssessment is the engine result for one customer.
type DelinquencyAssessment struct {
	ClienteID       int64           `json:"cliente_id"`
	DiaCorte        int             `json:"dia_corte"`
	Desde           BillingPeriod   `json:"desde"`
	PeriodosTotales int             `json:"periodos_totales"`
	PeriodosPagados int             `json:"periodos_pagados"`
	MesesPendientes int             `json:"meses_pendientes"`
	Pendientes      []BillingPeriod `json:"pendientes"`
	MontoAdeudado   decimal.Decimal `json:"monto_adeudado"`
	Tarifa          decimal.Decimal `json:"tarifa"`
	Moroso          bool            `json:"moroso"`
	PagosIgnorados  int             `json:"pagos_ignorados"`
	PagosDuplicados int             `json:"pagos_duplicados"`
	Motivo          string          `json:"motivo,omitempty"`
}

// DelinquentCustomer is one row of the morosos listing.
type DelinquentCustomer struct {
	ClienteID          int64           `json:"cliente_id"`
	Nombre             string          `json:"nombre"`
	Apellido           string          `json:"apellido"`
	Cedula             string          `json:"cedula"`
	Telefono           *string         `json:"telefono,omitempty"`
	SectorNombre       string          `json:"sector"`
	TipoServicioNombre string          `json:"tipo_servicio"`
	FechaInstalacion   time.Time       `json:"fecha_instalacion"`
	MesesPendientes    int             `json:"meses_pendientes"`
	MontoAdeudado      decimal.Decimal `json:"monto_adeudado"`
}
