package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer status ids as seeded in the estados table.
const (
	CustomerStatusActive    int64 = 1
	CustomerStatusSuspended int64 = 2
	CustomerStatusRetired   int64 = 3
	CustomerStatusAgreement int64 = 4
)

// Customer is a subscriber row in the clientes table. FechaInstalacion anchors
// the billing-cycle day and cannot change once payments exist.
type Customer struct {
	ID               int64     `db:"id" json:"id"`
	Nombre           string    `db:"nombre" json:"nombre"`
	Apellido         string    `db:"apellido" json:"apellido"`
	Cedula           string    `db:"cedula" json:"cedula"`
	Telefono         *string   `db:"telefono" json:"telefono,omitempty"`
	Direccion        *string   `db:"direccion" json:"direccion,omitempty"`
	FechaInstalacion time.Time `db:"fecha_instalacion" json:"fecha_instalacion"`
	EstadoID         int64     `db:"estado_id" json:"estado_id"`
	TipoServicioID   int64     `db:"tipo_servicio_id" json:"tipo_servicio_id"`
	PlanID           int64     `db:"plan_id" json:"plan_id"`
	SectorID         int64     `db:"sector_id" json:"sector_id"`
	TarifaID         int64     `db:"tarifa_id" json:"tarifa_id"`
	Timestamps
}

// CustomerDetail adds the joined catalog names and current tariff value.
type CustomerDetail struct {
	Customer
	EstadoNombre       string          `db:"estado_nombre" json:"estado_nombre"`
	TipoServicioNombre string          `db:"tipo_servicio_nombre" json:"tipo_servicio_nombre"`
	PlanNombre         string          `db:"plan_nombre" json:"plan_nombre"`
	PlanVelocidad      *string         `db:"plan_velocidad" json:"plan_velocidad,omitempty"`
	SectorNombre       string          `db:"sector_nombre" json:"sector_nombre"`
	TarifaValor        decimal.Decimal `db:"tarifa_valor" json:"tarifa_valor"`
}

// CustomerFilter captures filtering criteria for listing customers.
type CustomerFilter struct {
	Search    string
	EstadoID  *int64
	SectorID  *int64
	PlanID    *int64
	SortBy    string
	SortOrder string
	Paging
}
