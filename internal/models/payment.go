package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a recorded payment for one billing period. Mes holds the stored
// month name; legacy rows may carry names ParseMonth rejects.
type Payment struct {
	ID           int64               `db:"id" json:"id"`
	ClienteID    int64               `db:"cliente_id" json:"cliente_id"`
	FechaPago    time.Time           `db:"fecha_pago" json:"fecha_pago"`
	Mes          string              `db:"mes" json:"mes"`
	Anio         int                 `db:"anio" json:"anio"`
	Monto        decimal.Decimal     `db:"monto" json:"monto"`
	MetodoPagoID int64               `db:"metodo_pago_id" json:"metodo_pago_id"`
	PlanNombre   *string             `db:"plan_nombre" json:"plan_nombre,omitempty"`
	TarifaValor  decimal.NullDecimal `db:"tarifa_valor" json:"tarifa_valor"`
	Velocidad    *string             `db:"velocidad" json:"velocidad,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
}

// PaymentDetail adds customer and payment method names.
type PaymentDetail struct {
	Payment
	ClienteNombre    string `db:"cliente_nombre" json:"cliente_nombre"`
	ClienteApellido  string `db:"cliente_apellido" json:"cliente_apellido"`
	MetodoPagoNombre string `db:"metodo_pago_nombre" json:"metodo_pago_nombre"`
}

// PaymentFilter captures filtering criteria for listing payments.
type PaymentFilter struct {
	ClienteID *int64
	Anio      *int
	Mes       string
	Paging
}

// MonthlyIncome aggregates payments received in one calendar month.
type MonthlyIncome struct {
	Mes      int             `db:"mes" json:"mes"`
	Nombre   string          `db:"-" json:"nombre"`
	Total    decimal.Decimal `db:"total" json:"total"`
	Cantidad int             `db:"cantidad" json:"cantidad"`
}
