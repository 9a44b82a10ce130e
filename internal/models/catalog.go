package models

import "github.com/shopspring/decimal"

// Tariff is the monthly rate referenced by customers.
type Tariff struct {
	ID          int64           `db:"id" json:"id"`
	Valor       decimal.Decimal `db:"valor" json:"valor"`
	Descripcion *string         `db:"descripcion" json:"descripcion,omitempty"`
}

// Billable reports whether the tariff produces a charge.
func (t Tariff) Billable() bool {
	return t.Valor.IsPositive()
}

// CatalogItem is a row of one of the lookup tables (planes, sectores,
// tipos_servicio, estados, metodos_pago). Velocidad is only used by planes.
type CatalogItem struct {
	ID          int64   `db:"id" json:"id"`
	Nombre      string  `db:"nombre" json:"nombre"`
	Descripcion *string `db:"descripcion" json:"descripcion,omitempty"`
	Velocidad   *string `db:"velocidad" json:"velocidad,omitempty"`
}
