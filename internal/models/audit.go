package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// AuditAction is the bitácora action vocabulary.
type AuditAction string

const (
	AuditLogin       AuditAction = "LOGIN"
	AuditLogout      AuditAction = "LOGOUT"
	AuditLoginFailed AuditAction = "LOGIN_FALLIDO"
	AuditLoginLocked AuditAction = "LOGIN_BLOQUEADO"
	AuditCreate      AuditAction = "CREAR"
	AuditUpdate      AuditAction = "ACTUALIZAR"
	AuditDelete      AuditAction = "ELIMINAR"
	AuditExport      AuditAction = "EXPORTAR"
	AuditQuery       AuditAction = "CONSULTAR"
	AuditAssignPerm  AuditAction = "ASIGNAR_PERMISO"
	AuditRevokePerm  AuditAction = "REVOCAR_PERMISO"
)

// Valid reports whether a is part of the vocabulary.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditLogin, AuditLogout, AuditLoginFailed, AuditLoginLocked, AuditCreate, AuditUpdate,
		AuditDelete, AuditExport, AuditQuery, AuditAssignPerm, AuditRevokePerm:
		return true
	}
	return false
}

// AuditModule names the business domain an action touched.
type AuditModule string

const (
	ModuleAuth          AuditModule = "AUTH"
	ModuleCustomers     AuditModule = "CLIENTES"
	ModulePayments      AuditModule = "PAGOS"
	ModuleTariffs       AuditModule = "TARIFAS"
	ModulePlans         AuditModule = "PLANES"
	ModuleSectors       AuditModule = "SECTORES"
	ModuleServiceTypes  AuditModule = "TIPOS_SERVICIO"
	ModuleStatuses      AuditModule = "ESTADOS"
	ModulePaymentMethod AuditModule = "METODOS_PAGO"
	ModuleUsers         AuditModule = "USUARIOS"
	ModulePermissions   AuditModule = "PERMISOS"
	ModuleAudit         AuditModule = "BITACORA"
	ModuleDelinquency   AuditModule = "MOROSOS"
)

// Valid reports whether m is part of the vocabulary.
func (m AuditModule) Valid() bool {
	switch m {
	case ModuleAuth, ModuleCustomers, ModulePayments, ModuleTariffs, ModulePlans, ModuleSectors,
		ModuleServiceTypes, ModuleStatuses, ModulePaymentMethod, ModuleUsers, ModulePermissions,
		ModuleAudit, ModuleDelinquency:
		return true
	}
	return false
}

// JSONB holds a raw JSON document column. A nil value is SQL NULL and JSON null.
type JSONB []byte

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSONB(v)
	default:
		return fmt.Errorf("jsonb: unsupported type %T", src)
	}
	return nil
}

// MarshalJSON emits the stored document verbatim.
func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores a copy of data.
func (j *JSONB) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], data...)
	return nil
}

// AuditRecord is one append-only bitácora row.
type AuditRecord struct {
	ID              int64       `db:"id" json:"id"`
	UsuarioID       *int64      `db:"usuario_id" json:"usuario_id"`
	Username        *string     `db:"username" json:"username,omitempty"`
	Accion          AuditAction `db:"accion" json:"accion"`
	Modulo          AuditModule `db:"modulo" json:"modulo"`
	Descripcion     string      `db:"descripcion" json:"descripcion"`
	DatosAnteriores JSONB       `db:"datos_anteriores" json:"datos_anteriores"`
	DatosNuevos     JSONB       `db:"datos_nuevos" json:"datos_nuevos"`
	IP              string      `db:"ip" json:"ip"`
	UserAgent       string      `db:"user_agent" json:"user_agent"`
	Fecha           time.Time   `db:"fecha" json:"fecha"`
}

// AuditEntry is an audit intent before persistence. Anterior and Nuevo are
// arbitrary values serialised to JSON; Nuevo is redacted first.
type AuditEntry struct {
	UsuarioID   *int64
	Accion      AuditAction
	Modulo      AuditModule
	Descripcion string
	Anterior    interface{}
	Nuevo       interface{}
	RequestMeta
}

// AuditFilter captures filtering criteria for listing bitácora rows.
type AuditFilter struct {
	UsuarioID *int64
	Accion    AuditAction
	Modulo    AuditModule
	Desde     *time.Time
	Hasta     *time.Time
	Paging
}

// CountBy is a grouped count.
type CountBy struct {
	Clave string `db:"clave" json:"clave"`
	Total int    `db:"total" json:"total"`
}

// AuditStats summarises the bitácora.
type AuditStats struct {
	Total      int       `json:"total"`
	PorAccion  []CountBy `json:"por_accion"`
	PorModulo  []CountBy `json:"por_modulo"`
	PorUsuario []CountBy `json:"por_usuario"`
	PorDia     []CountBy `json:"por_dia"`
}

// AuditIntent is what a handler attaches to its request once the business
// operation succeeded. The audit hook fills actor and client metadata.
type AuditIntent struct {
	Accion      AuditAction
	Modulo      AuditModule
	Descripcion string
	Anterior    interface{}
	Nuevo       interface{}
}
