package models

import (
	"time"

	"github.com/samber/lo"
)

// Permission is a dotted "module.action" grant such as "clientes.crear".
type Permission struct {
	ID          int64   `db:"id" json:"id"`
	Nombre      string  `db:"nombre" json:"nombre"`
	Descripcion *string `db:"descripcion" json:"descripcion,omitempty"`
}

// UserPermission joins a user to a permission.
type UserPermission struct {
	UsuarioID  int64     `db:"usuario_id" json:"usuario_id"`
	PermisoID  int64     `db:"permiso_id" json:"permiso_id"`
	AsignadoEn time.Time `db:"asignado_en" json:"asignado_en"`
}

// AssignedPermission is a permission as listed for one user.
type AssignedPermission struct {
	Permission
	AsignadoEn time.Time `db:"asignado_en" json:"asignado_en"`
}

// HasAnyPermission reports whether granted intersects required. An empty
// required set never passes.
func HasAnyPermission(granted, required []string) bool {
	return lo.Some(granted, required)
}

// HasAllPermissions reports whether granted is a superset of required.
func HasAllPermissions(granted, required []string) bool {
	if len(required) == 0 {
		return false
	}
	return lo.Every(granted, required)
}
