package models

import (
	"fmt"
	"strings"
)

// Role is the staff function label carried in the session token.
type Role string

const (
	RoleAdministrador Role = "Administrador"
	RoleGerente       Role = "Gerente"
	RoleAdmin         Role = "Admin"
	RoleTecnico       Role = "Técnico"
	RoleEmpleado      Role = "Empleado"
)

var knownRoles = map[Role]struct{}{
	RoleAdministrador: {},
	RoleGerente:       {},
	RoleAdmin:         {},
	RoleTecnico:       {},
	RoleEmpleado:      {},
}

// managerRoles is the allow-list for role-gated operations. Matching is exact.
var managerRoles = map[Role]struct{}{
	RoleAdministrador: {},
	RoleGerente:       {},
	RoleAdmin:         {},
}

// ParseRole accepts one of the known labels exactly as written.
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if _, ok := knownRoles[r]; !ok {
		return "", fmt.Errorf("función desconocida %q", raw)
	}
	return r, nil
}

// IsManagerRole reports whether label passes the role gate.
func IsManagerRole(label string) bool {
	_, ok := managerRoles[Role(label)]
	return ok
}

// ManagerRoles lists the role gate allow-list.
func ManagerRoles() []string {
	return []string{string(RoleAdministrador), string(RoleGerente), string(RoleAdmin)}
}

// UserStatusActive is the estados.nombre value of an enabled staff account.
const UserStatusActive = "activo"

// User is a staff account stored in the usuarios table.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Cedula       string `db:"cedula" json:"cedula"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
	Nombre       string `db:"nombre" json:"nombre"`
	Apellido     string `db:"apellido" json:"apellido"`
	Funcion      Role   `db:"funcion" json:"funcion"`
	EstadoID     int64  `db:"estado_id" json:"estado_id"`
	EstadoNombre string `db:"estado_nombre" json:"estado_nombre,omitempty"`
	Timestamps
}

// Active reports whether the joined status name is "activo", ignoring case.
func (u User) Active() bool {
	return strings.EqualFold(strings.TrimSpace(u.EstadoNombre), UserStatusActive)
}

// DisplayName joins name and surname.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.Nombre + " " + u.Apellido)
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Search   string
	Funcion  *Role
	EstadoID *int64
	Paging
}
