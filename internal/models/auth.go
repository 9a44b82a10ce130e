package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a staff user.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	RequestMeta `json:"-"`
}

// SessionUser describes the authenticated user in login responses.
type SessionUser struct {
	ID       int64    `json:"id"`
	Nombre   string   `json:"nombre"`
	Apellido string   `json:"apellido"`
	Funcion  string   `json:"funcion"`
	Permisos []string `json:"permisos"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Usuario   SessionUser `json:"usuario"`
}

// ChangePasswordRequest payload for updating the caller's password.
type ChangePasswordRequest struct {
	PasswordActual string `json:"password_actual" validate:"required"`
	PasswordNueva  string `json:"password_nueva" validate:"required,min=6"`
}

// JWTClaims is the session payload. It is the only carrier of authorization
// state: permissions are resolved at login and never re-queried.
type JWTClaims struct {
	UserID   int64    `json:"id"`
	Username string   `json:"username"`
	Nombre   string   `json:"nombre"`
	Funcion  string   `json:"funcion"`
	Permisos []string `json:"permisos"`
	jwt.RegisteredClaims
}
