package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vozip/isp-api/internal/models"
)

// PermissionRepository provides access to permisos and usuario_permisos.
type PermissionRepository struct {
	db *sqlx.DB
}

// NewPermissionRepository creates a new instance of PermissionRepository.
func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// List returns every permission ordered by name.
func (r *PermissionRepository) List(ctx context.Context) ([]models.Permission, error) {
	const query = `SELECT id, nombre, descripcion FROM permisos ORDER BY nombre`
	var perms []models.Permission
	if err := r.db.SelectContext(ctx, &perms, query); err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return perms, nil
}

// FindByID returns a permission by identifier.
func (r *PermissionRepository) FindByID(ctx context.Context, id int64) (*models.Permission, error) {
	const query = `SELECT id, nombre, descripcion FROM permisos WHERE id = $1 LIMIT 1`
	var perm models.Permission
	if err := r.db.GetContext(ctx, &perm, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find permission by id: %w", err)
	}
	return &perm, nil
}

// ExistsByName reports whether another permission uses nombre.
func (r *PermissionRepository) ExistsByName(ctx context.Context, nombre string, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM permisos WHERE nombre = $1 AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, nombre, excludeID); err != nil {
		return false, fmt.Errorf("check permission name: %w", err)
	}
	return exists, nil
}

// Create inserts a permission.
func (r *PermissionRepository) Create(ctx context.Context, perm *models.Permission) error {
	const query = `INSERT INTO permisos (nombre, descripcion) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, perm.Nombre, perm.Descripcion).Scan(&perm.ID); err != nil {
		return fmt.Errorf("create permission: %w", translate(err))
	}
	return nil
}

// Update stores name and description.
func (r *PermissionRepository) Update(ctx context.Context, perm *models.Permission) error {
	const query = `UPDATE permisos SET nombre = :nombre, descripcion = :descripcion WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, perm); err != nil {
		return fmt.Errorf("update permission: %w", translate(err))
	}
	return nil
}

// Delete removes a permission and, by cascade, its assignments.
func (r *PermissionRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM permisos WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	return nil
}

// NamesForUser resolves the effective permission set of a user.
func (r *PermissionRepository) NamesForUser(ctx context.Context, userID int64) ([]string, error) {
	const query = `SELECT p.nombre FROM usuario_permisos up JOIN permisos p ON p.id = up.permiso_id WHERE up.usuario_id = $1 ORDER BY p.nombre`
	names := []string{}
	if err := r.db.SelectContext(ctx, &names, query, userID); err != nil {
		return nil, fmt.Errorf("resolve user permissions: %w", err)
	}
	return names, nil
}

// ListForUser returns the permissions assigned to a user.
func (r *PermissionRepository) ListForUser(ctx context.Context, userID int64) ([]models.AssignedPermission, error) {
	const query = `SELECT p.id, p.nombre, p.descripcion, up.asignado_en FROM usuario_permisos up JOIN permisos p ON p.id = up.permiso_id WHERE up.usuario_id = $1 ORDER BY p.nombre`
	var perms []models.AssignedPermission
	if err := r.db.SelectContext(ctx, &perms, query, userID); err != nil {
		return nil, fmt.Errorf("list user permissions: %w", err)
	}
	return perms, nil
}

// IsAssigned reports whether the user already holds the permission.
func (r *PermissionRepository) IsAssigned(ctx context.Context, userID, permissionID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM usuario_permisos WHERE usuario_id = $1 AND permiso_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, permissionID); err != nil {
		return false, fmt.Errorf("check user permission: %w", err)
	}
	return exists, nil
}

// Assign links a permission to a user.
func (r *PermissionRepository) Assign(ctx context.Context, userID, permissionID int64, at time.Time) error {
	const query = `INSERT INTO usuario_permisos (usuario_id, permiso_id, asignado_en) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, userID, permissionID, at); err != nil {
		return fmt.Errorf("assign permission: %w", translate(err))
	}
	return nil
}

// Revoke unlinks a permission from a user and reports whether a row was removed.
func (r *PermissionRepository) Revoke(ctx context.Context, userID, permissionID int64) (bool, error) {
	const query = `DELETE FROM usuario_permisos WHERE usuario_id = $1 AND permiso_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, permissionID)
	if err != nil {
		return false, fmt.Errorf("revoke permission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke permission: %w", err)
	}
	return n > 0, nil
}
