package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vozip/isp-api/internal/models"
)

const userColumns = `u.id, u.cedula, u.username, u.password_hash, u.nombre, u.apellido, u.funcion, u.estado_id, e.nombre AS estado_nombre, u.created_at, u.updated_at`

const userJoins = `FROM usuarios u JOIN estados e ON e.id = u.estado_id`

// UserRepository provides database access for staff accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns a user by username with its status name.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE u.username = $1 LIMIT 1", userColumns, userJoins)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE u.id = $1 LIMIT 1", userColumns, userJoins)
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := userJoins + ` WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Funcion != nil {
		conditions = append(conditions, fmt.Sprintf("u.funcion = $%d", len(args)+1))
		args = append(args, string(*filter.Funcion))
	}
	if filter.EstadoID != nil {
		conditions = append(conditions, fmt.Sprintf("u.estado_id = $%d", len(args)+1))
		args = append(args, *filter.EstadoID)
	}
	if filter.Search != "" {
		idx := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.username) LIKE $%d OR LOWER(u.nombre) LIKE $%d OR LOWER(u.apellido) LIKE $%d)", idx, idx, idx))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}
	_, size, offset := filter.Normalize()

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY u.username ASC LIMIT %d OFFSET %d", userColumns, baseQuery, size, offset)
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// ExistsByUsername reports whether another user holds username.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM usuarios WHERE username = $1 AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, username, excludeID); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

// ExistsByCedula reports whether another user holds cedula.
func (r *UserRepository) ExistsByCedula(ctx context.Context, cedula string, excludeID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM usuarios WHERE cedula = $1 AND id <> $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, cedula, excludeID); err != nil {
		return false, fmt.Errorf("check user cedula: %w", err)
	}
	return exists, nil
}

// Create inserts a new user and fills its id and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `INSERT INTO usuarios (cedula, username, password_hash, nombre, apellido, funcion, estado_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	err := r.db.QueryRowxContext(ctx, query,
		user.Cedula, user.Username, user.PasswordHash, user.Nombre, user.Apellido,
		string(user.Funcion), user.EstadoID, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// Update updates mutable profile fields and refreshes updated_at.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE usuarios SET cedula = :cedula, username = :username, nombre = :nombre, apellido = :apellido, funcion = :funcion, estado_id = :estado_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", translate(err))
	}
	return nil
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE usuarios SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Delete removes the account. Assignments cascade and audit rows keep a null actor.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM usuarios WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete user: %w", translate(err))
	}
	return nil
}
