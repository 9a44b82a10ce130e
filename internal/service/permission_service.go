package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
)

type permissionRepository interface {
	List(ctx context.Context) ([]models.Permission, error)
	FindByID(ctx context.Context, id int64) (*models.Permission, error)
	ExistsByName(ctx context.Context, nombre string, excludeID int64) (bool, error)
	Create(ctx context.Context, perm *models.Permission) error
	Update(ctx context.Context, perm *models.Permission) error
	Delete(ctx context.Context, id int64) error
	ListForUser(ctx context.Context, userID int64) ([]models.AssignedPermission, error)
	IsAssigned(ctx context.Context, userID, permissionID int64) (bool, error)
	Assign(ctx context.Context, userID, permissionID int64, at time.Time) error
	Revoke(ctx context.Context, userID, permissionID int64) (bool, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// PermissionRequest holds the payload for permissions.
type PermissionRequest struct {
	Nombre      string  `json:"nombre" validate:"required,max=100" example:"clientes.crear"`
	Descripcion *string `json:"descripcion" validate:"omitempty,max=255"`
}

// AssignPermissionRequest links an existing permission to a user.
type AssignPermissionRequest struct {
	PermisoID int64 `json:"permiso_id" validate:"required,gt=0"`
}

// PermissionAssignment describes one assign or revoke for the bitácora.
type PermissionAssignment struct {
	Usuario *models.User       `json:"usuario"`
	Permiso *models.Permission `json:"permiso"`
}

// PermissionService manages permissions and their assignment to users.
// Changes take effect on the user's next login.
type PermissionService struct {
	repo      permissionRepository
	users     userLookup
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPermissionService constructs the permission service.
func NewPermissionService(repo permissionRepository, users userLookup, validate *validator.Validate, logger *zap.Logger) *PermissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PermissionService{repo: repo, users: users, validator: validate, logger: logger, now: time.Now}
}

// List returns every permission.
func (s *PermissionService) List(ctx context.Context) ([]models.Permission, error) {
	perms, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list permissions")
	}
	if perms == nil {
		perms = []models.Permission{}
	}
	return perms, nil
}

// Get returns a permission.
func (s *PermissionService) Get(ctx context.Context, id int64) (*models.Permission, error) {
	perm, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "permiso no encontrado", "failed to load permission")
	}
	return perm, nil
}

// Create stores a permission with a unique name.
func (s *PermissionService) Create(ctx context.Context, req PermissionRequest) (*models.Permission, error) {
	perm, err := s.prepare(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, perm); err != nil {
		return nil, writeError(err, "el permiso ya existe", "failed to create permission")
	}
	return perm, nil
}

// Update changes a permission and returns it before and after.
func (s *PermissionService) Update(ctx context.Context, id int64, req PermissionRequest) (*models.Permission, *models.Permission, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	perm, err := s.prepare(ctx, req, id)
	if err != nil {
		return nil, nil, err
	}
	perm.ID = id
	if err := s.repo.Update(ctx, perm); err != nil {
		return nil, nil, writeError(err, "el permiso ya existe", "failed to update permission")
	}
	return perm, before, nil
}

// Delete removes a permission and its assignments.
func (s *PermissionService) Delete(ctx context.Context, id int64) (*models.Permission, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, writeError(err, "el permiso está en uso", "failed to delete permission")
	}
	return before, nil
}

// ListForUser returns the permissions assigned to a user.
func (s *PermissionService) ListForUser(ctx context.Context, userID int64) ([]models.AssignedPermission, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, loadError(err, "usuario no encontrado", "failed to load user")
	}
	perms, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list user permissions")
	}
	if perms == nil {
		perms = []models.AssignedPermission{}
	}
	return perms, nil
}

// Assign grants a permission to a user. Granting twice is a conflict.
func (s *PermissionService) Assign(ctx context.Context, userID int64, req AssignPermissionRequest) (*PermissionAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "permiso inválido")
	}
	assignment, err := s.resolve(ctx, userID, req.PermisoID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.repo.IsAssigned(ctx, userID, req.PermisoID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check assignment")
	}
	if assigned {
		return nil, appErrors.Clone(appErrors.ErrConflict, "el usuario ya tiene el permiso")
	}
	if err := s.repo.Assign(ctx, userID, req.PermisoID, s.now().UTC()); err != nil {
		return nil, writeError(err, "el usuario ya tiene el permiso", "failed to assign permission")
	}
	s.logger.Info("permission assigned", zap.Int64("usuario_id", userID), zap.String("permiso", assignment.Permiso.Nombre))
	return assignment, nil
}

// Revoke removes a permission from a user.
func (s *PermissionService) Revoke(ctx context.Context, userID, permissionID int64) (*PermissionAssignment, error) {
	assignment, err := s.resolve(ctx, userID, permissionID)
	if err != nil {
		return nil, err
	}
	removed, err := s.repo.Revoke(ctx, userID, permissionID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to revoke permission")
	}
	if !removed {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "el usuario no tiene el permiso")
	}
	s.logger.Info("permission revoked", zap.Int64("usuario_id", userID), zap.String("permiso", assignment.Permiso.Nombre))
	return assignment, nil
}

func (s *PermissionService) resolve(ctx context.Context, userID, permissionID int64) (*PermissionAssignment, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, loadError(err, "usuario no encontrado", "failed to load user")
	}
	perm, err := s.Get(ctx, permissionID)
	if err != nil {
		return nil, err
	}
	return &PermissionAssignment{Usuario: user, Permiso: perm}, nil
}

func (s *PermissionService) prepare(ctx context.Context, req PermissionRequest, excludeID int64) (*models.Permission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "datos de permiso inválidos")
	}
	name := strings.TrimSpace(req.Nombre)
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to validate permission name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "el permiso ya existe")
	}
	return &models.Permission{Nombre: name, Descripcion: trimOptional(req.Descripcion)}, nil
}
