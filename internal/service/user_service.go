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

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ExistsByUsername(ctx context.Context, username string, excludeID int64) (bool, error)
	ExistsByCedula(ctx context.Context, cedula string, excludeID int64) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

// CreateUserRequest holds the payload for creating staff accounts.
type CreateUserRequest struct {
	Cedula   string `json:"cedula" validate:"required,max=20"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
	Nombre   string `json:"nombre" validate:"required,max=100"`
	Apellido string `json:"apellido" validate:"omitempty,max=100"`
	Funcion  string `json:"funcion" validate:"required" example:"Empleado"`
	EstadoID int64  `json:"estado_id" validate:"required,gt=0"`
}

// UpdateUserRequest holds the payload for updating staff accounts. An empty
// password keeps the current one.
type UpdateUserRequest struct {
	Cedula   string `json:"cedula" validate:"required,max=20"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"omitempty,min=6"`
	Nombre   string `json:"nombre" validate:"required,max=100"`
	Apellido string `json:"apellido" validate:"omitempty,max=100"`
	Funcion  string `json:"funcion" validate:"required"`
	EstadoID int64  `json:"estado_id" validate:"required,gt=0"`
}

// UserService handles staff account administration.
type UserService struct {
	repo      userRepository
	statuses  existenceChecker
	hasher    passwordHasher
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService constructs the user service.
func NewUserService(repo userRepository, statuses existenceChecker, hasher passwordHasher, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, statuses: statuses, hasher: hasher, validator: validate, logger: logger, now: time.Now}
}

// List returns users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	return users, filter.Paging.Pagination(total), nil
}

// Get returns a user.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "usuario no encontrado", "failed to load user")
	}
	return user, nil
}

// Create registers a new staff account.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "datos de usuario inválidos")
	}
	user, err := s.prepare(ctx, req.Cedula, req.Username, req.Nombre, req.Apellido, req.Funcion, req.EstadoID, 0)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	user.PasswordHash = hash
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, writeError(err, "usuario o cédula ya registrados", "failed to create user")
	}
	return s.Get(ctx, user.ID)
}

// Update modifies a staff account and returns it before and after.
func (s *UserService) Update(ctx context.Context, id int64, req UpdateUserRequest) (*models.User, *models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Validation(err, "datos de usuario inválidos")
	}
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.prepare(ctx, req.Cedula, req.Username, req.Nombre, req.Apellido, req.Funcion, req.EstadoID, id)
	if err != nil {
		return nil, nil, err
	}
	user.ID = id
	user.CreatedAt = before.CreatedAt
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, nil, writeError(err, "usuario o cédula ya registrados", "failed to update user")
	}
	if req.Password != "" {
		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return nil, nil, appErrors.Internal(err, "failed to hash password")
		}
		if err := s.repo.UpdatePassword(ctx, id, hash, s.now().UTC()); err != nil {
			return nil, nil, appErrors.Internal(err, "failed to update password")
		}
	}
	after, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return after, before, nil
}

// Delete removes a staff account. The caller cannot delete itself.
func (s *UserService) Delete(ctx context.Context, actorID, id int64) (*models.User, error) {
	if actorID == id {
		return nil, appErrors.Clone(appErrors.ErrConflict, "no puede eliminar su propia cuenta")
	}
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, writeError(err, "el usuario tiene registros asociados", "failed to delete user")
	}
	return before, nil
}

func (s *UserService) prepare(ctx context.Context, cedula, username, nombre, apellido, funcion string, estadoID, excludeID int64) (*models.User, error) {
	role, err := models.ParseRole(strings.TrimSpace(funcion))
	if err != nil {
		return nil, appErrors.Validation(err, "función inválida")
	}
	cedula = strings.TrimSpace(cedula)
	username = strings.TrimSpace(username)

	taken, err := s.repo.ExistsByUsername(ctx, username, excludeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to validate username")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "el nombre de usuario ya está registrado")
	}
	taken, err = s.repo.ExistsByCedula(ctx, cedula, excludeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to validate cedula")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "la cédula ya está registrada")
	}

	if s.statuses != nil {
		ok, err := s.statuses.Exists(ctx, estadoID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to validate status")
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "estado no encontrado")
		}
	}

	return &models.User{
		Cedula:   cedula,
		Username: username,
		Nombre:   strings.TrimSpace(nombre),
		Apellido: strings.TrimSpace(apellido),
		Funcion:  role,
		EstadoID: estadoID,
	}, nil
}
