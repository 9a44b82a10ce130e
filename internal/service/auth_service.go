package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
)

// Login terminal states, used for audit descriptions and metrics labels.
const (
	LoginOK           = "ok"
	LoginUserNotFound = "usuario_no_encontrado"
	LoginInactive     = "usuario_inactivo"
	LoginBadPassword  = "password_incorrecta"
	LoginLocked       = "bloqueado"
)

type authUserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error
}

type permissionResolver interface {
	NamesForUser(ctx context.Context, userID int64) ([]string, error)
}

type loginAttemptStore interface {
	Failures(ctx context.Context, username string) (int, error)
	RegisterFailure(ctx context.Context, username string) (int, error)
	Reset(ctx context.Context, username string) error
}

type auditSink interface {
	Record(ctx context.Context, entry models.AuditEntry)
	RecordAnonymous(ctx context.Context, entry models.AuditEntry)
}

type passwordHasher interface {
	Hash(plain string) (string, error)
	Verify(stored, plain string) bool
}

type loginMetrics interface {
	RecordLogin(outcome string)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret      string
	Expiry      time.Duration
	Issuer      string
	MaxAttempts int
}

// AuthDeps groups the collaborators of AuthService. Attempts and Metrics
// are optional.
type AuthDeps struct {
	Users       authUserRepository
	Permissions permissionResolver
	Attempts    loginAttemptStore
	Audit       auditSink
	Hasher      passwordHasher
	Metrics     loginMetrics
}

// AuthService provides authentication use cases.
type AuthService struct {
	deps      AuthDeps
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(deps AuthDeps, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiry <= 0 {
		config.Expiry = 8 * time.Hour
	}
	return &AuthService{deps: deps, validator: validate, logger: logger, config: config, now: time.Now}
}

// Login authenticates a user and issues a session token. Every terminal
// state writes exactly one bitácora entry.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "usuario y contraseña son obligatorios")
	}
	username := strings.TrimSpace(req.Username)

	if s.locked(ctx, username) {
		s.finishFailed(ctx, req, nil, models.AuditLoginLocked, LoginLocked)
		return nil, appErrors.Clone(appErrors.ErrAccountLocked, "")
	}

	user, err := s.deps.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.registerFailure(ctx, username)
			s.finishFailed(ctx, req, nil, models.AuditLoginFailed, LoginUserNotFound)
			return nil, appErrors.Clone(appErrors.ErrUserNotFound, "")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if !user.Active() {
		s.finishFailed(ctx, req, &user.ID, models.AuditLoginFailed, LoginInactive)
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	if !s.deps.Hasher.Verify(user.PasswordHash, req.Password) {
		s.registerFailure(ctx, username)
		s.finishFailed(ctx, req, &user.ID, models.AuditLoginFailed, LoginBadPassword)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	perms, err := s.deps.Permissions.NamesForUser(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to resolve permissions")
	}

	token, expiresAt, err := s.generateToken(user, perms)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	if s.deps.Attempts != nil {
		if err := s.deps.Attempts.Reset(ctx, username); err != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}

	s.deps.Audit.Record(ctx, models.AuditEntry{
		UsuarioID:   &user.ID,
		Accion:      models.AuditLogin,
		Modulo:      models.ModuleAuth,
		Descripcion: fmt.Sprintf("inicio de sesión de %s", user.Username),
		Nuevo:       map[string]interface{}{"username": user.Username, "funcion": user.Funcion},
		RequestMeta: req.RequestMeta,
	})
	s.recordOutcome(LoginOK)

	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Usuario: models.SessionUser{
			ID:       user.ID,
			Nombre:   user.Nombre,
			Apellido: user.Apellido,
			Funcion:  string(user.Funcion),
			Permisos: perms,
		},
	}, nil
}

func (s *AuthService) locked(ctx context.Context, username string) bool {
	if s.deps.Attempts == nil || s.config.MaxAttempts <= 0 {
		return false
	}
	n, err := s.deps.Attempts.Failures(ctx, username)
	if err != nil {
		s.logger.Warn("login attempt store unavailable", zap.Error(err))
		return false
	}
	return n >= s.config.MaxAttempts
}

func (s *AuthService) registerFailure(ctx context.Context, username string) {
	if s.deps.Attempts == nil || s.config.MaxAttempts <= 0 {
		return
	}
	if _, err := s.deps.Attempts.RegisterFailure(ctx, username); err != nil {
		s.logger.Warn("failed to register login failure", zap.Error(err))
	}
}

func (s *AuthService) finishFailed(ctx context.Context, req models.LoginRequest, userID *int64, action models.AuditAction, outcome string) {
	s.deps.Audit.RecordAnonymous(ctx, models.AuditEntry{
		UsuarioID:   userID,
		Accion:      action,
		Modulo:      models.ModuleAuth,
		Descripcion: fmt.Sprintf("inicio de sesión rechazado: %s", outcome),
		Nuevo:       map[string]interface{}{"username": req.Username, "motivo": outcome},
		RequestMeta: req.RequestMeta,
	})
	s.recordOutcome(outcome)
}

func (s *AuthService) recordOutcome(outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordLogin(outcome)
	}
}

// Logout records the end of a session. It always succeeds.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, meta models.RequestMeta) {
	if claims == nil {
		return
	}
	id := claims.UserID
	s.deps.Audit.Record(ctx, models.AuditEntry{
		UsuarioID:   &id,
		Accion:      models.AuditLogout,
		Modulo:      models.ModuleAuth,
		Descripcion: fmt.Sprintf("cierre de sesión de %s", claims.Username),
		RequestMeta: meta,
	})
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "datos de contraseña inválidos")
	}

	user, err := s.deps.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "usuario no encontrado")
		}
		return appErrors.Internal(err, "failed to load user")
	}

	if !s.deps.Hasher.Verify(user.PasswordHash, req.PasswordActual) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "la contraseña actual no coincide")
	}

	hash, err := s.deps.Hasher.Hash(req.PasswordNueva)
	if err != nil {
		return appErrors.Internal(err, "failed to hash password")
	}

	if err := s.deps.Users.UpdatePassword(ctx, userID, hash, s.now().UTC()); err != nil {
		return appErrors.Internal(err, "failed to update password")
	}

	s.deps.Audit.Record(ctx, models.AuditEntry{
		UsuarioID:   &userID,
		Accion:      models.AuditUpdate,
		Modulo:      models.ModuleUsers,
		Descripcion: fmt.Sprintf("cambio de contraseña de %s", user.Username),
		Nuevo:       map[string]interface{}{"id": userID, "password": req.PasswordNueva},
		RequestMeta: meta,
	})
	return nil
}

// ValidateToken parses and validates a session token. Expired tokens are
// reported apart from every other failure.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, appErrors.Clone(appErrors.ErrTokenNotValid, "")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrTokenExpired.Code, appErrors.ErrTokenExpired.Status, appErrors.ErrTokenExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrTokenInvalid.Code, appErrors.ErrTokenInvalid.Status, appErrors.ErrTokenInvalid.Message)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "")
	}
	return claims, nil
}

func (s *AuthService) generateToken(user *models.User, perms []string) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.Expiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Nombre:   user.DisplayName(),
		Funcion:  string(user.Funcion),
		Permisos: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
