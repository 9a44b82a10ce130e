package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
)

type catalogRepository interface {
	Table() string
	List(ctx context.Context) ([]models.CatalogItem, error)
	FindByID(ctx context.Context, id int64) (*models.CatalogItem, error)
	ExistsByName(ctx context.Context, nombre string, excludeID int64) (bool, error)
	Create(ctx context.Context, item *models.CatalogItem) error
	Update(ctx context.Context, item *models.CatalogItem) error
	CountReferences(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// CatalogRequest holds the payload for lookup tables. Velocidad only applies
// to plans.
type CatalogRequest struct {
	Nombre      string  `json:"nombre" validate:"required,max=100"`
	Descripcion *string `json:"descripcion" validate:"omitempty,max=255"`
	Velocidad   *string `json:"velocidad" validate:"omitempty,max=50"`
}

// CatalogService serves one lookup table: plans, sectors, service types,
// statuses or payment methods.
type CatalogService struct {
	repo      catalogRepository
	label     string
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs a catalog service. label names a row in
// messages, for example "plan".
func NewCatalogService(repo catalogRepository, label string, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if label == "" {
		label = repo.Table()
	}
	return &CatalogService{repo: repo, label: label, validator: validate, logger: logger.With(zap.String("catalog", repo.Table()))}
}

// List returns every row.
func (s *CatalogService) List(ctx context.Context) ([]models.CatalogItem, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, fmt.Sprintf("failed to list %s", s.repo.Table()))
	}
	if items == nil {
		items = []models.CatalogItem{}
	}
	return items, nil
}

// Get returns a row.
func (s *CatalogService) Get(ctx context.Context, id int64) (*models.CatalogItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, fmt.Sprintf("%s no encontrado", s.label), fmt.Sprintf("failed to load %s", s.repo.Table()))
	}
	return item, nil
}

// Create stores a row with a unique name.
func (s *CatalogService) Create(ctx context.Context, req CatalogRequest) (*models.CatalogItem, error) {
	item, err := s.prepare(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, writeError(err, s.duplicateMessage(), fmt.Sprintf("failed to create %s", s.repo.Table()))
	}
	return item, nil
}

// Update changes a row and returns it before and after.
func (s *CatalogService) Update(ctx context.Context, id int64, req CatalogRequest) (*models.CatalogItem, *models.CatalogItem, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	item, err := s.prepare(ctx, req, id)
	if err != nil {
		return nil, nil, err
	}
	item.ID = id
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, nil, writeError(err, s.duplicateMessage(), fmt.Sprintf("failed to update %s", s.repo.Table()))
	}
	return item, before, nil
}

// Delete removes a row nothing references.
func (s *CatalogService) Delete(ctx context.Context, id int64) (*models.CatalogItem, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, fmt.Sprintf("failed to count %s references", s.repo.Table()))
	}
	if refs > 0 {
		s.logger.Debug("catalog delete refused", zap.Int64("id", id), zap.Int("referencias", refs))
		return nil, s.inUse(refs)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, writeError(err, fmt.Sprintf("el %s está en uso", s.label), fmt.Sprintf("failed to delete %s", s.repo.Table()))
	}
	return before, nil
}

func (s *CatalogService) prepare(ctx context.Context, req CatalogRequest, excludeID int64) (*models.CatalogItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, fmt.Sprintf("datos de %s inválidos", s.label))
	}
	name := strings.TrimSpace(req.Nombre)
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "el nombre es obligatorio")
	}
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return nil, appErrors.Internal(err, fmt.Sprintf("failed to validate %s name", s.repo.Table()))
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, s.duplicateMessage())
	}
	return &models.CatalogItem{
		Nombre:      name,
		Descripcion: trimOptional(req.Descripcion),
		Velocidad:   trimOptional(req.Velocidad),
	}, nil
}

func (s *CatalogService) duplicateMessage() string {
	return fmt.Sprintf("ya existe un %s con ese nombre", s.label)
}

func (s *CatalogService) inUse(refs int) error {
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("el %s está en uso", s.label)),
		map[string]interface{}{"referencias": refs},
	)
}
