package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
)

type tariffRepository interface {
	List(ctx context.Context) ([]models.Tariff, error)
	FindByID(ctx context.Context, id int64) (*models.Tariff, error)
	Create(ctx context.Context, tariff *models.Tariff) error
	Update(ctx context.Context, tariff *models.Tariff) error
	CountCustomers(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// TariffRequest holds the payload for tariffs. A zero value is a
// non-billable tariff.
type TariffRequest struct {
	Valor       decimal.Decimal `json:"valor" swaggertype:"string" example:"25.00"`
	Descripcion *string         `json:"descripcion" validate:"omitempty,max=255"`
}

// TariffService handles tariff use cases.
type TariffService struct {
	repo      tariffRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTariffService constructs the tariff service.
func NewTariffService(repo tariffRepository, validate *validator.Validate, logger *zap.Logger) *TariffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TariffService{repo: repo, validator: validate, logger: logger}
}

// List returns every tariff.
func (s *TariffService) List(ctx context.Context) ([]models.Tariff, error) {
	tariffs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list tariffs")
	}
	if tariffs == nil {
		tariffs = []models.Tariff{}
	}
	return tariffs, nil
}

// Get returns a tariff.
func (s *TariffService) Get(ctx context.Context, id int64) (*models.Tariff, error) {
	tariff, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "tarifa no encontrada", "failed to load tariff")
	}
	return tariff, nil
}

// Create stores a tariff.
func (s *TariffService) Create(ctx context.Context, req TariffRequest) (*models.Tariff, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	tariff := &models.Tariff{Valor: req.Valor, Descripcion: trimOptional(req.Descripcion)}
	if err := s.repo.Create(ctx, tariff); err != nil {
		return nil, writeError(err, "la tarifa ya existe", "failed to create tariff")
	}
	return tariff, nil
}

// Update changes a tariff and returns it before and after.
func (s *TariffService) Update(ctx context.Context, id int64, req TariffRequest) (*models.Tariff, *models.Tariff, error) {
	if err := s.validate(req); err != nil {
		return nil, nil, err
	}
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tariff := &models.Tariff{ID: id, Valor: req.Valor, Descripcion: trimOptional(req.Descripcion)}
	if err := s.repo.Update(ctx, tariff); err != nil {
		return nil, nil, writeError(err, "la tarifa ya existe", "failed to update tariff")
	}
	return tariff, before, nil
}

// Delete removes a tariff no customer is billed with.
func (s *TariffService) Delete(ctx context.Context, id int64) (*models.Tariff, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountCustomers(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count tariff customers")
	}
	if count > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "la tarifa está asignada a clientes"), map[string]interface{}{"clientes": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, writeError(err, "la tarifa está asignada a clientes", "failed to delete tariff")
	}
	return before, nil
}

func (s *TariffService) validate(req TariffRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "datos de tarifa inválidos")
	}
	if req.Valor.IsNegative() {
		return appErrors.Clone(appErrors.ErrValidation, "el valor de la tarifa no puede ser negativo")
	}
	return nil
}
