package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
)

type customerRepository interface {
	List(ctx context.Context, filter models.CustomerFilter) ([]models.CustomerDetail, int, error)
	Search(ctx context.Context, term string, limit int) ([]models.CustomerDetail, error)
	FindByID(ctx context.Context, id int64) (*models.CustomerDetail, error)
	ExistsByCedula(ctx context.Context, cedula string, excludeID int64) (bool, error)
	CountPayments(ctx context.Context, id int64) (int, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id int64) error
}

type existenceChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// CustomerReferences are the lookups a customer row points to.
type CustomerReferences struct {
	Statuses     existenceChecker
	ServiceTypes existenceChecker
	Plans        existenceChecker
	Sectors      existenceChecker
	Tariffs      existenceChecker
}

// CustomerRequest holds the payload for creating and updating customers.
type CustomerRequest struct {
	Nombre           string  `json:"nombre" validate:"required,max=100"`
	Apellido         string  `json:"apellido" validate:"required,max=100"`
	Cedula           string  `json:"cedula" validate:"required,max=20"`
	Telefono         *string `json:"telefono" validate:"omitempty,max=20"`
	Direccion        *string `json:"direccion" validate:"omitempty,max=255"`
	FechaInstalacion string  `json:"fecha_instalacion" validate:"required" example:"2024-03-15"`
	EstadoID         int64   `json:"estado_id" validate:"required,gt=0"`
	TipoServicioID   int64   `json:"tipo_servicio_id" validate:"required,gt=0"`
	PlanID           int64   `json:"plan_id" validate:"required,gt=0"`
	SectorID         int64   `json:"sector_id" validate:"required,gt=0"`
	TarifaID         int64   `json:"tarifa_id" validate:"required,gt=0"`
}

const defaultSearchLimit = 20

// CustomerService handles subscriber use cases.
type CustomerService struct {
	repo      customerRepository
	refs      CustomerReferences
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	render    datasetRenderer
}

// NewCustomerService constructs the customer service.
func NewCustomerService(repo customerRepository, refs CustomerReferences, validate *validator.Validate, logger *zap.Logger) *CustomerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerService{repo: repo, refs: refs, validator: validate, logger: logger, now: time.Now, render: export.Render}
}

// List returns customers and pagination metadata.
func (s *CustomerService) List(ctx context.Context, filter models.CustomerFilter) ([]models.CustomerDetail, *models.Pagination, error) {
	customers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list customers")
	}
	return customers, filter.Paging.Pagination(total), nil
}

// Search matches name, surname or cedula.
func (s *CustomerService) Search(ctx context.Context, term string, limit int) ([]models.CustomerDetail, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "el término de búsqueda es obligatorio")
	}
	if limit <= 0 || limit > 100 {
		limit = defaultSearchLimit
	}
	customers, err := s.repo.Search(ctx, term, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to search customers")
	}
	return customers, nil
}

// Get returns detailed customer information.
func (s *CustomerService) Get(ctx context.Context, id int64) (*models.CustomerDetail, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, loadError(err, "cliente no encontrado", "failed to load customer")
	}
	return customer, nil
}

// Create registers a new customer.
func (s *CustomerService) Create(ctx context.Context, req CustomerRequest) (*models.CustomerDetail, error) {
	customer, err := s.prepare(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, writeError(err, "la cédula ya está registrada", "failed to create customer")
	}
	return s.Get(ctx, customer.ID)
}

// Update modifies a customer and returns the stored row before and after.
func (s *CustomerService) Update(ctx context.Context, id int64, req CustomerRequest) (*models.CustomerDetail, *models.CustomerDetail, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	customer, err := s.prepare(ctx, req, id)
	if err != nil {
		return nil, nil, err
	}

	if !sameDay(customer.FechaInstalacion, before.FechaInstalacion) {
		payments, err := s.repo.CountPayments(ctx, id)
		if err != nil {
			return nil, nil, appErrors.Internal(err, "failed to count customer payments")
		}
		if payments > 0 {
			return nil, nil, appErrors.Clone(appErrors.ErrConflict, "la fecha de instalación no puede cambiar si el cliente tiene pagos")
		}
	}

	customer.ID = id
	customer.CreatedAt = before.CreatedAt
	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, nil, writeError(err, "la cédula ya está registrada", "failed to update customer")
	}
	after, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return after, before, nil
}

// Delete removes a customer. Customers with payments cannot be removed.
func (s *CustomerService) Delete(ctx context.Context, id int64) (*models.CustomerDetail, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, writeError(err, "el cliente tiene pagos registrados", "failed to delete customer")
	}
	return before, nil
}

// Export renders every customer matching filter.
func (s *CustomerService) Export(ctx context.Context, filter models.CustomerFilter, format export.Format) (*ExportFile, error) {
	rows := make([]models.CustomerDetail, 0)
	filter.PageSize = exportPageSize
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list customers")
		}
		rows = append(rows, batch...)
		if len(batch) == 0 || len(rows) >= total {
			break
		}
	}

	data := export.Dataset{
		Title:   "Clientes",
		Headers: []string{"ID", "Cédula", "Nombre", "Apellido", "Teléfono", "Dirección", "Fecha de instalación", "Estado", "Tipo de servicio", "Plan", "Sector", "Tarifa"},
		Rows:    make([][]interface{}, 0, len(rows)),
	}
	for _, c := range rows {
		data.Rows = append(data.Rows, []interface{}{
			c.ID, c.Cedula, c.Nombre, c.Apellido, optionalString(c.Telefono), optionalString(c.Direccion),
			c.FechaInstalacion.Format(dateLayout), c.EstadoNombre, c.TipoServicioNombre, c.PlanNombre,
			c.SectorNombre, c.TarifaValor.StringFixed(2),
		})
	}
	file, err := renderExport(s.render, format, "clientes", data, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render customers export")
	}
	return file, nil
}

func (s *CustomerService) prepare(ctx context.Context, req CustomerRequest, excludeID int64) (*models.Customer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "datos de cliente inválidos")
	}
	installed, err := parseDate(req.FechaInstalacion, "fecha_instalacion")
	if err != nil {
		return nil, err
	}

	cedula := strings.TrimSpace(req.Cedula)
	exists, err := s.repo.ExistsByCedula(ctx, cedula, excludeID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to validate cedula")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "la cédula ya está registrada")
	}

	checks := []struct {
		name    string
		id      int64
		checker existenceChecker
	}{
		{"estado", req.EstadoID, s.refs.Statuses},
		{"tipo de servicio", req.TipoServicioID, s.refs.ServiceTypes},
		{"plan", req.PlanID, s.refs.Plans},
		{"sector", req.SectorID, s.refs.Sectors},
		{"tarifa", req.TarifaID, s.refs.Tariffs},
	}
	for _, check := range checks {
		if check.checker == nil {
			continue
		}
		ok, err := check.checker.Exists(ctx, check.id)
		if err != nil {
			return nil, appErrors.Internal(err, fmt.Sprintf("failed to validate %s", check.name))
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %d no encontrado", check.name, check.id))
		}
	}

	return &models.Customer{
		Nombre:           strings.TrimSpace(req.Nombre),
		Apellido:         strings.TrimSpace(req.Apellido),
		Cedula:           cedula,
		Telefono:         trimOptional(req.Telefono),
		Direccion:        trimOptional(req.Direccion),
		FechaInstalacion: installed,
		EstadoID:         req.EstadoID,
		TipoServicioID:   req.TipoServicioID,
		PlanID:           req.PlanID,
		SectorID:         req.SectorID,
		TarifaID:         req.TarifaID,
	}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
