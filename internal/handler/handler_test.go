package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozip/isp-api/internal/middleware"
	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/internal/service"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/export"
	"github.com/vozip/isp-api/pkg/response"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withClaims(c *gin.Context, userID int64, perms ...string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Username: "admin", Funcion: "Administrador", Permisos: perms})
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type authMock struct {
	loginReq    models.LoginRequest
	loginResp   *models.LoginResponse
	loginErr    error
	logoutCalls int
	changedFor  int64
}

func (m *authMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.loginReq = req
	return m.loginResp, m.loginErr
}

func (m *authMock) Logout(ctx context.Context, claims *models.JWTClaims, meta models.RequestMeta) {
	m.logoutCalls++
}

func (m *authMock) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest, meta models.RequestMeta) error {
	m.changedFor = userID
	return nil
}

func TestAuthHandlerLoginCapturesClientMeta(t *testing.T) {
	mock := &authMock{loginResp: &models.LoginResponse{Token: "tok"}}
	h := NewAuthHandler(mock)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "secret"})
	c, w := newGinContext(http.MethodPost, "/api/auth/login", body)
	c.Request.Header.Set("X-Forwarded-For", "10.0.0.7, 172.16.0.1")
	c.Request.Header.Set("User-Agent", "curl/8.0")

	h.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", mock.loginReq.Username)
	assert.Equal(t, "10.0.0.7", mock.loginReq.IP)
	assert.Equal(t, "curl/8.0", mock.loginReq.UserAgent)
}

func TestAuthHandlerLoginMapsServiceError(t *testing.T) {
	h := NewAuthHandler(&authMock{loginErr: appErrors.Clone(appErrors.ErrInvalidCredentials, "")})

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "bad"})
	c, w := newGinContext(http.MethodPost, "/api/auth/login", body)
	h.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, env.Error.Code)
}

func TestAuthHandlerVerifyWithoutPrincipal(t *testing.T) {
	h := NewAuthHandler(&authMock{})
	c, w := newGinContext(http.MethodGet, "/api/auth/verificar", nil)
	h.Verify(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandlerLogoutAndChangePassword(t *testing.T) {
	mock := &authMock{}
	h := NewAuthHandler(mock)

	c, _ := newGinContext(http.MethodPost, "/api/auth/logout", nil)
	withClaims(c, 9)
	h.Logout(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, 1, mock.logoutCalls)

	body, _ := json.Marshal(map[string]string{"password_actual": "old-pass", "password_nueva": "new-pass-1"})
	c, _ = newGinContext(http.MethodPut, "/api/auth/password", body)
	withClaims(c, 9)
	h.ChangePassword(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, int64(9), mock.changedFor)
}

type delinquencyMock struct {
	threshold int
	rows      []models.DelinquentCustomer
}

func (m *delinquencyMock) List(ctx context.Context, threshold int) ([]models.DelinquentCustomer, error) {
	m.threshold = threshold
	return m.rows, nil
}

func (m *delinquencyMock) Assess(ctx context.Context, customerID int64) (*models.DelinquencyAssessment, error) {
	return &models.DelinquencyAssessment{ClienteID: customerID, MesesPendientes: 4, MontoAdeudado: decimal.NewFromInt(100)}, nil
}

func (m *delinquencyMock) Export(ctx context.Context, threshold int, format export.Format) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "morosos.csv", ContentType: "text/csv", Data: []byte("a,b\n"), Rows: 1}, nil
}

func TestDelinquencyHandlerThreshold(t *testing.T) {
	mock := &delinquencyMock{rows: []models.DelinquentCustomer{{ClienteID: 1}, {ClienteID: 2}}}
	h := NewDelinquencyHandler(mock)

	c, w := newGinContext(http.MethodGet, "/api/morosos?umbral=5", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, mock.threshold)
	env := decodeEnvelope(t, w)
	assert.EqualValues(t, 2, env.Meta["total"])

	for _, raw := range []string{"0", "-1", "tres"} {
		c, w = newGinContext(http.MethodGet, "/api/morosos?umbral="+raw, nil)
		h.List(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
}

func TestDelinquencyHandlerExportSetsIntent(t *testing.T) {
	h := NewDelinquencyHandler(&delinquencyMock{})
	c, w := newGinContext(http.MethodGet, "/api/morosos/exportar?formato=csv", nil)
	h.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "morosos.csv")
	intent, ok := middleware.CurrentAuditIntent(c)
	require.True(t, ok)
	assert.Equal(t, models.AuditExport, intent.Accion)
}

func TestDelinquencyHandlerRejectsUnknownFormat(t *testing.T) {
	h := NewDelinquencyHandler(&delinquencyMock{})
	c, w := newGinContext(http.MethodGet, "/api/morosos/exportar?formato=docx", nil)
	h.Export(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelinquencyHandlerDebtRejectsBadID(t *testing.T) {
	h := NewDelinquencyHandler(&delinquencyMock{})
	c, w := newGinContext(http.MethodGet, "/api/clientes/abc/deuda", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Debt(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type catalogMock struct {
	deleteErr error
}

func (m *catalogMock) List(ctx context.Context) ([]models.CatalogItem, error) {
	return []models.CatalogItem{{ID: 1, Nombre: "Norte"}}, nil
}

func (m *catalogMock) Get(ctx context.Context, id int64) (*models.CatalogItem, error) {
	return &models.CatalogItem{ID: id, Nombre: "Norte"}, nil
}

func (m *catalogMock) Create(ctx context.Context, req service.CatalogRequest) (*models.CatalogItem, error) {
	return &models.CatalogItem{ID: 3, Nombre: req.Nombre}, nil
}

func (m *catalogMock) Update(ctx context.Context, id int64, req service.CatalogRequest) (*models.CatalogItem, *models.CatalogItem, error) {
	return &models.CatalogItem{ID: id, Nombre: req.Nombre}, &models.CatalogItem{ID: id, Nombre: "viejo"}, nil
}

func (m *catalogMock) Delete(ctx context.Context, id int64) (*models.CatalogItem, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	return &models.CatalogItem{ID: id}, nil
}

func TestCatalogHandlerCreateAttachesIntent(t *testing.T) {
	h := NewCatalogHandler(&catalogMock{}, "sector")
	body, _ := json.Marshal(map[string]string{"nombre": "Sur"})
	c, w := newGinContext(http.MethodPost, "/api/sectores", body)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	intent, ok := middleware.CurrentAuditIntent(c)
	require.True(t, ok)
	assert.Equal(t, models.AuditCreate, intent.Accion)
	assert.Contains(t, intent.Descripcion, "Sur")
}

func TestCatalogHandlerDeleteConflictSkipsIntent(t *testing.T) {
	conflict := appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "en uso"), map[string]interface{}{"referencias": 4})
	h := NewCatalogHandler(&catalogMock{deleteErr: conflict}, "sector")
	c, w := newGinContext(http.MethodDelete, "/api/sectores/1", nil)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	h.Delete(c)

	require.Equal(t, http.StatusConflict, w.Code)
	_, ok := middleware.CurrentAuditIntent(c)
	assert.False(t, ok)
	env := decodeEnvelope(t, w)
	assert.EqualValues(t, 4, env.Error.Details["referencias"])
}

type userMock struct {
	actorID int64
	filter  models.UserFilter
}

func (m *userMock) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	m.filter = filter
	return []models.User{}, filter.Pagination(0), nil
}

func (m *userMock) Get(ctx context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id}, nil
}

func (m *userMock) Create(ctx context.Context, req service.CreateUserRequest) (*models.User, error) {
	return &models.User{ID: 1, Username: req.Username}, nil
}

func (m *userMock) Update(ctx context.Context, id int64, req service.UpdateUserRequest) (*models.User, *models.User, error) {
	return &models.User{ID: id}, &models.User{ID: id}, nil
}

func (m *userMock) Delete(ctx context.Context, actorID, id int64) (*models.User, error) {
	m.actorID = actorID
	return &models.User{ID: id, Username: "tecnico1"}, nil
}

func TestUserHandlerDeletePassesActor(t *testing.T) {
	mock := &userMock{}
	h := NewUserHandler(mock)
	c, _ := newGinContext(http.MethodDelete, "/api/usuarios/4", nil)
	c.Params = gin.Params{{Key: "id", Value: "4"}}
	withClaims(c, 2)
	h.Delete(c)

	require.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, int64(2), mock.actorID)
}

func TestUserHandlerDeleteThroughEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &userMock{}
	h := NewUserHandler(mock)

	r := gin.New()
	r.DELETE("/api/usuarios/:id", func(c *gin.Context) { withClaims(c, 2) }, h.Delete)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/usuarios/4", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())
	assert.Equal(t, int64(2), mock.actorID)
}

func TestUserHandlerListRejectsUnknownRole(t *testing.T) {
	mock := &userMock{}
	h := NewUserHandler(mock)

	c, w := newGinContext(http.MethodGet, "/api/usuarios?funcion=Jefe", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/api/usuarios?funcion=Gerente&estado_id=1", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.filter.Funcion)
	assert.Equal(t, models.RoleGerente, *mock.filter.Funcion)
	assert.Equal(t, int64(1), *mock.filter.EstadoID)
}

type permissionMock struct {
	revoked [2]int64
}

func (m *permissionMock) List(ctx context.Context) ([]models.Permission, error) { return nil, nil }

func (m *permissionMock) Get(ctx context.Context, id int64) (*models.Permission, error) {
	return &models.Permission{ID: id}, nil
}

func (m *permissionMock) Create(ctx context.Context, req service.PermissionRequest) (*models.Permission, error) {
	return &models.Permission{ID: 1, Nombre: req.Nombre}, nil
}

func (m *permissionMock) Update(ctx context.Context, id int64, req service.PermissionRequest) (*models.Permission, *models.Permission, error) {
	return &models.Permission{ID: id}, &models.Permission{ID: id}, nil
}

func (m *permissionMock) Delete(ctx context.Context, id int64) (*models.Permission, error) {
	return &models.Permission{ID: id}, nil
}

func (m *permissionMock) ListForUser(ctx context.Context, userID int64) ([]models.AssignedPermission, error) {
	return []models.AssignedPermission{}, nil
}

func (m *permissionMock) Assign(ctx context.Context, userID int64, req service.AssignPermissionRequest) (*service.PermissionAssignment, error) {
	return &service.PermissionAssignment{
		Usuario: &models.User{ID: userID, Username: "tecnico1"},
		Permiso: &models.Permission{ID: req.PermisoID, Nombre: "clientes.leer"},
	}, nil
}

func (m *permissionMock) Revoke(ctx context.Context, userID, permissionID int64) (*service.PermissionAssignment, error) {
	m.revoked = [2]int64{userID, permissionID}
	return &service.PermissionAssignment{
		Usuario: &models.User{ID: userID, Username: "tecnico1"},
		Permiso: &models.Permission{ID: permissionID, Nombre: "clientes.leer"},
	}, nil
}

func TestPermissionHandlerAssignAndRevoke(t *testing.T) {
	mock := &permissionMock{}
	h := NewPermissionHandler(mock)

	body, _ := json.Marshal(map[string]int64{"permiso_id": 7})
	c, w := newGinContext(http.MethodPost, "/api/usuarios/3/permisos", body)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	h.Assign(c)
	require.Equal(t, http.StatusCreated, w.Code)
	intent, ok := middleware.CurrentAuditIntent(c)
	require.True(t, ok)
	assert.Equal(t, models.AuditAssignPerm, intent.Accion)

	c, w = newGinContext(http.MethodDelete, "/api/usuarios/3/permisos/7", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}, {Key: "permisoId", Value: "7"}}
	h.Revoke(c)
	require.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, [2]int64{3, 7}, mock.revoked)
	intent, _ = middleware.CurrentAuditIntent(c)
	assert.Equal(t, models.AuditRevokePerm, intent.Accion)
}

type auditMock struct {
	filter models.AuditFilter
	days   int
}

func (m *auditMock) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, *models.Pagination, error) {
	m.filter = filter
	return []models.AuditRecord{}, filter.Pagination(0), nil
}

func (m *auditMock) Get(ctx context.Context, id int64) (*models.AuditRecord, error) {
	return &models.AuditRecord{ID: id}, nil
}

func (m *auditMock) Stats(ctx context.Context) (*models.AuditStats, error) {
	return &models.AuditStats{}, nil
}

func (m *auditMock) Export(ctx context.Context, filter models.AuditFilter, format export.Format) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: "bitacora.xlsx", ContentType: "application/octet-stream"}, nil
}

func (m *auditMock) Cleanup(ctx context.Context, days int) (int64, error) {
	m.days = days
	return 12, nil
}

func TestAuditHandlerFilterParsing(t *testing.T) {
	mock := &auditMock{}
	h := NewAuditHandler(mock)

	c, w := newGinContext(http.MethodGet, "/api/bitacora?accion=login&modulo=auth&desde=2024-03-01&hasta=2024-03-31&usuario_id=5", nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AuditLogin, mock.filter.Accion)
	assert.Equal(t, models.ModuleAuth, mock.filter.Modulo)
	assert.Equal(t, int64(5), *mock.filter.UsuarioID)
	require.NotNil(t, mock.filter.Hasta)
	assert.Equal(t, 23, mock.filter.Hasta.Hour())
	assert.Equal(t, time.March, mock.filter.Desde.Month())

	c, w = newGinContext(http.MethodGet, "/api/bitacora?desde=01/03/2024", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerCleanup(t *testing.T) {
	mock := &auditMock{}
	h := NewAuditHandler(mock)

	c, w := newGinContext(http.MethodDelete, "/api/bitacora/limpiar?dias=30", nil)
	h.Cleanup(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, mock.days)

	c, w = newGinContext(http.MethodDelete, "/api/bitacora/limpiar?dias=x", nil)
	h.Cleanup(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthHandlerReadiness(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"postgres": func(context.Context) error { return nil },
	}, nil)
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewHealthHandler(map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}, nil)
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"down"`)
}
