package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/handler"
	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/internal/repository"
	"github.com/vozip/isp-api/pkg/config"
	appErrors "github.com/vozip/isp-api/pkg/errors"
	"github.com/vozip/isp-api/pkg/response"
)

type tokenTable map[string]*models.JWTClaims

func (t tokenTable) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrTokenInvalid, "")
}

type nopSink struct{}

func (nopSink) Record(context.Context, models.AuditEntry) {}

func newTestEngine(env string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: env, APIPrefix: "/api"}
	cfg.Metrics.Enabled = true

	tokens := tokenTable{
		"tecnico": {UserID: 2, Username: "tec", Funcion: "Técnico", Permisos: []string{"clientes.leer"}},
		"gerente": {UserID: 1, Username: "ger", Funcion: "Gerente", Permisos: []string{}},
	}
	return New(Deps{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Tokens:   tokens,
		Audit:    nopSink{},
		Exporter: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	}, Handlers{
		Auth:        handler.NewAuthHandler(nil),
		Delinquency: handler.NewDelinquencyHandler(nil),
		Customers:   handler.NewCustomerHandler(nil),
		Payments:    handler.NewPaymentHandler(nil),
		Tariffs:     handler.NewTariffHandler(nil),
		Catalogs: []Catalog{
			{Path: "sectores", Permission: repository.SectorsTable.Table, Module: models.ModuleSectors, Handler: handler.NewCatalogHandler(nil, "sector")},
		},
		Users:       handler.NewUserHandler(nil),
		Permissions: handler.NewPermissionHandler(nil),
		Audit:       handler.NewAuditHandler(nil),
		Health:      handler.NewHealthHandler(nil, nil),
	})
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPublicRoutes(t *testing.T) {
	r := newTestEngine(config.EnvDevelopment)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/metrics", "").Code)
	assert.NotEqual(t, http.StatusNotFound, do(r, http.MethodGet, "/docs/index.html", "").Code)

	prod := newTestEngine(config.EnvProduction)
	assert.Equal(t, http.StatusNotFound, do(prod, http.MethodGet, "/docs/index.html", "").Code)
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	r := newTestEngine(config.EnvDevelopment)

	w := do(r, http.MethodGet, "/api/clientes", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/clientes", "forged")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, appErrors.ErrTokenInvalid.Code, env.Error.Code)
}

func TestPermissionGatesPerRoute(t *testing.T) {
	r := newTestEngine(config.EnvDevelopment)

	cases := []struct {
		method, path, token string
		status              int
	}{
		{http.MethodDelete, "/api/clientes/1", "tecnico", http.StatusForbidden},
		{http.MethodGet, "/api/morosos", "tecnico", http.StatusForbidden},
		{http.MethodPost, "/api/pagos", "tecnico", http.StatusForbidden},
		{http.MethodGet, "/api/sectores", "gerente", http.StatusForbidden},
		{http.MethodPost, "/api/usuarios/3/permisos", "tecnico", http.StatusForbidden},
		{http.MethodDelete, "/api/bitacora/limpiar", "tecnico", http.StatusForbidden},
	}
	for _, tc := range cases {
		w := do(r, tc.method, tc.path, tc.token)
		assert.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestDenialCarriesGrantedPermissions(t *testing.T) {
	r := newTestEngine(config.EnvDevelopment)
	w := do(r, http.MethodDelete, "/api/clientes/1", "tecnico")
	require.Equal(t, http.StatusForbidden, w.Code)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, []interface{}{"clientes.eliminar"}, env.Error.Details["required"])
	assert.Equal(t, []interface{}{"clientes.leer"}, env.Error.Details["granted"])
}

func TestVerifyEchoesSession(t *testing.T) {
	r := newTestEngine(config.EnvDevelopment)
	w := do(r, http.MethodGet, "/api/auth/verificar", "tecnico")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"funcion":"Técnico"`)
}
