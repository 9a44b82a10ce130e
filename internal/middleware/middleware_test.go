package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vozip/isp-api/internal/models"
	appErrors "github.com/vozip/isp-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

type captureSink struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (s *captureSink) Record(ctx context.Context, entry models.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

type errorBody struct {
	Error struct {
		Code    string                 `json:"code"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
}

func TestJWTOutcomes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		header string
		err    error
		status int
		code   string
	}{
		{"missing header", "", nil, http.StatusUnauthorized, "TOKEN_NOT_PROVIDED"},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized, "TOKEN_NOT_VALID"},
		{"blank token", "Bearer    ", nil, http.StatusUnauthorized, "TOKEN_NOT_VALID"},
		{"expired", "Bearer abc", appErrors.Clone(appErrors.ErrTokenExpired, ""), http.StatusUnauthorized, "TOKEN_EXPIRED"},
		{"invalid", "Bearer abc", appErrors.Clone(appErrors.ErrTokenInvalid, ""), http.StatusUnauthorized, "TOKEN_INVALID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.Use(JWT(&stubValidator{err: tc.err}))
			router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestJWTStoresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &stubValidator{claims: &models.JWTClaims{UserID: 3}}
	router := gin.New()
	router.Use(JWT(validator))
	router.GET("/", func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": claims.UserID})
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer tok")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", validator.seen)
}

func TestPermissionGates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	granted := &models.JWTClaims{UserID: 1, Funcion: "Técnico", Permisos: []string{"clientes.leer", "pagos.leer"}}
	cases := []struct {
		name   string
		claims *models.JWTClaims
		gate   gin.HandlerFunc
		status int
	}{
		{"any passes", granted, RequireAnyPermission("clientes.crear", "clientes.leer"), http.StatusOK},
		{"any denies", granted, RequireAnyPermission("usuarios.leer"), http.StatusForbidden},
		{"any empty denies", granted, RequireAnyPermission(), http.StatusForbidden},
		{"all passes", granted, RequireAllPermissions("clientes.leer", "pagos.leer"), http.StatusOK},
		{"all denies", granted, RequireAllPermissions("clientes.leer", "pagos.crear"), http.StatusForbidden},
		{"all empty denies", granted, RequireAllPermissions(), http.StatusForbidden},
		{"role denies", granted, RequireRoles(), http.StatusForbidden},
		{"role passes", &models.JWTClaims{Funcion: "Gerente"}, RequireRoles(), http.StatusOK},
		{"role is exact", &models.JWTClaims{Funcion: "gerente"}, RequireRoles(), http.StatusForbidden},
		{"no principal", nil, RequireAnyPermission("clientes.leer"), http.StatusInternalServerError},
		{"no principal role", nil, RequireRoles(), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/", withClaims(tc.claims), tc.gate, func(c *gin.Context) { c.Status(http.StatusOK) })
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestPermissionDenialDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", withClaims(&models.JWTClaims{Permisos: []string{"clientes.leer"}}), RequireAllPermissions("usuarios.leer"), func(c *gin.Context) {})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := decodeError(t, rec)
	assert.Equal(t, "FORBIDDEN", body.Error.Code)
	assert.Equal(t, []interface{}{"usuarios.leer"}, body.Error.Details["required"])
	assert.Equal(t, []interface{}{"clientes.leer"}, body.Error.Details["granted"])
}

func TestClientIPResolution(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		xff    string
		remote string
		want   string
	}{
		{"first forwarded hop", "203.0.113.5, 10.0.0.1", "10.0.0.9:1234", "203.0.113.5"},
		{"mapped ipv6", "::ffff:198.51.100.7", "", "198.51.100.7"},
		{"socket peer", "", "192.0.2.10:5555", "192.0.2.10"},
		{"unknown", "", "", "Desconocida"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			c.Request = req
			assert.Equal(t, tc.want, ClientIP(c))
		})
	}
}

func TestUserAgentDefault(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "Desconocido", UserAgent(c))
	c.Request.Header.Set("User-Agent", "curl/8.0")
	assert.Equal(t, "curl/8.0", UserAgent(c))
}

func TestAuditWritesIntentAfterSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &captureSink{}
	router := gin.New()
	claims := &models.JWTClaims{UserID: 4}
	router.POST("/clientes", withClaims(claims), Audit(sink, models.ModuleCustomers), func(c *gin.Context) {
		SetAuditIntent(c, models.AuditIntent{Accion: models.AuditCreate, Descripcion: "alta", Nuevo: gin.H{"id": 1}})
		c.Status(http.StatusCreated)
	})
	router.POST("/fallido", withClaims(claims), Audit(sink, models.ModuleCustomers), func(c *gin.Context) {
		SetAuditIntent(c, models.AuditIntent{Accion: models.AuditCreate})
		c.Status(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/clientes", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	router.ServeHTTP(httptest.NewRecorder(), req)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/fallido", nil))

	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, int64(4), *entry.UsuarioID)
	assert.Equal(t, models.ModuleCustomers, entry.Modulo)
	assert.Equal(t, models.AuditCreate, entry.Accion)
	assert.Equal(t, "203.0.113.9", entry.IP)
	assert.Equal(t, "Desconocido", entry.UserAgent)
}

func TestAuditDefaultIntentForReports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &captureSink{}
	router := gin.New()
	group := router.Group("/", withClaims(&models.JWTClaims{UserID: 2}), Audit(sink, models.ModuleDelinquency))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	group.GET("/morosos", ok)
	group.GET("/morosos/exportar", ok)
	group.GET("/clientes", ok)

	for _, path := range []string{"/morosos?umbral=4", "/morosos/exportar", "/clientes"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, sink.entries, 2)
	assert.Equal(t, models.AuditQuery, sink.entries[0].Accion)
	assert.Equal(t, map[string]interface{}{"query": "umbral=4"}, sink.entries[0].Nuevo)
	assert.Equal(t, models.AuditExport, sink.entries[1].Accion)
}

type recordingObserver struct {
	path   string
	status int
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	r.path = path
	r.status = status
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	router := gin.New()
	router.Use(Metrics(obs))
	router.GET("/clientes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/clientes/12", nil))
	assert.Equal(t, "/clientes/:id", obs.path)
	assert.Equal(t, http.StatusOK, obs.status)
}
