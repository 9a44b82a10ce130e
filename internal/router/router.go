package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/vozip/isp-api/internal/handler"
	"github.com/vozip/isp-api/internal/middleware"
	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/pkg/config"
	"github.com/vozip/isp-api/pkg/logger"
	corsmiddleware "github.com/vozip/isp-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vozip/isp-api/pkg/middleware/requestid"
)

// Catalog pairs a lookup table handler with its URL segment, permission
// prefix and bitácora module.
type Catalog struct {
	Path       string
	Permission string
	Module     models.AuditModule
	Handler    *handler.CatalogHandler
}

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Auth        *handler.AuthHandler
	Delinquency *handler.DelinquencyHandler
	Customers   *handler.CustomerHandler
	Payments    *handler.PaymentHandler
	Tariffs     *handler.TariffHandler
	Catalogs    []Catalog
	Users       *handler.UserHandler
	Permissions *handler.PermissionHandler
	Audit       *handler.AuditHandler
	Health      *handler.HealthHandler
}

// Deps are the cross-cutting collaborators of the router. Metrics may be nil.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tokens   middleware.TokenValidator
	Audit    middleware.AuditSink
	Metrics  middleware.RequestObserver
	Exporter http.Handler
}

// New builds the gin engine.
func New(deps Deps, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	if cfg.Metrics.Enabled && deps.Exporter != nil {
		r.GET("/metrics", gin.WrapH(deps.Exporter))
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	authn := middleware.JWT(deps.Tokens)

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.GET("/verificar", authn, h.Auth.Verify)
	auth.POST("/logout", authn, h.Auth.Logout)
	auth.PUT("/password", authn, h.Auth.ChangePassword)

	secured := api.Group("", authn)

	morosos := secured.Group("/morosos", middleware.Audit(deps.Audit, models.ModuleDelinquency))
	morosos.GET("", can("morosos.leer"), h.Delinquency.List)
	morosos.GET("/exportar", can("morosos.exportar"), h.Delinquency.Export)

	clientes := secured.Group("/clientes", middleware.Audit(deps.Audit, models.ModuleCustomers))
	clientes.GET("", can("clientes.leer"), h.Customers.List)
	clientes.GET("/buscar", can("clientes.leer"), h.Customers.Search)
	clientes.GET("/exportar", can("clientes.exportar"), h.Customers.Export)
	clientes.GET("/:id", can("clientes.leer"), h.Customers.Get)
	clientes.GET("/:id/deuda", can("clientes.leer", "morosos.leer"), h.Delinquency.Debt)
	clientes.GET("/:id/pagos", can("pagos.leer"), h.Payments.ListForCustomer)
	clientes.POST("", can("clientes.crear"), h.Customers.Create)
	clientes.PUT("/:id", can("clientes.actualizar"), h.Customers.Update)
	clientes.DELETE("/:id", can("clientes.eliminar"), h.Customers.Delete)

	pagos := secured.Group("/pagos", middleware.Audit(deps.Audit, models.ModulePayments))
	pagos.GET("", can("pagos.leer"), h.Payments.List)
	pagos.GET("/ingresos-mensuales", can("pagos.leer"), h.Payments.MonthlyIncome)
	pagos.GET("/exportar", can("pagos.exportar"), h.Payments.Export)
	pagos.GET("/:id", can("pagos.leer"), h.Payments.Get)
	pagos.POST("", can("pagos.crear"), h.Payments.Create)
	pagos.PUT("/:id", can("pagos.actualizar"), h.Payments.Update)
	pagos.DELETE("/:id", can("pagos.eliminar"), h.Payments.Delete)

	tarifas := secured.Group("/tarifas", middleware.Audit(deps.Audit, models.ModuleTariffs))
	tarifas.GET("", can("tarifas.leer"), h.Tariffs.List)
	tarifas.GET("/:id", can("tarifas.leer"), h.Tariffs.Get)
	tarifas.POST("", can("tarifas.crear"), h.Tariffs.Create)
	tarifas.PUT("/:id", can("tarifas.actualizar"), h.Tariffs.Update)
	tarifas.DELETE("/:id", can("tarifas.eliminar"), h.Tariffs.Delete)

	for _, cat := range h.Catalogs {
		g := secured.Group("/"+cat.Path, middleware.Audit(deps.Audit, cat.Module))
		g.GET("", can(cat.Permission+".leer"), cat.Handler.List)
		g.GET("/:id", can(cat.Permission+".leer"), cat.Handler.Get)
		g.POST("", can(cat.Permission+".crear"), cat.Handler.Create)
		g.PUT("/:id", can(cat.Permission+".actualizar"), cat.Handler.Update)
		g.DELETE("/:id", can(cat.Permission+".eliminar"), cat.Handler.Delete)
	}

	usuarios := secured.Group("/usuarios", middleware.Audit(deps.Audit, models.ModuleUsers))
	usuarios.GET("", can("usuarios.leer"), h.Users.List)
	usuarios.GET("/:id", can("usuarios.leer"), h.Users.Get)
	usuarios.POST("", can("usuarios.crear"), h.Users.Create)
	usuarios.PUT("/:id", can("usuarios.actualizar"), h.Users.Update)
	usuarios.DELETE("/:id", can("usuarios.eliminar"), h.Users.Delete)

	grants := secured.Group("/usuarios/:id/permisos", middleware.Audit(deps.Audit, models.ModulePermissions))
	grants.GET("", can("permisos.leer", "usuarios.leer"), h.Permissions.ListForUser)
	grants.POST("", can("permisos.asignar"), h.Permissions.Assign)
	grants.DELETE("/:permisoId", can("permisos.asignar"), h.Permissions.Revoke)

	permisos := secured.Group("/permisos", middleware.Audit(deps.Audit, models.ModulePermissions))
	permisos.GET("", can("permisos.leer"), h.Permissions.List)
	permisos.GET("/:id", can("permisos.leer"), h.Permissions.Get)
	permisos.POST("", can("permisos.crear"), h.Permissions.Create)
	permisos.PUT("/:id", can("permisos.actualizar"), h.Permissions.Update)
	permisos.DELETE("/:id", can("permisos.eliminar"), h.Permissions.Delete)

	bitacora := secured.Group("/bitacora", middleware.Audit(deps.Audit, models.ModuleAudit))
	bitacora.GET("", can("bitacora.leer"), h.Audit.List)
	bitacora.GET("/estadisticas", can("bitacora.leer"), h.Audit.Stats)
	bitacora.GET("/exportar", can("bitacora.exportar"), h.Audit.Export)
	bitacora.DELETE("/limpiar", middleware.RequireRoles(), h.Audit.Cleanup)
	bitacora.GET("/:id", can("bitacora.leer"), h.Audit.Get)

	return r
}

func can(perms ...string) gin.HandlerFunc {
	return middleware.RequireAnyPermission(perms...)
}
