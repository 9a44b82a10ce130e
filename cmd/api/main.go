package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/vozip/isp-api/api/swagger"
	"github.com/vozip/isp-api/internal/handler"
	"github.com/vozip/isp-api/internal/models"
	"github.com/vozip/isp-api/internal/repository"
	"github.com/vozip/isp-api/internal/router"
	"github.com/vozip/isp-api/internal/service"
	"github.com/vozip/isp-api/pkg/cache"
	"github.com/vozip/isp-api/pkg/config"
	"github.com/vozip/isp-api/pkg/database"
	"github.com/vozip/isp-api/pkg/logger"
	"github.com/vozip/isp-api/pkg/password"
)

// @title VozIP ISP API
// @version 1.0.0
// @description Billing backend: customers, payments, tariffs, morosos and bitácora
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, login lockout disabled", zap.Error(err))
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	auditRepo := repository.NewAuditRepository(db)
	audit := service.NewAuditService(auditRepo, metrics, logr, service.AuditDispatchConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		JobTimeout: 5 * time.Second,
	})
	audit.Start()

	users := repository.NewUserRepository(db)
	perms := repository.NewPermissionRepository(db)
	customers := repository.NewCustomerRepository(db)
	tariffs := repository.NewTariffRepository(db)
	plans := repository.NewCatalogRepository(db, repository.PlansTable)
	sectors := repository.NewCatalogRepository(db, repository.SectorsTable)
	serviceTypes := repository.NewCatalogRepository(db, repository.ServiceTypesTable)
	statuses := repository.NewCatalogRepository(db, repository.StatusesTable)
	methods := repository.NewCatalogRepository(db, repository.PaymentMethodsTable)

	hasher := password.NewHasher(cfg.Password.Scheme, cfg.Password.BcryptCost)

	authDeps := service.AuthDeps{
		Users:       users,
		Permissions: perms,
		Audit:       audit,
		Hasher:      hasher,
		Metrics:     metrics,
	}
	if rdb != nil {
		authDeps.Attempts = repository.NewLoginAttemptRepository(rdb, cfg.Login.LockoutWindow)
	}
	authService := service.NewAuthService(authDeps, validate, logr, service.AuthConfig{
		Secret:      cfg.JWT.Secret,
		Expiry:      cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
		MaxAttempts: cfg.Login.MaxAttempts,
	})

	delinquency := service.NewDelinquencyService(repository.NewDelinquencyRepository(db), metrics, logr, service.DelinquencyConfig{
		Threshold:     cfg.Delinquency.Threshold,
		ReferenceYear: cfg.Delinquency.ReferenceYear,
	})
	customerService := service.NewCustomerService(customers, service.CustomerReferences{
		Statuses:     statuses,
		ServiceTypes: serviceTypes,
		Plans:        plans,
		Sectors:      sectors,
		Tariffs:      tariffs,
	}, validate, logr)
	paymentService := service.NewPaymentService(repository.NewPaymentRepository(db), customers, methods, validate, logr)

	catalog := func(path, perm, label string, module models.AuditModule, repo *repository.CatalogRepository) router.Catalog {
		svc := service.NewCatalogService(repo, label, validate, logr)
		return router.Catalog{Path: path, Permission: perm, Module: module, Handler: handler.NewCatalogHandler(svc, label)}
	}

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Delinquency: handler.NewDelinquencyHandler(delinquency),
		Customers:   handler.NewCustomerHandler(customerService),
		Payments:    handler.NewPaymentHandler(paymentService),
		Tariffs:     handler.NewTariffHandler(service.NewTariffService(tariffs, validate, logr)),
		Catalogs: []router.Catalog{
			catalog("planes", "planes", "plan", models.ModulePlans, plans),
			catalog("sectores", "sectores", "sector", models.ModuleSectors, sectors),
			catalog("tipos-servicio", "tipos_servicio", "tipo de servicio", models.ModuleServiceTypes, serviceTypes),
			catalog("estados", "estados", "estado", models.ModuleStatuses, statuses),
			catalog("metodos-pago", "metodos_pago", "método de pago", models.ModulePaymentMethod, methods),
		},
		Users:       handler.NewUserHandler(service.NewUserService(users, statuses, hasher, validate, logr)),
		Permissions: handler.NewPermissionHandler(service.NewPermissionService(perms, users, validate, logr)),
		Audit:       handler.NewAuditHandler(service.NewAuditQueryService(auditRepo, logr, cfg.Audit.RetentionDays)),
		Health:      handler.NewHealthHandler(readinessChecks(db, rdb), logr),
	}

	deps := router.Deps{
		Config:   cfg,
		Logger:   logr,
		Tokens:   authService,
		Audit:    audit,
		Exporter: metrics.Handler(),
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(deps, handlers),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
	// Pending bitácora rows are written after the last request drained.
	audit.Stop()
	logr.Info("server exited")
}

func readinessChecks(db *sqlx.DB, rdb *redis.Client) map[string]handler.Check {
	checks := map[string]handler.Check{
		"postgres": db.PingContext,
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}
