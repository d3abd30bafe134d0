package main

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/biblioteca-api/internal/handler"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	"github.com/noah-isme/biblioteca-api/internal/router"
	"github.com/noah-isme/biblioteca-api/internal/service"
	"github.com/noah-isme/biblioteca-api/pkg/cache"
	"github.com/noah-isme/biblioteca-api/pkg/config"
	"github.com/noah-isme/biblioteca-api/pkg/database"
)

// app holds the wired services shared by every command.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	redis  *redis.Client

	metrics     *service.MetricsService
	tokens      *service.TokenService
	history     *service.HistoryRecorder
	loans       *service.LoanService
	sanctions   *service.SanctionService
	reports     *service.ReportService
	catalog     *service.CatalogService
	maintenance *service.MaintenanceService
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db, metrics: service.NewMetricsService()}

	var cacheRepo service.CacheRepository
	if cfg.Reports.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("report cache disabled, redis unreachable", zap.Error(err))
		} else {
			a.redis = client
			cacheRepo = repository.NewCacheRepository(client, logger)
		}
	}

	books := repository.NewBookRepository(db)
	students := repository.NewStudentRepository(db)
	loans := repository.NewLoanRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	sanctions := repository.NewSanctionRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	validate := validator.New()

	a.history = service.NewHistoryRecorder(historyRepo, service.ULIDGenerator{}, logger)
	enforcer := service.NewConsistencyEnforcer(repository.NewTxManager(db), books, a.history, logger)
	cacheSvc := service.NewCacheService(cacheRepo, a.metrics, cfg.Reports.CacheTTL, logger, cacheRepo != nil)
	a.reports = service.NewReportService(repository.NewReportRepository(db), cacheSvc, service.SystemClock{}, logger)

	a.loans = service.NewLoanService(loans, books, students, enforcer, a.reports, a.metrics, validate, logger,
		service.LoanServiceConfig{MaxActiveLoans: cfg.Loans.MaxActivePerStudent})
	a.sanctions = service.NewSanctionService(loans, students, sanctions, enforcer, service.SystemClock{}, a.metrics, logger,
		service.SanctionServiceConfig{
			LoanPeriodDays: cfg.Loans.PeriodDays,
			GraceDays:      cfg.Sanctions.GraceDays,
			Reason:         cfg.Sanctions.OverdueReason,
		})
	a.catalog = service.NewCatalogService(books, students, catalogRepo, a.reports, validate, logger)
	a.maintenance = service.NewMaintenanceService(students, repository.NewTriggerRepository(db), cfg.Students.SemesterCap, logger)
	a.tokens = service.NewTokenService(catalogRepo, service.TokenConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.Expiration,
	}, service.SystemClock{})
	return a, nil
}

func (a *app) router() http.Handler {
	return router.New(router.Deps{
		Config:  a.cfg,
		Logger:  a.logger,
		Tokens:  a.tokens,
		Metrics: a.metrics,
	}, router.Handlers{
		Loans:       handler.NewLoanHandler(a.loans),
		History:     handler.NewHistoryHandler(a.history),
		Sanctions:   handler.NewSanctionHandler(a.sanctions),
		Reports:     handler.NewReportHandler(a.reports),
		Catalog:     handler.NewCatalogHandler(a.catalog),
		Maintenance: handler.NewMaintenanceHandler(a.maintenance),
		Metrics:     handler.NewMetricsHandler(a.metrics, a.db),
	})
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
}
