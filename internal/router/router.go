package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/biblioteca-api/api/swagger"
	"github.com/noah-isme/biblioteca-api/internal/handler"
	"github.com/noah-isme/biblioteca-api/internal/middleware"
	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/service"
	"github.com/noah-isme/biblioteca-api/pkg/config"
	"github.com/noah-isme/biblioteca-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/biblioteca-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/biblioteca-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Loans       *handler.LoanHandler
	History     *handler.HistoryHandler
	Sanctions   *handler.SanctionHandler
	Reports     *handler.ReportHandler
	Catalog     *handler.CatalogHandler
	Maintenance *handler.MaintenanceHandler
	Metrics     *handler.MetricsHandler
}

// Deps carries what the router needs besides handlers.
type Deps struct {
	Config  *config.Config
	Logger  *zap.Logger
	Tokens  middleware.TokenValidator
	Metrics *service.MetricsService
}

// New builds the gin engine with every route mounted.
func New(deps Deps, h Handlers) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.Tokens))
	staff := middleware.RequireRoles(models.RoleOperator, models.RoleAdmin)
	admin := middleware.RequireRoles(models.RoleAdmin)

	loans := api.Group("/loans", staff)
	loans.POST("", middleware.Audit(logr, "loan.create"), h.Loans.Create)
	loans.GET("/:id", h.Loans.Get)
	loans.POST("/:id/return", middleware.Audit(logr, "loan.return"), h.Loans.Return)

	students := api.Group("/students", staff)
	students.GET("/:id", h.Catalog.GetStudent)
	students.GET("/:id/loans", h.Loans.ListByStudent)
	students.GET("/:id/history", h.History.ByStudent)
	students.GET("/:id/sanctions", h.Sanctions.ListByStudent)
	students.POST("", admin, middleware.Audit(logr, "student.create"), h.Catalog.CreateStudent)

	books := api.Group("/books", staff)
	books.GET("/:id", h.Catalog.GetBook)
	books.GET("/:id/history", h.History.ByBook)
	books.POST("", admin, middleware.Audit(logr, "book.create"), h.Catalog.CreateBook)
	books.DELETE("/:id", admin, middleware.Audit(logr, "book.delete"), h.Catalog.DeleteBook)

	api.GET("/careers", staff, h.Catalog.ListCareers)
	refs := api.Group("", admin)
	refs.POST("/careers", middleware.Audit(logr, "career.create"), h.Catalog.CreateCareer)
	refs.POST("/authors", middleware.Audit(logr, "author.create"), h.Catalog.CreateAuthor)
	refs.POST("/publishers", middleware.Audit(logr, "publisher.create"), h.Catalog.CreatePublisher)
	refs.POST("/categories", middleware.Audit(logr, "category.create"), h.Catalog.CreateCategory)
	refs.POST("/operators", middleware.Audit(logr, "operator.create"), h.Catalog.CreateOperator)

	sanctions := api.Group("/sanctions", staff)
	sanctions.POST("/sweep", admin, middleware.Audit(logr, "sanction.sweep"), h.Sanctions.Sweep)
	sanctions.POST("/:id/lift", admin, middleware.Audit(logr, "sanction.lift"), h.Sanctions.Lift)

	reports := api.Group("/reports", staff, middleware.WithResponseMeta())
	reports.GET("/loans-by-career", h.Reports.LoansByCareer)
	reports.GET("/popular-books", h.Reports.PopularBooks)

	maintenance := api.Group("/maintenance", admin)
	maintenance.POST("/semesters/clamp", middleware.Audit(logr, "semesters.clamp"), h.Maintenance.ClampSemesters)
	maintenance.GET("/triggers", h.Maintenance.ListTriggers)
	maintenance.DELETE("/triggers/:name", middleware.Audit(logr, "trigger.remove"), h.Maintenance.RemoveTrigger)

	return r
}
