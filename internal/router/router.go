package router

import (
	"time"

	"github.com/zitodamiano1998-max/cpsm-shop/internal/config"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/handler"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/middleware"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/model"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/repository"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/service"
	"github.com/zitodamiano1998-max/cpsm-shop/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	staffRepo := repository.NewStaffRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(staffRepo, cfg)
	productSvc := service.NewProductService(productRepo)
	categorySvc := service.NewCategoryService(categoryRepo)
	ledgerSvc := service.NewLedgerService(productRepo, movementRepo, alertRepo, rdb, dispatcher)
	alertSvc := service.NewAlertService(alertRepo, productRepo, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	staffH := handler.NewStaffHandler(authSvc)
	productsH := handler.NewProductsHandler(productSvc, ledgerSvc)
	categoriesH := handler.NewCategoriesHandler(categorySvc)
	movementsH := handler.NewMovementsHandler(ledgerSvc)
	alertsH := handler.NewAlertsHandler(alertSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	anyStaff := middleware.RequireRole(model.RoleAdmin, model.RoleDesk)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	v1 := r.Group("/v1", jwtMW)
	{
		// Products — both roles can read, admin manages the registry
		v1.GET("/products", anyStaff, productsH.List)
		v1.GET("/products/low-stock", anyStaff, productsH.ListLowStock)
		v1.GET("/products/:id", anyStaff, productsH.GetByID)
		v1.GET("/products/:id/stock", anyStaff, productsH.Stock)
		v1.GET("/products/:id/stock/audit", adminOnly, productsH.StockAudit)
		products := v1.Group("/products", adminOnly)
		{
			products.POST("", productsH.Create)
			products.PUT("/:id", productsH.Update)
			products.DELETE("/:id", productsH.Deactivate)
			products.PATCH("/:id/reactivate", productsH.Reactivate)
		}

		// Movements — recording is open to both roles here; the ledger service
		// enforces the per-reason role rules (desk may only record sales)
		v1.POST("/movements", anyStaff, movementsH.Record)
		v1.GET("/movements", anyStaff, movementsH.List)

		// Alerts
		v1.GET("/alerts", anyStaff, alertsH.List)
		v1.POST("/alerts", adminOnly, alertsH.CreateManual)
		v1.POST("/alerts/:id/resolve", adminOnly, alertsH.Resolve)
		v1.POST("/alerts/seen", anyStaff, alertsH.MarkAllSeen)
		v1.GET("/alerts/unseen-count", anyStaff, alertsH.UnseenCount)

		// Categories — both roles read, admin writes
		v1.GET("/categories", anyStaff, categoriesH.List)
		categories := v1.Group("/categories", adminOnly)
		{
			categories.POST("", categoriesH.Create)
			categories.PUT("/:id", categoriesH.Update)
			categories.DELETE("/:id", categoriesH.Delete)
		}

		// Staff management — admin only
		staff := v1.Group("/staff", adminOnly)
		{
			staff.POST("", staffH.Create)
			staff.GET("", staffH.List)
			staff.PUT("/:id", staffH.Update)
			staff.DELETE("/:id", staffH.Deactivate)
			staff.PATCH("/:id/reactivate", staffH.Reactivate)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
