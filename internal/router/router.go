package router

import (
	"time"

	"dukapos/internal/config"
	"dukapos/internal/handler"
	"dukapos/internal/middleware"
	"dukapos/internal/repository"
	"dukapos/internal/service"
	"dukapos/internal/worker"

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
	cashierRepo := repository.NewCashierRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(cashierRepo, cfg)
	registerSvc := service.NewRegisterService(registerRepo)
	agentSvc := service.NewAgentService(agentRepo)
	checkoutSvc := service.NewCheckoutService(saleRepo, productRepo, registerRepo, dispatcher)
	reportSvc := service.NewReportService(registerRepo, saleRepo, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	registerH := handler.NewRegisterHandler(registerSvc)
	agentH := handler.NewAgentHandler(agentSvc)
	checkoutH := handler.NewCheckoutHandler(checkoutSvc)
	reportH := handler.NewReportHandler(reportSvc)
	alertsH := handler.NewAlertsHandler(productRepo, rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cashier, supervisor, admin — declared per-endpoint
		anyStaff := middleware.RequireRole("cashier", "supervisor", "admin")
		elevated := middleware.RequireRole("supervisor", "admin")

		register := v1.Group("/register", anyStaff)
		{
			register.POST("/open", registerH.Open)
			register.POST("/close", registerH.Close)
			register.GET("/current", registerH.Current)
		}

		agent := v1.Group("/agent")
		{
			agent.POST("/open", anyStaff, agentH.Open)
			agent.GET("/current", anyStaff, agentH.Current)
			agent.POST("/movements", anyStaff, agentH.RecordMovement)
			agent.GET("/movements", anyStaff, agentH.ListMovements)
			agent.POST("/movements/:id/reverse", elevated, agentH.Reverse)
			agent.POST("/close", anyStaff, agentH.Close)
		}

		v1.POST("/sales", anyStaff, checkoutH.Checkout)
		v1.GET("/sales", anyStaff, checkoutH.ListSales)

		v1.GET("/reports/daily", anyStaff, reportH.Daily)
		v1.POST("/exports", elevated, reportH.Export)

		v1.GET("/inventory/alerts", elevated, alertsH.LowStock)
	}

	return r
}
