package main

import (
	"context"

	"ledger-service/internal/handler"
	"ledger-service/internal/middleware"
	"ledger-service/internal/store"
	"ledger-service/pkg/config"
	"ledger-service/pkg/database"
	"ledger-service/pkg/jwtutil"
	"ledger-service/pkg/logger"
	"ledger-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting ledger service...", zap.String("environment", cfg.Server.Env))

	// Initialize database (runs the store migration automatically)
	if err := database.Initialize(&cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed")

	// Initialize JWT signing
	jwtutil.Initialize(&cfg.JWT)

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Wire the stores over the shared key-value table
	kv := store.NewGormKV(database.GetDB())
	directory := store.NewDirectory(kv, log)
	ledger := store.NewLedger(kv, log)
	migrator := store.NewMigrator(kv, log)

	// Directory dedup runs once per process start and is convergent
	removed, err := directory.Dedup(context.Background())
	if err != nil {
		log.Error("Directory dedup failed", zap.Error(err))
	} else if removed > 0 {
		log.Info("Directory dedup removed duplicate tenants", zap.Int("removed", removed))
		prometheus.DuplicateTenantsRemoved.Add(float64(removed))
	}

	h := handler.New(cfg, directory, ledger, migrator)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/", handler.Hello)
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", prometheus.HandlerFunc())

	// Authentication routes
	auth := e.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/guest", h.GuestLogin)
	auth.POST("/super", h.SuperLogin)
	auth.POST("/reset/request", h.RequestPasswordReset)
	auth.POST("/reset/confirm", h.ConfirmPasswordReset)

	// Tenant data routes - admin and guest sessions only
	api := e.Group("/api", middleware.AuthMiddleware, middleware.RequireTenantContext)

	api.GET("/profile", h.GetProfile)
	api.PUT("/profile", h.UpdateProfile, middleware.RequireAdmin)

	api.GET("/members", h.ListMembers)
	api.POST("/members", h.CreateMember, middleware.RequireAdmin)
	api.PUT("/members/:id", h.UpdateMember, middleware.RequireAdmin)
	api.DELETE("/members/:id", h.DeleteMember, middleware.RequireAdmin)

	api.GET("/dues", h.ListDues)
	api.POST("/dues", h.CreateDues, middleware.RequireAdmin)
	api.DELETE("/dues/:id", h.DeleteDues, middleware.RequireAdmin)

	api.GET("/salaries", h.ListSalaries)
	api.GET("/salaries/overview", h.SalaryOverview)
	api.POST("/salaries", h.CreateSalary, middleware.RequireAdmin)
	api.DELETE("/salaries/:id", h.DeleteSalary, middleware.RequireAdmin)

	api.GET("/income", h.ListIncome)
	api.POST("/income", h.CreateIncome, middleware.RequireAdmin)
	api.DELETE("/income/:id", h.DeleteIncome, middleware.RequireAdmin)

	api.GET("/expenses", h.ListExpenses)
	api.GET("/expenses/breakdown", h.ExpenseBreakdown)
	api.POST("/expenses", h.CreateExpense, middleware.RequireAdmin)
	api.DELETE("/expenses/:id", h.DeleteExpense, middleware.RequireAdmin)

	api.GET("/dashboard", h.Dashboard)
	api.GET("/dashboard/series", h.DashboardSeries)

	// Platform routes - super admin only
	admin := e.Group("/admin", middleware.AuthMiddleware, middleware.RequireSuperAdmin)
	admin.GET("/tenants", h.ListTenants)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
