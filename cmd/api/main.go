package main

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/fkhayef/nebenkosten/docs"
	"github.com/fkhayef/nebenkosten/internal/apportion"
	"github.com/fkhayef/nebenkosten/internal/catalog"
	"github.com/fkhayef/nebenkosten/internal/config"
	"github.com/fkhayef/nebenkosten/internal/costitem"
	"github.com/fkhayef/nebenkosten/internal/database"
	"github.com/fkhayef/nebenkosten/internal/emissions"
	"github.com/fkhayef/nebenkosten/internal/logging"
	"github.com/fkhayef/nebenkosten/internal/metrics"
	"github.com/fkhayef/nebenkosten/internal/notification"
	"github.com/fkhayef/nebenkosten/internal/property"
	"github.com/fkhayef/nebenkosten/internal/rules"
	"github.com/fkhayef/nebenkosten/internal/settlement"
	"github.com/fkhayef/nebenkosten/internal/tenant"
	mw "github.com/fkhayef/nebenkosten/pkg/middleware"
)

// @title           Nebenkosten API
// @version         1.0
// @description     Operating-cost settlements for German residential rentals.
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load .env file
	envErr := godotenv.Load()

	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// Regulatory tables
	rs, err := rules.Load(cfg.RulesFile)
	if err != nil {
		logger.Fatal("failed to load rule set", zap.String("file", cfg.RulesFile), zap.Error(err))
	}

	cat, err := catalog.New(rs)
	if err != nil {
		logger.Fatal("failed to build cost catalog", zap.Error(err))
	}
	emissionsEngine, err := emissions.NewEngine(rs)
	if err != nil {
		logger.Fatal("failed to build emissions engine", zap.Error(err))
	}
	calc := settlement.NewCalculator(cat, apportion.NewEngine(apportion.NewStrategyFactory()), emissionsEngine, settlement.Options{
		ProrateByOccupancy: cfg.ProrateByOccupancy,
	})

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	logger.Info("connected to database")

	metrics.Init()

	// Property feature
	propertyRepo := property.NewRepository(db)
	propertyService := property.NewService(propertyRepo, logger)
	propertyHandler := property.NewHandler(propertyService)

	// Tenant feature
	tenantRepo := tenant.NewRepository(db)
	tenantService := tenant.NewService(tenantRepo, propertyService, logger)
	tenantHandler := tenant.NewHandler(tenantService)

	// Cost item feature
	costRepo := costitem.NewRepository(db)
	costService := costitem.NewService(costRepo, cat, emissionsEngine, propertyService, logger)
	costHandler := costitem.NewHandler(costService)

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo, logger)
	notificationHandler := notification.NewHandler(notificationService)

	// Settlement feature
	settlementRepo := settlement.NewRepository(db)
	snapshots := settlement.NewTxSnapshots(db, func(tx *sql.Tx) settlement.Snapshot {
		return settlement.Snapshot{
			Properties: propertyService.WithTx(tx),
			Tenants:    tenantRepo.WithTx(tx),
			Costs:      costRepo.WithTx(tx),
		}
	})
	settlementService := settlement.NewService(settlementRepo, calc, propertyService, snapshots, notificationService, logger)
	settlementHandler := settlement.NewHandler(settlementService)

	catalogHandler := catalog.NewHandler(cat)
	emissionsHandler := emissions.NewHandler(emissionsEngine)

	var auth func(http.Handler) http.Handler
	switch {
	case cfg.DevAuth:
		logger.Warn("development auth enabled, landlord taken from X-Test-Landlord-ID")
		auth = mw.DevLandlordMiddleware
	case cfg.JWTSecret == "":
		logger.Fatal("JWT_SECRET is required unless DEV_AUTH is set")
	default:
		auth = mw.AuthMiddleware([]byte(cfg.JWTSecret))
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Reference data needs no landlord
		r.Mount("/catalog", catalogHandler.Routes())
		r.Mount("/emissions", emissionsHandler.Routes())
		r.Get("/rules", emissionsHandler.Rules)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Mount("/properties", propertyHandler.Routes())
			r.Mount("/tenants", tenantHandler.Routes())
			r.Mount("/cost-items", costHandler.Routes())
			r.Mount("/settlements", settlementHandler.Routes())
			r.Mount("/notifications", notificationHandler.Routes())
		})
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	logger.Info("server starting",
		zap.String("port", port),
		zap.String("rules_version", rs.Version),
		zap.Bool("prorate_by_occupancy", cfg.ProrateByOccupancy),
	)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal("server failed to start", zap.Error(err))
	}
}
