package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ratesink/lkr_rates_backend/internal/adapters/database/pgsql"
	"github.com/ratesink/lkr_rates_backend/internal/adapters/sources/cbsl"
	"github.com/ratesink/lkr_rates_backend/internal/adapters/sources/combank"
	"github.com/ratesink/lkr_rates_backend/internal/adapters/sources/peoples"
	"github.com/ratesink/lkr_rates_backend/internal/adapters/sources/sampath"
	portssrc "github.com/ratesink/lkr_rates_backend/internal/core/ports/sources"
	portssvc "github.com/ratesink/lkr_rates_backend/internal/core/ports/services"
	"github.com/ratesink/lkr_rates_backend/internal/core/services"
	"github.com/ratesink/lkr_rates_backend/internal/handlers"
	"github.com/ratesink/lkr_rates_backend/internal/middleware"
	"github.com/ratesink/lkr_rates_backend/internal/platform/config"
	"github.com/ratesink/lkr_rates_backend/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize database connection pool (for application use)
	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg, logger); err != nil {
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	limiterInstance, err := buildRateLimiter(cfg)
	if err != nil {
		logger.Error("Failed to build rate limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	serviceContainer := buildServices(cfg, dbPool, logger)
	handlers.RegisterRoutes(r, cfg, serviceContainer, limiterInstance)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// buildServices constructs every source adapter and service once at start
// and wires them together explicitly. Adapters hold only static
// configuration; all rate data lives in the repository.
func buildServices(cfg *config.Config, dbPool *pgxpool.Pool, logger *slog.Logger) *portssvc.ServiceContainer {
	fetchClient := &http.Client{Timeout: cfg.FetchTimeout}
	bulkClient := &http.Client{Timeout: cfg.BulkFetchTimeout}

	centralBank := cbsl.New(cfg.CBSLBaseURL, fetchClient, bulkClient, logger)
	banks := []portssrc.RateFetcher{
		combank.New(cfg.CombankURL, fetchClient, logger),
		sampath.New(cfg.SampathURL, fetchClient, logger),
		peoples.New(cfg.PeoplesURL, fetchClient, logger),
	}

	rateRepo := pgsql.NewPgxRateRepository(dbPool)
	resolver := services.NewRateResolutionService(rateRepo, centralBank, banks, cfg.BackfillWindowDays)
	importer := services.NewRateImportService(rateRepo)

	return &portssvc.ServiceContainer{
		Resolver: resolver,
		Importer: importer,
	}
}

func buildRateLimiter(cfg *config.Config) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// runMigrations applies all pending "up" migrations using a temporary
// standard sql.DB connection via the pgx stdlib driver.
func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to open database connection for migrations", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()

	if err := migrationDB.Ping(); err != nil {
		logger.Error("Failed to ping database for migrations", slog.String("error", err.Error()))
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		logger.Error("Could not create postgres driver instance for migrations", slog.String("error", err.Error()))
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		logger.Error("Could not create migrate instance", slog.String("error", err.Error()))
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		logger.Error("Migration source error", slog.String("error", sourceErr.Error()))
		return sourceErr
	}
	if dbErr != nil {
		logger.Error("Migration database error", slog.String("error", dbErr.Error()))
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
