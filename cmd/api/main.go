package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"programhub/docs"
	"programhub/internal/artifact"
	"programhub/internal/auth"
	"programhub/internal/config"
	"programhub/internal/counter"
	"programhub/internal/database"
	"programhub/internal/database/migration"
	handlers "programhub/internal/http/handler"
	"programhub/internal/http/middleware"
	"programhub/internal/logging"
	tracing "programhub/internal/otel"
	"programhub/internal/repository"
	"programhub/internal/repository/memory"
	"programhub/internal/repository/postgres"
	"programhub/internal/service"
	"programhub/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title ProgramHub API
// @version 1.0
// @description Upload, browse, download and discuss user-submitted programs.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := logging.Setup(cfg.Log.Format, cfg.Log.Level)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type repositories struct {
	programs   repository.ProgramRepository
	counters   repository.CounterRepository
	categories repository.CategoryRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
}

func run(cfg *config.AppConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "programhub")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	db, repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	backend, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := artifact.NewStore(backend)
	if err := store.Register(reg); err != nil {
		return fmt.Errorf("register artifact metrics: %w", err)
	}
	tracker, err := counter.NewTracker(repos.counters, reg)
	if err != nil {
		return fmt.Errorf("register counter metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	svc := handlers.Services{
		Programs:   service.NewProgramService(store, repos.programs, repos.categories, repos.comments, repos.users, tracker),
		Comments:   service.NewCommentService(repos.programs, repos.comments, repos.users),
		Categories: service.NewCategoryService(repos.categories),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.BodyLimitMB << 20,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(httpMetrics.Handler())
	app.Use(middleware.Authenticate(verifier))

	handlers.RegisterRoutes(app, db, svc)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "persistence", cfg.Persistence, "storage", cfg.Storage.Backend)
		listenErr <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

func openRepositories(ctx context.Context, cfg *config.AppConfig) (*sql.DB, repositories, error) {
	switch cfg.Persistence {
	case "memory":
		mem := memory.New()
		programs := mem.Programs()
		return nil, repositories{
			programs:   programs,
			counters:   programs,
			categories: mem.Categories(),
			comments:   mem.Comments(),
			users:      mem.Users(),
		}, nil
	case "postgres":
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, repositories{}, fmt.Errorf("connect database: %w", err)
		}
		if cfg.MigrateOnStart {
			if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
				db.Close()
				return nil, repositories{}, fmt.Errorf("migrate database: %w", err)
			}
		}
		programs := postgres.NewProgramPostgres(db)
		return db, repositories{
			programs:   programs,
			counters:   programs,
			categories: postgres.NewCategoryPostgres(db),
			comments:   postgres.NewCommentPostgres(db),
			users:      postgres.NewUserPostgres(db),
		}, nil
	default:
		return nil, repositories{}, fmt.Errorf("unknown persistence %q", cfg.Persistence)
	}
}

func openStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "minio":
		return storage.NewMinIO(cfg.MinIO)
	case "fs":
		return storage.NewFS(cfg.Dir)
	case "memory":
		return storage.NewMemory(), nil
	default:
		return nil, errors.New("unknown storage backend " + cfg.Backend)
	}
}
