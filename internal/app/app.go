// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalboard/signalboard/internal/catalog"
	catalogpostgres "github.com/signalboard/signalboard/internal/catalog/postgres"
	"github.com/signalboard/signalboard/internal/config"
	"github.com/signalboard/signalboard/internal/identity"
	identitypostgres "github.com/signalboard/signalboard/internal/identity/postgres"
	"github.com/signalboard/signalboard/internal/incidents"
	incidentspostgres "github.com/signalboard/signalboard/internal/incidents/postgres"
	"github.com/signalboard/signalboard/internal/maintenance"
	maintenancepostgres "github.com/signalboard/signalboard/internal/maintenance/postgres"
	"github.com/signalboard/signalboard/internal/notify"
	notifypostgres "github.com/signalboard/signalboard/internal/notify/postgres"
	"github.com/signalboard/signalboard/internal/pkg/ctxlog"
	"github.com/signalboard/signalboard/internal/pkg/httputil"
	"github.com/signalboard/signalboard/internal/pkg/metrics"
	"github.com/signalboard/signalboard/internal/pkg/postgres"
	"github.com/signalboard/signalboard/internal/statuspages"
	statuspagespostgres "github.com/signalboard/signalboard/internal/statuspages/postgres"
	"github.com/signalboard/signalboard/internal/subscriptions"
	subscriptionspostgres "github.com/signalboard/signalboard/internal/subscriptions/postgres"
	"github.com/signalboard/signalboard/internal/version"
	"github.com/signalboard/signalboard/migrations"
)

// App represents the application instance.
type App struct {
	config        *config.Config
	logger        *slog.Logger
	db            *pgxpool.Pool
	server        *http.Server
	metricsServer *http.Server
	metricsCancel context.CancelFunc
	notifyWorker  *notify.Worker
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	logger := initLogger(cfg.Log)

	if cfg.Database.Migrate {
		if err := postgres.Migrate(cfg.Database.URL, migrations.FS, "."); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer connectCancel()

	db, err := postgres.Connect(connectCtx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	metricsCtx, metricsCancel := context.WithCancel(context.Background())

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		metricsCancel: metricsCancel,
	}

	go app.collectDBMetrics(metricsCtx)

	router, notifyWorker := app.setupRouter(metricsCtx)
	app.notifyWorker = notifyWorker

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Metrics server on separate port
	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())

	app.metricsServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler:           metricsRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP servers.
func (a *App) Run() error {
	go func() {
		a.logger.Info("starting metrics server",
			"host", a.config.Server.Host,
			"port", a.config.Server.MetricsPort,
		)
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	a.logger.Info("starting server",
		"host", a.config.Server.Host,
		"port", a.config.Server.Port,
	)

	if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	a.metricsCancel()

	// Stop notification worker first
	if a.notifyWorker != nil {
		a.notifyWorker.Stop()
	}

	var wg sync.WaitGroup
	var errs []error
	var mu sync.Mutex

	wg.Add(2)

	go func() {
		defer wg.Done()
		if err := a.server.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
			mu.Unlock()
		}
	}()

	go func() {
		defer wg.Done()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("shutdown metrics server: %w", err))
			mu.Unlock()
		}
	}()

	wg.Wait()

	a.db.Close()

	return errors.Join(errs...)
}

func (a *App) collectDBMetrics(ctx context.Context) {
	metrics.RecordDBPoolMetrics(a.db)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.RecordDBPoolMetrics(a.db)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) collectQueueMetrics(ctx context.Context, repo notify.Repository) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := repo.GetQueueStats(ctx)
			if err != nil {
				slog.Error("failed to get queue stats", "error", err)
				continue
			}
			notify.RecordQueueStats(stats)
		case <-ctx.Done():
			return
		}
	}
}

// Router returns the HTTP handler for testing.
func (a *App) Router() http.Handler {
	return a.server.Handler
}

// NotifyWorker returns the notification worker. Nil when notifications
// are disabled.
func (a *App) NotifyWorker() *notify.Worker {
	return a.notifyWorker
}

func (a *App) setupRouter(ctx context.Context) (*chi.Mux, *notify.Worker) {
	r := chi.NewRouter()

	// Metrics middleware must be first to measure full request time
	r.Use(httputil.MetricsMiddleware)

	// CORS must be early to handle preflight requests before other middleware
	r.Use(httputil.CORSMiddleware(a.config.CORS.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(httputil.RequestLoggerMiddleware(a.logger))
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", a.healthzHandler)
	r.Get("/readyz", a.readyzHandler)
	r.Get("/version", a.versionHandler)

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-yaml")
		http.ServeFile(w, r, "api/openapi/openapi.yaml")
	})

	// Repositories
	statuspagesRepo := statuspagespostgres.NewRepository(a.db)
	catalogRepo := catalogpostgres.NewRepository(a.db)
	incidentsRepo := incidentspostgres.NewRepository(a.db)
	maintenanceRepo := maintenancepostgres.NewRepository(a.db)
	subscriptionsRepo := subscriptionspostgres.NewRepository(a.db)
	identityRepo := identitypostgres.NewRepository(a.db)

	pageLookup := statuspages.NewPageLookup(statuspagesRepo)

	catalogService := catalog.NewService(catalogRepo)
	subscriptionsService := subscriptions.NewService(subscriptionsRepo, pageLookup)

	// Notification pipeline. Incident writes enqueue through the
	// dispatcher; the worker drains the queue in the background.
	var dispatcher incidents.Dispatcher
	var notifyWorker *notify.Worker
	if a.config.Notify.Enabled {
		notifyRepo := notifypostgres.NewRepository(a.db)
		dispatcher = notify.NewDispatcher(notifyRepo, subscriptionsService, a.config.Notify.MaxAttempts)

		notifyWorker = notify.NewWorker(notify.WorkerConfig{
			BatchSize:         a.config.Notify.BatchSize,
			PollInterval:      a.config.Notify.PollInterval,
			MaxAttempts:       a.config.Notify.MaxAttempts,
			InitialBackoff:    a.config.Notify.InitialBackoff,
			MaxBackoff:        a.config.Notify.MaxBackoff,
			BackoffMultiplier: a.config.Notify.BackoffMultiplier,
			NumWorkers:        a.config.Notify.NumWorkers,
		}, notifyRepo, notify.NewLogSender())
		notifyWorker.Start(ctx)

		go a.collectQueueMetrics(ctx, notifyRepo)
	}

	incidentsService := incidents.NewService(incidentsRepo, catalogService, pageLookup, dispatcher)
	maintenanceService := maintenance.NewService(maintenanceRepo, catalogService, pageLookup)
	statuspagesService := statuspages.NewService(statuspagesRepo, catalogService, incidentsService, maintenanceService)

	jwtManager := identity.NewJWTManager(
		a.config.JWT.SecretKey,
		identityRepo,
		a.config.JWT.AccessTokenDuration,
		a.config.JWT.RefreshTokenDuration,
	)
	identityService := identity.NewService(identityRepo, jwtManager, nil)

	identityHandler := identity.NewHandler(identityService)
	statuspagesHandler := statuspages.NewHandler(statuspagesService)
	catalogHandler := catalog.NewHandler(catalogService)
	incidentsHandler := incidents.NewHandler(incidentsService)
	maintenanceHandler := maintenance.NewHandler(maintenanceService)
	subscriptionsHandler := subscriptions.NewHandler(subscriptionsService, statuspagesService)

	r.Route("/api/v1", func(r chi.Router) {
		identityHandler.RegisterRoutes(r)

		// Public read surface plus the rate limited subscribe endpoints.
		r.Route("/public", func(r chi.Router) {
			statuspagesHandler.RegisterPublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RateLimitMiddleware(
					a.config.Subscriptions.RateLimitPerSecond,
					a.config.Subscriptions.RateLimitBurst,
				))
				subscriptionsHandler.RegisterPublicRoutes(r)
			})
		})

		// Authenticated management surface. Any authenticated user is
		// fully authorized.
		r.Group(func(r chi.Router) {
			r.Use(httputil.AuthMiddleware(jwtManager))

			identityHandler.RegisterProtectedRoutes(r)
			statuspagesHandler.RegisterRoutes(r)

			r.Route("/pages/{pageID}", func(r chi.Router) {
				statuspagesHandler.RegisterPageRoutes(r)
				catalogHandler.RegisterRoutes(r)
				incidentsHandler.RegisterRoutes(r)
				maintenanceHandler.RegisterRoutes(r)
				subscriptionsHandler.RegisterPageRoutes(r)
			})
		})
	})

	return r, notifyWorker
}

func (a *App) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) readyzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		ctxlog.FromContext(r.Context()).Error("readiness check failed", "error", err)
		httputil.Text(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	httputil.Text(w, http.StatusOK, "OK")
}

func (a *App) versionHandler(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"version":    version.Version,
		"commit":     version.GitCommit,
		"build_date": version.BuildDate,
	})
}

func initLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
