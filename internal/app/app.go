package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"solarcli/internal/analytics"
	"solarcli/internal/config"
	apierrors "solarcli/internal/errors"
	"solarcli/internal/files"
	"solarcli/internal/infrastructure"
	"solarcli/internal/ingest"
	customMiddleware "solarcli/internal/middleware"
	"solarcli/internal/operations"
	"solarcli/internal/services"
	handlers "solarcli/internal/transport/http"
	"solarcli/pkg/contracts"
)

// Options override configuration values from the command line
type Options struct {
	ConfigFile string
	DataDir    string
	LogLevel   string
	Host       string
	Port       int
	// Logger replaces the configured logger. Tests pass a discard logger.
	Logger *slog.Logger
}

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	Metrics          *infrastructure.PipelineMetrics
	Manager          *operations.Manager
	AnalysisService  *services.AnalysisService
	OperationService *services.OperationService
	HealthService    *services.HealthService
	Validator        *customMiddleware.Validator
	ErrorHandler     *apierrors.ErrorHandler

	mu       sync.Mutex
	listener net.Listener
}

// New loads configuration and wires every service. It does not listen.
func New(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}
	if opts.DataDir != "" {
		cfg.Paths.DataDir = opts.DataDir
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}
	return NewWithConfig(cfg, opts.Logger)
}

// NewWithConfig wires the application from an already loaded configuration
func NewWithConfig(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apierrors.NewConfigError("invalid configuration", err)
	}

	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Debug("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to resolve paths", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreatePipelineMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	deps, err := operations.NewStageDeps(a.Config, a.Paths, a.Logger, a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to build pipeline steps: %w", err)
	}
	registry, err := operations.NewPipelineRegistry(deps)
	if err != nil {
		return fmt.Errorf("failed to register pipeline steps: %w", err)
	}
	a.Manager = operations.NewManager(registry, operations.ConfigFromPipeline(a.Config.Pipeline), a.Logger, a.Metrics)
	a.Logger.Debug("pipeline steps registered", slog.Any("steps", registry.ListIDs()))

	options, err := analytics.OptionsFromConfig(a.Config.Analysis)
	if err != nil {
		return apierrors.NewConfigError("invalid analysis settings", err)
	}
	a.AnalysisService = services.NewAnalysisService(a.Paths, ingest.NewLoader(a.Logger, a.Metrics), options, a.Logger)
	a.OperationService = services.NewOperationService(a.Manager, a.AnalysisService, a.Logger)
	a.HealthService = services.NewHealthService(contracts.Version, contracts.BuildTime, a.Paths, a.AnalysisService, a.Logger)

	a.Validator = customMiddleware.NewValidator(a.Logger)
	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Ordering: RequestID, RealIP, OTel, logging and recovery, then policy
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.CORS(a.getCORSConfig()))
	r.Use(customMiddleware.StripSlashes)
	r.Use(customMiddleware.Compress(5))

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	// Scrape endpoint sits outside rate limiting
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.RateLimit(a.Config.Server.RateLimit, a.ErrorHandler, a.Logger))
		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)

			// Go runtime and process collectors
			r.Handle("/metrics", handlers.NewMetricsHandler(nil))

			filesHandler := handlers.NewFilesHandler(files.NewDiscovery(a.Paths), a.Validator, a.Logger, a.ErrorHandler)
			r.Mount("/files", filesHandler.Routes())

			analysisHandler := handlers.NewAnalysisHandler(a.AnalysisService, a.Validator, a.Logger, a.ErrorHandler)
			r.Mount("/", analysisHandler.Routes())
		})

		// Operations get the pipeline timeout so wait=true runs can finish
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Pipeline.OperationTimeout, a.Logger))
			r.Use(customMiddleware.ContentTypeValidator(a.ErrorHandler, "application/json"))

			operationsHandler := handlers.NewOperationsHandler(a.OperationService, a.Validator, a.Logger, a.ErrorHandler)
			r.Mount("/operations", operationsHandler.Routes())
		})
	})
}

// getCORSConfig allows the local dashboard origins plus the server's own
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	self := fmt.Sprintf("http://%s", net.JoinHostPort(a.Config.Server.Host, fmt.Sprint(a.Config.Server.Port)))
	origins := []string{
		self,
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	return customMiddleware.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", customMiddleware.RequestIDHeader},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader},
		MaxAge:         300,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         net.JoinHostPort(a.Config.Server.Host, fmt.Sprint(a.Config.Server.Port)),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(a.Logger.Handler(), slog.LevelError),
	}
}

// Addr returns the bound listen address once Start has returned
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Start binds the listener and serves in the background. A serve failure
// calls cancel so Run can shut down.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Server started",
		slog.String("address", fmt.Sprintf("http://%s", ln.Addr().String())),
		slog.String("version", contracts.Version),
		slog.String("level", a.Config.Logging.Level))

	return nil
}

// Stop drains the server, cancels running operations and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.cancelRunningOperations(shutdownCtx)

	if err := a.Close(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Close flushes telemetry providers. Commands that never serve call it
// directly.
func (a *Application) Close(ctx context.Context) error {
	if a.OTelProviders == nil {
		return nil
	}
	return a.OTelProviders.Shutdown(ctx)
}

func (a *Application) cancelRunningOperations(ctx context.Context) {
	for _, op := range a.OperationService.List(ctx) {
		if op.Status != operations.OperationStatusRunning && op.Status != operations.OperationStatusPending {
			continue
		}
		if err := a.OperationService.Cancel(ctx, op.ID); err != nil {
			a.Logger.WarnContext(ctx, "Failed to cancel operation",
				slog.String("id", op.ID),
				slog.String("error", err.Error()))
		}
	}
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.InfoContext(ctx, "Received shutdown signal")

	return a.Stop(ctx)
}

// performStartupHealthCheck verifies the working directories are writable
// and reports missing raw files
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Data":    a.Paths.DataDir,
		"Raw":     a.Paths.RawDir,
		"Cleaned": a.Paths.CleanedDir,
		"Reports": a.Paths.ReportsDir,
		"Logs":    a.Paths.LogsDir,
	}

	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
		} else {
			os.Remove(testFile)
		}
	}

	inv, err := files.NewDiscovery(a.Paths).Inventory()
	if err != nil {
		warnings = append(warnings, err.Error())
	} else {
		for _, country := range inv.Missing {
			a.Logger.InfoContext(ctx, "Raw file not found",
				slog.String("country", string(country)),
				slog.String("path", a.Paths.RawFile(country)))
		}
		a.Logger.DebugContext(ctx, "Data inventory",
			slog.Int("raw", len(inv.Raw)),
			slog.Int("cleaned", len(inv.Cleaned)),
			slog.Int("reports", len(inv.Reports)))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.DebugContext(ctx, "Startup health check passed")
	return nil
}
