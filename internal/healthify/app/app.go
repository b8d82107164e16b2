package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/aussiebroadwan/healthify/internal/healthify/http"
	"github.com/aussiebroadwan/healthify/internal/healthify/identity"
	"github.com/aussiebroadwan/healthify/internal/healthify/metrics"
	"github.com/aussiebroadwan/healthify/internal/healthify/service"
	"github.com/aussiebroadwan/healthify/internal/healthify/session"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
	"github.com/aussiebroadwan/healthify/internal/healthify/store/drivers/sqlite"
	"github.com/aussiebroadwan/healthify/pkg/authsdk"
	"github.com/aussiebroadwan/healthify/pkg/cryptox"
	"github.com/aussiebroadwan/healthify/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application wires the session manager, the local store and the HTTP API.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	secure   *store.SecureKV
	auth     *authsdk.Auth
	manager  *session.Manager
	registry *prometheus.Registry
	metrics  *metrics.Collector

	// Services
	dashboardService    *service.DashboardService
	activityService     *service.ActivityService
	chatService         *service.ChatService
	housekeepingService *service.HousekeepingService

	unsubscribe   func()
	stopRefresh   context.CancelFunc
	refreshDone   chan struct{}
	housekeeping  bool
	shutdownOnce  sync.Once
	shutdownError error

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates an Application with every dependency initialized. The session
// lookup starts immediately; background workers and the server only start
// in Run.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "healthify",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  cfg.LogOutput,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSecureStore(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initMetrics()
	app.initSession()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.logger }

// Manager returns the process-wide session manager.
func (app *Application) Manager() *session.Manager { return app.manager }

// Auth returns the identity provider client.
func (app *Application) Auth() *authsdk.Auth { return app.auth }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.startWorkers()

	app.logger.Info("healthify starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown stops the server and the workers, tears the Manager down and
// closes the database. Safe to call more than once.
func (app *Application) Shutdown() error {
	app.shutdownOnce.Do(func() {
		app.logger.Info("shutting down healthify...")

		// Give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
		defer cancel()

		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("graceful server shutdown failed", "error", err)
			if err := app.server.Close(); err != nil {
				app.logger.Error("error closing server", "error", err)
			}
		}

		if app.stopRefresh != nil {
			app.stopRefresh()
			<-app.refreshDone
		}
		if app.housekeeping {
			app.housekeepingService.Stop()
		}

		app.unsubscribe()
		app.manager.Close()

		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			app.shutdownError = err
			return
		}

		app.logger.Info("healthify stopped")
	})
	return app.shutdownError
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initSecureStore loads the master key and layers encryption over the kv table.
func (app *Application) initSecureStore() error {
	master, generated, err := cryptox.LoadMasterKey(app.cfg.MasterKeyPath)
	if err != nil {
		return fmt.Errorf("failed to load master key: %w", err)
	}
	if generated {
		app.logger.Warn("generated new master key; previously stored sessions cannot be read",
			"path", app.cfg.MasterKeyPath)
	}

	app.secure, err = store.NewSecureKV(app.db.KV(), master)
	if err != nil {
		return fmt.Errorf("failed to initialize secure store: %w", err)
	}
	return nil
}

func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.NewCollector(app.registry)
}

// initSession builds the provider client and the Manager. Token
// verification against the provider's JWKS is best effort: when the keys
// cannot be fetched the user is resolved through userinfo instead.
func (app *Application) initSession() {
	client := authsdk.NewSDKClient(app.cfg.AuthURL)

	authCfg := authsdk.Config{
		ClientID:    app.cfg.ClientID,
		RedirectURI: app.cfg.RedirectURI,
		Scopes:      app.cfg.Scopes,
		Storage:     store.NewTokenStorage(app.secure),
		Logger:      app.logger.With("component", "authsdk"),
	}

	if app.cfg.AuthIssuer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		verifier, err := identity.NewVerifier(ctx, client, identity.VerifierConfig{
			Issuer:   app.cfg.AuthIssuer,
			Audience: app.cfg.AuthAudience,
			Leeway:   30 * time.Second,
		})
		cancel()
		if err != nil {
			app.logger.Warn("token verification disabled, falling back to userinfo", "error", err)
		} else {
			authCfg.Verifier = verifier
		}
	}

	app.auth = authsdk.NewAuth(client, authCfg)
	app.manager = session.New(
		identity.NewProvider(app.auth),
		store.NewSessionCache(app.secure),
		session.WithLogger(app.logger.With("component", "session")),
		session.WithRecorder(app.metrics),
	)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	loc, _ := app.cfg.Location() // checked by Validate
	clock := service.Clock{Location: loc}

	app.activityService = &service.ActivityService{Store: app.db, Clock: clock}
	app.dashboardService = &service.DashboardService{
		Store: app.db,
		Goals: service.Goals{
			CaloriesKcal: app.cfg.CalorieGoal,
			WaterML:      app.cfg.WaterGoalML,
		},
		Clock:    clock,
		Activity: app.activityService,
	}
	app.chatService = &service.ChatService{Clock: clock}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.SampleRetention,
	)

	hooks := newSessionHooks(app.db, app.chatService, app.logger)
	app.unsubscribe = hooks.attach(app.manager)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.manager,
		app.cfg.RateLimits,
		app.logger,
	)

	// Wire services to router
	router.Auth = app.auth
	router.DashboardService = app.dashboardService
	router.ActivityService = app.activityService
	router.ChatService = app.chatService
	router.Metrics = app.metrics
	router.Gatherer = app.registry
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

func (app *Application) startWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	app.stopRefresh = cancel
	app.refreshDone = make(chan struct{})
	go func() {
		defer close(app.refreshDone)
		app.auth.AutoRefresh(ctx, app.cfg.AutoRefreshInterval)
	}()

	app.housekeepingService.Start()
	app.housekeeping = true
}
