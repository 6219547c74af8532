package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/aussiebroadwan/messenger/internal/auth/http"
	"github.com/aussiebroadwan/messenger/internal/auth/metrics"
	"github.com/aussiebroadwan/messenger/internal/auth/notify"
	"github.com/aussiebroadwan/messenger/internal/auth/service"
	"github.com/aussiebroadwan/messenger/internal/auth/store"
	"github.com/aussiebroadwan/messenger/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/messenger/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/messenger/pkg/cryptox"
	"github.com/aussiebroadwan/messenger/pkg/idx"
	"github.com/aussiebroadwan/messenger/pkg/jwtx"
	"github.com/aussiebroadwan/messenger/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"

	sessionKeyPurpose = "messenger/session-hs256/v1"
	sessionKeyID      = "session-v1"
)

// SessionAudience is the aud claim on every session token.
var SessionAudience = []string{"messenger"}

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	metrics  *metrics.Metrics
	cipher   *cryptox.FieldCipher
	ids      *idx.Snowflake
	signer   jwtx.Signer
	verifier jwtx.Verifier

	// Services
	ledger         *service.VerificationLedger
	writeQueue     *service.WriteQueue
	accountService *service.AccountService

	// HTTP server
	server *http.Server
	router *httpapi.Router

	notify notify.Notifier
}

// Option customises an Application before its dependencies are built.
type Option func(*Application)

// WithNotifier replaces the configured SMTP or log notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(app *Application) { app.notify = n }
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config, opts ...Option) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := app.initCrypto(); err != nil {
		return nil, err
	}
	if err := app.initMetrics(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	if cfg.Warmup {
		app.warmup(context.Background(), cfg.WarmupRuns)
	}

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion, "driver", app.cfg.DatabaseDriver)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Close()
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

// Shutdown stops accepting requests, lets detached account work finish and
// gives the write queue one last flush before the database closes.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	var errs []error
	if err := app.accountService.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("wait for account work: %w", err))
	}
	if err := app.writeQueue.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop write queue: %w", err))
	}

	app.ledger.Close()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Close releases background workers and the database without waiting on the
// HTTP server. Used when the server never started.
func (app *Application) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	_ = app.accountService.Wait(ctx)
	if err := app.writeQueue.Stop(ctx); err != nil {
		app.logger.Error("write queue stop failed", "error", err)
	}
	app.ledger.Close()
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
	}
}

// initCrypto derives the process key and everything built from it. Missing
// key material is fatal.
func (app *Application) initCrypto() error {
	key, err := cryptox.DeriveKey(
		[]byte(app.cfg.EncryptionPassword),
		[]byte(app.cfg.EncryptionSalt),
		cryptox.KDFParams{
			Time:    app.cfg.KDFTime,
			Memory:  app.cfg.KDFMemoryKiB,
			Threads: app.cfg.KDFThreads,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}

	app.cipher, err = cryptox.NewFieldCipher(key)
	if err != nil {
		return fmt.Errorf("failed to initialize field cipher: %w", err)
	}

	sessionKey, err := key.Subkey(sessionKeyPurpose, jwtx.MinHMACKeySize)
	if err != nil {
		return fmt.Errorf("failed to derive session key: %w", err)
	}
	signer, err := jwtx.NewSignerHS256(sessionKeyID, sessionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize session signer: %w", err)
	}
	app.signer = signer
	app.verifier = jwtx.NewVerifierHS256(sessionKeyID, sessionKey, jwtx.VerifyOptions{
		Issuer:   app.cfg.Issuer,
		Audience: SessionAudience,
		Leeway:   30 * time.Second,
	})

	app.ids, err = idx.NewSnowflake(app.cfg.WorkerID)
	if err != nil {
		return fmt.Errorf("failed to initialize id generator: %w", err)
	}

	app.logger.Info("key material derived", "worker_id", app.cfg.WorkerID)
	return nil
}

func (app *Application) initMetrics() error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	app.metrics = m
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.accountService = &service.AccountService{
		Store:  app.db,
		IDs:    app.ids,
		Cipher: app.cipher,
		Sessions: &service.SessionIssuer{
			Signer:   app.signer,
			Issuer:   app.cfg.Issuer,
			Audience: SessionAudience,
			TTL:      app.cfg.SessionTTL,
		},
		Notifier: app.notifier(),
		Logger:   app.logger,
		Metrics:  app.metrics,
	}

	app.ledger = service.NewVerificationLedger(service.LedgerOptions{
		TTL:      app.cfg.VerificationTTL,
		OnExpire: app.accountService.DiscardUnconfirmed,
		Logger:   app.logger,
		Metrics:  app.metrics,
	})
	app.writeQueue = service.NewWriteQueue(app.db, service.WriteQueueOptions{
		FirstRetryDelay: app.cfg.WriteFirstRetryDelay,
		RetryInterval:   app.cfg.WriteRetryInterval,
		OnStored:        app.accountService.SignupStored,
		Logger:          app.logger,
		Metrics:         app.metrics,
	})

	app.accountService.Ledger = app.ledger
	app.accountService.Queue = app.writeQueue
}

func (app *Application) notifier() notify.Notifier {
	if app.notify != nil {
		return app.notify
	}
	if app.cfg.SMTP.Host == "" {
		app.logger.Warn("SMTP_HOST not set, verification codes will be logged")
		return notify.LogNotifier{Logger: app.logger}
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     app.cfg.SMTP.Host,
		Port:     app.cfg.SMTP.Port,
		Username: app.cfg.SMTP.Username,
		Password: app.cfg.SMTP.Password,
		From:     app.cfg.SMTP.From,
	})
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.metrics,
		app.logger,
	)

	// Wire services to router
	router.Accounts = app.accountService
	router.Queue = app.writeQueue
	router.Ledger = app.ledger
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
