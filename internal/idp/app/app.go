package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/nullprofile/internal/idp/http"
	"github.com/aussiebroadwan/nullprofile/internal/idp/service"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store"
	"github.com/aussiebroadwan/nullprofile/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/nullprofile/pkg/jwtx"
	"github.com/aussiebroadwan/nullprofile/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application is the identity provider with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	metrics    *service.Metrics

	sessions     *service.SessionStore
	challenges   *service.ChallengeStore
	transactions *service.TransactionStore

	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	webauthnService     *service.WebAuthnService
	passkeyService      *service.PasskeyService
	accountService      *service.AccountService
	relyingPartyService *service.RelyingPartyService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "nullprofile",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		logger: NewLogger(cfg),
	}

	db, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.logger.Info("database migrations applied successfully", "file", cfg.DatabaseFile)

	keyManager, err := InitSigningKeys(context.Background(), cfg, app.db, app.logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initServices(); err != nil {
		_ = db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler is the root HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("nullprofile starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"issuer", app.cfg.Issuer,
		"rp_id", app.cfg.WebAuthnRPID,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains requests, stops housekeeping and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down nullprofile...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("nullprofile stopped")
	return nil
}

// OpenStore opens the SQLite database and applies migrations.
func OpenStore(cfg Config) (*sqlite.Store, error) {
	dsn := cfg.DatabaseFile
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dsn)
	}

	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

func (app *Application) initServices() error {
	app.metrics = service.NewMetrics()

	app.sessions = service.NewSessionStore(app.cfg.SessionTimeout)
	app.challenges = service.NewChallengeStore(app.cfg.WebAuthnChallengeTimeout)
	app.transactions = service.NewTransactionStore(app.cfg.AuthCodeValidity, app.cfg.SessionTimeout)

	pairwise, err := service.NewPairwiseSubjectService(app.cfg.PairwiseSalt)
	if err != nil {
		return err
	}

	app.authorizeService = &service.AuthorizeService{
		Validator: service.NewAuthorizationRequestValidator(app.db.RelyingParties(), service.ValidatorConfig{
			MaxStateLength:     app.cfg.MaxStateLength,
			MaxNonceLength:     app.cfg.MaxNonceLength,
			AllowHTTPLocalhost: app.cfg.AllowHTTPLocalhost,
		}),
		Transactions:   app.transactions,
		RelyingParties: app.db.RelyingParties(),
		LoginURL:       app.cfg.LoginURL,
		Metrics:        app.metrics,
	}

	app.tokenService = &service.TokenService{
		RelyingParties: app.db.RelyingParties(),
		Transactions:   app.transactions,
		Pairwise:       pairwise,
		Issuer:         service.NewTokenIssuer(app.cfg.Issuer, app.keyManager),
		Metrics:        app.metrics,
	}

	app.webauthnService, err = service.NewWebAuthnService(service.WebAuthnConfig{
		RPID:             app.cfg.WebAuthnRPID,
		RPName:           app.cfg.WebAuthnRPName,
		Origins:          app.cfg.WebAuthnOrigins,
		ChallengeTimeout: app.cfg.WebAuthnChallengeTimeout,
		StrictSignCount:  app.cfg.WebAuthnStrictSignCount,
	}, app.db, app.sessions, app.challenges, app.transactions, app.metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize webauthn: %w", err)
	}

	app.passkeyService = &service.PasskeyService{Store: app.db}
	app.accountService = &service.AccountService{
		Store:        app.db,
		Sessions:     app.sessions,
		Challenges:   app.challenges,
		Transactions: app.transactions,
	}
	app.relyingPartyService = service.NewRelyingPartyService(app.db)

	app.housekeepingService = service.NewHousekeepingService(
		app.sessions,
		app.transactions,
		app.challenges,
		app.metrics,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Sessions = &httpapi.SessionManager{
		Sessions: app.sessions,
		Secure:   app.cfg.CookieSecure,
	}
	router.Metrics = app.metrics
	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.WebAuthnService = app.webauthnService
	router.PasskeyService = app.passkeyService
	router.AccountService = app.accountService
	router.RelyingPartyService = app.relyingPartyService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
