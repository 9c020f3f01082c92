package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/kbauth/internal/auth/domain"
	httpapi "github.com/aussiebroadwan/kbauth/internal/auth/http"
	"github.com/aussiebroadwan/kbauth/internal/auth/secrets"
	"github.com/aussiebroadwan/kbauth/internal/auth/service"
	"github.com/aussiebroadwan/kbauth/internal/auth/store"
	"github.com/aussiebroadwan/kbauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/kbauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/kbauth/pkg/cryptox"
	"github.com/aussiebroadwan/kbauth/pkg/httpx"
	"github.com/aussiebroadwan/kbauth/pkg/jwtx"
	"github.com/aussiebroadwan/kbauth/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

const redisKeyPrefix = "kbauth:ratelimit:"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	secrets    secrets.Store
	db         store.Store
	keyManager *jwtx.KeyManager
	limits     httpx.Backend
	metadata   *service.Metadata

	// Services
	clientService       *service.ClientService
	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "kbauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initSecrets(ctx); err != nil {
		return nil, err
	}

	keyManager, err := InitAuthKeys(ctx, app.cfg, app.secrets, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	app.metadata, err = service.NewMetadata(cfg.Issuer, cfg.Resource, domain.Scope(cfg.Scopes))
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery metadata: %w", err)
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initRateLimiter(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initServices(ctx); err != nil {
		app.closeBackends()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("kbauth starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"issuer", app.cfg.Issuer,
		"store", app.cfg.StoreDriver,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			app.closeBackends()
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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down kbauth...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeBackends(); err != nil {
		return err
	}

	app.logger.Info("kbauth stopped")
	return nil
}

func (app *Application) closeBackends() error {
	if c, ok := app.limits.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			app.logger.Error("error closing rate limit backend", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

func (app *Application) initSecrets(ctx context.Context) error {
	switch app.cfg.SecretsProvider {
	case SecretsAWS:
		s, err := secrets.NewAWSStoreFromEnv(ctx, app.cfg.AWSRegion, app.cfg.AWSSecretID, app.cfg.AWSSecretVersionStage)
		if err != nil {
			return fmt.Errorf("failed to initialize aws secrets: %w", err)
		}
		app.secrets = s
	default:
		app.secrets = secrets.NewEnvStore()
	}
	app.logger.Info("secret store ready", "provider", app.cfg.SecretsProvider)
	return nil
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.StoreDriver {
	case StorePostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

func (app *Application) initRateLimiter(ctx context.Context) error {
	switch app.cfg.RateLimitBackend {
	case RateLimitRedis:
		b, err := httpx.NewRedisBackendFromURL(ctx, app.cfg.RedisURL, redisKeyPrefix)
		if err != nil {
			return fmt.Errorf("failed to connect rate limit backend: %w", err)
		}
		app.limits = b
	default:
		app.limits = httpx.NewMemoryBackend()
	}
	app.logger.Info("rate limiter ready", "backend", app.cfg.RateLimitBackend)
	return nil
}

// initServices loads the owner credential and builds the business logic services
func (app *Application) initServices(ctx context.Context) error {
	pepper, err := secrets.GetOptional(ctx, app.secrets, secrets.PasswordPepper)
	if err != nil {
		return fmt.Errorf("failed to read password pepper: %w", err)
	}
	hasher := cryptox.PasswordHasher{Pepper: string(pepper)}

	owner, err := app.loadOwner(ctx)
	if err != nil {
		return err
	}

	ticketKey, err := secrets.GetOptional(ctx, app.secrets, secrets.TicketKey)
	if err != nil {
		return fmt.Errorf("failed to read ticket key: %w", err)
	}
	if len(ticketKey) == 0 {
		ticketKey = make([]byte, 32)
		if _, err := rand.Read(ticketKey); err != nil {
			return fmt.Errorf("failed to generate ticket key: %w", err)
		}
		app.logger.Warn("ticket-key secret not set, using a per-process key; logins in flight fail across restarts and replicas")
	}

	app.clientService = &service.ClientService{Store: app.db, Hasher: hasher}
	app.authorizeService = &service.AuthorizeService{
		Store:   app.db,
		Clients: app.clientService,
		Owner:   &service.OwnerVerifier{Owner: owner, Hasher: hasher},
		Tickets: &service.TicketIssuer{Key: ticketKey, Issuer: app.cfg.Issuer},
		Scopes:  domain.Scope(app.cfg.Scopes),
	}
	app.tokenService = &service.TokenService{
		Store:   app.db,
		Clients: app.clientService,
		Signer:  app.keyManager.Signer,
		Issuer:  app.cfg.Issuer,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

func (app *Application) loadOwner(ctx context.Context) (domain.Owner, error) {
	hash, err := app.secrets.Get(ctx, secrets.OwnerPasswordHash)
	if errors.Is(err, secrets.ErrNotFound) {
		return domain.Owner{}, fmt.Errorf("secret %q is not set, create one with `kbauth hash-password`", secrets.OwnerPasswordHash)
	}
	if err != nil {
		return domain.Owner{}, fmt.Errorf("failed to read owner password hash: %w", err)
	}

	totpSecret, err := secrets.GetOptional(ctx, app.secrets, secrets.OwnerTOTPSecret)
	if err != nil {
		return domain.Owner{}, fmt.Errorf("failed to read owner totp secret: %w", err)
	}

	owner := domain.Owner{
		Email:        app.cfg.OwnerEmail,
		Subject:      app.cfg.OwnerSubject,
		PasswordHash: string(hash),
		TOTPSecret:   string(totpSecret),
	}
	app.logger.Info("owner loaded", "subject", owner.Subject, "otp", owner.RequiresOTP())
	return owner, nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		app.metadata,
		app.limits,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.ClientService = app.clientService
	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
