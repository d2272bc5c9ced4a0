package app

import (
	"context"
	"fmt"
	"time"

	"github.com/zlwaterfield/scramble/config"
	"github.com/zlwaterfield/scramble/middleware"
	"github.com/zlwaterfield/scramble/repositories"
	"github.com/zlwaterfield/scramble/repositories/memory"
	"github.com/zlwaterfield/scramble/repositories/sqldb"
	"github.com/zlwaterfield/scramble/services/enhancement"
	"github.com/zlwaterfield/scramble/services/history"
	"github.com/zlwaterfield/scramble/services/prompt"
	"github.com/zlwaterfield/scramble/services/providers"
	"github.com/zlwaterfield/scramble/services/providers/registry"
	"github.com/zlwaterfield/scramble/services/ratelimit"
	"github.com/zlwaterfield/scramble/services/settings"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *sqldb.DB // nil for the memory store
	Logger *zap.Logger

	// Repository Factory (SQL stores only)
	RepoFactory *sqldb.RepositoryFactory

	// Repositories
	Settings repositories.SettingsRepository
	History  repositories.HistoryRepository

	// Core
	Registry  *registry.Registry
	Scheduler *ratelimit.Scheduler
	Prompts   *prompt.Service

	// Services
	SettingsService    *settings.Service
	HistoryService     *history.Service
	EnhancementService *enhancement.Service

	// Auth (nil when AUTH_TOKEN_SECRET is unset)
	TokenValidator *middleware.HMACValidator
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStore(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := deps.initCore(cfg); err != nil {
		_ = deps.closeStore()
		return nil, fmt.Errorf("failed to initialize core: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Scheduler.Close()
		_ = deps.closeStore()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("store", cfg.Store.Driver),
		zap.Int("rate_limit_quota", cfg.Scheduler.Quota),
		zap.Duration("rate_limit_window", cfg.Scheduler.Window),
		zap.Bool("auth_enabled", deps.AuthMiddleware != nil))
	return deps, nil
}

// initStore opens the configured settings/history store
func (d *Dependencies) initStore(ctx context.Context, cfg *config.Config) error {
	if cfg.Store.Driver == config.StoreDriverMemory {
		d.Settings = memory.NewSettingsRepository()
		d.History = memory.NewHistoryRepository(0)
		d.Logger.Warn("using in-memory store, settings are lost on restart")
		return nil
	}

	factory, err := sqldb.NewRepositoryFactory(cfg.Store, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}
	if err := factory.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.RepoFactory = factory
	d.DB = factory.GetDB()
	d.Settings = repos.Settings
	d.History = repos.History

	d.Logger.Info("repositories initialized", zap.String("store", cfg.Store.LogString()))
	return nil
}

// initCore builds the registry, scheduler and prompt service
func (d *Dependencies) initCore(cfg *config.Config) error {
	opts := providers.DefaultOptions()
	opts.MaxTokens = cfg.Providers.MaxTokens
	opts.Temperature = cfg.Providers.Temperature
	opts.SystemPrompt = cfg.Providers.SystemPrompt
	opts.Title = cfg.Providers.Title
	d.Registry = registry.New(opts.WithTimeout(cfg.Providers.Timeout))

	pack, err := prompt.LoadPack(cfg.Prompts.File)
	if err != nil {
		return fmt.Errorf("failed to load prompt pack: %w", err)
	}
	if len(pack.Prompts) > 0 {
		d.Logger.Info("prompt pack loaded",
			zap.String("name", pack.Name),
			zap.Int("prompts", len(pack.Prompts)))
	}
	validation := prompt.DefaultValidationConfig()
	if cfg.Prompts.MaxTextLength > 0 {
		validation.MaxLength = cfg.Prompts.MaxTextLength
	}
	d.Prompts = prompt.NewService(validation, pack)

	d.Scheduler = ratelimit.NewScheduler(ratelimit.Config{
		Quota:  cfg.Scheduler.Quota,
		Window: cfg.Scheduler.Window,
	}, ratelimit.RealClock(), d.Logger.Named("scheduler"))

	return nil
}

// initServices wires the services on top of the repositories and core
func (d *Dependencies) initServices() error {
	d.SettingsService = settings.NewService(d.Settings, d.Logger.Named("settings"))

	d.HistoryService = history.NewService(d.History, d.Logger.Named("history"), history.DefaultConfig())
	if err := d.HistoryService.Start(); err != nil {
		return fmt.Errorf("failed to start history service: %w", err)
	}

	d.EnhancementService = enhancement.NewService(enhancement.Deps{
		Settings:  d.SettingsService,
		Prompts:   d.Prompts,
		Registry:  d.Registry,
		Scheduler: d.Scheduler,
		History:   d.HistoryService,
		RequestID: middleware.GetRequestIDFromContext,
		Logger:    d.Logger.Named("enhancement"),
	})
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if !cfg.Auth.Enabled() {
		d.Logger.Warn("AUTH_TOKEN_SECRET not set, API routes are unauthenticated")
		return
	}
	d.TokenValidator = middleware.NewHMACValidator(cfg.Auth.TokenSecret, cfg.Auth.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.TokenValidator, d.Logger)
	d.Logger.Info("bearer token auth enabled")
}

// Close gracefully shuts down all dependencies. Queued jobs are failed,
// pending history records are flushed and the store is closed.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Scheduler != nil {
		d.Scheduler.Close()
	}

	if d.HistoryService != nil {
		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.HistoryService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop history service: %w", err))
		}
	}

	if err := d.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}

func (d *Dependencies) closeStore() error {
	if d.RepoFactory == nil {
		return nil
	}
	if err := d.RepoFactory.Close(); err != nil {
		return err
	}
	d.RepoFactory = nil
	d.Logger.Info("database connection closed")
	return nil
}
