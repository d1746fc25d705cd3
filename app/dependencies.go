package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rvicquerra/portfolio-api/config"
	"github.com/rvicquerra/portfolio-api/handlers"
	"github.com/rvicquerra/portfolio-api/identity"
	"github.com/rvicquerra/portfolio-api/middleware"
	"github.com/rvicquerra/portfolio-api/repositories"
	"github.com/rvicquerra/portfolio-api/repositories/memory"
	"github.com/rvicquerra/portfolio-api/repositories/postgres"
	"github.com/rvicquerra/portfolio-api/security"
	"github.com/rvicquerra/portfolio-api/services/authlog"
	"github.com/rvicquerra/portfolio-api/services/chat"
	"github.com/rvicquerra/portfolio-api/services/ratelimit"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil on the in-memory backend
	Logger *zap.Logger

	// Core services
	AuthLogRepo repositories.AuthLogRepository
	AuthLog     *authlog.Service
	Limiter     *ratelimit.Limiter
	Detector    *security.Detector
	Events      *security.EventLog
	Guard       *security.Guard
	ChatRelay   *chat.Service

	// HTTP layer
	AuthMiddleware   *middleware.AuthMiddleware
	ChatHandler      *handlers.ChatHandler
	TrackHandler     *handlers.TrackHandler
	AdminLogsHandler *handlers.AdminLogsHandler
	WebhookHandler   *handlers.WebhookHandler
	HealthHandler    *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initAuthLog(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth log: %w", err)
	}
	deps.initSecurity(cfg)
	if err := deps.initChat(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize chat relay: %w", err)
	}
	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized",
		zap.String("log_backend", cfg.Logs.Backend),
		zap.String("chat_provider", cfg.Chat.Provider))
	return deps, nil
}

// initAuthLog selects and initializes the configured log backend.
func (d *Dependencies) initAuthLog(ctx context.Context, cfg *config.Config) error {
	switch cfg.Logs.Backend {
	case config.LogBackendPostgres:
		db, err := postgres.NewDB(cfg.Database, d.Logger)
		if err != nil {
			return err
		}
		if err := db.InitSchema(ctx); err != nil {
			_ = db.Close()
			return err
		}
		d.DB = db
		d.AuthLogRepo = postgres.NewAuthLogRepository(db, d.Logger)

	case config.LogBackendMemory:
		d.AuthLogRepo = memory.NewAuthLogRepository(cfg.Logs.MemoryCapacity)

	default:
		return fmt.Errorf("unknown log backend %q", cfg.Logs.Backend)
	}

	d.AuthLog = authlog.NewService(d.AuthLogRepo, d.Logger)
	return nil
}

// initSecurity wires the limiter, detector, event log and guard.
func (d *Dependencies) initSecurity(cfg *config.Config) {
	rules := map[string]ratelimit.Rule{
		"chat":       {Limit: cfg.RateLimit.ChatLimit, Window: cfg.RateLimit.ChatWindow},
		"auth-track": {Limit: cfg.RateLimit.TrackLimit, Window: cfg.RateLimit.TrackWindow},
	}

	var opts []ratelimit.Option
	if cfg.RateLimit.FailClosed {
		opts = append(opts, ratelimit.WithFailClosed())
	}
	d.Limiter = ratelimit.NewLimiter(rules, d.Logger, opts...)
	d.Detector = security.NewDetector(security.DefaultRules())
	d.Events = security.NewEventLog(200, d.Logger)
	d.Guard = security.NewGuard(d.Limiter, d.Detector, d.Events, d.Logger)
}

// initChat builds the configured completion provider and the relay.
func (d *Dependencies) initChat(cfg *config.Config) error {
	var provider chat.Provider
	switch cfg.Chat.Provider {
	case config.ChatProviderGroq:
		provider = chat.NewGroqProvider(chat.GroqConfig{
			APIKey:     cfg.Chat.GroqAPIKey,
			BaseURL:    cfg.Chat.GroqBaseURL,
			Model:      cfg.Chat.GroqModel,
			Timeout:    cfg.Chat.Timeout,
			MaxRetries: cfg.Chat.MaxRetries,
		})
	case config.ChatProviderOllama:
		provider = chat.NewOllamaProvider(chat.OllamaConfig{
			BaseURL: cfg.Chat.OllamaURL,
			Model:   cfg.Chat.OllamaModel,
			Timeout: cfg.Chat.Timeout,
		})
	default:
		return fmt.Errorf("unknown chat provider %q", cfg.Chat.Provider)
	}

	d.ChatRelay = chat.NewService(provider, cfg.Chat.SystemPrompt, d.Logger)
	return nil
}

// initHTTP wires middleware and handlers.
func (d *Dependencies) initHTTP(cfg *config.Config) {
	verifier := identity.NewVerifier(cfg.Identity.SessionSecret, cfg.Identity.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(verifier, d.Logger)

	d.ChatHandler = handlers.NewChatHandler(d.Guard, d.ChatRelay, d.Logger)
	d.TrackHandler = handlers.NewTrackHandler(d.AuthLog, d.Limiter, d.Events, d.Logger)
	d.AdminLogsHandler = handlers.NewAdminLogsHandler(d.AuthLog, d.Logger)
	d.WebhookHandler = handlers.NewWebhookHandler(cfg.Identity.WebhookSecret, d.AuthLog, d.Logger)

	var pinger handlers.Pinger
	if d.DB != nil {
		pinger = d.DB
	}
	d.HealthHandler = handlers.NewHealthHandler(pinger, d.Logger)
}

// StartBackground launches the retention sweeper and limiter GC. The
// returned function stops them.
func (d *Dependencies) StartBackground() func() {
	stop := make(chan struct{})

	go d.Limiter.StartSweeper(d.Config.RateLimit.SweepInterval, stop)
	go d.AuthLog.StartRetentionSweeper(d.Config.Logs.SweepInterval, d.Config.Logs.RetentionDays, stop)

	return func() { close(stop) }
}

// Close releases infrastructure resources.
func (d *Dependencies) Close(_ context.Context) error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// ShutdownTimeout returns the configured graceful shutdown budget.
func (d *Dependencies) ShutdownTimeout() time.Duration {
	return d.Config.Server.ShutdownTimeout
}
