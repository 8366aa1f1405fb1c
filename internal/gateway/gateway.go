// ABOUTME: Gateway orchestrator that wires the store, services, REST API and Telegram bot
// ABOUTME: Manages the HTTP server and bot lifecycle with graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/picco-crm/picco/internal/admins"
	"github.com/picco-crm/picco/internal/auth"
	"github.com/picco-crm/picco/internal/config"
	"github.com/picco-crm/picco/internal/httpapi"
	"github.com/picco-crm/picco/internal/orders"
	"github.com/picco-crm/picco/internal/registration"
	"github.com/picco-crm/picco/internal/session"
	"github.com/picco-crm/picco/internal/store"
	"github.com/picco-crm/picco/internal/telegram"
)

// sessionBackend is a session store that owns resources.
type sessionBackend interface {
	session.Store
	Close() error
}

// Gateway orchestrates the picco server components.
type Gateway struct {
	config     *config.Config
	store      store.Store
	sessions   sessionBackend
	api        *httpapi.Server
	httpServer *http.Server
	logger     *slog.Logger

	// bot and botAPI are nil when telegram is disabled
	bot    *telegram.Bot
	botAPI *tgbotapi.BotAPI
}

// InitStore opens the configured directory store.
func InitStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		s, err = store.NewPostgresStore(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	default:
		s, err = store.NewSQLiteStore(cfg.Database.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// initSessions creates the configured registration session backend.
func initSessions(ctx context.Context, cfg *config.Config) (sessionBackend, error) {
	if cfg.Sessions.Backend != config.SessionBackendRedis {
		return session.NewMemory(cfg.Sessions.TTL), nil
	}
	client, err := session.NewRedisClient(ctx, session.RedisOptions{
		Addr:     cfg.Sessions.Redis.Addr,
		Password: cfg.Sessions.Redis.Password,
		DB:       cfg.Sessions.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing sessions: %w", err)
	}
	return session.NewRedis(client, cfg.Sessions.Redis.Prefix, cfg.Sessions.TTL), nil
}

// NewAdminService builds the admin account service for cfg along with the
// verifier for the tokens it issues.
func NewAdminService(s store.Store, cfg *config.Config, logger *slog.Logger) (*admins.Service, *auth.JWTVerifier, error) {
	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, nil, fmt.Errorf("creating token verifier: %w", err)
	}
	svc := admins.NewService(s, verifier, admins.Options{
		BootstrapPassword: cfg.Bootstrap.AdminPassword,
		TokenTTL:          cfg.Auth.TokenTTL,
	}, logger)
	return svc, verifier, nil
}

// New creates a new Gateway instance with the given configuration.
// It opens the store, makes sure the bootstrap super-admin exists and, when
// telegram is enabled, connects to the Bot API.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := InitStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gw, err := newWithStore(ctx, cfg, s, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return gw, nil
}

func newWithStore(ctx context.Context, cfg *config.Config, s store.Store, logger *slog.Logger) (*Gateway, error) {
	adminSvc, verifier, err := NewAdminService(s, cfg, logger)
	if err != nil {
		return nil, err
	}

	created, err := adminSvc.EnsureSuperAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping super-admin: %w", err)
	}
	if created {
		logger.Warn("bootstrap super-admin created with the configured default password; change it after first login",
			"username", admins.BootstrapUsername)
	}

	sessions, err := initSessions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registrar := registration.NewRegistrar(s, logger)
	api := httpapi.New(httpapi.Config{
		Store:          s,
		Orders:         orders.NewService(s, logger),
		Admins:         adminSvc,
		Registrar:      registrar,
		Verifier:       verifier,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})

	gw := &Gateway{
		config:   cfg,
		store:    s,
		sessions: sessions,
		api:      api,
		logger:   logger.With("component", "gateway"),
	}

	if cfg.Telegram.Enabled {
		if err := gw.setupBot(registrar); err != nil {
			_ = sessions.Close()
			return nil, err
		}
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// setupBot connects to the Bot API and, in webhook mode, mounts the webhook
// route on the API mux.
func (g *Gateway) setupBot(registrar *registration.Registrar) error {
	botAPI, err := telegram.NewAPI(g.config.Telegram.BotToken)
	if err != nil {
		return err
	}

	panels := registration.Panels{
		BaseURL:   g.config.WebApp.BaseURL,
		AgentPath: g.config.WebApp.AgentPath,
		AdminPath: g.config.WebApp.AdminPath,
	}
	machine := registration.NewMachine(g.sessions, registrar, panels, g.logger)
	g.bot = telegram.NewBot(botAPI, machine, g.logger)
	g.botAPI = botAPI

	if g.config.Telegram.Mode == config.TelegramModeWebhook {
		g.api.Mount("POST "+g.config.Telegram.WebhookPath, g.bot.WebhookHandler(botAPI))
	}
	g.logger.Info("telegram bot enabled", "username", botAPI.Self.UserName, "mode", g.config.Telegram.Mode)
	return nil
}

// startServers starts the HTTP server and the bot in goroutines, returning
// the error channel.
func (g *Gateway) startServers(ctx context.Context, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	if g.bot != nil {
		go func() {
			if err := g.runBot(ctx); err != nil {
				errCh <- fmt.Errorf("telegram bot: %w", err)
			}
		}()
	}

	return errCh
}

func (g *Gateway) runBot(ctx context.Context) error {
	if g.config.Telegram.Mode == config.TelegramModeWebhook {
		url := g.config.Telegram.WebhookURL()
		if err := telegram.RegisterWebhook(g.botAPI, url); err != nil {
			return err
		}
		g.logger.Info("telegram webhook registered", "url", url)
		return nil
	}

	// getUpdates is refused while a webhook is set.
	if err := telegram.DeleteWebhook(g.botAPI); err != nil {
		return err
	}
	return g.bot.Poll(ctx, g.botAPI, g.config.Telegram.PollTimeout)
}

// waitForShutdownSignal waits for context cancellation or server error.
func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		g.drainErrors(errCh)
		return err
	}
}

// drainErrors drains any remaining errors from the channel.
func (g *Gateway) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		g.logger.Error("additional server error", "error", additionalErr)
	default:
	}
}

// Run starts the HTTP server and the bot and blocks until the context is
// canceled. Returns nil on graceful shutdown, or an error if a component fails.
func (g *Gateway) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}
	return g.Serve(ctx, httpLn)
}

// Serve is Run on an existing listener.
func (g *Gateway) Serve(ctx context.Context, httpLn net.Listener) error {
	g.logger.Info("starting gateway", "http_addr", httpLn.Addr().String())

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	errCh := g.startServers(runCtx, httpLn)
	serverErr := g.waitForShutdownSignal(runCtx, errCh)
	stop()

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout, since
// the run context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully shuts down the gateway.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	errs = appendCloseError(errs, "sessions close", g.sessions.Close())
	errs = appendCloseError(errs, "store close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}
