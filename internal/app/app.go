package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/auth"
	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/events"
	applog "github.com/vovakirdan/wirechat-channels/internal/log"
	"github.com/vovakirdan/wirechat-channels/internal/store"
	"github.com/vovakirdan/wirechat-channels/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirechat-channels/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	bus             *events.Bus
	accounts        *sqlite.SQLiteStore
	channels        store.ChannelStore
	ownsChannels    bool
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	accounts, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init account store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	channels, owns, err := openChannelStore(cfg.Storage, accounts, cfg.DatabasePath, logger)
	if err != nil {
		_ = accounts.Close()
		return nil, err
	}
	logger.Info().Str("backend", cfg.Storage.Backend).Str("path", cfg.Storage.Path).Msg("channel store opened")

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		accounts:        accounts,
		channels:        channels,
		ownsChannels:    owns,
		log:             logger,
	}

	if err := store.Seed(ctx, channels, cfg.DefaultChannels); err != nil {
		a.cleanup()
		return nil, fmt.Errorf("seed channels: %w", err)
	}

	a.bus = events.NewBus(applog.Component(logger, "events"))
	if err := events.SubscribeAudit(ctx, a.bus, applog.Component(logger, "audit")); err != nil {
		a.cleanup()
		return nil, fmt.Errorf("subscribe audit: %w", err)
	}

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(accounts, jwtConfig)

	a.hub = core.NewHub(channels,
		core.WithLogger(applog.Component(logger, "hub")),
		core.WithPublisher(a.bus),
		core.WithHistoryLimit(cfg.HistoryLimit),
		core.WithMembershipEnforcement(cfg.EnforceMembership),
	)
	a.server = transporthttp.NewServer(a.hub, authService, cfg, applog.Component(logger, "http"))

	return a, nil
}

// Hub exposes the chat hub.
func (a *App) Hub() *core.Hub {
	return a.hub
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(ctx)
	hubDone := make(chan struct{})
	go func() {
		a.hub.Run(hubCtx)
		close(hubDone)
	}()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		stopHub()
		<-hubDone
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		} else {
			runErr = <-serverErr
		}
	}

	stopHub()
	<-hubDone
	a.cleanup()
	return runErr
}

// cleanup closes the event bus and the stores.
func (a *App) cleanup() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close event bus")
		}
	}
	if a.ownsChannels && a.channels != nil {
		if err := a.channels.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close channel store")
		}
	}
	if a.accounts != nil {
		if err := a.accounts.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close account store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
