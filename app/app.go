package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/spidey/config"
	"github.com/searchktools/spidey/core"
	"github.com/searchktools/spidey/core/accesslog"
	"github.com/searchktools/spidey/core/handler"
	"github.com/searchktools/spidey/core/mime"
	"github.com/searchktools/spidey/core/observability"
	"github.com/searchktools/spidey/core/sandbox"
)

// App wires configuration, the request dispatcher and the engine together
type App struct {
	cfg        *config.Config
	logger     zerolog.Logger
	monitor    *observability.Monitor
	accessLog  *accesslog.Logger
	dispatcher *handler.Dispatcher
}

// New creates an application instance logging to stderr
func New(cfg *config.Config) (*App, error) {
	return NewWithLogger(cfg, NewLogger(cfg, os.Stderr))
}

// NewWithLogger creates an application instance with a pre-configured logger
func NewWithLogger(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	resolver, err := sandbox.NewResolver(cfg.Root)
	if err != nil {
		return nil, err
	}

	types, err := mime.Load(cfg.MimeTypesPath, cfg.DefaultMimeType)
	if err != nil {
		logger.Warn().Err(err).Msg("using builtin MIME types")
		types = mime.Builtin(cfg.DefaultMimeType)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		monitor: observability.NewMonitor(),
	}

	if cfg.AccessLog != "" {
		a.accessLog, err = accesslog.Open(cfg.AccessLog, cfg.AccessLogFormat)
		if err != nil {
			return nil, err
		}
	}

	a.dispatcher = handler.NewDispatcher(handler.Options{
		Resolver:  resolver,
		Types:     types,
		Port:      cfg.Port,
		Env:       os.Environ(),
		Stderr:    os.Stderr,
		Monitor:   a.monitor,
		AccessLog: a.accessLog,
	})

	logger.Info().
		Fields(cfg.Summary()).
		Str("root_resolved", resolver.Root()).
		Int("mime_extensions", types.Len()).
		Msg("configured")
	return a, nil
}

// NewLogger builds the root logger described by cfg
func NewLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.LogFormat == config.LogFormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(cfg.Level()).With().Timestamp().Logger()
}

// Monitor returns the request metrics
func (a *App) Monitor() *observability.Monitor {
	return a.monitor
}

// Run listens on the configured port and serves until ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.cfg.Port)
	if err != nil {
		a.Close()
		return fmt.Errorf("listen on port %s: %w", a.cfg.Port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the engine on ln until ctx is cancelled or accepting fails,
// then drains in-flight requests for up to ShutdownTimeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	defer a.Close()

	engine := core.NewEngine(ln, a.dispatcher, core.Options{
		Mode:       a.cfg.EngineMode(),
		MaxWorkers: a.cfg.MaxWorkers,
		Logger:     a.logger,
	})

	errc := make(chan error, 1)
	go func() { errc <- engine.Serve() }()

	var serveErr error
	select {
	case serveErr = <-errc:
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := engine.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Int("active", engine.Stats().Workers.Active).Msg("shutdown incomplete")
	}
	if serveErr == nil {
		serveErr = <-errc
	}

	a.logStats(engine)

	if errors.Is(serveErr, core.ErrServerClosed) {
		return nil
	}
	return serveErr
}

func (a *App) logStats(engine *core.Engine) {
	stats := engine.Stats()
	snap := a.monitor.Snapshot()

	a.logger.Info().
		Uint64("accepted", stats.Accepted).
		Uint64("requests", snap.Requests).
		Uint64("errors", snap.Errors).
		Uint64("bytes", snap.Bytes).
		Dur("avg", snap.Avg).
		Uint64("workers_spawned", stats.Workers.Spawned).
		Uint64("workers_rejected", stats.Workers.Rejected).
		Msg("server stopped")

	for _, k := range snap.Kinds {
		a.logger.Info().
			Str("kind", k.Kind).
			Uint64("count", k.Count).
			Uint64("errors", k.Errors).
			Dur("avg", k.Avg).
			Dur("max", k.Max).
			Msg("kind stats")
	}
	for _, b := range a.monitor.Bottlenecks() {
		a.logger.Warn().Str("type", b.Type).Str("kind", b.Location).Msg(b.Details)
	}
}

// Close releases the access log
func (a *App) Close() error {
	if a.accessLog == nil {
		return nil
	}
	return a.accessLog.Close()
}
