package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/spidey/core/http"
	"github.com/searchktools/spidey/core/pools"
)

// Handler answers requests on behalf of the engine
type Handler interface {
	// Handle reads, serves and answers r, returning the status sent
	Handle(r *http.Request) int

	// Reject answers r with an error page without reading it
	Reject(r *http.Request, status int) int
}

// Options configures an Engine
type Options struct {
	Mode Mode

	// MaxWorkers caps concurrent connections in forking mode; <= 0 is unlimited
	MaxWorkers int

	Logger zerolog.Logger
}

// Accept backoff bounds for descriptor exhaustion
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Engine accepts connections and hands each one to the handler, either
// inline (ModeSingle) or on a detached worker (ModeForking).
type Engine struct {
	ln      net.Listener
	handler Handler
	mode    Mode
	spawner *pools.Spawner
	logger  zerolog.Logger

	closed  atomic.Bool
	serving atomic.Bool
	done    chan struct{}
	once    sync.Once

	accepted atomic.Uint64
	retries  atomic.Uint64
}

// NewEngine creates an engine serving ln with h
func NewEngine(ln net.Listener, h Handler, opts Options) *Engine {
	return &Engine{
		ln:      ln,
		handler: h,
		mode:    opts.Mode,
		spawner: pools.NewSpawner(opts.MaxWorkers),
		logger:  opts.Logger,
		done:    make(chan struct{}),
	}
}

// Addr returns the listener's address
func (e *Engine) Addr() net.Addr {
	return e.ln.Addr()
}

// Mode returns the concurrency mode
func (e *Engine) Mode() Mode {
	return e.mode
}

// Serve runs the accept loop until the listener fails or the engine is
// closed. It returns ErrServerClosed after Close or Shutdown.
func (e *Engine) Serve() error {
	if !e.serving.CompareAndSwap(false, true) {
		return errors.New("engine already serving")
	}
	defer e.once.Do(func() { close(e.done) })
	defer e.ln.Close()

	e.logger.Info().
		Str("addr", e.ln.Addr().String()).
		Stringer("mode", e.mode).
		Msg("accepting connections")

	var delay time.Duration
	for {
		conn, err := e.ln.Accept()
		if err != nil {
			if e.closed.Load() {
				return ErrServerClosed
			}
			retry, next := acceptRetry(err, delay)
			if !retry {
				e.logger.Error().Err(err).Msg("accept failed")
				return fmt.Errorf("accept: %w", err)
			}
			e.retries.Add(1)
			delay = next
			if delay > 0 {
				e.logger.Warn().Err(err).Dur("retry_in", delay).Msg("accept error")
				time.Sleep(delay)
			}
			continue
		}
		delay = 0
		e.accepted.Add(1)

		req := http.AcquireRequest(conn, e.logger)
		req.Logger.Debug().Msg("connection accepted")

		if e.mode == ModeForking {
			e.fork(req)
		} else {
			e.serve(req)
		}
	}
}

func (e *Engine) serve(req *http.Request) {
	defer http.ReleaseRequest(req)
	e.handler.Handle(req)
}

// fork hands req to a detached worker. The accept loop gives up its
// reference either way; a refused spawn is answered with a 500.
func (e *Engine) fork(req *http.Request) {
	if e.spawner.Spawn(func() { e.serve(req) }) {
		return
	}
	req.Logger.Error().Int("active", e.spawner.Active()).Msg("cannot start worker")
	e.handler.Reject(req, http.StatusInternalServerError)
	http.ReleaseRequest(req)
}

// acceptRetry reports whether an Accept error is transient and how long to
// wait before the next attempt.
func acceptRetry(err error, last time.Duration) (bool, time.Duration) {
	switch {
	case errors.Is(err, syscall.EINTR), errors.Is(err, syscall.ECONNABORTED):
		return true, 0
	case errors.Is(err, syscall.EMFILE), errors.Is(err, syscall.ENFILE),
		errors.Is(err, syscall.ENOBUFS), errors.Is(err, syscall.ENOMEM):
		next := last * 2
		if next < minAcceptDelay {
			next = minAcceptDelay
		}
		if next > maxAcceptDelay {
			next = maxAcceptDelay
		}
		return true, next
	default:
		return false, 0
	}
}

// Close stops accepting. In-flight workers keep running.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.spawner.Close()
	if err := e.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Shutdown closes the engine and waits for the accept loop and every
// in-flight worker to finish, or for ctx to end.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.Close(); err != nil {
		return err
	}
	if e.serving.Load() {
		select {
		case <-e.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return e.spawner.Wait(ctx)
}
