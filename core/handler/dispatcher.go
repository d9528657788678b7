// Package handler turns a parsed request into exactly one response:
// a directory listing, a file, a script's output or an error page.
package handler

import (
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"
	"time"

	"github.com/searchktools/spidey/core/accesslog"
	"github.com/searchktools/spidey/core/http"
	"github.com/searchktools/spidey/core/mime"
	"github.com/searchktools/spidey/core/observability"
	"github.com/searchktools/spidey/core/sandbox"
)

// State is the stage a request has reached
type State int

const (
	StateAccepted State = iota
	StateParsed
	StateResolved
	StateClassified
	StateResponded
)

func (s State) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateParsed:
		return "parsed"
	case StateResolved:
		return "resolved"
	case StateClassified:
		return "classified"
	default:
		return "responded"
	}
}

// Options configures a Dispatcher
type Options struct {
	Resolver *sandbox.Resolver
	Types    *mime.Table
	Port     string

	// Env is the base environment for scripts; nil means os.Environ()
	Env    []string
	Stderr io.Writer

	// Optional
	Monitor   *observability.Monitor
	AccessLog *accesslog.Logger
}

// Dispatcher drives a request through parse, resolve, classify and serve
type Dispatcher struct {
	resolver  *sandbox.Resolver
	types     *mime.Table
	script    ScriptOptions
	monitor   *observability.Monitor
	accessLog *accesslog.Logger
}

// NewDispatcher creates a dispatcher. Missing Types fall back to the
// builtin table with a text/plain default.
func NewDispatcher(opts Options) *Dispatcher {
	types := opts.Types
	if types == nil {
		types = mime.Builtin("text/plain")
	}
	env := opts.Env
	if env == nil {
		env = os.Environ()
	}
	monitor := opts.Monitor
	if monitor == nil {
		monitor = observability.NewMonitor()
	}

	return &Dispatcher{
		resolver: opts.Resolver,
		types:    types,
		script: ScriptOptions{
			Root:   opts.Resolver.Root(),
			Port:   opts.Port,
			Env:    env,
			Stderr: opts.Stderr,
		},
		monitor:   monitor,
		accessLog: opts.AccessLog,
	}
}

// Monitor returns the metrics sink
func (d *Dispatcher) Monitor() *observability.Monitor {
	return d.monitor
}

// Handle serves one request and returns the status it was answered with.
// The caller releases r afterwards.
func (d *Dispatcher) Handle(r *http.Request) (status int) {
	start := time.Now()
	state := StateAccepted
	kind := KindBad

	defer func() {
		if v := recover(); v != nil {
			r.Logger.Error().
				Interface("panic", v).
				Str("state", state.String()).
				Bytes("stack", debug.Stack()).
				Msg("handler panic")
			status = abort(r, http.StatusInternalServerError, fmt.Errorf("panic: %v", v))
		}
		d.finish(r, kind, status, start)
	}()

	if err := http.ParseRequest(r); err != nil {
		r.Logger.Debug().Err(err).Msg("bad request")
		return ServeError(r, http.StatusBadRequest)
	}
	state = StateParsed

	resolved, err := d.resolver.Resolve(r.Path)
	if err != nil {
		r.Logger.Debug().Err(err).Str("path", r.Path).Msg("path not resolved")
		return ServeError(r, http.StatusNotFound)
	}
	r.Path = resolved
	state = StateResolved

	kind = Classify(r.Path)
	state = StateClassified
	r.Logger.Debug().Str("path", r.Path).Stringer("kind", kind).Msg("classified")

	switch kind {
	case KindBrowse:
		return ServeBrowse(r)
	case KindFile:
		return ServeFile(r, d.types)
	case KindScript:
		return ServeScript(r, d.script)
	default:
		return ServeError(r, http.StatusNotFound)
	}
}

// Reject answers r with an error page without reading the request
func (d *Dispatcher) Reject(r *http.Request, status int) int {
	start := time.Now()
	status = ServeError(r, status)
	d.finish(r, KindBad, status, start)
	return status
}

func (d *Dispatcher) finish(r *http.Request, kind Kind, status int, start time.Time) {
	elapsed := time.Since(start)
	written := r.Written()

	d.monitor.RecordRequest(kind.String(), elapsed, written, status != http.StatusOK)

	r.Logger.Info().
		Str("method", r.Method).
		Str("uri", r.URI).
		Int("status", status).
		Stringer("kind", kind).
		Int64("bytes", written).
		Dur("duration", elapsed).
		Msg("request")

	if d.accessLog == nil {
		return
	}
	rec := accesslog.Record{
		Time:     start,
		Remote:   r.Host,
		Method:   r.Method,
		URI:      r.URI,
		Status:   status,
		Kind:     kind.String(),
		Bytes:    written,
		Duration: elapsed,
	}
	if r.Port != "" {
		rec.Remote = net.JoinHostPort(r.Host, r.Port)
	}
	if err := d.accessLog.Log(rec); err != nil {
		r.Logger.Warn().Err(err).Msg("access log write failed")
	}
}
