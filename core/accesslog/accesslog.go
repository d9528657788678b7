// Package accesslog writes one record per served request, as JSON lines or
// as length-delimited protobuf Struct messages.
package accesslog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/searchktools/spidey/core/codec"
)

// Record describes one finished request
type Record struct {
	Time     time.Time
	Remote   string
	Method   string
	URI      string
	Status   int
	Kind     string
	Bytes    int64
	Duration time.Duration
}

// Fields returns the record as the map that gets encoded
func (r Record) Fields() map[string]any {
	return map[string]any{
		"time":        r.Time.UTC().Format(time.RFC3339Nano),
		"remote":      r.Remote,
		"method":      r.Method,
		"uri":         r.URI,
		"status":      r.Status,
		"kind":        r.Kind,
		"bytes":       r.Bytes,
		"duration_ms": float64(r.Duration) / float64(time.Millisecond),
	}
}

// Logger serializes records onto a writer; safe for concurrent use
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	codec  codec.Codec
	buf    []byte
}

// New creates a logger writing format ("json" or "proto") records to w
func New(w io.Writer, format string) (*Logger, error) {
	c, err := codec.GetCodec(format)
	if err != nil {
		return nil, err
	}
	return &Logger{w: w, codec: c, buf: make([]byte, 0, 256)}, nil
}

// Open creates a logger on path, appending; "-" means standard output
func Open(path, format string) (*Logger, error) {
	if path == "-" {
		return New(os.Stdout, format)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}
	l, err := New(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	l.closer = f
	return l, nil
}

// Format returns the codec name in use
func (l *Logger) Format() string {
	return l.codec.Name()
}

// Log encodes and writes one record
func (l *Logger) Log(rec Record) error {
	data, err := l.codec.Encode(rec.Fields())
	if err != nil {
		return fmt.Errorf("encode access record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = l.buf[:0]
	if l.codec.Name() == codec.NameProtobuf {
		l.buf = protowire.AppendVarint(l.buf, uint64(len(data)))
		l.buf = append(l.buf, data...)
	} else {
		l.buf = append(l.buf, data...)
		l.buf = append(l.buf, '\n')
	}

	if _, err := l.w.Write(l.buf); err != nil {
		return fmt.Errorf("write access record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if Open created one
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.closer.Close()
	l.closer = nil
	return err
}
