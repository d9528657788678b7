package http

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// MaxLineSize bounds a single request or header line, CR/LF included
const MaxLineSize = 8192

// MaxHeaders bounds the number of header lines kept for one request
const MaxHeaders = 100

// Header is one request header line, whitespace-trimmed
type Header struct {
	Name  string
	Value string
}

// Request is one in-flight HTTP/1.0 transaction bound to an accepted connection.
//
// A Request is owned by whoever handles its connection. Release closes the
// connection and drops every field; it is safe to call more than once.
type Request struct {
	Method string
	URI    string // request-target as sent, query included
	Path   string // decoded path, replaced by the resolved filesystem path
	Query  string
	Proto  string

	// Headers in arrival order; duplicate names are kept
	Headers []Header

	// Peer address, empty when unavailable
	Host string
	Port string

	Logger zerolog.Logger

	conn    net.Conn
	counter countingWriter
	reader  *bufio.Reader
	writer  *bufio.Writer
	closed  bool
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{
			Headers: make([]Header, 0, 16),
		}
	},
}

// AcquireRequest wraps an accepted connection in a pooled Request.
// The peer address lookup is best-effort.
func AcquireRequest(conn net.Conn, logger zerolog.Logger) *Request {
	r := requestPool.Get().(*Request)
	r.conn = conn
	r.closed = false
	r.counter = countingWriter{w: conn}

	if r.reader == nil {
		r.reader = bufio.NewReaderSize(conn, MaxLineSize)
	} else {
		r.reader.Reset(conn)
	}
	if r.writer == nil {
		r.writer = bufio.NewWriterSize(&r.counter, MaxLineSize)
	} else {
		r.writer.Reset(&r.counter)
	}

	if addr := conn.RemoteAddr(); addr != nil {
		if host, port, err := net.SplitHostPort(addr.String()); err == nil {
			r.Host = host
			r.Port = port
		}
	}
	r.Logger = logger.With().Str("remote", net.JoinHostPort(r.Host, r.Port)).Logger()
	return r
}

// ReleaseRequest releases the request and returns it to the pool
func ReleaseRequest(r *Request) {
	if r == nil || r.closed {
		return
	}
	r.Release()
	requestPool.Put(r)
}

// Release flushes pending output, closes the connection and clears all fields
func (r *Request) Release() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.conn != nil {
		if r.writer != nil {
			r.writer.Flush()
		}
		err = r.conn.Close()
	}
	r.Reset()
	return err
}

// Reset clears the request for reuse (header capacity kept)
func (r *Request) Reset() {
	r.Method = ""
	r.URI = ""
	r.Path = ""
	r.Query = ""
	r.Proto = ""
	for i := range r.Headers {
		r.Headers[i] = Header{}
	}
	r.Headers = r.Headers[:0]
	r.Host = ""
	r.Port = ""
	r.Logger = zerolog.Nop()
	r.conn = nil
	r.counter = countingWriter{}
	if r.reader != nil {
		r.reader.Reset(nil)
	}
	if r.writer != nil {
		r.writer.Reset(nil)
	}
}

// Released reports whether Release has run
func (r *Request) Released() bool {
	return r.closed
}

// Reader returns the buffered inbound side of the connection
func (r *Request) Reader() *bufio.Reader {
	return r.reader
}

// Writer returns the buffered outbound side of the connection
func (r *Request) Writer() *bufio.Writer {
	return r.writer
}

// Flush pushes buffered response bytes to the connection
func (r *Request) Flush() error {
	return r.writer.Flush()
}

// Written returns the number of bytes that reached the connection
func (r *Request) Written() int64 {
	return r.counter.n
}

// DiscardUnsent drops buffered response bytes when none has reached the
// connection yet, and reports whether the response can still be replaced.
func (r *Request) DiscardUnsent() bool {
	if r.counter.n > 0 || r.writer == nil {
		return false
	}
	r.writer.Reset(&r.counter)
	return true
}

// HeaderValue returns the first header with the given name (case-insensitive)
func (r *Request) HeaderValue(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// AddHeader appends a header, keeping arrival order
func (r *Request) AddHeader(name, value string) {
	r.Headers = append(r.Headers, Header{Name: name, Value: value})
}

// RawPath returns the request-target without its query, as sent
func (r *Request) RawPath() string {
	path, _ := SplitTarget(r.URI)
	return path
}
