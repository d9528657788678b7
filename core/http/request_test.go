package http

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"testing"
)

func TestAcquireRequestPeerAddress(t *testing.T) {
	r, client := dialRequest(t, "")

	if r.Host != "127.0.0.1" && r.Host != "::1" {
		t.Errorf("Expected loopback host, got %q", r.Host)
	}
	_, port, _ := net.SplitHostPort(client.LocalAddr().String())
	if r.Port != port {
		t.Errorf("Expected peer port %s, got %q", port, r.Port)
	}
}

func TestRequestWrittenAndRelease(t *testing.T) {
	r, client := dialRequest(t, "")

	if err := WriteHead(r.Writer(), StatusOK, HeaderContentType, "text/plain"); err != nil {
		t.Fatalf("WriteHead: %v", err)
	}
	if err := WriteFull(r.Writer(), []byte("hello")); err != nil {
		t.Fatalf("WriteFull: %v", err)
	}
	if r.Written() != 0 {
		t.Errorf("Nothing should reach the connection before Flush, got %d", r.Written())
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := "HTTP/1.0 200 OK\r\nContent-Type: text/plain\r\n\r\nhello"
	if r.Written() != int64(len(want)) {
		t.Errorf("Expected %d bytes written, got %d", len(want), r.Written())
	}

	if err := r.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !r.Released() {
		t.Error("Request should report released")
	}
	if r.Method != "" || r.Host != "" || len(r.Headers) != 0 {
		t.Error("Release should clear request fields")
	}
	if err := r.Release(); err != nil {
		t.Errorf("Second Release should be a no-op, got %v", err)
	}

	got, err := io.ReadAll(client)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if string(got) != want {
		t.Errorf("Response = %q, want %q", got, want)
	}
}

func TestDiscardUnsent(t *testing.T) {
	r, client := dialRequest(t, "")

	WriteHead(r.Writer(), StatusOK, HeaderContentType, "text/plain")
	if !r.DiscardUnsent() {
		t.Fatal("Buffered head should be discardable")
	}
	if r.Writer().Buffered() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", r.Writer().Buffered())
	}

	WriteHead(r.Writer(), StatusNotFound, HeaderContentType, "text/html")
	r.Flush()
	if r.DiscardUnsent() {
		t.Error("Flushed response should not be discardable")
	}
	r.Release()

	got, _ := io.ReadAll(client)
	want := "HTTP/1.0 404 Not Found\r\nContent-Type: text/html\r\n\r\n"
	if string(got) != want {
		t.Errorf("Response = %q, want %q", got, want)
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{StatusOK, "200 OK"},
		{StatusBadRequest, "400 Bad Request"},
		{StatusNotFound, "404 Not Found"},
		{StatusInternalServerError, "500 Internal Server Error"},
		{418, "500 Internal Server Error"},
	}

	for _, tt := range tests {
		if got := StatusString(tt.code); got != tt.want {
			t.Errorf("StatusString(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestWriteHead(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	if err := WriteHead(w, StatusNotFound, "Content-Type", "text/html", "X-Odd"); err != nil {
		t.Fatalf("WriteHead: %v", err)
	}
	w.Flush()

	want := "HTTP/1.0 404 Not Found\r\nContent-Type: text/html\r\n\r\n"
	if buf.String() != want {
		t.Errorf("WriteHead wrote %q, want %q", buf.String(), want)
	}
}

type refusingWriter struct{}

func (refusingWriter) Write(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}

func TestWriteFullReportsFailure(t *testing.T) {
	w := bufio.NewWriterSize(refusingWriter{}, 16)

	// Larger than the buffer, so the refusing writer is hit directly
	if err := WriteFull(w, bytes.Repeat([]byte("x"), 64)); err == nil {
		t.Error("Expected an error from a refusing writer")
	}
}

func BenchmarkAppendStatusLine(b *testing.B) {
	buf := make([]byte, 0, 64)
	for i := 0; i < b.N; i++ {
		buf = AppendStatusLine(buf[:0], StatusNotFound)
	}
}
