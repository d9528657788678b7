package accesslog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/searchktools/spidey/core/codec"
)

func sampleRecord(uri string, status int) Record {
	return Record{
		Time:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Remote:   "127.0.0.1:40000",
		Method:   "GET",
		URI:      uri,
		Status:   status,
		Kind:     "file",
		Bytes:    1234,
		Duration: 1500 * time.Microsecond,
	}
}

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := l.Log(sampleRecord("/a.txt", 200)); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := l.Log(sampleRecord("/missing", 404)); err != nil {
		t.Fatalf("Log: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 is not JSON: %v", err)
	}
	if first["uri"] != "/a.txt" || first["status"] != float64(200) {
		t.Errorf("Unexpected first record %v", first)
	}
	if first["time"] != "2024-05-01T12:00:00Z" {
		t.Errorf("Unexpected time %v", first["time"])
	}
	if first["duration_ms"] != 1.5 {
		t.Errorf("Expected 1.5ms, got %v", first["duration_ms"])
	}
}

func TestProtoDelimited(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "proto")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Format() != codec.NameProtobuf {
		t.Errorf("Expected proto format, got %q", l.Format())
	}

	for _, status := range []int{200, 500} {
		if err := l.Log(sampleRecord("/cgi/run", status)); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	r := bufio.NewReader(&buf)
	for _, want := range []float64{200, 500} {
		var s structpb.Struct
		if err := protodelim.UnmarshalFrom(r, &s); err != nil {
			t.Fatalf("UnmarshalFrom: %v", err)
		}
		fields := s.AsMap()
		if fields["status"] != want {
			t.Errorf("Expected status %v, got %v", want, fields["status"])
		}
		if fields["kind"] != "file" {
			t.Errorf("Expected kind file, got %v", fields["kind"])
		}
	}
}

func TestUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "xml"); !errors.Is(err, codec.ErrUnsupportedCodec) {
		t.Errorf("Expected ErrUnsupportedCodec, got %v", err)
	}
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")

	for i := 0; i < 2; i++ {
		l, err := Open(path, "json")
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if err := l.Log(sampleRecord("/", 200)); err != nil {
			t.Fatalf("Log: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := bytes.Count(data, []byte("\n")); n != 2 {
		t.Errorf("Expected 2 records after reopening, got %d", n)
	}
}

func BenchmarkLogJSON(b *testing.B) {
	l, _ := New(&bytes.Buffer{}, "json")
	rec := sampleRecord("/index.html", 200)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = l.Log(rec)
	}
}
