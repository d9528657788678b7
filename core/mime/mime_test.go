package mime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleTypes = `# comment line
text/html					html htm shtml
text/plain					txt asc text
  # indented comment
image/png					png
application/x-dup			HTML

application/octet-stream	bin
`

func TestParseAndLookup(t *testing.T) {
	table, err := Parse(strings.NewReader(sampleTypes), "text/plain")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"/www/index.html", "text/html"},
		{"/www/INDEX.HTM", "text/html"},
		{"/www/notes.txt", "text/plain"},
		{"/www/logo.png", "image/png"},
		{"/www/data.bin", "application/octet-stream"},
		{"/www/archive.tar.gz", "text/plain"},
		{"/www/README", "text/plain"},
		{"/www/trailing.", "text/plain"},
		{"/www/dir.d/noext", "text/plain"},
		{"/www/.hidden", "text/plain"},
	}

	for _, tt := range tests {
		if got := table.Lookup(tt.path); got != tt.want {
			t.Errorf("Lookup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mime.types")
	if err := os.WriteFile(path, []byte(sampleTypes), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path, "application/x-default")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 8 {
		t.Errorf("Expected 8 extensions, got %d", table.Len())
	}
	if table.Default() != "application/x-default" {
		t.Errorf("Unexpected default %q", table.Default())
	}
	if got := table.Lookup("x.unknown"); got != "application/x-default" {
		t.Errorf("Expected default type, got %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent"), "text/plain"); err == nil {
		t.Error("Expected error for missing mime types file")
	}
}

func TestBuiltin(t *testing.T) {
	table := Builtin("application/octet-stream")

	if got := table.Lookup("style.CSS"); got != "text/css" {
		t.Errorf("Expected text/css, got %q", got)
	}
	if got := table.Lookup("blob"); got != "application/octet-stream" {
		t.Errorf("Expected default, got %q", got)
	}
}

func BenchmarkLookup(b *testing.B) {
	table := Builtin("text/plain")
	for i := 0; i < b.N; i++ {
		_ = table.Lookup("/var/www/static/app.js")
	}
}
