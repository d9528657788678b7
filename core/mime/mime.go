// Package mime maps file extensions to content types using a mime.types table.
package mime

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Table is an immutable extension -> content type map with a default type
type Table struct {
	types       map[string]string
	defaultType string
}

// Load reads a mime.types file.
//
// Each non-comment line is "<type> <ext1> <ext2> ...". The first type that
// lists an extension wins, matching a top-down scan of the file.
func Load(path, defaultType string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mime types: %w", err)
	}
	defer f.Close()

	t, err := Parse(f, defaultType)
	if err != nil {
		return nil, fmt.Errorf("read mime types %s: %w", path, err)
	}
	return t, nil
}

// Parse reads mime.types rules from r
func Parse(r io.Reader, defaultType string) (*Table, error) {
	t := &Table{
		types:       make(map[string]string, 1024),
		defaultType: defaultType,
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		mimeType := fields[0]
		for _, ext := range fields[1:] {
			ext = strings.ToLower(ext)
			if _, ok := t.types[ext]; !ok {
				t.types[ext] = mimeType
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Builtin returns a small table of common web types
func Builtin(defaultType string) *Table {
	types := make(map[string]string, len(builtinTypes))
	for ext, mimeType := range builtinTypes {
		types[ext] = mimeType
	}
	return &Table{types: types, defaultType: defaultType}
}

// Lookup returns the content type for path's extension (case-insensitive),
// or the default type when there is no extension or no match.
func (t *Table) Lookup(path string) string {
	ext := filepath.Ext(filepath.Base(path))
	if len(ext) < 2 {
		return t.defaultType
	}
	if mimeType, ok := t.types[strings.ToLower(ext[1:])]; ok {
		return mimeType
	}
	return t.defaultType
}

// Default returns the fallback content type
func (t *Table) Default() string {
	return t.defaultType
}

// Len returns the number of known extensions
func (t *Table) Len() int {
	return len(t.types)
}

var builtinTypes = map[string]string{
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"json": "application/json",
	"xml":  "application/xml",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"csv":  "text/csv",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"ico":  "image/x-icon",
	"webp": "image/webp",
	"pdf":  "application/pdf",
	"zip":  "application/zip",
	"gz":   "application/gzip",
	"tar":  "application/x-tar",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"wasm": "application/wasm",
}
