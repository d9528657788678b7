// Package sandbox maps request paths to canonical filesystem paths that are
// guaranteed to live under one document root.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxPathLen bounds the joined root+resource path before canonicalization
const MaxPathLen = 4096

var (
	ErrOutsideRoot  = errors.New("path escapes document root")
	ErrPathTooLong  = errors.New("path too long")
	ErrNotDirectory = errors.New("document root is not a directory")
)

// Resolver resolves resource paths against a canonical document root
type Resolver struct {
	root string
}

// NewResolver canonicalizes root and checks that it is a directory
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("document root %q: %w", root, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("document root %q: %w", root, err)
	}

	info, err := os.Stat(real)
	if err != nil {
		return nil, fmt.Errorf("document root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, real)
	}

	return &Resolver{root: real}, nil
}

// Root returns the canonical document root
func (r *Resolver) Root() string {
	return r.root
}

// Resolve joins resource onto the root, resolves symlinks and ".." against the
// real filesystem, and rejects anything that lands outside the root.
// The target must exist.
func (r *Resolver) Resolve(resource string) (string, error) {
	resource = strings.TrimPrefix(resource, "/")

	// Plain concatenation: a lexical Join would fold ".." before symlinks are seen.
	joined := r.root + string(filepath.Separator) + resource
	if len(joined) >= MaxPathLen {
		return "", ErrPathTooLong
	}

	real, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", resource, err)
	}
	if !filepath.IsAbs(real) {
		return "", fmt.Errorf("resolve %q: non-absolute result %q", resource, real)
	}

	if !Within(r.root, real) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, real)
	}
	return real, nil
}

// Within reports whether path equals root or lies beneath it on a separator
// boundary, so "/srv/www" contains "/srv/www/a" but not "/srv/www2".
func Within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}
