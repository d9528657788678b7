package handler

import (
	"os"

	"golang.org/x/sys/unix"
)

// Kind is how a resolved path must be served
type Kind int

const (
	KindBad Kind = iota
	KindBrowse
	KindFile
	KindScript
)

// String returns the kind name used in logs and metrics
func (k Kind) String() string {
	switch k {
	case KindBrowse:
		return "browse"
	case KindFile:
		return "file"
	case KindScript:
		return "script"
	default:
		return "bad"
	}
}

// Classify inspects path: directories are browsed, regular files executable
// by this process are scripts (even when also readable), readable regular
// files are served as is, and everything else is unserviceable.
func Classify(path string) Kind {
	info, err := os.Stat(path)
	if err != nil {
		return KindBad
	}

	switch {
	case info.IsDir():
		return KindBrowse
	case !info.Mode().IsRegular():
		return KindBad
	case unix.Access(path, unix.X_OK) == nil:
		return KindScript
	case unix.Access(path, unix.R_OK) == nil:
		return KindFile
	default:
		return KindBad
	}
}
