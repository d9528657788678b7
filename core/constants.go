package core

import (
	"errors"
	"fmt"
)

// Mode selects how accepted connections are served
type Mode int

const (
	// ModeSingle serves one connection at a time on the accept loop
	ModeSingle Mode = iota
	// ModeForking serves each connection on its own worker
	ModeForking
)

// Mode names as accepted by ParseMode
const (
	ModeNameSingle  = "single"
	ModeNameForking = "forking"
)

// Error definitions
var (
	ErrServerClosed = errors.New("server closed")
	ErrUnknownMode  = errors.New("unknown mode")
)

// ParseMode maps "single" or "forking" to a Mode
func ParseMode(name string) (Mode, error) {
	switch name {
	case ModeNameSingle:
		return ModeSingle, nil
	case ModeNameForking:
		return ModeForking, nil
	default:
		return ModeSingle, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

func (m Mode) String() string {
	if m == ModeForking {
		return ModeNameForking
	}
	return ModeNameSingle
}
