package core

import (
	"encoding/json"
	"fmt"

	"github.com/searchktools/spidey/core/pools"
)

// Stats represents engine and pool statistics
type Stats struct {
	Mode          string              `json:"mode"`
	Accepted      uint64              `json:"accepted"`
	AcceptRetries uint64              `json:"accept_retries"`
	Workers       pools.SpawnerStats  `json:"workers"`
	BytePool      pools.BytePoolStats `json:"byte_pool"`
}

// Stats returns a snapshot of engine statistics
func (e *Engine) Stats() Stats {
	return Stats{
		Mode:          e.mode.String(),
		Accepted:      e.accepted.Load(),
		AcceptRetries: e.retries.Load(),
		Workers:       e.spawner.Stats(),
		BytePool:      pools.GlobalBytePoolStats(),
	}
}

// StatsJSON returns engine statistics as JSON string
func (e *Engine) StatsJSON() string {
	data, _ := json.MarshalIndent(e.Stats(), "", "  ")
	return string(data)
}

// StatsText returns engine statistics as human-readable text
func (e *Engine) StatsText() string {
	stats := e.Stats()
	return fmt.Sprintf(`Engine Statistics
=================

Mode:           %s
Accepted:       %d
Accept Retries: %d

Workers:
  Max:       %d
  Active:    %d
  Spawned:   %d
  Completed: %d
  Rejected:  %d

Byte Pool:
  Gets:     %d
  Misses:   %d
`,
		stats.Mode, stats.Accepted, stats.AcceptRetries,
		stats.Workers.Max, stats.Workers.Active, stats.Workers.Spawned,
		stats.Workers.Completed, stats.Workers.Rejected,
		stats.BytePool.Gets, stats.BytePool.Misses,
	)
}
