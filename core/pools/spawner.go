package pools

import (
	"context"
	"sync"
	"sync/atomic"
)

// Task represents a unit of work
type Task func()

// Spawner runs each task on its own detached goroutine.
//
// The caller never joins a task: a finished worker just decrements the
// active count. With a positive limit, Spawn refuses work once that many
// tasks are in flight, and always refuses after Close.
type Spawner struct {
	max int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	active atomic.Int64

	// Statistics
	stats struct {
		spawned   atomic.Uint64
		completed atomic.Uint64
		rejected  atomic.Uint64
	}
}

// NewSpawner creates a spawner; max <= 0 means no limit
func NewSpawner(max int) *Spawner {
	if max < 0 {
		max = 0
	}
	return &Spawner{max: max}
}

// Spawn starts task on a new goroutine and reports whether it was started
func (s *Spawner) Spawn(task Task) bool {
	s.mu.Lock()
	if s.closed || (s.max > 0 && s.active.Load() >= int64(s.max)) {
		s.mu.Unlock()
		s.stats.rejected.Add(1)
		return false
	}
	s.active.Add(1)
	s.wg.Add(1)
	s.mu.Unlock()

	s.stats.spawned.Add(1)
	go s.run(task)
	return true
}

func (s *Spawner) run(task Task) {
	defer func() {
		s.active.Add(-1)
		s.stats.completed.Add(1)
		s.wg.Done()
	}()
	task()
}

// Close stops accepting new tasks; running tasks are not interrupted
func (s *Spawner) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Wait blocks until every started task has finished or ctx is done
func (s *Spawner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Active returns the number of tasks currently running
func (s *Spawner) Active() int {
	return int(s.active.Load())
}

// Stats returns spawner statistics
func (s *Spawner) Stats() SpawnerStats {
	return SpawnerStats{
		Max:       s.max,
		Active:    s.Active(),
		Spawned:   s.stats.spawned.Load(),
		Completed: s.stats.completed.Load(),
		Rejected:  s.stats.rejected.Load(),
	}
}

// SpawnerStats contains spawner statistics
type SpawnerStats struct {
	Max       int    `json:"max"`
	Active    int    `json:"active"`
	Spawned   uint64 `json:"spawned"`
	Completed uint64 `json:"completed"`
	Rejected  uint64 `json:"rejected"`
}
