package pools

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSpawner_Basic(t *testing.T) {
	s := NewSpawner(0)

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		if !s.Spawn(func() {
			counter.Add(1)
		}) {
			t.Fatalf("Spawn %d refused by an unlimited spawner", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if counter.Load() != 100 {
		t.Errorf("Expected 100 tasks completed, got %d", counter.Load())
	}
	stats := s.Stats()
	if stats.Spawned != 100 || stats.Completed != 100 || stats.Active != 0 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestSpawner_Limit(t *testing.T) {
	s := NewSpawner(2)
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	for i := 0; i < 2; i++ {
		if !s.Spawn(func() {
			started <- struct{}{}
			<-release
		}) {
			t.Fatal("Spawn under the limit should succeed")
		}
	}
	<-started
	<-started

	if s.Spawn(func() {}) {
		t.Error("Spawn over the limit should be refused")
	}
	if s.Stats().Rejected != 1 {
		t.Errorf("Expected 1 rejection, got %d", s.Stats().Rejected)
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// Finished workers free their slots without being joined
	if !s.Spawn(func() {}) {
		t.Error("Spawn should succeed once workers have finished")
	}
}

func TestSpawner_Close(t *testing.T) {
	s := NewSpawner(0)
	s.Close()

	if s.Spawn(func() {}) {
		t.Error("Spawn after Close should be refused")
	}
}

func TestSpawner_WaitTimeout(t *testing.T) {
	s := NewSpawner(0)
	release := make(chan struct{})
	defer close(release)

	s.Spawn(func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
	if s.Active() != 1 {
		t.Errorf("Expected 1 active task, got %d", s.Active())
	}
}

func TestBytePool_Tiers(t *testing.T) {
	bp := NewBytePool()

	buf := bp.Get(ChunkSize)
	if len(buf) != ChunkSize || cap(buf) != ChunkSize {
		t.Errorf("Expected %d-byte chunk, got len=%d cap=%d", ChunkSize, len(buf), cap(buf))
	}
	bp.Put(buf)

	small := bp.Get(100)
	if len(small) != 100 || cap(small) != 2048 {
		t.Errorf("Expected small tier slice, got len=%d cap=%d", len(small), cap(small))
	}
	bp.Put(small)

	big := bp.Get(1 << 20)
	if len(big) != 1<<20 {
		t.Errorf("Expected oversized allocation, got len=%d", len(big))
	}
	bp.Put(big)

	stats := bp.Stats()
	if stats.Gets != 3 || stats.Misses != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func BenchmarkSpawner_Spawn(b *testing.B) {
	s := NewSpawner(0)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Spawn(func() {
			_ = 1 + 1
		})
	}
	s.Wait(context.Background())
}

func BenchmarkBytePool_Chunk(b *testing.B) {
	bp := NewBytePool()
	for i := 0; i < b.N; i++ {
		buf := bp.Get(ChunkSize)
		bp.Put(buf)
	}
}
