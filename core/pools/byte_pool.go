package pools

import (
	"sync"
	"sync/atomic"
)

// ChunkSize is the copy unit used when streaming files and script output
const ChunkSize = 8192

// BytePool is a tiered byte slice pool for stream copy buffers
type BytePool struct {
	pools []*sync.Pool
	sizes []int

	gets   atomic.Uint64
	misses atomic.Uint64
}

var defaultSizes = []int{
	2048,      // Directory listing lines, error pages
	ChunkSize, // File and script streaming
	32768,     // Large copies
}

// NewBytePool creates a byte pool with the default size tiers
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom ascending size tiers
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}

	for i, size := range sizes {
		sz := size
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}

	return bp
}

// Get returns a byte slice of exactly size bytes
func (bp *BytePool) Get(size int) []byte {
	bp.gets.Add(1)
	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			buf := *bp.pools[i].Get().(*[]byte)
			return buf[:size]
		}
	}

	// Larger than every tier
	bp.misses.Add(1)
	return make([]byte, size)
}

// Put returns a slice obtained from Get
func (bp *BytePool) Put(buf []byte) {
	capacity := cap(buf)
	for i, poolSize := range bp.sizes {
		if capacity == poolSize {
			buf = buf[:capacity]
			bp.pools[i].Put(&buf)
			return
		}
	}
}

// BytePoolStats contains byte pool statistics
type BytePoolStats struct {
	Gets   uint64 `json:"gets"`
	Misses uint64 `json:"misses"`
}

// Stats returns pool statistics
func (bp *BytePool) Stats() BytePoolStats {
	return BytePoolStats{
		Gets:   bp.gets.Load(),
		Misses: bp.misses.Load(),
	}
}

var globalBytePool = NewBytePool()

// GetBytes takes a buffer from the global pool
func GetBytes(size int) []byte {
	return globalBytePool.Get(size)
}

// PutBytes returns a buffer to the global pool
func PutBytes(buf []byte) {
	globalBytePool.Put(buf)
}

// GlobalBytePoolStats returns statistics for the global pool
func GlobalBytePoolStats() BytePoolStats {
	return globalBytePool.Stats()
}
