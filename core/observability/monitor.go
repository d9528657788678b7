package observability

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Monitor aggregates per-kind request metrics (browse, file, script, ...)
type Monitor struct {
	enabled atomic.Bool
	kinds   sync.Map
	global  struct {
		totalRequests atomic.Uint64
		totalErrors   atomic.Uint64
		totalDuration atomic.Uint64
		totalBytes    atomic.Uint64
	}
}

// KindMetrics stores metrics for one request kind
type KindMetrics struct {
	Name           string
	Count          atomic.Uint64
	Errors         atomic.Uint64
	Bytes          atomic.Uint64
	TotalDuration  atomic.Uint64
	MinDuration    atomic.Uint64
	MaxDuration    atomic.Uint64
	latencyBuckets [10]atomic.Uint64
}

// Bottleneck represents a performance issue
type Bottleneck struct {
	Type       string
	Location   string
	Severity   int
	Impact     float64
	DetectedAt time.Time
	Details    string
}

// LatencyBounds are the upper bounds of the latency histogram buckets;
// the last bucket is unbounded.
var LatencyBounds = [9]time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
	10 * time.Second,
}

// NewMonitor creates an enabled monitor
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.enabled.Store(true)
	return m
}

// SetEnabled turns recording on or off
func (m *Monitor) SetEnabled(on bool) {
	m.enabled.Store(on)
}

// RecordRequest records one finished request of the given kind
func (m *Monitor) RecordRequest(kind string, duration time.Duration, bytes int64, isError bool) {
	if !m.enabled.Load() {
		return
	}

	val, _ := m.kinds.LoadOrStore(kind, &KindMetrics{Name: kind})
	metrics := val.(*KindMetrics)

	metrics.Count.Add(1)
	if isError {
		metrics.Errors.Add(1)
		m.global.totalErrors.Add(1)
	}
	if bytes > 0 {
		metrics.Bytes.Add(uint64(bytes))
		m.global.totalBytes.Add(uint64(bytes))
	}

	durationNs := uint64(duration.Nanoseconds())
	metrics.TotalDuration.Add(durationNs)
	updateMinMax(metrics, durationNs)
	metrics.latencyBuckets[bucketIndex(duration)].Add(1)

	m.global.totalRequests.Add(1)
	m.global.totalDuration.Add(durationNs)
}

func updateMinMax(m *KindMetrics, d uint64) {
	for {
		min := m.MinDuration.Load()
		if min != 0 && d >= min {
			break
		}
		if m.MinDuration.CompareAndSwap(min, d) {
			break
		}
	}
	for {
		max := m.MaxDuration.Load()
		if d <= max {
			break
		}
		if m.MaxDuration.CompareAndSwap(max, d) {
			break
		}
	}
}

func bucketIndex(d time.Duration) int {
	for i, bound := range LatencyBounds {
		if d < bound {
			return i
		}
	}
	return len(LatencyBounds)
}

// Bottlenecks inspects the current metrics for slow or failing kinds
func (m *Monitor) Bottlenecks() []Bottleneck {
	bottlenecks := make([]Bottleneck, 0)
	now := time.Now()

	m.kinds.Range(func(key, value any) bool {
		km := value.(*KindMetrics)
		count := km.Count.Load()
		if count == 0 {
			return true
		}

		avgDuration := time.Duration(km.TotalDuration.Load() / count)

		// High latency
		if avgDuration > 100*time.Millisecond {
			bottlenecks = append(bottlenecks, Bottleneck{
				Type:       "latency",
				Location:   km.Name,
				Severity:   8,
				Impact:     100.0,
				DetectedAt: now,
				Details:    fmt.Sprintf("High latency (%v avg)", avgDuration),
			})
		}

		// High error rate
		errors := km.Errors.Load()
		if errors > 0 && float64(errors)/float64(count) > 0.05 {
			bottlenecks = append(bottlenecks, Bottleneck{
				Type:       "errors",
				Location:   km.Name,
				Severity:   10,
				Impact:     float64(errors) / float64(count) * 100,
				DetectedAt: now,
				Details:    fmt.Sprintf("%.1f%% error rate", float64(errors)/float64(count)*100),
			})
		}

		return true
	})

	sort.Slice(bottlenecks, func(i, j int) bool {
		return bottlenecks[i].Severity > bottlenecks[j].Severity
	})
	return bottlenecks
}

// StartTrace starts timing
func (m *Monitor) StartTrace() int64 {
	if !m.enabled.Load() {
		return 0
	}
	return time.Now().UnixNano()
}

// EndTrace ends timing and records
func (m *Monitor) EndTrace(kind string, startTime int64, bytes int64, isError bool) {
	if startTime == 0 {
		return
	}
	duration := time.Duration(time.Now().UnixNano() - startTime)
	m.RecordRequest(kind, duration, bytes, isError)
}

// KindSnapshot is a point-in-time copy of one kind's metrics
type KindSnapshot struct {
	Kind    string        `json:"kind"`
	Count   uint64        `json:"count"`
	Errors  uint64        `json:"errors"`
	Bytes   uint64        `json:"bytes"`
	Avg     time.Duration `json:"avg_ns"`
	Min     time.Duration `json:"min_ns"`
	Max     time.Duration `json:"max_ns"`
	Buckets [10]uint64    `json:"latency_buckets"`
}

// Snapshot is a point-in-time copy of all metrics
type Snapshot struct {
	Requests uint64         `json:"requests"`
	Errors   uint64         `json:"errors"`
	Bytes    uint64         `json:"bytes"`
	Avg      time.Duration  `json:"avg_ns"`
	Kinds    []KindSnapshot `json:"kinds"`
}

// Snapshot copies the current metrics, kinds sorted by name
func (m *Monitor) Snapshot() Snapshot {
	s := Snapshot{
		Requests: m.global.totalRequests.Load(),
		Errors:   m.global.totalErrors.Load(),
		Bytes:    m.global.totalBytes.Load(),
	}
	if s.Requests > 0 {
		s.Avg = time.Duration(m.global.totalDuration.Load() / s.Requests)
	}

	m.kinds.Range(func(key, value any) bool {
		km := value.(*KindMetrics)
		ks := KindSnapshot{
			Kind:   km.Name,
			Count:  km.Count.Load(),
			Errors: km.Errors.Load(),
			Bytes:  km.Bytes.Load(),
			Min:    time.Duration(km.MinDuration.Load()),
			Max:    time.Duration(km.MaxDuration.Load()),
		}
		if ks.Count > 0 {
			ks.Avg = time.Duration(km.TotalDuration.Load() / ks.Count)
		}
		for i := range km.latencyBuckets {
			ks.Buckets[i] = km.latencyBuckets[i].Load()
		}
		s.Kinds = append(s.Kinds, ks)
		return true
	})

	sort.Slice(s.Kinds, func(i, j int) bool {
		return s.Kinds[i].Kind < s.Kinds[j].Kind
	})
	return s
}
