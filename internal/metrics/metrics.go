package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies a counter or histogram slot.
type ID uint16

const (
	SignInSuccess ID = iota
	SignInFailure
	SignInRateLimited
	SignInInvalidFormat
	SignOut
	SessionCreated
	SessionVerified
	SessionForcedSignOut
	RefreshSuccess
	RefreshFailure
	RefreshSkipped
	StorageError
	SignInLatency
	idCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// BucketBounds are the inclusive upper bounds of the histogram buckets. The
// last bucket is unbounded.
var BucketBounds = [histBucketCount - 1]time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
	750 * time.Millisecond,
	time.Second,
	2500 * time.Millisecond,
}

type histogram struct {
	buckets [histBucketCount]uint64
	sumNS   uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Metrics holds every counter and histogram of one engine.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

// Snapshot is a point-in-time copy of all metric values. Histogram slices
// are non-cumulative bucket counts.
type Snapshot struct {
	Counters      map[ID]uint64
	Histograms    map[ID][]uint64
	HistogramSums map[ID]time.Duration
}

// New creates a [Metrics] set.
func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id. Safe on a nil receiver.
func (m *Metrics) Inc(id ID) {
	if m == nil || !m.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only latency IDs are accepted.
func (m *Metrics) Observe(id ID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= idCount {
		return
	}
	if id != SignInLatency {
		return
	}

	h := &m.histograms[id]
	atomic.AddUint64(&h.buckets[bucketIndex(d)], 1)
	if d > 0 {
		atomic.AddUint64(&h.sumNS, uint64(d))
	}
}

func (m *Metrics) Value(id ID) uint64 {
	if m == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies the current values. A disabled set yields empty maps.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:      map[ID]uint64{},
			Histograms:    map[ID][]uint64{},
			HistogramSums: map[ID]time.Duration{},
		}
	}

	s := Snapshot{
		Counters:      make(map[ID]uint64, int(idCount)),
		Histograms:    make(map[ID][]uint64, 1),
		HistogramSums: make(map[ID]time.Duration, 1),
	}

	for id := ID(0); id < idCount; id++ {
		if id == SignInLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		h := &m.histograms[SignInLatency]
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&h.buckets[i])
		}
		s.Histograms[SignInLatency] = buckets
		s.HistogramSums[SignInLatency] = time.Duration(atomic.LoadUint64(&h.sumNS))
	}

	return s
}

func bucketIndex(d time.Duration) int {
	for i, bound := range BucketBounds {
		if d <= bound {
			return i
		}
	}
	return histBucketCount - 1
}
