package metrics

import (
	"math"
	"sort"
	"sync"
)

// Histogram counts observations into fixed buckets. Safe for concurrent use.
type Histogram struct {
	mu     sync.RWMutex
	bounds []float64 // ascending upper bounds; the last bucket is +Inf
	counts []uint64
	sum    float64
	count  uint64
	min    float64
	max    float64
}

// NewHistogram creates a histogram with the given bucket upper bounds.
func NewHistogram(bounds []float64) *Histogram {
	b := append([]float64(nil), bounds...)
	sort.Float64s(b)

	h := &Histogram{
		bounds: b,
		counts: make([]uint64, len(b)+1),
	}
	h.resetLocked()
	return h
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.counts[sort.SearchFloat64s(h.bounds, v)]++
	h.sum += v
	h.count++
	h.min = math.Min(h.min, v)
	h.max = math.Max(h.max, v)
}

// HistogramSummary is a consistent copy of a histogram's state.
type HistogramSummary struct {
	Count   uint64        `json:"count"`
	Sum     float64       `json:"sum"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Mean    float64       `json:"mean"`
	P50     float64       `json:"p50"`
	P90     float64       `json:"p90"`
	P99     float64       `json:"p99"`
	Buckets []BucketCount `json:"buckets"`
}

// BucketCount is a cumulative bucket.
type BucketCount struct {
	UpperBound float64 `json:"le"`
	Count      uint64  `json:"count"`
}

// Summary returns the current state with cumulative buckets.
func (h *Histogram) Summary() HistogramSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return HistogramSummary{Buckets: []BucketCount{}}
	}

	buckets := make([]BucketCount, len(h.counts))
	var cumulative uint64
	for i, c := range h.counts {
		cumulative += c
		bound := math.Inf(1)
		if i < len(h.bounds) {
			bound = h.bounds[i]
		}
		buckets[i] = BucketCount{UpperBound: bound, Count: cumulative}
	}

	return HistogramSummary{
		Count:   h.count,
		Sum:     h.sum,
		Min:     h.min,
		Max:     h.max,
		Mean:    h.sum / float64(h.count),
		P50:     h.quantileLocked(0.50),
		P90:     h.quantileLocked(0.90),
		P99:     h.quantileLocked(0.99),
		Buckets: buckets,
	}
}

// quantileLocked estimates a quantile by linear interpolation inside the
// bucket that contains it. The result is clamped to the observed range.
func (h *Histogram) quantileLocked(q float64) float64 {
	rank := q * float64(h.count)
	var cumulative uint64
	for i, c := range h.counts {
		prev := cumulative
		cumulative += c
		if c == 0 || float64(cumulative) < rank {
			continue
		}
		if i >= len(h.bounds) {
			return h.max
		}
		lower := h.min
		if i > 0 {
			lower = math.Max(h.bounds[i-1], h.min)
		}
		upper := math.Min(h.bounds[i], h.max)
		frac := (rank - float64(prev)) / float64(c)
		return lower + frac*(upper-lower)
	}
	return h.max
}

// Reset clears all observations.
func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resetLocked()
}

func (h *Histogram) resetLocked() {
	clear(h.counts)
	h.sum = 0
	h.count = 0
	h.min = math.Inf(1)
	h.max = math.Inf(-1)
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Mean returns the mean of all observations, or 0 if there are none.
func (h *Histogram) Mean() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}
