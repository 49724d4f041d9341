// Package metrics provides lightweight in-process measurement for the
// analysis pipeline: tick latency and detector confidence distributions.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Stats is a point-in-time summary of one distribution. Percentiles are
// linearly interpolated between samples.
type Stats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
}

// Histogram tracks a bounded sliding window of samples. Duration samples
// are stored in milliseconds.
type Histogram struct {
	mu      sync.RWMutex
	samples []float64
	maxSize int
}

// NewHistogram creates a histogram keeping at most maxSize samples. When
// the window is exceeded the oldest fifth is discarded to avoid trimming on
// every insert.
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Histogram{
		samples: make([]float64, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record adds a duration sample, stored as milliseconds.
func (h *Histogram) Record(d time.Duration) {
	h.RecordValue(float64(d.Microseconds()) / 1000.0)
}

// RecordValue adds a raw sample.
func (h *Histogram) RecordValue(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.samples = append(h.samples, v)
	if len(h.samples) > h.maxSize {
		h.samples = h.samples[h.maxSize/5:]
	}
}

// Count returns the number of samples currently in the window.
func (h *Histogram) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.samples)
}

// Stats summarizes the current window with one sort.
func (h *Histogram) Stats() Stats {
	h.mu.RLock()
	sorted := make([]float64, len(h.samples))
	copy(sorted, h.samples)
	h.mu.RUnlock()

	if len(sorted) == 0 {
		return Stats{}
	}
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Stats{
		Count: len(sorted),
		Mean:  sum / float64(len(sorted)),
		P50:   percentile(sorted, 50),
		P95:   percentile(sorted, 95),
	}
}

// percentile reads the p-th percentile (0-100) from an ascending slice.
func percentile(sorted []float64, p float64) float64 {
	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	fraction := index - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}
