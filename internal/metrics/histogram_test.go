package metrics

import (
	"math"
	"sync"
	"testing"
	"time"
)

func TestHistogram_Empty(t *testing.T) {
	h := NewHistogram(100)

	if got := h.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
	if got := h.Stats(); got != (Stats{}) {
		t.Errorf("Stats() on empty = %+v, want zero value", got)
	}
}

func TestHistogram_Stats(t *testing.T) {
	h := NewHistogram(100)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		h.RecordValue(v)
	}

	s := h.Stats()
	if s.Count != 5 {
		t.Errorf("Count = %d, want 5", s.Count)
	}
	if s.Mean != 3 {
		t.Errorf("Mean = %v, want 3", s.Mean)
	}
	if s.P50 != 3 {
		t.Errorf("P50 = %v, want 3", s.P50)
	}
}

func TestHistogram_PercentileInterpolates(t *testing.T) {
	h := NewHistogram(100)
	for _, v := range []float64{10, 20, 30, 40} {
		h.RecordValue(v)
	}

	s := h.Stats()
	if math.Abs(s.P50-25) > 1e-9 {
		t.Errorf("P50 = %v, want 25 interpolated between 20 and 30", s.P50)
	}
	if math.Abs(s.P95-38.5) > 1e-9 {
		t.Errorf("P95 = %v, want 38.5", s.P95)
	}
}

func TestHistogram_RecordDurationInMilliseconds(t *testing.T) {
	h := NewHistogram(100)
	h.Record(1500 * time.Millisecond)

	if got := h.Stats().Mean; got != 1500 {
		t.Errorf("Mean = %v, want 1500 ms", got)
	}
}

func TestHistogram_WindowTrimsOldest(t *testing.T) {
	h := NewHistogram(10)
	for i := 0; i < 11; i++ {
		h.RecordValue(float64(i))
	}

	s := h.Stats()
	if s.Count != 9 {
		t.Errorf("Count = %d after trim, want 9", s.Count)
	}
	// The oldest fifth was discarded, so the window starts at 2.
	if s.P50 != 6 {
		t.Errorf("P50 = %v over the trimmed window, want 6", s.P50)
	}
}

func TestHistogram_ConcurrentRecording(t *testing.T) {
	h := NewHistogram(10000)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.RecordValue(float64(j))
				h.Stats()
			}
		}()
	}
	wg.Wait()

	if got := h.Count(); got != 800 {
		t.Errorf("Count() = %d, want 800", got)
	}
}
