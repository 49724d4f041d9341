package detect

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/crtools/cr-companion/internal/cards"
)

// FilterConfig holds the tunable policy of the deduplication filter.
type FilterConfig struct {
	// ConfidenceThreshold is the minimum detector confidence for an event
	// to be considered at all.
	ConfidenceThreshold float64

	// DuplicateWindow is how long after an accepted play further detections
	// of the same card are treated as re-detections of that play.
	DuplicateWindow time.Duration
}

// DefaultFilterConfig returns the filter defaults.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		ConfidenceThreshold: 0.80,
		DuplicateWindow:     2500 * time.Millisecond,
	}
}

// Filter suppresses repeated observations of the same physical card play.
// It keeps one last-accepted timestamp per card name, so different cards
// detected in the same tick are evaluated independently.
//
// Rejections are the expected steady state with a noisy detector, so they
// are logged at debug level and never surfaced as errors.
type Filter struct {
	catalog *cards.Catalog
	config  *FilterConfig
	clock   quartz.Clock
	logger  *log.Logger

	mu           sync.Mutex
	lastAccepted map[string]time.Time // keyed by lowercase card name
	seq          int
}

// NewFilter creates a filter backed by the given catalog.
func NewFilter(catalog *cards.Catalog, config *FilterConfig, clock quartz.Clock, logger *log.Logger) *Filter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Filter{
		catalog:      catalog,
		config:       config,
		clock:        clock,
		logger:       logger.WithPrefix("filter"),
		lastAccepted: make(map[string]time.Time),
	}
}

// Apply decides whether a raw detection is a genuine new play. On accept it
// returns the play record and true; on reject it returns false. The first
// observation of any card is always eligible.
func (f *Filter) Apply(ev Event) (PlayRecord, bool) {
	if ev.Confidence < f.config.ConfidenceThreshold {
		f.logger.Debug("rejected: low confidence", "card", ev.Name, "confidence", ev.Confidence)
		return PlayRecord{}, false
	}

	card, ok := f.catalog.Lookup(ev.Name)
	if !ok || card.Elixir <= 0 {
		f.logger.Debug("rejected: unknown card", "card", ev.Name)
		return PlayRecord{}, false
	}

	now := ev.Timestamp
	if now.IsZero() {
		now = f.clock.Now()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := canonicalKey(card.Name)
	if last, seen := f.lastAccepted[key]; seen && now.Sub(last) < f.config.DuplicateWindow {
		f.logger.Debug("rejected: duplicate detection", "card", card.Name, "since_last", now.Sub(last))
		return PlayRecord{}, false
	}

	f.lastAccepted[key] = now
	play := PlayRecord{Card: card, Timestamp: now, Seq: f.seq}
	f.seq++
	return play, true
}

// Reset clears the per-card timestamps and the sequence counter. Called on
// match reset so plays from the previous match cannot mask the opening
// plays of the next one.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastAccepted = make(map[string]time.Time)
	f.seq = 0
}

func canonicalKey(name string) string {
	return strings.ToLower(name)
}
