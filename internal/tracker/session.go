package tracker

import (
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/crtools/cr-companion/internal/archetype"
	"github.com/crtools/cr-companion/internal/cards"
	"github.com/crtools/cr-companion/internal/detect"
)

// SessionConfig holds per-match tuning.
type SessionConfig struct {
	Estimator *EstimatorConfig

	// HandSize is how many upcoming cards PredictHand exposes in snapshots.
	HandSize int

	// RecentPlays is how many trailing plays a snapshot carries.
	RecentPlays int
}

// DefaultSessionConfig returns the session defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Estimator:   DefaultEstimatorConfig(),
		HandSize:    4,
		RecentPlays: 5,
	}
}

// Snapshot is the read-only view handed to collaborators (overlay, advisor,
// history). Elixir carries the display rounding; RawElixir keeps the float
// for anything that computes with it.
type Snapshot struct {
	Elixir        int                  `json:"elixir"`
	RawElixir     float64              `json:"rawElixir"`
	DoubleElixir  bool                 `json:"doubleElixir"`
	DeckKnown     []cards.Card         `json:"deckKnown"`
	DeckComplete  bool                 `json:"deckComplete"`
	PredictedHand []cards.Card         `json:"predictedHand"`
	Archetype     archetype.Archetype  `json:"archetype"`
	AverageElixir float64              `json:"averageElixir"`
	TotalSpent    int                  `json:"totalSpent"`
	RecentPlays   []detect.PlayRecord  `json:"recentPlays"`
	MatchElapsed  time.Duration        `json:"matchElapsed"`
}

// Session owns the per-match state: one estimator and one deck model. A
// single mutex makes every mutating operation exclusive with every read on
// the same session; nothing under the lock touches I/O, so contention stays
// negligible. Match resets are done by swapping the session handle, never
// by mutating a live session in place.
type Session struct {
	mu sync.Mutex

	config     *SessionConfig
	clock      quartz.Clock
	estimator  *Estimator
	deck       *Deck
	classifier *archetype.Classifier
	startedAt  time.Time
}

// NewSession creates a fresh session starting now.
func NewSession(config *SessionConfig, classifier *archetype.Classifier, clock quartz.Clock, logger *log.Logger) *Session {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	if classifier == nil {
		classifier = archetype.NewClassifier(nil)
	}

	return &Session{
		config:     config,
		clock:      clock,
		estimator:  NewEstimator(config.Estimator, clock),
		deck:       NewDeck(logger),
		classifier: classifier,
		startedAt:  clock.Now(),
	}
}

// ApplyPlay feeds one deduplicated play into both the deck model and the
// elixir estimator. A play the deck rejects (ninth distinct card) is a
// detector error and is not charged against elixir either.
func (s *Session) ApplyPlay(p detect.PlayRecord) (accepted, deckJustCompleted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted, deckJustCompleted = s.deck.RecordPlay(p)
	if accepted {
		s.estimator.ApplyPlay(p)
	}
	return accepted, deckJustCompleted
}

// SetDoubleElixir toggles the estimator's regeneration rate.
func (s *Session) SetDoubleElixir(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.estimator.SetDoubleElixir(active)
}

// DoubleElixirActive reports whether double elixir mode is on.
func (s *Session) DoubleElixirActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimator.DoubleElixirActive()
}

// StartedAt returns when this session began.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Elapsed returns how long this session has been running.
func (s *Session) Elapsed() time.Duration {
	return s.clock.Now().Sub(s.startedAt)
}

// CurrentElixir returns the clamped elixir estimate as of now.
func (s *Session) CurrentElixir() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.estimator.Current()
}

// Snapshot assembles the full read-only view as of now. Rounding to the
// display integer happens here, at the presentation boundary, and uses
// half-up rounding: truncation would bias the shown value low.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	current := s.estimator.Current()
	known := s.deck.Known()

	snap := Snapshot{
		Elixir:        int(math.Round(current)),
		RawElixir:     current,
		DoubleElixir:  s.estimator.DoubleElixirActive(),
		DeckKnown:     known,
		DeckComplete:  s.deck.IsComplete(),
		AverageElixir: s.deck.AverageElixir(),
		TotalSpent:    s.estimator.TotalSpent(),
		MatchElapsed:  now.Sub(s.startedAt),
	}

	if snap.DeckComplete {
		snap.PredictedHand = s.deck.PredictHand(s.config.HandSize)
		snap.Archetype = s.classifier.Classify(known)
	} else {
		snap.Archetype = archetype.Unknown
	}

	history := s.deck.History()
	n := s.config.RecentPlays
	if n > len(history) {
		n = len(history)
	}
	if n > 0 {
		snap.RecentPlays = history[len(history)-n:]
	}

	return snap
}
