// Package tracker implements the opponent-state estimation core: the elixir
// regeneration state machine, the deck cycle model, and the per-match
// session that owns both.
package tracker

import (
	"time"

	"github.com/coder/quartz"

	"github.com/crtools/cr-companion/internal/cards"
	"github.com/crtools/cr-companion/internal/detect"
)

// EstimatorConfig holds the elixir model parameters. The start value is
// deliberately configuration: whether the opponent effectively opens at 5
// or at 10 elixir is observed behavior, not a documented rule.
type EstimatorConfig struct {
	StartElixir float64
	MaxElixir   float64
	RegenRate   float64 // elixir per second
	DoubleRate  float64 // elixir per second while double elixir is active
}

// DefaultEstimatorConfig returns the standard elixir model: start at 5,
// cap at 10, regenerate 1/s (2/s in double elixir).
func DefaultEstimatorConfig() *EstimatorConfig {
	return &EstimatorConfig{
		StartElixir: 5.0,
		MaxElixir:   10.0,
		RegenRate:   1.0,
		DoubleRate:  2.0,
	}
}

// EstimatorStats is a point-in-time summary of elixir usage.
type EstimatorStats struct {
	Current        float64       `json:"current"`
	TotalSpent     int           `json:"totalSpent"`
	Plays          int           `json:"plays"`
	AvgCostPerPlay float64       `json:"avgCostPerPlay"`
	MatchDuration  time.Duration `json:"matchDuration"`
	DoubleElixir   bool          `json:"doubleElixir"`
}

// Estimator tracks the opponent's elixir as a continuously regenerating
// resource. The raw value may go negative after an overspend (the game lets
// players "borrow" into the next regeneration); the public reading clamps
// at zero. The value is defined at every instant via the regeneration
// formula, not only at play events.
//
// Estimator is not safe for concurrent use on its own; the owning Session
// serializes access.
type Estimator struct {
	config *EstimatorConfig
	clock  quartz.Clock

	current      float64 // raw; may exceed neither max nor, publicly, drop below 0
	lastUpdate   time.Time
	doubleElixir bool
	matchStart   time.Time

	totalSpent int
	plays      int
}

// NewEstimator creates an estimator initialized as of the clock's current
// time.
func NewEstimator(config *EstimatorConfig, clock quartz.Clock) *Estimator {
	if config == nil {
		config = DefaultEstimatorConfig()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	e := &Estimator{config: config, clock: clock}
	e.Reset(clock.Now())
	return e
}

// tick applies regeneration accrued since the last update. Every read and
// write path goes through here first, so the estimate is never stale.
func (e *Estimator) tick(now time.Time) {
	elapsed := now.Sub(e.lastUpdate).Seconds()
	if elapsed <= 0 {
		return
	}

	rate := e.config.RegenRate
	if e.doubleElixir {
		rate = e.config.DoubleRate
	}

	e.current = min(e.config.MaxElixir, e.current+elapsed*rate)
	e.lastUpdate = now
}

// ApplyPlay regenerates up to the play's timestamp and then subtracts the
// card cost. No floor is applied here so borrowing stays visible in the raw
// value.
func (e *Estimator) ApplyPlay(p detect.PlayRecord) {
	e.tick(p.Timestamp)
	e.current -= float64(p.Card.Elixir)
	e.totalSpent += p.Card.Elixir
	e.plays++
}

// Current returns the elixir estimate as of now, clamped to [0, max].
func (e *Estimator) Current() float64 {
	e.tick(e.clock.Now())
	return max(0, e.current)
}

// Raw returns the unclamped value as of now. Negative readings mean the
// opponent overspent recently.
func (e *Estimator) Raw() float64 {
	e.tick(e.clock.Now())
	return e.current
}

// SetDoubleElixir toggles the regeneration rate. Idempotent; it settles
// regeneration accrued under the old rate first and never adjusts the
// current value itself.
func (e *Estimator) SetDoubleElixir(active bool) {
	e.tick(e.clock.Now())
	e.doubleElixir = active
}

// DoubleElixirActive reports whether double elixir mode is on.
func (e *Estimator) DoubleElixirActive() bool {
	return e.doubleElixir
}

// CanAfford reports whether the opponent can pay cost right now.
func (e *Estimator) CanAfford(cost int) bool {
	return e.Current() >= float64(cost)
}

// AffordableCards filters deck down to the cards payable right now.
func (e *Estimator) AffordableCards(deck []cards.Card) []cards.Card {
	current := e.Current()
	var affordable []cards.Card
	for _, card := range deck {
		if float64(card.Elixir) <= current {
			affordable = append(affordable, card)
		}
	}
	return affordable
}

// TotalSpent returns the elixir spent so far this match.
func (e *Estimator) TotalSpent() int {
	return e.totalSpent
}

// Stats summarizes elixir usage as of now.
func (e *Estimator) Stats() EstimatorStats {
	now := e.clock.Now()
	e.tick(now)

	s := EstimatorStats{
		Current:       max(0, e.current),
		TotalSpent:    e.totalSpent,
		Plays:         e.plays,
		MatchDuration: now.Sub(e.matchStart),
		DoubleElixir:  e.doubleElixir,
	}
	if e.plays > 0 {
		s.AvgCostPerPlay = float64(e.totalSpent) / float64(e.plays)
	}
	return s
}

// Reset reinitializes the estimator for a new match starting at now.
func (e *Estimator) Reset(now time.Time) {
	e.current = e.config.StartElixir
	e.lastUpdate = now
	e.doubleElixir = false
	e.matchStart = now
	e.totalSpent = 0
	e.plays = 0
}
