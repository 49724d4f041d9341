// Package advisor turns the opponent-state snapshot into short tactical
// suggestions for the overlay.
package advisor

import (
	"fmt"
	"strings"

	"github.com/crtools/cr-companion/internal/cards"
	"github.com/crtools/cr-companion/internal/tracker"
)

// Priority ranks how urgently advice should be surfaced.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// String returns the priority label.
func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Advice is one tactical suggestion.
type Advice struct {
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
}

// Config holds advisor tuning.
type Config struct {
	// DangerousCards are the cards worth warning about when they are next
	// in the opponent's cycle.
	DangerousCards []string

	// MinCardsSeen gates advice until enough of the deck is known to say
	// anything useful.
	MinCardsSeen int
}

// DefaultConfig returns the advisor defaults.
func DefaultConfig() *Config {
	return &Config{
		DangerousCards: []string{"Fireball", "Lightning", "Rocket", "P.E.K.K.A", "Prince"},
		MinCardsSeen:   3,
	}
}

// Input is everything the advisor reads for one suggestion. MyElixir comes
// from an external reading of our own bar (OCR collaborator); the opponent
// side comes from the estimator snapshot.
type Input struct {
	MyElixir       float64
	Snapshot       tracker.Snapshot
	MyTowers       int
	OpponentTowers int
	MatchStarted   bool
}

// Advisor produces advice from game state.
type Advisor struct {
	config    *Config
	dangerous map[string]bool
}

// New creates an advisor.
func New(config *Config) *Advisor {
	if config == nil {
		config = DefaultConfig()
	}
	dangerous := make(map[string]bool, len(config.DangerousCards))
	for _, name := range config.DangerousCards {
		dangerous[strings.ToLower(name)] = true
	}
	return &Advisor{config: config, dangerous: dangerous}
}

// Advise produces one suggestion for the current state.
func (a *Advisor) Advise(in Input) Advice {
	if !in.MatchStarted || len(in.Snapshot.DeckKnown) < a.config.MinCardsSeen {
		return Advice{Text: "Waiting for the match to develop", Priority: PriorityLow}
	}

	var parts []string
	priority := PriorityLow

	diff := in.MyElixir - in.Snapshot.RawElixir
	switch {
	case diff >= 4:
		parts = append(parts, "Attack now: +4 elixir advantage")
		priority = raise(priority, PriorityHigh)
	case diff >= 2:
		parts = append(parts, "Press the advantage: +2 elixir")
		priority = raise(priority, PriorityMedium)
	case diff <= -4:
		parts = append(parts, "Defend: -4 elixir disadvantage")
		priority = raise(priority, PriorityUrgent)
	case diff <= -2:
		parts = append(parts, "Careful: -2 elixir")
		priority = raise(priority, PriorityHigh)
	}

	for _, warn := range a.upcomingThreats(in.Snapshot.PredictedHand) {
		parts = append(parts, warn)
		priority = raise(priority, PriorityHigh)
	}

	switch {
	case in.MyTowers < in.OpponentTowers:
		parts = append(parts, "Tower disadvantage: play for defense")
		priority = raise(priority, PriorityHigh)
	case in.MyTowers > in.OpponentTowers:
		parts = append(parts, "Tower lead: hold the advantage")
	}

	if len(parts) == 0 {
		return Advice{Text: "Even game: play your cycle", Priority: PriorityLow}
	}
	return Advice{Text: strings.Join(parts, "; "), Priority: priority}
}

// upcomingThreats warns about dangerous cards in the next two cycle slots.
// Spells and troops call for different responses, so the phrasing differs.
func (a *Advisor) upcomingThreats(hand []cards.Card) []string {
	var warnings []string
	for i, card := range hand {
		if i >= 2 {
			break
		}
		if !a.dangerous[strings.ToLower(card.Name)] {
			continue
		}
		if card.Type == cards.TypeSpell {
			warnings = append(warnings, fmt.Sprintf("%s coming up: spread your troops", card.Name))
		} else {
			warnings = append(warnings, fmt.Sprintf("%s coming up: prepare a counter", card.Name))
		}
	}
	return warnings
}

func raise(current, to Priority) Priority {
	if to > current {
		return to
	}
	return current
}
