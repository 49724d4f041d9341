// Package archetype classifies a revealed opponent deck into a coarse
// strategic label.
package archetype

import (
	"strings"

	"github.com/crtools/cr-companion/internal/cards"
)

// Archetype is a best-effort strategic classification of a deck.
type Archetype string

const (
	Unknown   Archetype = "Unknown"
	Beatdown  Archetype = "Beatdown"
	Cycle     Archetype = "Cycle"
	FastCycle Archetype = "FastCycle"
	Siege     Archetype = "Siege"
	Control   Archetype = "Control"
	Hybrid    Archetype = "Hybrid"
)

// Config lists the reference card roles the classifier keys on. These are
// configuration, not domain truth: the card roster evolves and the lists
// should be tunable without a rebuild.
type Config struct {
	// WinConditions are cards whose primary role is direct damage to
	// structures.
	WinConditions []string

	// CycleCards are the cheap cards that enable fast rotations.
	CycleCards []string

	// SiegeCards are the buildings that win by outranging towers.
	SiegeCards []string
}

// DefaultConfig returns the standard role lists for the current roster.
func DefaultConfig() *Config {
	return &Config{
		WinConditions: []string{
			"Golem", "Giant", "Hog Rider", "Royal Giant", "X-Bow",
			"Mortar", "Graveyard", "Miner", "Balloon", "P.E.K.K.A",
		},
		CycleCards: []string{"Ice Spirit", "Skeletons", "The Log", "Zap"},
		SiegeCards: []string{"X-Bow", "Mortar"},
	}
}

// Analysis is the deck breakdown the rules are evaluated against.
type Analysis struct {
	AverageElixir float64
	WinConditions int
	CycleCards    int
	SiegeCards    int
}

// Rule is one entry in the ordered classification list. The first rule
// whose Match returns true decides the archetype, so tie-breaking lives in
// the list order rather than in branch structure.
type Rule struct {
	Name      string
	Archetype Archetype
	Match     func(Analysis) bool
}

// Classifier labels complete decks by running an ordered rule list over a
// deck analysis.
type Classifier struct {
	config   *Config
	winSet   map[string]bool
	cycleSet map[string]bool
	siegeSet map[string]bool
	rules    []Rule
}

// NewClassifier creates a classifier with the given role lists.
func NewClassifier(config *Config) *Classifier {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Classifier{
		config:   config,
		winSet:   toSet(config.WinConditions),
		cycleSet: toSet(config.CycleCards),
		siegeSet: toSet(config.SiegeCards),
	}

	c.rules = []Rule{
		{
			Name:      "heavy deck built around a win condition",
			Archetype: Beatdown,
			Match:     func(a Analysis) bool { return a.AverageElixir > 4.0 && a.WinConditions > 0 },
		},
		{
			Name:      "very cheap deck with cycle enablers",
			Archetype: Cycle,
			Match:     func(a Analysis) bool { return a.AverageElixir < 3.0 && a.CycleCards >= 2 },
		},
		{
			Name:      "cheap deck",
			Archetype: FastCycle,
			Match:     func(a Analysis) bool { return a.AverageElixir < 3.5 },
		},
		{
			Name:      "contains a siege building",
			Archetype: Siege,
			Match:     func(a Analysis) bool { return a.SiegeCards > 0 },
		},
		{
			Name:      "contains a win condition",
			Archetype: Control,
			Match:     func(a Analysis) bool { return a.WinConditions > 0 },
		},
	}

	return c
}

// Rules returns the ordered rule list, mainly so the tie-break order can be
// inspected and tested.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Analyze computes the breakdown the rules consume.
func (c *Classifier) Analyze(deck []cards.Card) Analysis {
	var a Analysis
	if len(deck) == 0 {
		return a
	}

	total := 0
	for _, card := range deck {
		total += card.Elixir
		key := strings.ToLower(card.Name)
		if c.winSet[key] {
			a.WinConditions++
		}
		if c.cycleSet[key] {
			a.CycleCards++
		}
		if c.siegeSet[key] {
			a.SiegeCards++
		}
	}
	a.AverageElixir = float64(total) / float64(len(deck))
	return a
}

// Classify labels a deck. The label is only meaningful for a complete
// eight-card deck; anything shorter is Unknown. Decks matching no rule are
// Hybrid.
func (c *Classifier) Classify(deck []cards.Card) Archetype {
	if len(deck) < 8 {
		return Unknown
	}

	analysis := c.Analyze(deck)
	for _, rule := range c.rules {
		if rule.Match(analysis) {
			return rule.Archetype
		}
	}
	return Hybrid
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}
