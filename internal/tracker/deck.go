package tracker

import (
	"strings"

	"github.com/charmbracelet/log"

	"github.com/crtools/cr-companion/internal/cards"
	"github.com/crtools/cr-companion/internal/detect"
)

// DeckSize is the fixed number of cards in a deck.
const DeckSize = 8

// DeckStats summarizes the deck model.
type DeckStats struct {
	CardsDiscovered int     `json:"cardsDiscovered"`
	Complete        bool    `json:"complete"`
	AverageElixir   float64 `json:"averageElixir"`
	TotalPlays      int     `json:"totalPlays"`
	CyclePosition   int     `json:"cyclePosition"`
}

// Deck accumulates the opponent's cards in discovery order and models the
// fixed rotating cycle once all eight are known. Once sealed, a ninth
// distinct card is a detector error and is rejected without touching state.
//
// Deck is not safe for concurrent use on its own; the owning Session
// serializes access.
type Deck struct {
	known    []cards.Card
	history  []detect.PlayRecord
	complete bool
	logger   *log.Logger
}

// NewDeck creates an empty deck model.
func NewDeck(logger *log.Logger) *Deck {
	return &Deck{
		known:  make([]cards.Card, 0, DeckSize),
		logger: logger.WithPrefix("deck"),
	}
}

// RecordPlay records an accepted play. It reports whether the play was
// accepted into the model and whether this play completed the deck.
func (d *Deck) RecordPlay(p detect.PlayRecord) (accepted, justCompleted bool) {
	if d.indexOf(p.Card.Name) >= 0 {
		d.history = append(d.history, p)
		return true, false
	}

	if len(d.known) >= DeckSize {
		// A deck has exactly eight cards; a ninth distinct name means the
		// detector misread something.
		d.logger.Warn("rejected card beyond deck capacity", "card", p.Card.Name)
		return false, false
	}

	d.known = append(d.known, p.Card)
	d.history = append(d.history, p)
	if len(d.known) == DeckSize {
		d.complete = true
		return true, true
	}
	return true, false
}

// PredictHand returns the next count cards in the opponent's cycle, or nil
// until the deck is complete. The rotation uses the discovery order as the
// canonical cycle, which is an approximation: the true ordering before full
// discovery is unknowable from plays alone.
func (d *Deck) PredictHand(count int) []cards.Card {
	if !d.complete || count <= 0 {
		return nil
	}

	position := len(d.history) % DeckSize
	hand := make([]cards.Card, 0, count)
	for i := 0; i < count; i++ {
		hand = append(hand, d.known[(position+i)%DeckSize])
	}
	return hand
}

// Known returns the discovered cards in discovery order.
func (d *Deck) Known() []cards.Card {
	out := make([]cards.Card, len(d.known))
	copy(out, d.known)
	return out
}

// IsComplete reports whether all eight cards have been discovered.
func (d *Deck) IsComplete() bool {
	return d.complete
}

// History returns the append-only play history.
func (d *Deck) History() []detect.PlayRecord {
	out := make([]detect.PlayRecord, len(d.history))
	copy(out, d.history)
	return out
}

// AverageElixir returns the mean cost of the discovered cards, or 0 when
// nothing has been seen.
func (d *Deck) AverageElixir() float64 {
	if len(d.known) == 0 {
		return 0
	}
	total := 0
	for _, c := range d.known {
		total += c.Elixir
	}
	return float64(total) / float64(len(d.known))
}

// Stats summarizes the deck model.
func (d *Deck) Stats() DeckStats {
	s := DeckStats{
		CardsDiscovered: len(d.known),
		Complete:        d.complete,
		AverageElixir:   d.AverageElixir(),
		TotalPlays:      len(d.history),
	}
	if d.complete {
		s.CyclePosition = len(d.history) % DeckSize
	}
	return s
}

func (d *Deck) indexOf(name string) int {
	for i, c := range d.known {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}
