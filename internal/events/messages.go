package events

import (
	"time"

	"github.com/crtools/cr-companion/internal/archetype"
	"github.com/crtools/cr-companion/internal/cards"
	"github.com/crtools/cr-companion/internal/detect"
)

// Event types dispatched by the companion core.
const (
	// TypeMatchStarted fires when the lifecycle controller detects a new
	// match and swaps in a fresh session.
	TypeMatchStarted = "match:started"

	// TypePlayAccepted fires for every play that survives deduplication.
	TypePlayAccepted = "play:accepted"

	// TypeDeckCompleted fires once per match, when the eighth distinct card
	// is discovered.
	TypeDeckCompleted = "deck:completed"

	// TypeDoubleElixir fires when double elixir mode activates.
	TypeDoubleElixir = "mode:double_elixir"

	// TypeSnapshot fires after each analysis tick with the current state
	// snapshot.
	TypeSnapshot = "snapshot:updated"
)

// MatchStartedData is the payload for match:started events.
type MatchStartedData struct {
	StartedAt time.Time `json:"startedAt"`
}

// PlayAcceptedData is the payload for play:accepted events.
type PlayAcceptedData struct {
	Play        detect.PlayRecord `json:"play"`
	ElixirAfter float64           `json:"elixirAfter"`
}

// DeckCompletedData is the payload for deck:completed events.
type DeckCompletedData struct {
	Cards     []cards.Card        `json:"cards"`
	Archetype archetype.Archetype `json:"archetype"`
}

// DoubleElixirData is the payload for mode:double_elixir events.
type DoubleElixirData struct {
	MatchElapsed time.Duration `json:"matchElapsed"`
}
