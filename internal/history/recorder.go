package history

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/crtools/cr-companion/internal/events"
)

// Recorder is an event observer that writes match activity to the store.
// It runs outside the session lock; the dispatcher hands it already-copied
// payloads.
type Recorder struct {
	store  *Store
	logger *log.Logger

	mu      sync.Mutex
	matchID int64
	open    bool
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store *Store, logger *log.Logger) *Recorder {
	return &Recorder{store: store, logger: logger.WithPrefix("history")}
}

// Name implements events.Observer.
func (r *Recorder) Name() string { return "history-recorder" }

// ShouldHandle implements events.Observer.
func (r *Recorder) ShouldHandle(eventType string) bool {
	switch eventType {
	case events.TypeMatchStarted, events.TypePlayAccepted, events.TypeDeckCompleted:
		return true
	}
	return false
}

// OnEvent implements events.Observer.
func (r *Recorder) OnEvent(event events.Event) error {
	switch event.Type {
	case events.TypeMatchStarted:
		return r.onMatchStarted(event)
	case events.TypePlayAccepted:
		return r.onPlayAccepted(event)
	case events.TypeDeckCompleted:
		return r.onDeckCompleted(event)
	}
	return nil
}

func (r *Recorder) onMatchStarted(event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Close out the previous match first; its true result is unknowable
	// from here.
	if r.open {
		if err := r.store.EndMatch(r.matchID, event.Timestamp, "unknown"); err != nil {
			r.logger.Warn("failed to close previous match", "error", err)
		}
	}

	startedAt := event.Timestamp
	if data, ok := event.Data.(events.MatchStartedData); ok && !data.StartedAt.IsZero() {
		startedAt = data.StartedAt
	}

	id, err := r.store.StartMatch(startedAt)
	if err != nil {
		return err
	}
	r.matchID = id
	r.open = true
	return nil
}

func (r *Recorder) onPlayAccepted(event events.Event) error {
	data, ok := event.Data.(events.PlayAcceptedData)
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open {
		// Plays before the first detected match boundary still get a row.
		id, err := r.store.StartMatch(firstTimestamp(event))
		if err != nil {
			return err
		}
		r.matchID = id
		r.open = true
	}
	return r.store.RecordPlay(r.matchID, data.Play)
}

func (r *Recorder) onDeckCompleted(event events.Event) error {
	data, ok := event.Data.(events.DeckCompletedData)
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open {
		return nil
	}
	return r.store.SetDeck(r.matchID, string(data.Archetype), data.Cards)
}

// Close finalizes any open match.
func (r *Recorder) Close(now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open {
		return nil
	}
	r.open = false
	return r.store.EndMatch(r.matchID, now, "unknown")
}

func firstTimestamp(event events.Event) time.Time {
	if !event.Timestamp.IsZero() {
		return event.Timestamp
	}
	return time.Now()
}
