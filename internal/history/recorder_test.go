package history

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/crtools/cr-companion/internal/cards"
	"github.com/crtools/cr-companion/internal/detect"
	"github.com/crtools/cr-companion/internal/events"
)

func newTestRecorder(t *testing.T) (*Recorder, *Store) {
	t.Helper()
	store := openTestStore(t)
	return NewRecorder(store, log.New(io.Discard)), store
}

func matchStarted(at time.Time) events.Event {
	return events.Event{
		Type:      events.TypeMatchStarted,
		Data:      events.MatchStartedData{StartedAt: at},
		Timestamp: at,
	}
}

func playAccepted(name string, elixir int, at time.Time, seq int) events.Event {
	return events.Event{
		Type: events.TypePlayAccepted,
		Data: events.PlayAcceptedData{
			Play: detect.PlayRecord{
				Card:      cards.Card{Name: name, Elixir: elixir},
				Timestamp: at,
				Seq:       seq,
			},
		},
		Timestamp: at,
	}
}

func TestRecorder_ShouldHandle(t *testing.T) {
	r, _ := newTestRecorder(t)

	for _, typ := range []string{events.TypeMatchStarted, events.TypePlayAccepted, events.TypeDeckCompleted} {
		if !r.ShouldHandle(typ) {
			t.Errorf("ShouldHandle(%q) = false", typ)
		}
	}
	if r.ShouldHandle(events.TypeSnapshot) {
		t.Error("recorder should not subscribe to snapshot spam")
	}
}

func TestRecorder_RecordsMatchLifecycle(t *testing.T) {
	r, store := newTestRecorder(t)

	start := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	if err := r.OnEvent(matchStarted(start)); err != nil {
		t.Fatalf("match started: %v", err)
	}
	if err := r.OnEvent(playAccepted("Knight", 3, start.Add(5*time.Second), 0)); err != nil {
		t.Fatalf("play accepted: %v", err)
	}
	if err := r.OnEvent(events.Event{
		Type: events.TypeDeckCompleted,
		Data: events.DeckCompletedData{
			Cards:     []cards.Card{{Name: "Knight", Elixir: 3}},
			Archetype: "Cycle",
		},
		Timestamp: start.Add(time.Minute),
	}); err != nil {
		t.Fatalf("deck completed: %v", err)
	}

	end := start.Add(3 * time.Minute)
	if err := r.Close(end); err != nil {
		t.Fatalf("close: %v", err)
	}

	matches, err := store.RecentMatches(1)
	if err != nil {
		t.Fatal(err)
	}
	m := matches[0]
	if !m.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", m.StartedAt, start)
	}
	if m.EndedAt == nil || !m.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", m.EndedAt, end)
	}
	if m.Archetype != "Cycle" {
		t.Errorf("Archetype = %q, want Cycle", m.Archetype)
	}
	if m.Plays != 1 {
		t.Errorf("Plays = %d, want 1", m.Plays)
	}
}

func TestRecorder_NewMatchClosesPrevious(t *testing.T) {
	r, store := newTestRecorder(t)

	first := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	second := first.Add(5 * time.Minute)
	if err := r.OnEvent(matchStarted(first)); err != nil {
		t.Fatal(err)
	}
	if err := r.OnEvent(matchStarted(second)); err != nil {
		t.Fatal(err)
	}

	matches, err := store.RecentMatches(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	// Newest first: the second match is still open, the first was closed at
	// the second's start.
	if matches[0].EndedAt != nil {
		t.Error("current match has an end time")
	}
	if matches[1].EndedAt == nil || !matches[1].EndedAt.Equal(second) {
		t.Errorf("previous match EndedAt = %v, want %v", matches[1].EndedAt, second)
	}
}

func TestRecorder_PlayBeforeMatchBoundaryOpensMatch(t *testing.T) {
	r, store := newTestRecorder(t)

	at := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	if err := r.OnEvent(playAccepted("Fireball", 4, at, 0)); err != nil {
		t.Fatalf("play accepted: %v", err)
	}

	matches, err := store.RecentMatches(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 auto-opened", len(matches))
	}
	if matches[0].Plays != 1 {
		t.Errorf("Plays = %d, want 1", matches[0].Plays)
	}
}

func TestRecorder_CloseWithoutOpenMatch(t *testing.T) {
	r, _ := newTestRecorder(t)
	if err := r.Close(time.Now()); err != nil {
		t.Errorf("Close() with no open match: %v", err)
	}
}

func TestRecorder_DeckCompletedWithoutMatchIgnored(t *testing.T) {
	r, store := newTestRecorder(t)

	err := r.OnEvent(events.Event{
		Type:      events.TypeDeckCompleted,
		Data:      events.DeckCompletedData{Archetype: "Cycle"},
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("OnEvent() error: %v", err)
	}
	matches, err := store.RecentMatches(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("got %d matches, want none", len(matches))
	}
}
