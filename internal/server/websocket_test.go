package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/crtools/cr-companion/internal/events"
)

func TestSubscription_DefaultsToEverything(t *testing.T) {
	sub := newSubscription()
	for _, typ := range []string{events.TypeSnapshot, events.TypePlayAccepted, "anything"} {
		if !sub.wants(typ) {
			t.Errorf("fresh subscription rejects %q", typ)
		}
	}
}

func TestSubscription_NarrowsOnSubscribe(t *testing.T) {
	sub := newSubscription()
	sub.subscribe([]string{events.TypePlayAccepted})

	if !sub.wants(events.TypePlayAccepted) {
		t.Error("subscribed type rejected")
	}
	if sub.wants(events.TypeSnapshot) {
		t.Error("unsubscribed type still delivered after narrowing")
	}

	sub.subscribe([]string{events.TypeSnapshot})
	if !sub.wants(events.TypeSnapshot) {
		t.Error("second subscription not honored")
	}

	sub.unsubscribe([]string{events.TypePlayAccepted})
	if sub.wants(events.TypePlayAccepted) {
		t.Error("unsubscribe did not remove the type")
	}
}

func TestSubscription_EmptySubscribeKeepsAll(t *testing.T) {
	sub := newSubscription()
	sub.subscribe(nil)
	if !sub.wants(events.TypeSnapshot) {
		t.Error("empty subscribe message narrowed the feed")
	}
}

func TestServer_OnEventQueueFull(t *testing.T) {
	s := New("127.0.0.1:0", log.New(io.Discard))

	// No broadcast loop running; fill the queue.
	var err error
	for i := 0; i < 200; i++ {
		err = s.OnEvent(events.Event{Type: events.TypeSnapshot})
	}
	if err == nil {
		t.Error("OnEvent never reported a full queue")
	}
}

func TestServer_EndToEnd(t *testing.T) {
	logger := log.New(io.Discard)
	s := New("", logger)
	go s.broadcastLoop()
	defer close(s.done)

	// Drive the ws handler through httptest instead of a real listener.
	ts := httptest.NewServer(http.HandlerFunc(s.handleWS))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(3 * time.Second)
	for s.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Narrow the feed to play events, then emit one of each.
	msg, _ := json.Marshal(clientMessage{Action: "subscribe", Types: []string{events.TypePlayAccepted}})
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("write subscribe: %v", err)
	}
	// The subscribe message is handled by the read loop; give it a moment
	// before broadcasting.
	time.Sleep(50 * time.Millisecond)

	if err := s.OnEvent(events.Event{Type: events.TypeSnapshot, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := s.OnEvent(events.Event{Type: events.TypePlayAccepted, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var got events.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if got.Type != events.TypePlayAccepted {
		t.Errorf("received %q, want the snapshot filtered out and %q delivered", got.Type, events.TypePlayAccepted)
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	s := New("", log.New(io.Discard))
	ts := httptest.NewServer(http.HandlerFunc(s.handleHealth))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if body.Status != "ok" || body.Clients != 0 {
		t.Errorf("health = %+v", body)
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	s := New("127.0.0.1:0", log.New(io.Discard))
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
}
