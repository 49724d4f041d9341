// Package server streams companion events to overlay clients over
// WebSocket. The overlay UI itself lives outside this process; this is the
// feed it reads.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/crtools/cr-companion/internal/events"
)

// Server broadcasts companion events to connected WebSocket clients.
// It implements events.Observer so it can be registered directly on the
// dispatcher.
type Server struct {
	addr     string
	logger   *log.Logger
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*websocket.Conn]*subscription

	broadcast  chan events.Event
	httpServer *http.Server
	done       chan struct{}
}

// subscription tracks which event types one client wants. Clients receive
// everything until they send an explicit subscribe message.
type subscription struct {
	mu    sync.Mutex
	types map[string]bool
	all   bool
}

func newSubscription() *subscription {
	return &subscription{types: make(map[string]bool), all: true}
}

func (s *subscription) subscribe(types []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.all && len(types) > 0 {
		s.all = false
	}
	for _, t := range types {
		s.types[t] = true
	}
}

func (s *subscription) unsubscribe(types []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range types {
		delete(s.types, t)
	}
}

func (s *subscription) wants(eventType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all || s.types[eventType]
}

// New creates a server listening on addr (e.g. "127.0.0.1:9317").
func New(addr string, logger *log.Logger) *Server {
	s := &Server{
		addr:      addr,
		logger:    logger.WithPrefix("server"),
		clients:   make(map[*websocket.Conn]*subscription),
		broadcast: make(chan events.Event, 100),
		done:      make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		// Overlay clients connect from file:// or localhost pages.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	return s
}

// Start begins listening and broadcasting. Non-blocking.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.broadcastLoop()
	go func() {
		s.logger.Info("overlay feed listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server stopped", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the server and disconnects all clients.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.done)

	s.clientsMu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]*subscription)
	s.clientsMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Name implements events.Observer.
func (s *Server) Name() string { return "overlay-server" }

// ShouldHandle implements events.Observer. Per-client filtering happens at
// send time, so the server accepts every type.
func (s *Server) ShouldHandle(string) bool { return true }

// OnEvent implements events.Observer by queueing the event for broadcast.
// Events are dropped when the broadcast queue is full; the overlay prefers
// fresh state over a backlog.
func (s *Server) OnEvent(event events.Event) error {
	select {
	case s.broadcast <- event:
		return nil
	default:
		return fmt.Errorf("broadcast queue full, dropped %s", event.Type)
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","clients":%d}`, s.ClientCount())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	sub := newSubscription()
	s.clientsMu.Lock()
	s.clients[conn] = sub
	total := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Info("overlay client connected", "total", total)

	go s.readLoop(conn, sub)
}

// clientMessage is the control message clients send to narrow their feed.
type clientMessage struct {
	Action string   `json:"action"` // "subscribe" | "unsubscribe"
	Types  []string `json:"types"`
}

func (s *Server) readLoop(conn *websocket.Conn, sub *subscription) {
	defer s.dropClient(conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("ignoring malformed client message", "error", err)
			continue
		}

		switch msg.Action {
		case "subscribe":
			sub.subscribe(msg.Types)
		case "unsubscribe":
			sub.unsubscribe(msg.Types)
		}
	}
}

func (s *Server) dropClient(conn *websocket.Conn) {
	conn.Close()
	s.clientsMu.Lock()
	delete(s.clients, conn)
	total := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Info("overlay client disconnected", "total", total)
}

func (s *Server) broadcastLoop() {
	for {
		select {
		case <-s.done:
			return
		case event := <-s.broadcast:
			s.sendToClients(event)
		}
	}
}

func (s *Server) sendToClients(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("failed to marshal event", "type", event.Type, "error", err)
		return
	}

	s.clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	subs := make([]*subscription, 0, len(s.clients))
	for conn, sub := range s.clients {
		conns = append(conns, conn)
		subs = append(subs, sub)
	}
	s.clientsMu.RUnlock()

	for i, conn := range conns {
		if !subs[i].wants(event.Type) {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Debug("client write failed, dropping", "error", err)
			s.dropClient(conn)
		}
	}
}
