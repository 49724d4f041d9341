// Package events distributes domain events (match started, play accepted,
// deck completed) to registered observers.
package events

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Event is a domain event delivered to observers.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer receives dispatched events. Implementations forward them to the
// overlay feed, persist them, or log them.
type Observer interface {
	// OnEvent handles one event. Errors are logged by the dispatcher and do
	// not stop delivery to other observers.
	OnEvent(event Event) error

	// Name identifies the observer in logs.
	Name() string

	// ShouldHandle filters which event types the observer receives.
	ShouldHandle(eventType string) bool
}

// Dispatcher fans events out to observers. Thread-safe.
type Dispatcher struct {
	mu        sync.RWMutex
	observers []Observer
	logger    *log.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	return &Dispatcher{logger: logger.WithPrefix("events")}
}

// Register adds an observer.
func (d *Dispatcher) Register(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers = append(d.observers, observer)
	d.logger.Debug("registered observer", "observer", observer.Name())
}

// Unregister removes an observer.
func (d *Dispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, obs := range d.observers {
		if obs == observer {
			d.observers[i] = d.observers[len(d.observers)-1]
			d.observers = d.observers[:len(d.observers)-1]
			d.logger.Debug("unregistered observer", "observer", observer.Name())
			return
		}
	}
}

// Dispatch delivers an event to all interested observers, sequentially in
// registration order. Observer failures are logged and delivery continues.
func (d *Dispatcher) Dispatch(event Event) {
	for _, observer := range d.snapshot() {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		if err := observer.OnEvent(event); err != nil {
			d.logger.Warn("observer failed", "observer", observer.Name(), "event", event.Type, "error", err)
		}
	}
}

// DispatchAsync delivers an event with each observer notified in its own
// goroutine. Used for handlers that may block (persistence, network).
func (d *Dispatcher) DispatchAsync(event Event) {
	for _, observer := range d.snapshot() {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		go func(obs Observer) {
			if err := obs.OnEvent(event); err != nil {
				d.logger.Warn("observer failed", "observer", obs.Name(), "event", event.Type, "error", err)
			}
		}(observer)
	}
}

// ObserverCount returns the number of registered observers.
func (d *Dispatcher) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

func (d *Dispatcher) snapshot() []Observer {
	d.mu.RLock()
	defer d.mu.RUnlock()

	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	return observers
}
