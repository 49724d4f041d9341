// Package match detects match boundaries from the tower-count signal and
// owns the per-match session handle.
package match

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/crtools/cr-companion/internal/events"
	"github.com/crtools/cr-companion/internal/tracker"
)

// State is the controller's lifecycle state. There is no terminal state;
// the controller cycles for the process lifetime.
type State string

const (
	StateIdle    State = "idle"
	StateInMatch State = "in_match"
)

const fullTowers = 3

// Config holds the lifecycle tuning.
type Config struct {
	// ResetThreshold is how long towers must read full (with no non-full
	// observation in between) before a 3-3 reading is believed to be a new
	// match rather than a single misread frame.
	ResetThreshold time.Duration

	// DoubleElixirAt is the match clock at which double elixir activates.
	DoubleElixirAt time.Duration
}

// DefaultConfig returns the lifecycle defaults.
func DefaultConfig() *Config {
	return &Config{
		ResetThreshold: 30 * time.Second,
		DoubleElixirAt: 120 * time.Second,
	}
}

// Controller watches the external tower-count signal and swaps in a fresh
// session when a new match starts. The swap is a handle replacement under
// the lock, so concurrent readers observe either the old session or the new
// one, never a half-reset mix.
type Controller struct {
	config     *Config
	clock      quartz.Clock
	logger     *log.Logger
	dispatcher *events.Dispatcher
	newSession func() *tracker.Session

	mu           sync.RWMutex
	session      *tracker.Session
	state        State
	lastNonFull  time.Time
	armed        bool
	doubleActive bool
}

// NewController creates a controller with an initial live session, so
// tracking works even before the first detected match boundary.
func NewController(config *Config, newSession func() *tracker.Session, dispatcher *events.Dispatcher, clock quartz.Clock, logger *log.Logger) *Controller {
	if config == nil {
		config = DefaultConfig()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}

	return &Controller{
		config:      config,
		clock:       clock,
		logger:      logger.WithPrefix("match"),
		dispatcher:  dispatcher,
		newSession:  newSession,
		session:     newSession(),
		state:       StateIdle,
		lastNonFull: clock.Now(),
		armed:       true,
	}
}

// Session returns the current session handle.
func (c *Controller) Session() *tracker.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ObserveTowers feeds one tower-count reading. It returns true when the
// reading triggered a match reset.
//
// A reset needs two things: both sides at full towers, and no non-full
// observation within ResetThreshold. A single misread 3-3 frame mid-match
// fails the second condition because real tower counts were seen seconds
// ago.
func (c *Controller) ObserveTowers(mine, theirs int) bool {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if mine != fullTowers || theirs != fullTowers {
		c.lastNonFull = now
		// Tower damage observed: the next sustained 3-3 reading is a new match.
		c.armed = true
		return false
	}

	if !c.armed || now.Sub(c.lastNonFull) < c.config.ResetThreshold {
		return false
	}

	c.resetLocked(now)
	return true
}

// StartMatch forces a reset, for collaborators that know a match began
// through some other channel.
func (c *Controller) StartMatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(c.clock.Now())
}

// resetLocked swaps in a fresh session. Caller holds c.mu.
func (c *Controller) resetLocked(now time.Time) {
	c.session = c.newSession()
	c.state = StateInMatch
	c.armed = false
	c.doubleActive = false

	c.logger.Info("new match detected, session reset")
	if c.dispatcher != nil {
		c.dispatcher.Dispatch(events.Event{
			Type:      events.TypeMatchStarted,
			Data:      events.MatchStartedData{StartedAt: now},
			Timestamp: now,
		})
	}
}

// Tick advances time-based policy: it flips the session into double elixir
// once the match clock passes DoubleElixirAt. The estimator itself never
// hard-codes this; the activation point is lifecycle policy. The flip and
// the doubleActive flag are set under one lock, so a concurrent reset
// cannot leave the flag pointing at a stale session.
func (c *Controller) Tick() {
	c.mu.Lock()
	if c.doubleActive || c.state != StateInMatch {
		c.mu.Unlock()
		return
	}

	session := c.session
	elapsed := session.Elapsed()
	if elapsed < c.config.DoubleElixirAt {
		c.mu.Unlock()
		return
	}

	session.SetDoubleElixir(true)
	c.doubleActive = true
	c.mu.Unlock()

	c.logger.Info("double elixir activated", "elapsed", elapsed)
	if c.dispatcher != nil {
		c.dispatcher.Dispatch(events.Event{
			Type:      events.TypeDoubleElixir,
			Data:      events.DoubleElixirData{MatchElapsed: elapsed},
			Timestamp: c.clock.Now(),
		})
	}
}
