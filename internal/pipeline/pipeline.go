package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/crtools/cr-companion/internal/detect"
	"github.com/crtools/cr-companion/internal/events"
	"github.com/crtools/cr-companion/internal/match"
	"github.com/crtools/cr-companion/internal/metrics"
)

// Detector is the external object-detection collaborator. It reports the
// candidate card plays visible in a frame.
type Detector interface {
	Detect(frame Frame) ([]detect.Event, error)
}

// TowerCounter is the external collaborator that reads tower counts from a
// frame. ok is false when the counts cannot be read (loading screens,
// menus).
type TowerCounter interface {
	Towers(frame Frame) (mine, theirs int, ok bool)
}

// Config holds pipeline tuning.
type Config struct {
	// QueueCapacity bounds the frame queue between producer and worker.
	QueueCapacity int

	// TickInterval paces analysis; frames arriving faster than this are
	// where the drop-oldest queue earns its keep.
	TickInterval time.Duration
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() *Config {
	return &Config{
		QueueCapacity: 3,
		TickInterval:  2 * time.Second,
	}
}

// Pipeline drains captured frames, runs detection, filters the results and
// feeds accepted plays into the current session. One worker performs all
// state updates; readers query session snapshots concurrently.
type Pipeline struct {
	config     *Config
	queue      *FrameQueue
	detector   Detector
	towers     TowerCounter
	filter     *detect.Filter
	controller *match.Controller
	dispatcher *events.Dispatcher
	limiter    *rate.Limiter
	clock      quartz.Clock
	logger     *log.Logger

	latency    *metrics.Histogram
	confidence *metrics.Histogram
}

// New creates a pipeline. The tower counter may be nil when the capture
// source cannot provide tower counts; match resets then rely on StartMatch.
func New(config *Config, detector Detector, towers TowerCounter, filter *detect.Filter, controller *match.Controller, dispatcher *events.Dispatcher, clock quartz.Clock, logger *log.Logger) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	if clock == nil {
		clock = quartz.NewReal()
	}

	return &Pipeline{
		config:     config,
		queue:      NewFrameQueue(config.QueueCapacity),
		detector:   detector,
		towers:     towers,
		filter:     filter,
		controller: controller,
		dispatcher: dispatcher,
		limiter:    rate.NewLimiter(rate.Every(config.TickInterval), 1),
		clock:      clock,
		logger:     logger.WithPrefix("pipeline"),
		latency:    metrics.NewHistogram(1000),
		confidence: metrics.NewHistogram(10000),
	}
}

// Submit hands a captured frame to the pipeline. Never blocks; stale frames
// are dropped when the worker falls behind.
func (p *Pipeline) Submit(f Frame) {
	if f.Timestamp.IsZero() {
		f.Timestamp = p.clock.Now()
	}
	p.queue.Push(f)
}

// Run processes frames until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
			frame, err := p.queue.Pop(ctx)
			if err != nil {
				return err
			}
			p.analyze(frame)
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// analyze runs one tick: tower signal, lifecycle policy, detection, dedup,
// state update, snapshot broadcast. Detector inference happens outside any
// session lock.
func (p *Pipeline) analyze(frame Frame) {
	start := p.clock.Now()

	if p.towers != nil {
		if mine, theirs, ok := p.towers.Towers(frame); ok {
			if p.controller.ObserveTowers(mine, theirs) {
				// Fresh match: forget the previous match's dedup history.
				p.filter.Reset()
			}
		}
	}
	p.controller.Tick()

	detections, err := p.detector.Detect(frame)
	if err != nil {
		p.logger.Warn("detector failed, skipping frame", "error", err)
		return
	}

	session := p.controller.Session()
	for _, ev := range detections {
		p.confidence.RecordValue(ev.Confidence)
		if ev.Timestamp.IsZero() {
			ev.Timestamp = frame.Timestamp
		}

		play, ok := p.filter.Apply(ev)
		if !ok {
			continue
		}

		accepted, completed := session.ApplyPlay(play)
		if !accepted {
			continue
		}

		p.logger.Info("play accepted", "card", play.Card.Name, "cost", play.Card.Elixir, "seq", play.Seq)
		p.dispatcher.Dispatch(events.Event{
			Type:      events.TypePlayAccepted,
			Data:      events.PlayAcceptedData{Play: play, ElixirAfter: session.CurrentElixir()},
			Timestamp: play.Timestamp,
		})

		if completed {
			snap := session.Snapshot()
			p.logger.Info("opponent deck fully revealed", "archetype", snap.Archetype)
			p.dispatcher.Dispatch(events.Event{
				Type:      events.TypeDeckCompleted,
				Data:      events.DeckCompletedData{Cards: snap.DeckKnown, Archetype: snap.Archetype},
				Timestamp: play.Timestamp,
			})
		}
	}

	p.dispatcher.Dispatch(events.Event{
		Type:      events.TypeSnapshot,
		Data:      session.Snapshot(),
		Timestamp: p.clock.Now(),
	})
	p.latency.Record(p.clock.Now().Sub(start))
}

// DroppedFrames reports how many frames were discarded by the queue.
func (p *Pipeline) DroppedFrames() uint64 {
	return p.queue.Dropped()
}

// TickLatency exposes the analysis latency distribution.
func (p *Pipeline) TickLatency() *metrics.Histogram {
	return p.latency
}

// DetectionConfidence exposes the detector confidence distribution.
func (p *Pipeline) DetectionConfidence() *metrics.Histogram {
	return p.confidence
}
