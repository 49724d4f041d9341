// Package feed consumes detector output from an external process as JSON
// lines. The companion does not run computer vision itself; the capture and
// YOLO side lives in a separate process and streams its per-tick results
// here.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/crtools/cr-companion/internal/detect"
	"github.com/crtools/cr-companion/internal/pipeline"
)

// Detection is one detected object within a tick.
type Detection struct {
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"`
}

// Towers is the tower-count reading for a tick, when the detector could
// read it.
type Towers struct {
	Mine     int `json:"mine"`
	Opponent int `json:"opponent"`
}

// Tick is one line of detector output: everything seen in one analyzed
// frame.
type Tick struct {
	Detections []Detection `json:"detections"`
	Towers     *Towers     `json:"towers,omitempty"`
}

// Reader streams ticks from r into a pipeline.
type Reader struct {
	r        io.Reader
	pipeline *pipeline.Pipeline
	clock    quartz.Clock
	logger   *log.Logger
}

// NewReader creates a reader feeding p from r.
func NewReader(r io.Reader, p *pipeline.Pipeline, clock quartz.Clock, logger *log.Logger) *Reader {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Reader{r: r, pipeline: p, clock: clock, logger: logger.WithPrefix("feed")}
}

// Run reads ticks until EOF or context cancellation. Malformed lines are
// skipped; a dead detector process shows up as EOF, which is a clean stop.
func (r *Reader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var tick Tick
		if err := json.Unmarshal(line, &tick); err != nil {
			r.logger.Debug("skipping malformed tick", "error", err)
			continue
		}

		r.pipeline.Submit(pipeline.Frame{Payload: &tick, Timestamp: r.clock.Now()})
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read detector feed: %w", err)
	}
	r.logger.Info("detector feed closed")
	return nil
}

// Adapter exposes feed ticks through the pipeline's Detector and
// TowerCounter interfaces.
type Adapter struct{}

// Detect implements pipeline.Detector.
func (Adapter) Detect(frame pipeline.Frame) ([]detect.Event, error) {
	tick, ok := frame.Payload.(*Tick)
	if !ok {
		return nil, fmt.Errorf("unexpected frame payload %T", frame.Payload)
	}

	events := make([]detect.Event, 0, len(tick.Detections))
	for _, d := range tick.Detections {
		events = append(events, detect.Event{
			Name:       d.Name,
			Confidence: d.Confidence,
			Timestamp:  frame.Timestamp,
			BBox:       d.BBox,
		})
	}
	return events, nil
}

// Towers implements pipeline.TowerCounter.
func (Adapter) Towers(frame pipeline.Frame) (mine, theirs int, ok bool) {
	tick, tickOK := frame.Payload.(*Tick)
	if !tickOK || tick.Towers == nil {
		return 0, 0, false
	}
	return tick.Towers.Mine, tick.Towers.Opponent, true
}
