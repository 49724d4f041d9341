// Package detect defines the detector-facing input types and the
// deduplication filter that decides which raw detections count as real
// card plays.
package detect

import (
	"time"

	"github.com/crtools/cr-companion/internal/cards"
)

// Event is a single frame-level observation from the external object
// detector: a candidate card play. Events are noisy; the same physical play
// is typically reported across several consecutive analysis ticks.
type Event struct {
	// Name is the detected card name. It must resolve in the card catalog
	// or the event is discarded.
	Name string

	// Confidence is the detector's confidence in [0, 1].
	Confidence float64

	// Timestamp is a monotonic clock reading of when the frame was analyzed.
	Timestamp time.Time

	// BBox is the detection bounding box [x1, y1, x2, y2], if the detector
	// provides one. The companion never interprets it; it is carried for
	// collaborators (overlay, debug logging).
	BBox []float64
}

// PlayRecord is a deduplicated, accepted play. Records are append-only and
// never mutated after creation.
type PlayRecord struct {
	// Card is the resolved catalog entry for the played card.
	Card cards.Card `json:"card"`

	// Timestamp is when the play was accepted.
	Timestamp time.Time `json:"timestamp"`

	// Seq is the position of this play in the overall ordered play history,
	// 0-based and monotonically increasing within a match.
	Seq int `json:"seq"`
}
