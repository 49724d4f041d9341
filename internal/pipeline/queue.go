// Package pipeline connects the capture producer to the detection and
// state-update consumer: a small drop-oldest frame queue and the analysis
// worker that drains it.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"
)

// Frame is one captured frame handed to the detector. The pipeline never
// interprets the payload; it is whatever the capture collaborator produces
// and the detector consumes.
type Frame struct {
	Payload   any
	Timestamp time.Time
}

// FrameQueue is a bounded queue that drops the oldest frame on overflow.
// With a slow consumer, analyzing a stale frame is worse than skipping it,
// so the queue favors freshness over completeness.
type FrameQueue struct {
	frames  chan Frame
	dropped atomic.Uint64
}

// NewFrameQueue creates a queue with the given capacity.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = 3
	}
	return &FrameQueue{frames: make(chan Frame, capacity)}
}

// Push enqueues a frame, evicting the oldest queued frame if full. It never
// blocks the producer.
func (q *FrameQueue) Push(f Frame) {
	select {
	case q.frames <- f:
		return
	default:
	}

	// Full: drop the oldest and retry once. A concurrent Pop may have
	// drained the queue in between, in which case the send just succeeds.
	select {
	case <-q.frames:
		q.dropped.Add(1)
	default:
	}
	select {
	case q.frames <- f:
	default:
		q.dropped.Add(1)
	}
}

// Pop dequeues the next frame, blocking until one is available or the
// context is cancelled.
func (q *FrameQueue) Pop(ctx context.Context) (Frame, error) {
	select {
	case f := <-q.frames:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int {
	return len(q.frames)
}

// Dropped returns how many frames were discarded due to overflow.
func (q *FrameQueue) Dropped() uint64 {
	return q.dropped.Load()
}
