package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestFrameQueue_FIFO(t *testing.T) {
	q := NewFrameQueue(3)
	q.Push(Frame{Payload: 1})
	q.Push(Frame{Payload: 2})

	ctx := context.Background()
	for want := 1; want <= 2; want++ {
		f, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop() error: %v", err)
		}
		if f.Payload != want {
			t.Errorf("Pop() payload = %v, want %v", f.Payload, want)
		}
	}
}

func TestFrameQueue_DropsOldestOnOverflow(t *testing.T) {
	q := NewFrameQueue(3)
	for i := 1; i <= 5; i++ {
		q.Push(Frame{Payload: i})
	}

	if got := q.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if got := q.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}

	// The survivors are the three newest frames.
	ctx := context.Background()
	for want := 3; want <= 5; want++ {
		f, err := q.Pop(ctx)
		if err != nil {
			t.Fatalf("Pop() error: %v", err)
		}
		if f.Payload != want {
			t.Errorf("Pop() payload = %v, want %v", f.Payload, want)
		}
	}
}

func TestFrameQueue_PushNeverBlocks(t *testing.T) {
	q := NewFrameQueue(1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			q.Push(Frame{Payload: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Push blocked on a full queue")
	}
}

func TestFrameQueue_PopHonorsContext(t *testing.T) {
	q := NewFrameQueue(3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Pop(ctx); err != context.Canceled {
		t.Errorf("Pop() error = %v, want context.Canceled", err)
	}
}

func TestFrameQueue_DefaultCapacity(t *testing.T) {
	q := NewFrameQueue(0)
	for i := 0; i < 3; i++ {
		q.Push(Frame{Payload: i})
	}
	if got := q.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d within default capacity, want 0", got)
	}
}
