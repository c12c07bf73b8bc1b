package worker

import (
	"context"
	"errors"

	audit "roster/pkg/platform/audit"
)

// ErrQueueFull is returned when the worker has fallen behind.
var ErrQueueFull = errors.New("audit queue full")

// Queue hands events to a Worker without blocking the caller.
type Queue struct {
	ch chan audit.Event
}

func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan audit.Event, size)}
}

// Emit enqueues event or fails immediately when the queue is full.
func (q *Queue) Emit(_ context.Context, event audit.Event) error {
	select {
	case q.ch <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Inbox is the receiving side handed to NewWorker.
func (q *Queue) Inbox() <-chan audit.Event {
	return q.ch
}

// Close stops the worker once the queued events are drained.
func (q *Queue) Close() {
	close(q.ch)
}
