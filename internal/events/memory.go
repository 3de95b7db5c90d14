package events

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// ErrQueueClosed is returned by Publish after Close.
var ErrQueueClosed = eris.New("events: queue closed")

type envelope struct {
	event       Event
	redelivered bool
}

// MemoryQueue is an in-process Queue backed by a buffered channel. It serves
// the CLI and single-process deployments; events do not survive a restart.
type MemoryQueue struct {
	ch     chan envelope
	mu     sync.Mutex
	closed bool
	dead   []Event
}

// NewMemoryQueue creates a MemoryQueue holding up to buffer pending events.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &MemoryQueue{ch: make(chan envelope, buffer)}
}

// Publish enqueues e without blocking. A full buffer is a transient error.
func (q *MemoryQueue) Publish(_ context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := q.push(envelope{event: e}); err != nil {
		return err
	}
	metrics.RecordEventPublished(string(e.Kind))
	return nil
}

func (q *MemoryQueue) push(env envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- env:
		return nil
	default:
		return resilience.NewTransientError(eris.Errorf("events: memory queue full (%d)", cap(q.ch)), 0)
	}
}

// Consume delivers events to fn until ctx is done or the queue is closed.
func (q *MemoryQueue) Consume(ctx context.Context, fn ConsumeFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-q.ch:
			if !ok {
				return nil
			}
			q.settle(ctx, env, fn(ctx, env.event, env.redelivered))
		}
	}
}

// Drain processes every pending event, including requeued ones, and returns
// once the buffer is empty. It returns the number of deliveries made.
func (q *MemoryQueue) Drain(ctx context.Context, fn ConsumeFunc) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		select {
		case env, ok := <-q.ch:
			if !ok {
				return n, nil
			}
			n++
			q.settle(ctx, env, fn(ctx, env.event, env.redelivered))
		default:
			return n, nil
		}
	}
}

func (q *MemoryQueue) settle(_ context.Context, env envelope, disp resilience.Disposition) {
	switch disp {
	case resilience.Requeue:
		if err := q.push(envelope{event: env.event, redelivered: true}); err != nil {
			zap.L().Warn("events: requeue failed, dead-lettering",
				zap.String("event_id", env.event.ID), zap.Error(err))
			q.deadLetter(env.event)
		}
	case resilience.DeadLetter:
		q.deadLetter(env.event)
	}
}

func (q *MemoryQueue) deadLetter(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead = append(q.dead, e)
}

// DeadLetters returns the events that were dead-lettered so far.
func (q *MemoryQueue) DeadLetters() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Event, len(q.dead))
	copy(out, q.dead)
	return out
}

// Len returns the number of pending events.
func (q *MemoryQueue) Len() int { return len(q.ch) }

// Close stops accepting events. Pending events can still be drained.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
