package events

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

// Handler performs the work an event asks for.
type Handler func(ctx context.Context, e Event) error

// ConsumeFunc processes one delivered event and reports what the queue
// should do with it.
type ConsumeFunc func(ctx context.Context, e Event, redelivered bool) resilience.Disposition

// Deduper suppresses repeats of the same logical event within a window.
// Claim returns true when the caller is the first to see key.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
	dedupe   Deduper
}

// NewDispatcher creates a Dispatcher. dedupe may be nil.
func NewDispatcher(dedupe Deduper) *Dispatcher {
	return &Dispatcher{handlers: make(map[Kind]Handler), dedupe: dedupe}
}

// Register sets the handler for kind, replacing any previous one.
func (d *Dispatcher) Register(kind Kind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Kinds returns the kinds with a registered handler.
func (d *Dispatcher) Kinds() []Kind {
	d.mu.RLock()
	defer d.mu.RUnlock()
	kinds := make([]Kind, 0, len(d.handlers))
	for k := range d.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

// Handle runs the handler for e. Events without a handler, and repeats
// inside the dedupe window, are dropped without error. A failed handler
// releases its dedupe claim so a redelivery can run.
func (d *Dispatcher) Handle(ctx context.Context, e Event) error {
	log := zap.L().With(
		zap.String("event_kind", string(e.Kind)),
		zap.String("event_id", e.ID),
		zap.String("tenant_id", e.TenantID),
		zap.String("lead_id", e.LeadID),
	)

	d.mu.RLock()
	h, ok := d.handlers[e.Kind]
	d.mu.RUnlock()
	if !ok {
		log.Warn("events: no handler registered, dropping")
		return nil
	}

	key := e.DedupeKey()
	if d.dedupe != nil {
		first, err := d.dedupe.Claim(ctx, key)
		switch {
		case err != nil:
			log.Warn("events: dedupe unavailable, processing anyway", zap.Error(err))
		case !first:
			log.Debug("events: duplicate within window, skipping")
			return nil
		}
	}

	if err := h(ctx, e); err != nil {
		if d.dedupe != nil {
			if rerr := d.dedupe.Release(ctx, key); rerr != nil {
				log.Warn("events: release dedupe claim", zap.Error(rerr))
			}
		}
		return eris.Wrapf(err, "events: handle %s", e.Kind)
	}
	return nil
}

// Dispatch is the ConsumeFunc that wires a Dispatcher to a Queue.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event, redelivered bool) resilience.Disposition {
	err := d.Handle(ctx, e)
	disp := resilience.Dispose(err, redelivered)
	metrics.RecordEventHandled(string(e.Kind), disp.String())

	if err != nil {
		zap.L().Error("events: handler failed",
			zap.String("event_kind", string(e.Kind)),
			zap.String("event_id", e.ID),
			zap.String("lead_id", e.LeadID),
			zap.Bool("redelivered", redelivered),
			zap.String("disposition", disp.String()),
			zap.Error(err),
		)
	}
	return disp
}

// Run consumes q until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, q Queue) error {
	zap.L().Info("events: dispatcher started", zap.Int("kinds", len(d.Kinds())))
	err := q.Consume(ctx, d.Dispatch)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
