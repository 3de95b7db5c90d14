// Package events carries the pipeline's follow-up work as explicit messages.
// Producers publish an Event when a lead needs its next step; a Dispatcher
// on the consuming side routes each Event to the handler registered for its
// Kind.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Kind names an event and doubles as its AMQP routing key.
type Kind string

const (
	// KindNeedsAnalysis asks for a site analysis of one lead.
	KindNeedsAnalysis Kind = "lead.needs_analysis"
	// KindNeedsDecision asks for a template decision (and send) for one lead.
	KindNeedsDecision Kind = "lead.needs_decision"
	// KindInterested hands an interested lead to a human.
	KindInterested Kind = "lead.interested"
	// KindSourced announces a batch of leads inserted from search.
	KindSourced Kind = "leads.sourced"
)

// Event is a unit of deferred pipeline work.
type Event struct {
	ID          string            `json:"id"`
	Kind        Kind              `json:"kind"`
	TenantID    string            `json:"tenant_id"`
	LeadID      string            `json:"lead_id,omitempty"`
	MessageType model.MessageType `json:"message_type,omitempty"`
	UseAI       bool              `json:"use_ai,omitempty"`
	LeadIDs     []string          `json:"lead_ids,omitempty"`
	Query       string            `json:"query,omitempty"`
	Location    string            `json:"location,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

func newEvent(kind Kind, tenantID, leadID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		TenantID:   tenantID,
		LeadID:     leadID,
		OccurredAt: time.Now().UTC(),
	}
}

// NeedsAnalysis builds a lead.needs_analysis event.
func NeedsAnalysis(tenantID, leadID string) Event {
	return newEvent(KindNeedsAnalysis, tenantID, leadID)
}

// NeedsDecision builds a lead.needs_decision event.
func NeedsDecision(tenantID, leadID string, mt model.MessageType, useAI bool) Event {
	e := newEvent(KindNeedsDecision, tenantID, leadID)
	e.MessageType = mt
	e.UseAI = useAI
	return e
}

// Interested builds a lead.interested event.
func Interested(tenantID, leadID string) Event {
	return newEvent(KindInterested, tenantID, leadID)
}

// Sourced builds a leads.sourced event for a search batch.
func Sourced(tenantID string, leadIDs []string, query, location string) Event {
	e := newEvent(KindSourced, tenantID, "")
	e.LeadIDs = leadIDs
	e.Query = query
	e.Location = location
	return e
}

// DedupeKey identifies repeats of the same logical request. Per-lead events
// collapse on (kind, tenant, lead[, message type]); batch events never do.
func (e Event) DedupeKey() string {
	if e.LeadID == "" {
		return string(e.Kind) + ":" + e.ID
	}
	key := string(e.Kind) + ":" + e.TenantID + ":" + e.LeadID
	if e.MessageType != "" {
		key += ":" + string(e.MessageType)
	}
	return key
}

// Validate rejects events a handler could not act on.
func (e Event) Validate() error {
	if e.Kind == "" || e.TenantID == "" {
		return eris.New("events: kind and tenant_id are required")
	}
	if e.Kind != KindSourced && e.LeadID == "" {
		return eris.Errorf("events: %s requires lead_id", e.Kind)
	}
	return nil
}

func encode(e Event) ([]byte, error) {
	b, err := json.Marshal(e)
	return b, eris.Wrap(err, "events: encode")
}

func decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return e, eris.Wrap(err, "events: decode")
	}
	return e, e.Validate()
}

// Publisher enqueues events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Queue is a Publisher that can also feed events to a consumer. Consume
// blocks until ctx is done or the queue is closed; fn's result decides
// whether each event is acked, requeued or dead-lettered.
type Queue interface {
	Publisher
	Consume(ctx context.Context, fn ConsumeFunc) error
	Close() error
}

// Nop discards events. It stands in where no follow-up work is wanted.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
