package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/events"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/notify"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/store"
)

// Notifier announces sourced batches.
type Notifier interface {
	Send(ctx context.Context, payload any) error
}

// Handlers are the event handlers for deferred pipeline work.
type Handlers struct {
	Store      LeadStore
	Classifier Classifier
	Decider    Decider
	Handoff    *Handoff
	Notifier   Notifier
}

// Register wires every handler with a collaborator into d.
func (h *Handlers) Register(d *events.Dispatcher) {
	if h.Classifier != nil {
		d.Register(events.KindNeedsAnalysis, h.needsAnalysis)
	}
	if h.Decider != nil {
		d.Register(events.KindNeedsDecision, h.needsDecision)
	}
	if h.Handoff != nil {
		d.Register(events.KindInterested, h.interested)
	}
	if h.Notifier != nil {
		d.Register(events.KindSourced, h.sourced)
	}
}

func (h *Handlers) needsAnalysis(ctx context.Context, e events.Event) error {
	lead, err := h.Store.GetLead(ctx, e.TenantID, e.LeadID)
	if err != nil {
		return eris.Wrap(err, "pipeline: load lead")
	}
	if lead == nil {
		zap.L().Warn("pipeline: lead gone before analysis", zap.String("lead_id", e.LeadID))
		return nil
	}
	if lead.SiteAnalyzedAt != nil {
		return nil
	}
	_, err = h.Classifier.ClassifyLead(ctx, e.TenantID, e.LeadID)
	return err
}

func (h *Handlers) needsDecision(ctx context.Context, e events.Event) error {
	lead, err := h.Store.GetLead(ctx, e.TenantID, e.LeadID)
	if err != nil {
		return eris.Wrap(err, "pipeline: load lead")
	}
	if lead == nil || !lead.Contactable() {
		return nil
	}

	mt := e.MessageType
	if mt == "" || mt == model.MessageInitial {
		dup, err := h.Store.HasOutboundContact(ctx, e.TenantID, lead.ID, lead.Email)
		if err != nil {
			return eris.Wrap(err, "pipeline: check contact log")
		}
		if dup {
			zap.L().Info("pipeline: initial already sent, skipping",
				zap.String("tenant_id", e.TenantID),
				zap.String("lead_id", lead.ID),
			)
			return nil
		}
	}

	d, err := h.Decider.Decide(ctx, e.TenantID, outreach.Request{
		LeadID:      lead.ID,
		MessageType: mt,
		UseAI:       e.UseAI,
	})
	if err != nil {
		if eris.Is(err, store.ErrNotFound) || eris.Is(err, outreach.ErrNoTemplate) {
			zap.L().Warn("pipeline: decision dropped", zap.String("lead_id", lead.ID), zap.Error(err))
			return nil
		}
		return err
	}
	if sendErr := d.SendErr(); sendErr != nil {
		return eris.Wrap(sendErr, "pipeline: send decision")
	}
	return nil
}

func (h *Handlers) interested(ctx context.Context, e events.Event) error {
	_, err := h.Handoff.Run(ctx, e.TenantID, e.LeadID)
	if eris.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

func (h *Handlers) sourced(ctx context.Context, e events.Event) error {
	return h.Notifier.Send(ctx, notify.SourcedNotice{
		Event:    string(e.Kind),
		TenantID: e.TenantID,
		LeadIDs:  e.LeadIDs,
		Count:    len(e.LeadIDs),
		Query:    e.Query,
		Location: e.Location,
		SentAt:   time.Now().UTC(),
	})
}
