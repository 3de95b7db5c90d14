// Package pipeline runs leads through the prospecting steps: site analysis,
// outreach decision and send, and human handoff. Batch runs go through the
// Orchestrator; deferred steps arrive as events and go through Handlers.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/sitecheck"
	"github.com/sells-group/prospect-cli/internal/store"
)

// DefaultRunLimit caps a batch run when no limit is given.
const DefaultRunLimit = 10

// Per-lead outcomes of a batch run.
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// LeadStore is the slice of the lead store the pipeline needs.
type LeadStore interface {
	FindLeads(ctx context.Context, tenantID string, filter store.LeadFilter) ([]model.Lead, error)
	GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error)
	UpdateLead(ctx context.Context, tenantID, id string, patch model.LeadPatch) error
	HasOutboundContact(ctx context.Context, tenantID, leadID, email string) (bool, error)
}

// Classifier analyzes lead websites.
type Classifier interface {
	ClassifyLead(ctx context.Context, tenantID, leadID string) (*sitecheck.Result, error)
	Persist(ctx context.Context, lead *model.Lead) (sitecheck.Analysis, error)
}

// Decider picks and sends the next message for a lead.
type Decider interface {
	Decide(ctx context.Context, tenantID string, req outreach.Request) (*outreach.Decision, error)
}

// RunOptions configures a batch outreach run.
type RunOptions struct {
	Limit int  `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	UseAI bool `json:"useAIPersonalization,omitempty"`
}

// LeadOutcome is what a run did with one lead.
type LeadOutcome struct {
	LeadID         string               `json:"lead_id"`
	Email          string               `json:"email,omitempty"`
	Outcome        string               `json:"status"`
	Reason         string               `json:"reason,omitempty"`
	Classification model.Classification `json:"classification,omitempty"`
	TemplateID     string               `json:"template_id,omitempty"`
}

// RunResult summarizes a batch run.
type RunResult struct {
	Processed int           `json:"processed"`
	Sent      int           `json:"sent"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	Results   []LeadOutcome `json:"results"`
}

// Orchestrator runs the automatic first-contact batch.
type Orchestrator struct {
	store      LeadStore
	classifier Classifier
	decider    Decider
	now        func() time.Time
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(st LeadStore, c Classifier, d Decider) *Orchestrator {
	return &Orchestrator{
		store:      st,
		classifier: c,
		decider:    d,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run sends the initial message to up to opts.Limit new, contactable leads.
// Leads are processed one at a time and a failure never stops the batch.
func (o *Orchestrator) Run(ctx context.Context, tenantID string, opts RunOptions) (*RunResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultRunLimit
	}
	log := zap.L().With(zap.String("tenant_id", tenantID))

	leads, err := o.store.FindLeads(ctx, tenantID, store.LeadFilter{
		Statuses:    []model.Status{model.StatusNew},
		HasEmail:    true,
		Contactable: true,
		Limit:       limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: find eligible leads")
	}
	log.Info("pipeline: run started", zap.Int("eligible", len(leads)))

	res := &RunResult{Results: make([]LeadOutcome, 0, len(leads))}
	for i := range leads {
		if ctx.Err() != nil {
			return res, eris.Wrap(ctx.Err(), "pipeline: run cancelled")
		}
		out := o.processLead(ctx, tenantID, &leads[i], opts)
		metrics.RecordPipelineOutcome(out.Outcome)
		switch out.Outcome {
		case OutcomeSent:
			res.Sent++
		case OutcomeSkipped:
			res.Skipped++
		default:
			res.Errors++
		}
		res.Results = append(res.Results, out)
	}
	res.Processed = len(res.Results)

	log.Info("pipeline: run complete",
		zap.Int("processed", res.Processed),
		zap.Int("sent", res.Sent),
		zap.Int("skipped", res.Skipped),
		zap.Int("errors", res.Errors),
	)
	return res, nil
}

func (o *Orchestrator) processLead(ctx context.Context, tenantID string, lead *model.Lead, opts RunOptions) LeadOutcome {
	out := LeadOutcome{LeadID: lead.ID, Email: lead.Email}
	if lead.Classification != nil {
		out.Classification = *lead.Classification
	}
	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("lead_id", lead.ID))

	if lead.SiteAnalyzedAt == nil && o.classifier != nil {
		a, err := o.classifier.Persist(ctx, lead)
		if err != nil {
			log.Warn("pipeline: classify failed", zap.Error(err))
			return fail(out, err)
		}
		out.Classification = a.Classification
	}

	dup, err := o.store.HasOutboundContact(ctx, tenantID, lead.ID, lead.Email)
	if err != nil {
		return fail(out, eris.Wrap(err, "pipeline: check contact log"))
	}
	if dup {
		out.Outcome, out.Reason = OutcomeSkipped, "duplicate_email"
		return out
	}

	d, err := o.decider.Decide(ctx, tenantID, outreach.Request{
		LeadID:      lead.ID,
		MessageType: model.MessageInitial,
		UseAI:       opts.UseAI,
	})
	if err != nil {
		log.Warn("pipeline: decision failed", zap.Error(err))
		return fail(out, err)
	}
	out.TemplateID = d.TemplateID
	out.Classification = d.Classification

	switch {
	case d.EmailSent:
		out.Outcome = OutcomeSent
		note := "[Auto-Prospect] Email enviado em " + o.now().Format("02/01/2006")
		if err := o.store.UpdateLead(ctx, tenantID, lead.ID, model.LeadPatch{AppendNote: note}); err != nil {
			log.Warn("pipeline: append note", zap.Error(err))
		}
	case d.EmailError != "":
		out.Outcome, out.Reason = OutcomeError, d.EmailError
	default:
		out.Outcome, out.Reason = OutcomeSkipped, "email_not_sent"
	}
	return out
}

func fail(out LeadOutcome, err error) LeadOutcome {
	out.Outcome = OutcomeError
	out.Reason = err.Error()
	return out
}
