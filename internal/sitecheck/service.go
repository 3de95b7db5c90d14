package sitecheck

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/events"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// DefaultBatchLimit caps a batch run when the caller passes no limit.
const DefaultBatchLimit = 10

// LeadStore is the slice of the lead store the service needs.
type LeadStore interface {
	GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error)
	FindLeads(ctx context.Context, tenantID string, filter store.LeadFilter) ([]model.Lead, error)
	UpdateLead(ctx context.Context, tenantID, id string, patch model.LeadPatch) error
}

// Result is one persisted analysis.
type Result struct {
	LeadID string `json:"lead_id"`
	Analysis
	DecisionQueued bool `json:"decision_queued"`
}

// Failure records a lead whose analysis could not be persisted.
type Failure struct {
	LeadID string `json:"lead_id"`
	Error  string `json:"error"`
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Analyzed int       `json:"analyzed"`
	Results  []Result  `json:"results"`
	Failures []Failure `json:"failures,omitempty"`
}

// Service analyzes leads and persists the outcome.
type Service struct {
	classifier *Classifier
	store      LeadStore
	pub        events.Publisher
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewService creates a Service. ratePerSec <= 0 disables pacing; a nil
// publisher disables decision events.
func NewService(c *Classifier, s LeadStore, pub events.Publisher, ratePerSec float64) *Service {
	lim := rate.NewLimiter(rate.Inf, 1)
	if ratePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		classifier: c,
		store:      s,
		pub:        pub,
		limiter:    lim,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ClassifyLead (re-)analyzes one lead regardless of prior analysis.
func (s *Service) ClassifyLead(ctx context.Context, tenantID, leadID string) (*Result, error) {
	lead, err := s.store.GetLead(ctx, tenantID, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "sitecheck: load lead")
	}
	if lead == nil {
		return nil, eris.Wrapf(store.ErrNotFound, "sitecheck: lead %s", leadID)
	}
	return s.classify(ctx, lead, true)
}

// Persist analyzes lead and stores the outcome without publishing a decision
// event. Callers that act on the classification themselves use this.
func (s *Service) Persist(ctx context.Context, lead *model.Lead) (Analysis, error) {
	res, err := s.classify(ctx, lead, false)
	if err != nil {
		return Analysis{}, err
	}
	return res.Analysis, nil
}

// ClassifyBatch analyzes up to limit leads that have a website and were never
// analyzed. Persistence failures are collected, not returned.
func (s *Service) ClassifyBatch(ctx context.Context, tenantID string, limit int) (*BatchResult, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	leads, err := s.store.FindLeads(ctx, tenantID, store.LeadFilter{
		HasWebsite: true,
		Unanalyzed: true,
		Limit:      limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sitecheck: find unanalyzed leads")
	}

	zap.L().Info("sitecheck: batch started",
		zap.String("tenant_id", tenantID),
		zap.Int("leads", len(leads)),
	)

	out := &BatchResult{Results: make([]Result, 0, len(leads))}
	for i := range leads {
		if err := s.limiter.Wait(ctx); err != nil {
			return out, eris.Wrap(err, "sitecheck: rate limit wait")
		}
		res, err := s.classify(ctx, &leads[i], true)
		if err != nil {
			out.Failures = append(out.Failures, Failure{LeadID: leads[i].ID, Error: err.Error()})
			continue
		}
		out.Results = append(out.Results, *res)
	}
	out.Analyzed = len(out.Results)
	return out, nil
}

func (s *Service) classify(ctx context.Context, lead *model.Lead, publish bool) (*Result, error) {
	log := zap.L().With(zap.String("tenant_id", lead.TenantID), zap.String("lead_id", lead.ID))

	a := s.classifier.Analyze(ctx, lead.Website)
	metrics.RecordSiteAnalysis(string(a.Classification))

	if err := s.store.UpdateLead(ctx, lead.TenantID, lead.ID, a.Patch(s.now())); err != nil {
		return nil, eris.Wrapf(err, "sitecheck: persist analysis for %s", lead.ID)
	}
	log.Info("sitecheck: lead classified",
		zap.String("classification", string(a.Classification)),
		zap.Int("score", a.Score),
	)

	res := &Result{LeadID: lead.ID, Analysis: a}
	if publish && a.Classification != model.ClassificationSiteOK {
		e := events.NeedsDecision(lead.TenantID, lead.ID, model.MessageInitial, true)
		if err := s.pub.Publish(ctx, e); err != nil {
			log.Warn("sitecheck: publish decision event", zap.Error(err))
		} else {
			res.DecisionQueued = true
		}
	}
	return res, nil
}
