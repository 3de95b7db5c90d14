package prospect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/events"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/google"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

// ErrNoValidLeads is returned when every row of an import failed validation.
var ErrNoValidLeads = errors.New("no valid leads found")

// ErrQueryRequired is returned when a search has a blank query.
var ErrQueryRequired = errors.New("query is required")

// RowErrors carries the per-row validation failures of a rejected import.
type RowErrors struct {
	Rows []string
}

func (e *RowErrors) Error() string {
	if len(e.Rows) == 0 {
		return ErrNoValidLeads.Error()
	}
	return ErrNoValidLeads.Error() + ": " + strings.Join(e.Rows, "; ")
}

func (e *RowErrors) Unwrap() error { return ErrNoValidLeads }

// LeadStore is the slice of the lead store the importer needs.
type LeadStore interface {
	InsertLeads(ctx context.Context, tenantID string, leads []model.Lead) ([]model.Lead, error)
	ExistingEmails(ctx context.Context, tenantID string, emails []string) (map[string]bool, error)
	ExistingWebsites(ctx context.Context, tenantID string, websites []string) (map[string]bool, error)
}

// ImportResult summarizes an import or search.
type ImportResult struct {
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Errors     []string `json:"errors,omitempty"`
	LeadIDs    []string `json:"lead_ids,omitempty"`
}

// Importer validates, dedupes, and inserts leads.
type Importer struct {
	store   LeadStore
	pub     events.Publisher
	places  google.Client
	social  serpapi.Client
	limiter *rate.Limiter
}

// ImporterOption configures optional sourcing backends.
type ImporterOption func(*Importer)

// WithSocialSearch enables SearchIntent through a SerpApi client.
func WithSocialSearch(c serpapi.Client) ImporterOption {
	return func(im *Importer) {
		im.social = c
	}
}

// NewImporter creates an Importer. places may be nil when search sourcing
// is not configured; ratePerSec <= 0 leaves outbound search calls unpaced.
func NewImporter(st LeadStore, pub events.Publisher, places google.Client, ratePerSec float64, opts ...ImporterOption) *Importer {
	if pub == nil {
		pub = events.Nop{}
	}
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	im := &Importer{store: st, pub: pub, places: places, limiter: rate.NewLimiter(limit, 1)}
	for _, o := range opts {
		o(im)
	}
	return im
}

// Import validates rows and inserts the ones whose email is not already
// known for the tenant. Dedup is check-then-insert; concurrent imports of
// the same email can both pass the check.
func (im *Importer) Import(ctx context.Context, tenantID string, rows []model.PartialLead, source model.Source) (*ImportResult, error) {
	if source == "" {
		source = model.SourceCSVImport
	}
	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("source", string(source)))

	var valid []model.Lead
	var rowErrs []string
	for i, r := range rows {
		if strings.TrimSpace(r.CompanyName) == "" {
			rowErrs = append(rowErrs, fmt.Sprintf("row %d: missing company name", i+1))
			continue
		}
		valid = append(valid, toLead(r, source))
	}
	if len(valid) == 0 {
		return nil, &RowErrors{Rows: rowErrs}
	}

	emails := make([]string, 0, len(valid))
	for _, l := range valid {
		if l.Email != "" {
			emails = append(emails, l.Email)
		}
	}
	existing := map[string]bool{}
	if len(emails) > 0 {
		var err error
		existing, err = im.store.ExistingEmails(ctx, tenantID, emails)
		if err != nil {
			return nil, eris.Wrap(err, "prospect: check existing emails")
		}
	}

	fresh := make([]model.Lead, 0, len(valid))
	seen := make(map[string]bool, len(valid))
	for _, l := range valid {
		if l.Email != "" {
			if existing[l.Email] || seen[l.Email] {
				continue
			}
			seen[l.Email] = true
		}
		fresh = append(fresh, l)
	}

	res := &ImportResult{Duplicates: len(valid) - len(fresh), Errors: rowErrs}
	if len(fresh) > 0 {
		inserted, err := im.store.InsertLeads(ctx, tenantID, fresh)
		if err != nil {
			return nil, eris.Wrap(err, "prospect: insert leads")
		}
		res.Imported = len(inserted)
		for _, l := range inserted {
			res.LeadIDs = append(res.LeadIDs, l.ID)
		}
	}

	metrics.RecordImport(string(source), res.Imported, res.Duplicates)
	log.Info("prospect: import complete",
		zap.Int("imported", res.Imported),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("row_errors", len(rowErrs)),
	)
	return res, nil
}

func toLead(r model.PartialLead, source model.Source) model.Lead {
	l := model.Lead{
		CompanyName: strings.TrimSpace(r.CompanyName),
		Segment:     strings.TrimSpace(r.Segment),
		City:        strings.TrimSpace(r.City),
		State:       strings.TrimSpace(r.State),
		Email:       NormalizeEmail(r.Email),
		Phone:       NormalizePhone(r.Phone),
		Notes:       strings.TrimSpace(r.Notes),
		Tags:        r.Tags,
		Status:      model.StatusNew,
		Source:      source,
	}
	wa := r.WhatsApp
	if strings.TrimSpace(wa) == "" {
		wa = r.Phone
	}
	l.WhatsApp = NormalizePhone(wa)
	if w := NormalizeWebsite(r.Website); w != "" {
		l.Website = &w
	}
	return l
}
