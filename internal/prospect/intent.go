package prospect

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/events"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/serpapi"
)

const (
	defaultIntentLimit = 10
	maxIntentResults   = 100
	maxIntentNameRunes = 100

	socialNetworksFilter = "(site:linkedin.com/posts OR site:instagram.com OR site:facebook.com)"

	unnamedSocialLead = "Lead social"
	noDescription     = "Sem descrição"
)

var socialHosts = []string{"linkedin.com", "instagram.com", "facebook.com"}

// IntentRequest sources leads from public social posts that show buying
// intent, e.g. "preciso de um site para minha loja".
type IntentRequest struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// SearchIntent runs a web search restricted to LinkedIn posts, Instagram and
// Facebook, and inserts one lead per new result link. The link is stored as
// the lead's website so repeats dedupe like any other sourced lead; no site
// analysis is queued because a social profile says nothing about the
// company's own site.
func (im *Importer) SearchIntent(ctx context.Context, tenantID string, req IntentRequest) (*ImportResult, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, eris.Wrap(ErrQueryRequired, "prospect: search intent")
	}
	if im.social == nil {
		return nil, eris.New("prospect: social search is not configured")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultIntentLimit
	}
	limit = min(limit, maxIntentResults)
	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("query", query))

	if err := im.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "prospect: rate limit")
	}
	resp, err := im.social.Search(ctx, serpapi.SearchRequest{
		Query: query + " " + socialNetworksFilter,
		Num:   limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "prospect: social search")
	}

	found := make([]model.Lead, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		if !isSocialLink(r.Link) {
			continue
		}
		found = append(found, resultToLead(r))
		if len(found) == limit {
			break
		}
	}

	fresh, dups, err := im.dedupeSourced(ctx, tenantID, found)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Duplicates: dups}
	if len(fresh) > 0 {
		inserted, err := im.store.InsertLeads(ctx, tenantID, fresh)
		if err != nil {
			return nil, eris.Wrap(err, "prospect: insert leads")
		}
		res.Imported = len(inserted)
		for _, l := range inserted {
			res.LeadIDs = append(res.LeadIDs, l.ID)
		}
		if err := im.pub.Publish(ctx, events.Sourced(tenantID, res.LeadIDs, query, "")); err != nil {
			log.Warn("prospect: publish sourced event", zap.Error(err))
		}
	}

	metrics.RecordImport(string(model.SourceSocialSearch), res.Imported, res.Duplicates)
	log.Info("prospect: intent search complete",
		zap.Int("results", len(resp.OrganicResults)),
		zap.Int("imported", res.Imported),
		zap.Int("duplicates", res.Duplicates),
	)
	return res, nil
}

func isSocialLink(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range socialHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func resultToLead(r serpapi.OrganicResult) model.Lead {
	l := model.Lead{
		CompanyName: truncateRunes(strings.TrimSpace(r.Title), maxIntentNameRunes),
		City:        unknownCity,
		Status:      model.StatusNew,
		Source:      model.SourceSocialSearch,
		Notes:       strings.TrimSpace(r.Snippet),
	}
	if l.CompanyName == "" {
		l.CompanyName = unnamedSocialLead
	}
	if l.Notes == "" {
		l.Notes = noDescription
	}
	if w := NormalizeWebsite(r.Link); w != "" {
		l.Website = &w
	}
	return l
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
