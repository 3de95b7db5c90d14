package prospect

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/events"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/google"
)

// SiteFilter narrows search results by whether the place lists a website.
type SiteFilter string

const (
	SiteFilterAll     SiteFilter = "all"
	SiteFilterWith    SiteFilter = "with_site"
	SiteFilterWithout SiteFilter = "without_site"
)

const (
	defaultSearchLimit = 10
	maxSearchResults   = 60

	unnamedCompany = "Empresa sem nome"
	unknownCity    = "Desconhecida"
)

// SearchRequest sources leads from Google Places.
type SearchRequest struct {
	Query      string     `json:"query" validate:"required"`
	Location   string     `json:"location,omitempty"`
	Limit      int        `json:"limit,omitempty" validate:"omitempty,min=1,max=60"`
	SiteFilter SiteFilter `json:"siteFilter,omitempty" validate:"omitempty,oneof=all with_site without_site"`
}

// Search runs a Places text search, keeps the places that pass the site
// filter, drops websites and emails the tenant already has, and inserts the
// rest. Each inserted lead with a website gets an analysis event.
func (im *Importer) Search(ctx context.Context, tenantID string, req SearchRequest) (*ImportResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, eris.Wrap(ErrQueryRequired, "prospect: search")
	}
	if im.places == nil {
		return nil, eris.New("prospect: places search is not configured")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchResults)
	filter := req.SiteFilter
	if filter == "" {
		filter = SiteFilterAll
	}

	query := strings.TrimSpace(req.Query)
	if loc := strings.TrimSpace(req.Location); loc != "" {
		query += " em " + loc
	}
	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("query", query))

	var found []model.Lead
	token := ""
	for {
		if err := im.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "prospect: rate limit")
		}
		resp, err := im.places.TextSearch(ctx, google.TextSearchRequest{
			TextQuery: query,
			PageSize:  google.MaxPageSize,
			PageToken: token,
		})
		if err != nil {
			return nil, eris.Wrap(err, "prospect: places search")
		}
		for _, p := range resp.Places {
			if !filter.keep(p) {
				continue
			}
			found = append(found, placeToLead(p))
		}
		if len(found) >= limit || resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	if len(found) > limit {
		found = found[:limit]
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
			if l.HasWebsite() {
				if err := im.pub.Publish(ctx, events.NeedsAnalysis(tenantID, l.ID)); err != nil {
					log.Warn("prospect: publish analysis event", zap.String("lead_id", l.ID), zap.Error(err))
				}
			}
		}
		if err := im.pub.Publish(ctx, events.Sourced(tenantID, res.LeadIDs, req.Query, req.Location)); err != nil {
			log.Warn("prospect: publish sourced event", zap.Error(err))
		}
	}

	metrics.RecordImport(string(model.SourceGoogleMaps), res.Imported, res.Duplicates)
	log.Info("prospect: search complete",
		zap.Int("found", len(found)),
		zap.Int("imported", res.Imported),
		zap.Int("duplicates", res.Duplicates),
	)
	return res, nil
}

func (f SiteFilter) keep(p google.Place) bool {
	hasSite := p.WebsiteURI != ""
	switch f {
	case SiteFilterWith:
		return hasSite
	case SiteFilterWithout:
		return !hasSite
	default:
		return true
	}
}

// dedupeSourced drops leads whose website or email is already stored for
// the tenant or repeated within the batch.
func (im *Importer) dedupeSourced(ctx context.Context, tenantID string, leads []model.Lead) ([]model.Lead, int, error) {
	var websites, emails []string
	for _, l := range leads {
		if l.HasWebsite() {
			websites = append(websites, *l.Website)
		}
		if l.Email != "" {
			emails = append(emails, l.Email)
		}
	}

	knownSites := map[string]bool{}
	if len(websites) > 0 {
		var err error
		if knownSites, err = im.store.ExistingWebsites(ctx, tenantID, websites); err != nil {
			return nil, 0, eris.Wrap(err, "prospect: check existing websites")
		}
	}
	knownEmails := map[string]bool{}
	if len(emails) > 0 {
		var err error
		if knownEmails, err = im.store.ExistingEmails(ctx, tenantID, emails); err != nil {
			return nil, 0, eris.Wrap(err, "prospect: check existing emails")
		}
	}

	fresh := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		if l.HasWebsite() {
			if knownSites[*l.Website] {
				continue
			}
			knownSites[*l.Website] = true
		}
		if l.Email != "" {
			if knownEmails[l.Email] {
				continue
			}
			knownEmails[l.Email] = true
		}
		fresh = append(fresh, l)
	}
	return fresh, len(leads) - len(fresh), nil
}

func placeToLead(p google.Place) model.Lead {
	city, state := CityFromAddress(p.FormattedAddress)
	l := model.Lead{
		CompanyName: strings.TrimSpace(p.DisplayName.Text),
		City:        city,
		State:       state,
		Phone:       p.NationalPhoneNumber,
		WhatsApp:    NormalizePhone(p.NationalPhoneNumber),
		Status:      model.StatusNew,
		Source:      model.SourceGoogleMaps,
		Notes:       "Endereço: " + p.FormattedAddress,
	}
	if l.CompanyName == "" {
		l.CompanyName = unnamedCompany
	}
	if l.City == "" {
		l.City = unknownCity
	}
	if w := NormalizeWebsite(p.WebsiteURI); w != "" {
		l.Website = &w
	}
	return l
}

var cityStateRe = regexp.MustCompile(`^(.+?) - ([A-Z]{2})$`)

// CityFromAddress pulls city and state out of a Brazilian formatted address
// such as "R. X, 100 - Centro, Curitiba - PR, 80020-310, Brasil". A
// "City - UF" part wins; otherwise the first short part containing " - " is
// used, then the third part from the end. Addresses with fewer than three
// comma separated parts yield nothing.
func CityFromAddress(addr string) (city, state string) {
	parts := strings.Split(addr, ",")
	if len(parts) < 3 {
		return "", ""
	}
	for _, p := range parts {
		if m := cityStateRe.FindStringSubmatch(strings.TrimSpace(p)); m != nil {
			return m[1], m[2]
		}
	}
	for _, p := range parts {
		if strings.Contains(p, " - ") && len(strings.TrimSpace(p)) < 40 {
			return strings.TrimSpace(strings.SplitN(p, " - ", 2)[0]), ""
		}
	}
	if c := strings.TrimSpace(parts[len(parts)-3]); c != "" {
		return c, ""
	}
	return strings.TrimSpace(parts[len(parts)-2]), ""
}
