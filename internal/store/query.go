package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// dialect selects placeholder and array syntax for the shared query builders.
type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// argList accumulates positional arguments and renders their placeholders.
type argList struct {
	d    dialect
	vals []any
}

func (a *argList) add(v any) string {
	a.vals = append(a.vals, v)
	if a.d == dialectPostgres {
		return fmt.Sprintf("$%d", len(a.vals))
	}
	return "?"
}

// in renders "col = ANY($n)" on Postgres and "col IN (?, ...)" on SQLite.
func (a *argList) in(col string, vals []string) string {
	if a.d == dialectPostgres {
		return col + " = ANY(" + a.add(vals) + ")"
	}
	ph := make([]string, len(vals))
	for i, v := range vals {
		ph[i] = a.add(v)
	}
	return col + " IN (" + strings.Join(ph, ", ") + ")"
}

// tags encodes a tag list as TEXT[] on Postgres and a JSON array on SQLite.
func (a *argList) tags(tags []string) string {
	return a.add(tagsValue(a.d, tags))
}

func tagsValue(d dialect, tags []string) any {
	if tags == nil {
		tags = []string{}
	}
	if d == dialectPostgres {
		return tags
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

var leadColumnNames = []string{
	"id", "tenant_id", "company_name", "segment", "city", "state", "email", "phone", "whatsapp", "website",
	"classification", "site_active", "site_score", "site_indexed", "site_analyzed_at",
	"status", "score", "automation_paused", "opted_out", "opted_out_at", "contact_attempts", "last_contact_at",
	"tags", "notes", "source", "position", "created_at", "updated_at",
}

var leadColumns = strings.Join(leadColumnNames, ", ")

const contactLogColumns = `id, tenant_id, lead_id, channel, direction, message_type, recipient, subject, content,
	provider_id, sent_at, opened_at, responded_at, interest_detected, interest_keywords, created_at`

const templateColumns = `id, tenant_id, name, classification, message_type, subject, body, is_default`

const taskColumns = `id, tenant_id, lead_id, title, description, task_type, priority, status, due_at, created_at`

func statusStrings(statuses []model.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// buildFindLeads renders the tenant-scoped lead listing query.
func buildFindLeads(d dialect, tenantID string, f LeadFilter) (string, []any) {
	a := &argList{d: d}
	where := []string{"tenant_id = " + a.add(tenantID)}

	if len(f.IDs) > 0 {
		where = append(where, a.in("id", f.IDs))
	}
	if len(f.Statuses) > 0 {
		where = append(where, a.in("status", statusStrings(f.Statuses)))
	}
	if f.HasWebsite {
		where = append(where, "website IS NOT NULL AND website <> ''")
	}
	if f.NoWebsite {
		where = append(where, "(website IS NULL OR website = '')")
	}
	if f.Unanalyzed {
		where = append(where, "site_analyzed_at IS NULL")
	}
	if f.HasEmail {
		where = append(where, "email <> ''")
	}
	if f.Contactable {
		where = append(where, "NOT automation_paused AND NOT opted_out")
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		where = append(where, fmt.Sprintf("(LOWER(company_name) LIKE %s OR LOWER(email) LIKE %s OR LOWER(city) LIKE %s)",
			a.add(pattern), a.add(pattern), a.add(pattern)))
	}

	query := "SELECT " + leadColumns + " FROM leads WHERE " + strings.Join(where, " AND ") +
		" ORDER BY position, created_at"
	switch {
	case f.Limit > 0:
		query += " LIMIT " + a.add(f.Limit)
	case f.Offset > 0 && d == dialectSQLite:
		query += " LIMIT -1"
	}
	if f.Offset > 0 {
		query += " OFFSET " + a.add(f.Offset)
	}
	return query, a.vals
}

// buildUpdateLead renders a single-statement partial update. The opted-out
// invariant is enforced here: opting out always pauses automation, and a
// pause cannot be lifted while the lead stays opted out.
func buildUpdateLead(d dialect, tenantID, id string, p model.LeadPatch, now time.Time) (string, []any) {
	a := &argList{d: d}
	var set []string

	if p.Status != nil {
		set = append(set, "status = "+a.add(string(*p.Status)))
	}
	if p.Classification != nil {
		set = append(set, "classification = "+a.add(string(*p.Classification)))
	}
	if p.SiteActive != nil {
		set = append(set, "site_active = "+a.add(*p.SiteActive))
	}
	if p.SiteScore != nil {
		set = append(set, "site_score = "+a.add(*p.SiteScore))
	}
	if p.SiteIndexed != nil {
		set = append(set, "site_indexed = "+a.add(*p.SiteIndexed))
	}
	if p.SiteAnalyzedAt != nil {
		set = append(set, "site_analyzed_at = "+a.add(*p.SiteAnalyzedAt))
	}
	if p.Score != nil {
		set = append(set, "score = "+a.add(*p.Score))
	}

	switch {
	case p.OptedOut != nil && *p.OptedOut:
		set = append(set, "opted_out = "+a.add(true), "automation_paused = "+a.add(true))
	case p.OptedOut != nil:
		set = append(set, "opted_out = "+a.add(false))
		if p.AutomationPaused != nil {
			set = append(set, "automation_paused = "+a.add(*p.AutomationPaused))
		}
	case p.AutomationPaused != nil:
		set = append(set, "automation_paused = (opted_out OR "+a.add(*p.AutomationPaused)+")")
	}
	if p.OptedOutAt != nil {
		set = append(set, "opted_out_at = "+a.add(*p.OptedOutAt))
	}

	if p.LastContactAt != nil {
		set = append(set, "last_contact_at = "+a.add(*p.LastContactAt))
	}
	if p.IncrementAttempts {
		set = append(set, "contact_attempts = contact_attempts + 1")
	}
	if p.Position != nil {
		set = append(set, "position = "+a.add(*p.Position))
	}
	if p.Tags != nil {
		set = append(set, "tags = "+a.tags(p.Tags))
	}

	switch {
	case p.Notes != nil && p.AppendNote != "":
		notes := *p.Notes
		if notes != "" {
			notes += "\n"
		}
		set = append(set, "notes = "+a.add(notes+p.AppendNote))
	case p.Notes != nil:
		set = append(set, "notes = "+a.add(*p.Notes))
	case p.AppendNote != "":
		set = append(set, fmt.Sprintf("notes = CASE WHEN notes = '' THEN %s ELSE notes || %s END",
			a.add(p.AppendNote), a.add("\n"+p.AppendNote)))
	}

	set = append(set, "updated_at = "+a.add(now))

	query := "UPDATE leads SET " + strings.Join(set, ", ") +
		" WHERE tenant_id = " + a.add(tenantID) + " AND id = " + a.add(id)
	return query, a.vals
}

// leadValues returns the insert values in leadColumnNames order.
func leadValues(d dialect, l *model.Lead) []any {
	var classification *string
	if l.Classification != nil {
		c := string(*l.Classification)
		classification = &c
	}
	return []any{
		l.ID, l.TenantID, l.CompanyName, l.Segment, l.City, l.State, l.Email, l.Phone, l.WhatsApp, l.Website,
		classification, l.SiteActive, l.SiteScore, l.SiteIndexed, l.SiteAnalyzedAt,
		string(l.Status), l.Score, l.AutomationPaused, l.OptedOut, l.OptedOutAt, l.ContactAttempts, l.LastContactAt,
		tagsValue(d, l.Tags), l.Notes, string(l.Source), l.Position, l.CreatedAt, l.UpdatedAt,
	}
}

type scannable interface {
	Scan(dest ...any) error
}

// scanLead scans one leadColumns row. tags must point at a []string on
// Postgres or a string holding a JSON array on SQLite.
func scanLead(row scannable, tags any) (*model.Lead, error) {
	var l model.Lead
	var classification *string
	err := row.Scan(
		&l.ID, &l.TenantID, &l.CompanyName, &l.Segment, &l.City, &l.State, &l.Email, &l.Phone, &l.WhatsApp, &l.Website,
		&classification, &l.SiteActive, &l.SiteScore, &l.SiteIndexed, &l.SiteAnalyzedAt,
		&l.Status, &l.Score, &l.AutomationPaused, &l.OptedOut, &l.OptedOutAt, &l.ContactAttempts, &l.LastContactAt,
		tags, &l.Notes, &l.Source, &l.Position, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if classification != nil && *classification != "" {
		c := model.Classification(*classification)
		l.Classification = &c
	}
	return &l, nil
}

// prepareLeads fills identity, tenant, timestamps and defaults on leads
// about to be inserted. Positions continue after basePosition.
func prepareLeads(tenantID string, leads []model.Lead, basePosition float64, now time.Time, newID func() string) ([]model.Lead, error) {
	out := make([]model.Lead, len(leads))
	for i, l := range leads {
		if strings.TrimSpace(l.CompanyName) == "" {
			return nil, eris.Errorf("store: lead %d: company name is required", i)
		}
		if l.ID == "" {
			l.ID = newID()
		}
		l.TenantID = tenantID
		if l.Status == "" {
			l.Status = model.StatusNew
		}
		if l.Source == "" {
			l.Source = model.SourceManual
		}
		if l.OptedOut {
			l.AutomationPaused = true
		}
		if l.Position == 0 {
			l.Position = basePosition + float64(i+1)*positionStep
		}
		l.CreatedAt = now
		l.UpdatedAt = now
		out[i] = l
	}
	return out, nil
}

// positionStep spaces appended leads within a status column.
const positionStep = 1000

// addStat folds one grouped count row into stats.
func addStat(stats *model.LeadStats, status string, classification *string, unanalyzed bool, n int) {
	stats.Total += n
	stats.ByStatus[model.Status(status)] += n
	if classification != nil && *classification != "" {
		stats.ByClassification[model.Classification(*classification)] += n
	}
	if unanalyzed {
		stats.Unanalyzed += n
	}
}

func newStats() *model.LeadStats {
	return &model.LeadStats{
		ByStatus:         make(map[model.Status]int),
		ByClassification: make(map[model.Classification]int),
	}
}

const statsQuery = `SELECT status, classification,
	(site_analyzed_at IS NULL AND website IS NOT NULL AND website <> '') AS unanalyzed,
	COUNT(*)
FROM leads WHERE tenant_id = %s
GROUP BY status, classification, unanalyzed`
