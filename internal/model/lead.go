package model

import (
	"time"
)

// DefaultTenantID owns the global default email templates.
const DefaultTenantID = "00000000-0000-0000-0000-000000000000"

// Status is a lead's stage in the outreach sequence.
type Status string

const (
	StatusNew          Status = "new"
	StatusContacted    Status = "contacted"
	StatusFollowUp1    Status = "follow_up_1"
	StatusFollowUp2    Status = "follow_up_2"
	StatusEngaged      Status = "engaged"
	StatusInterested   Status = "interested"
	StatusHumanHandoff Status = "human_handoff"
	StatusLost         Status = "lost"
)

// Statuses lists every pipeline status in board order.
var Statuses = []Status{
	StatusNew,
	StatusContacted,
	StatusFollowUp1,
	StatusFollowUp2,
	StatusEngaged,
	StatusInterested,
	StatusHumanHandoff,
	StatusLost,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Classification is the site-quality category of a lead's website.
type Classification string

const (
	ClassificationNoSite         Classification = "no_site"
	ClassificationWeakSite       Classification = "weak_site"
	ClassificationSiteWithoutSEO Classification = "site_without_seo"
	ClassificationSiteOK         Classification = "site_ok"
	ClassificationPending        Classification = "pending"
)

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationNoSite, ClassificationWeakSite, ClassificationSiteWithoutSEO,
		ClassificationSiteOK, ClassificationPending:
		return true
	}
	return false
}

// Source records how a lead entered the pipeline.
type Source string

const (
	SourceManual       Source = "manual"
	SourceCSVImport    Source = "csv_import"
	SourceGoogleMaps   Source = "google_maps"
	SourceSocialSearch Source = "social_search"
)

// Lead is one prospective customer owned by a single tenant.
type Lead struct {
	ID          string  `json:"id"`
	TenantID    string  `json:"tenant_id"`
	CompanyName string  `json:"company_name"`
	Segment     string  `json:"segment,omitempty"`
	City        string  `json:"city,omitempty"`
	State       string  `json:"state,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	WhatsApp    string  `json:"whatsapp,omitempty"`
	Website     *string `json:"website,omitempty"`

	Classification *Classification `json:"classification,omitempty"`
	SiteActive     bool            `json:"site_active"`
	SiteScore      int             `json:"site_score"`
	SiteIndexed    bool            `json:"site_indexed"`
	SiteAnalyzedAt *time.Time      `json:"site_analyzed_at,omitempty"`

	Status           Status     `json:"status"`
	Score            int        `json:"score"`
	AutomationPaused bool       `json:"automation_paused"`
	OptedOut         bool       `json:"opted_out"`
	OptedOutAt       *time.Time `json:"opted_out_at,omitempty"`
	ContactAttempts  int        `json:"contact_attempts"`
	LastContactAt    *time.Time `json:"last_contact_at,omitempty"`

	Tags     []string `json:"tags,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Source   Source   `json:"source"`
	Position float64  `json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasWebsite reports whether the lead carries a non-empty website.
func (l *Lead) HasWebsite() bool {
	return l.Website != nil && *l.Website != ""
}

// Contactable reports whether automated outbound contact is allowed.
func (l *Lead) Contactable() bool {
	return l.Email != "" && !l.OptedOut && !l.AutomationPaused
}

// PartialLead is the importer's input shape, shared by CSV, spreadsheet,
// manual entry, and search sourcing.
type PartialLead struct {
	CompanyName string   `json:"company_name"`
	Segment     string   `json:"segment,omitempty"`
	City        string   `json:"city,omitempty"`
	State       string   `json:"state,omitempty"`
	Email       string   `json:"email,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	WhatsApp    string   `json:"whatsapp,omitempty"`
	Website     string   `json:"website,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// LeadPatch is a partial lead update. Nil fields are left untouched.
type LeadPatch struct {
	Status         *Status
	Classification *Classification
	SiteActive     *bool
	SiteScore      *int
	SiteIndexed    *bool
	SiteAnalyzedAt *time.Time

	Score            *int
	AutomationPaused *bool
	OptedOut         *bool
	OptedOutAt       *time.Time
	LastContactAt    *time.Time
	Position         *float64
	Tags             []string
	Notes            *string

	// IncrementAttempts bumps contact_attempts by one in the same statement.
	IncrementAttempts bool
	// AppendNote is appended to the existing notes on a new line.
	AppendNote string
}

// Empty reports whether the patch changes nothing.
func (p LeadPatch) Empty() bool {
	return p.Status == nil && p.Classification == nil && p.SiteActive == nil &&
		p.SiteScore == nil && p.SiteIndexed == nil && p.SiteAnalyzedAt == nil &&
		p.Score == nil && p.AutomationPaused == nil && p.OptedOut == nil &&
		p.OptedOutAt == nil && p.LastContactAt == nil && p.Position == nil &&
		p.Tags == nil && p.Notes == nil && !p.IncrementAttempts && p.AppendNote == ""
}

// LeadStats counts a tenant's leads by status and classification.
type LeadStats struct {
	Total            int                    `json:"total"`
	ByStatus         map[Status]int         `json:"by_status"`
	ByClassification map[Classification]int `json:"by_classification"`
	Unanalyzed       int                    `json:"unanalyzed"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
