// Package store persists leads, contact logs, email templates, and tasks.
// Every query and mutation is scoped to a single tenant.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/prospect-cli/internal/model"
)

// ErrNotFound is returned when a mutation targets a lead that does not
// exist for the tenant.
var ErrNotFound = errors.New("store: not found")

// LeadFilter specifies criteria for listing leads. Zero values match everything.
type LeadFilter struct {
	IDs      []string       `json:"ids,omitempty"`
	Statuses []model.Status `json:"statuses,omitempty"`
	// HasWebsite keeps leads with a non-empty website.
	HasWebsite bool `json:"has_website,omitempty"`
	// NoWebsite keeps leads without a website.
	NoWebsite bool `json:"no_website,omitempty"`
	// Unanalyzed keeps leads whose site has never been analyzed.
	Unanalyzed bool `json:"unanalyzed,omitempty"`
	HasEmail   bool `json:"has_email,omitempty"`
	// Contactable drops paused and opted-out leads.
	Contactable bool   `json:"contactable,omitempty"`
	Search      string `json:"search,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the prospecting pipeline.
type Store interface {
	// Leads
	FindLeads(ctx context.Context, tenantID string, filter LeadFilter) ([]model.Lead, error)
	GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error)
	InsertLeads(ctx context.Context, tenantID string, leads []model.Lead) ([]model.Lead, error)
	UpdateLead(ctx context.Context, tenantID, id string, patch model.LeadPatch) error
	DeleteLeads(ctx context.Context, tenantID string, ids []string) (int64, error)
	ExistingEmails(ctx context.Context, tenantID string, emails []string) (map[string]bool, error)
	ExistingWebsites(ctx context.Context, tenantID string, websites []string) (map[string]bool, error)
	LeadStats(ctx context.Context, tenantID string) (*model.LeadStats, error)

	// RecordActivity applies patch to the lead and appends the optional
	// contact log and task in a single transaction.
	RecordActivity(ctx context.Context, tenantID, leadID string, patch model.LeadPatch, log *model.ContactLog, task *model.Task) error

	// Contact logs
	ListContactLogs(ctx context.Context, tenantID, leadID string) ([]model.ContactLog, error)
	HasOutboundContact(ctx context.Context, tenantID, leadID, email string) (bool, error)

	// Templates
	FindTemplate(ctx context.Context, tenantID string, classification model.Classification, messageType model.MessageType) (*model.EmailTemplate, error)
	DefaultTemplate(ctx context.Context) (*model.EmailTemplate, error)
	UpsertTemplates(ctx context.Context, templates []model.EmailTemplate) error

	// Tasks
	ListTasks(ctx context.Context, tenantID, leadID string) ([]model.Task, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
