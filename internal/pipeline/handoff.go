package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/salesforce"
)

const handoffLeadSource = "Auto-Prospect"

// HandoffResult reports where an interested lead ended up.
type HandoffResult struct {
	LeadID       string `json:"lead_id"`
	SalesforceID string `json:"salesforce_id,omitempty"`
	Created      bool   `json:"created"`
	Skipped      string `json:"skipped,omitempty"`
}

// Handoff moves interested leads to a human owner in Salesforce.
type Handoff struct {
	store LeadStore
	sf    salesforce.Client
}

// NewHandoff creates a Handoff. A nil Salesforce client only logs.
func NewHandoff(st LeadStore, sf salesforce.Client) *Handoff {
	return &Handoff{store: st, sf: sf}
}

// Run hands one lead over. An existing Salesforce lead with the same email
// is reused and gets the local notes as its description; otherwise a new one
// is created. The local lead moves to
// human_handoff with the Salesforce id in its notes.
func (h *Handoff) Run(ctx context.Context, tenantID, leadID string) (*HandoffResult, error) {
	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("lead_id", leadID))
	res := &HandoffResult{LeadID: leadID}

	if h.sf == nil {
		log.Info("pipeline: salesforce not configured, handoff skipped")
		res.Skipped = "salesforce_disabled"
		return res, nil
	}

	lead, err := h.store.GetLead(ctx, tenantID, leadID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load lead for handoff")
	}
	if lead == nil {
		return nil, eris.Wrapf(store.ErrNotFound, "pipeline: lead %s", leadID)
	}
	if lead.Status == model.StatusHumanHandoff {
		res.Skipped = "already_handed_off"
		return res, nil
	}

	var sfID string
	if lead.Email != "" {
		existing, err := salesforce.FindLeadByEmail(ctx, h.sf, lead.Email)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: handoff lookup")
		}
		if existing != nil {
			sfID = existing.ID
			if lead.Notes != "" && existing.Description != lead.Notes {
				if err := salesforce.UpdateLead(ctx, h.sf, sfID, map[string]any{"Description": lead.Notes}); err != nil {
					return nil, eris.Wrap(err, "pipeline: handoff update")
				}
			}
		}
	}
	if sfID == "" {
		sfID, err = salesforce.CreateLead(ctx, h.sf, salesforceFields(lead))
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: handoff create")
		}
		res.Created = true
	}
	res.SalesforceID = sfID

	err = h.store.UpdateLead(ctx, tenantID, leadID, model.LeadPatch{
		Status:     model.Ptr(model.StatusHumanHandoff),
		AppendNote: "Salesforce lead: " + sfID,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: mark handed off")
	}

	log.Info("pipeline: lead handed off",
		zap.String("salesforce_id", sfID),
		zap.Bool("created", res.Created),
	)
	return res, nil
}

func salesforceFields(l *model.Lead) map[string]any {
	fields := map[string]any{
		"LastName":   l.CompanyName,
		"Company":    l.CompanyName,
		"LeadSource": handoffLeadSource,
	}
	set := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	set("Email", l.Email)
	set("Phone", l.Phone)
	set("City", l.City)
	set("Description", l.Notes)
	if l.HasWebsite() {
		fields["Website"] = *l.Website
	}
	return fields
}
