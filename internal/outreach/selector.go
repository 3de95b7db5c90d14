package outreach

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/mailer"
	"github.com/sells-group/prospect-cli/internal/metrics"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

// ErrNoTemplate is returned when neither the tenant nor the default tenant
// has a usable template.
var ErrNoTemplate = eris.New("no suitable template found")

// LeadStore is the slice of the lead store the selector needs.
type LeadStore interface {
	GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error)
	FindTemplate(ctx context.Context, tenantID string, classification model.Classification, messageType model.MessageType) (*model.EmailTemplate, error)
	DefaultTemplate(ctx context.Context) (*model.EmailTemplate, error)
	RecordActivity(ctx context.Context, tenantID, leadID string, patch model.LeadPatch, log *model.ContactLog, task *model.Task) error
}

// Identity is the sender block stamped on every outbound email.
type Identity struct {
	From    string
	BCC     string
	ReplyTo string
}

// Request asks for a decision on one lead. An empty MessageType is derived
// from the lead's status.
type Request struct {
	LeadID      string            `json:"leadId" validate:"required"`
	MessageType model.MessageType `json:"messageType,omitempty" validate:"omitempty,oneof=initial follow_up_1 follow_up_2"`
	UseAI       bool              `json:"useAIPersonalization,omitempty"`
}

// Decision is the chosen message and what happened when it was sent.
type Decision struct {
	LeadID         string               `json:"lead_id"`
	TemplateID     string               `json:"template_id"`
	MessageType    model.MessageType    `json:"message_type"`
	Subject        string               `json:"subject"`
	Body           string               `json:"body"`
	ToEmail        string               `json:"to_email,omitempty"`
	NextStatus     model.Status         `json:"next_status"`
	Classification model.Classification `json:"classification"`
	AIPersonalized bool                 `json:"ai_personalized"`
	EmailSent      bool                 `json:"email_sent"`
	EmailError     string               `json:"email_error,omitempty"`
	ProviderID     string               `json:"provider_id,omitempty"`

	markup  bool // Body is HTML
	sendErr error
}

// SendErr is the delivery error behind EmailError, if any.
func (d *Decision) SendErr() error { return d.sendErr }

// Option configures a Selector.
type Option func(*Selector)

// WithSender enables sending with the given identity.
func WithSender(s mailer.Sender, id Identity) Option {
	return func(sel *Selector) {
		sel.sender = s
		sel.identity = id
	}
}

// WithPersonalizer enables AI personalization.
func WithPersonalizer(p Personalizer) Option {
	return func(sel *Selector) {
		sel.personalizer = p
	}
}

// Selector decides which message a lead gets next.
type Selector struct {
	store        LeadStore
	sender       mailer.Sender
	identity     Identity
	personalizer Personalizer
	now          func() time.Time
}

// NewSelector creates a Selector. Without WithSender decisions are computed
// but never sent.
func NewSelector(st LeadStore, opts ...Option) *Selector {
	s := &Selector{store: st, now: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CanSend reports whether a sender is configured.
func (s *Selector) CanSend() bool {
	return s.sender != nil
}

// Decide selects and fills a template for the lead and, when possible,
// sends it. A send failure is reported on the Decision, not as an error.
func (s *Selector) Decide(ctx context.Context, tenantID string, req Request) (*Decision, error) {
	if req.LeadID == "" {
		return nil, eris.New("outreach: lead id is required")
	}
	lead, err := s.store.GetLead(ctx, tenantID, req.LeadID)
	if err != nil {
		return nil, eris.Wrap(err, "outreach: load lead")
	}
	if lead == nil {
		return nil, eris.Wrapf(store.ErrNotFound, "outreach: lead %s", req.LeadID)
	}
	log := zap.L().With(zap.String("tenant_id", tenantID), zap.String("lead_id", lead.ID))

	mt := req.MessageType
	if mt == "" {
		var ok bool
		mt, ok = MessageTypeFor(lead.Status)
		if !ok {
			log.Warn("outreach: status outside sequence, falling back to initial",
				zap.String("status", string(lead.Status)))
		}
	}
	switch mt {
	case model.MessageInitial, model.MessageFollowUp1, model.MessageFollowUp2:
	default:
		return nil, eris.Errorf("outreach: unsupported message type %q", mt)
	}

	classification := model.ClassificationNoSite
	if lead.Classification != nil {
		classification = *lead.Classification
	}

	tmpl, err := s.findTemplate(ctx, tenantID, classification, mt)
	if err != nil {
		return nil, err
	}

	d := &Decision{
		LeadID:         lead.ID,
		TemplateID:     tmpl.ID,
		MessageType:    mt,
		Subject:        Fill(tmpl.Subject, lead),
		Body:           FillBody(tmpl.Body, lead),
		ToEmail:        lead.Email,
		NextStatus:     NextStatus(mt),
		Classification: classification,
		markup:         HasMarkup(tmpl.Body),
	}

	if req.UseAI && s.personalizer != nil {
		draft, err := s.personalizer.Personalize(ctx, lead, classification, Draft{Subject: d.Subject, Body: d.Body})
		if err != nil {
			log.Warn("outreach: personalization failed, using template text", zap.Error(err))
			metrics.RecordPersonalization("fallback")
		} else {
			d.Subject, d.Body = StripPlaceholders(draft.Subject), StripPlaceholders(draft.Body)
			d.markup = HasMarkup(d.Body)
			d.AIPersonalized = true
			metrics.RecordPersonalization("ok")
		}
	}

	if err := s.send(ctx, tenantID, lead, d); err != nil {
		return nil, err
	}
	log.Info("outreach: decision",
		zap.String("template_id", d.TemplateID),
		zap.String("message_type", string(mt)),
		zap.Bool("email_sent", d.EmailSent),
	)
	return d, nil
}

// findTemplate walks tenant template, default-tenant template, then the
// default-tenant generic initial template.
func (s *Selector) findTemplate(ctx context.Context, tenantID string, c model.Classification, mt model.MessageType) (*model.EmailTemplate, error) {
	t, err := s.store.FindTemplate(ctx, tenantID, c, mt)
	if err != nil {
		return nil, eris.Wrap(err, "outreach: tenant template")
	}
	if t != nil {
		return t, nil
	}
	if tenantID != model.DefaultTenantID {
		t, err = s.store.FindTemplate(ctx, model.DefaultTenantID, c, mt)
		if err != nil {
			return nil, eris.Wrap(err, "outreach: default template")
		}
		if t != nil {
			return t, nil
		}
	}
	t, err = s.store.DefaultTemplate(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "outreach: generic template")
	}
	if t == nil {
		return nil, ErrNoTemplate
	}
	return t, nil
}

// send delivers the decision and records it. Only a failure to record a
// delivered email is returned as an error.
func (s *Selector) send(ctx context.Context, tenantID string, lead *model.Lead, d *Decision) error {
	mt := string(d.MessageType)
	if s.sender == nil || lead.Email == "" || lead.OptedOut {
		metrics.RecordEmail(mt, "skipped")
		return nil
	}

	id, err := s.sender.Send(ctx, mailer.Message{
		From:    s.identity.From,
		To:      lead.Email,
		Subject: d.Subject,
		HTML:    toHTML(d.Body, d.markup),
		Text:    toText(d.Body, d.markup),
		BCC:     s.identity.BCC,
		ReplyTo: s.identity.ReplyTo,
	})
	if err != nil {
		d.EmailError = err.Error()
		d.sendErr = err
		metrics.RecordEmail(mt, "failed")
		zap.L().Warn("outreach: send failed",
			zap.String("lead_id", lead.ID), zap.Error(err))
		return nil
	}
	d.EmailSent = true
	d.ProviderID = id
	metrics.RecordEmail(mt, "sent")

	now := s.now()
	patch := model.LeadPatch{
		Status:            model.Ptr(d.NextStatus),
		LastContactAt:     &now,
		IncrementAttempts: true,
	}
	contact := &model.ContactLog{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		LeadID:      lead.ID,
		Channel:     model.ChannelEmail,
		Direction:   model.DirectionOutbound,
		MessageType: d.MessageType,
		Recipient:   lead.Email,
		Subject:     d.Subject,
		Content:     d.Body,
		ProviderID:  id,
		SentAt:      &now,
	}
	if err := s.store.RecordActivity(ctx, tenantID, lead.ID, patch, contact, nil); err != nil {
		return eris.Wrapf(err, "outreach: record send %s", id)
	}
	return nil
}

