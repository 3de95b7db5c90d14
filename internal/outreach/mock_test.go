package outreach

import (
	"context"
	"time"

	"github.com/sells-group/prospect-cli/internal/mailer"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

const tenant = "11111111-1111-1111-1111-111111111111"

var fixedNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type templateKey struct {
	tenant         string
	classification model.Classification
	messageType    model.MessageType
}

type activity struct {
	leadID string
	patch  model.LeadPatch
	log    *model.ContactLog
}

type fakeStore struct {
	leads     map[string]*model.Lead
	templates map[templateKey]*model.EmailTemplate
	generic   *model.EmailTemplate
	recorded  []activity
	recordErr error
	lookups   []templateKey
}

func newFakeStore(leads ...*model.Lead) *fakeStore {
	fs := &fakeStore{leads: map[string]*model.Lead{}, templates: map[templateKey]*model.EmailTemplate{}}
	for _, l := range leads {
		fs.leads[l.ID] = l
	}
	return fs
}

func (f *fakeStore) addTemplate(t *model.EmailTemplate) {
	f.templates[templateKey{t.TenantID, t.Classification, t.MessageType}] = t
}

func (f *fakeStore) GetLead(_ context.Context, tenantID, id string) (*model.Lead, error) {
	l, ok := f.leads[id]
	if !ok || l.TenantID != tenantID {
		return nil, nil
	}
	return l, nil
}

func (f *fakeStore) FindTemplate(_ context.Context, tenantID string, c model.Classification, mt model.MessageType) (*model.EmailTemplate, error) {
	k := templateKey{tenantID, c, mt}
	f.lookups = append(f.lookups, k)
	return f.templates[k], nil
}

func (f *fakeStore) DefaultTemplate(context.Context) (*model.EmailTemplate, error) {
	return f.generic, nil
}

func (f *fakeStore) RecordActivity(_ context.Context, _, leadID string, patch model.LeadPatch, log *model.ContactLog, _ *model.Task) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, activity{leadID: leadID, patch: patch, log: log})
	return nil
}

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m mailer.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, m)
	return "email_1", nil
}

type fakePersonalizer struct {
	out   Draft
	err   error
	calls int
}

func (f *fakePersonalizer) Personalize(_ context.Context, _ *model.Lead, _ model.Classification, d Draft) (Draft, error) {
	f.calls++
	if f.err != nil {
		return d, f.err
	}
	return f.out, nil
}

type fakeAnthropic struct {
	req  anthropic.MessageRequest
	text string
	err  error
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.text}},
		Usage:   anthropic.TokenUsage{InputTokens: 10, OutputTokens: 10},
	}, nil
}
