package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/prospect-cli/internal/mailer"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/sitecheck"
	"github.com/sells-group/prospect-cli/internal/store"
)

const tenant = "11111111-1111-1111-1111-111111111111"

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) FindLeads(ctx context.Context, tenantID string, filter store.LeadFilter) ([]model.Lead, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *mockStore) GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Lead), args.Error(1)
}

func (m *mockStore) UpdateLead(ctx context.Context, tenantID, id string, patch model.LeadPatch) error {
	args := m.Called(ctx, tenantID, id, patch)
	return args.Error(0)
}

func (m *mockStore) HasOutboundContact(ctx context.Context, tenantID, leadID, email string) (bool, error) {
	args := m.Called(ctx, tenantID, leadID, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) FindTemplate(ctx context.Context, tenantID string, c model.Classification, mt model.MessageType) (*model.EmailTemplate, error) {
	args := m.Called(ctx, tenantID, c, mt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmailTemplate), args.Error(1)
}

func (m *mockStore) DefaultTemplate(ctx context.Context) (*model.EmailTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EmailTemplate), args.Error(1)
}

func (m *mockStore) RecordActivity(ctx context.Context, tenantID, leadID string, patch model.LeadPatch, log *model.ContactLog, task *model.Task) error {
	args := m.Called(ctx, tenantID, leadID, patch, log, task)
	return args.Error(0)
}

// --- Classifier Mock ---

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) ClassifyLead(ctx context.Context, tenantID, leadID string) (*sitecheck.Result, error) {
	args := m.Called(ctx, tenantID, leadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sitecheck.Result), args.Error(1)
}

func (m *mockClassifier) Persist(ctx context.Context, lead *model.Lead) (sitecheck.Analysis, error) {
	args := m.Called(ctx, lead)
	return args.Get(0).(sitecheck.Analysis), args.Error(1)
}

// --- Decider Mock ---

type mockDecider struct {
	mock.Mock
}

func (m *mockDecider) Decide(ctx context.Context, tenantID string, req outreach.Request) (*outreach.Decision, error) {
	args := m.Called(ctx, tenantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outreach.Decision), args.Error(1)
}

// --- Salesforce Mock ---

type mockSFClient struct {
	mock.Mock
}

func (m *mockSFClient) Query(ctx context.Context, soql string, out any) error {
	args := m.Called(ctx, soql, out)
	return args.Error(0)
}

func (m *mockSFClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	args := m.Called(ctx, sObjectName, record)
	return args.String(0), args.Error(1)
}

func (m *mockSFClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	args := m.Called(ctx, sObjectName, id, fields)
	return args.Error(0)
}

// --- Notifier Mock ---

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, payload any) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// --- Mailer stub ---

type failingSender struct {
	err error
}

func (s failingSender) Send(context.Context, mailer.Message) (string, error) {
	return "", s.err
}
