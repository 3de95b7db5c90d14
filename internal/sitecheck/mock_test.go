package sitecheck

import (
	"context"
	"errors"

	"github.com/sells-group/prospect-cli/internal/events"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

type fakeFetcher struct {
	page  *Page
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*Page, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.page
	p.URL = url
	return &p, nil
}

type fakeStore struct {
	leads     map[string]*model.Lead
	patches   map[string]model.LeadPatch
	failFor   map[string]bool
	lastQuery store.LeadFilter
}

func newFakeStore(leads ...model.Lead) *fakeStore {
	fs := &fakeStore{
		leads:   make(map[string]*model.Lead),
		patches: make(map[string]model.LeadPatch),
		failFor: make(map[string]bool),
	}
	for i := range leads {
		l := leads[i]
		fs.leads[l.ID] = &l
	}
	return fs
}

func (f *fakeStore) GetLead(_ context.Context, tenantID, id string) (*model.Lead, error) {
	l, ok := f.leads[id]
	if !ok || l.TenantID != tenantID {
		return nil, nil
	}
	return l, nil
}

func (f *fakeStore) FindLeads(_ context.Context, tenantID string, filter store.LeadFilter) ([]model.Lead, error) {
	f.lastQuery = filter
	var out []model.Lead
	for _, l := range f.leads {
		if l.TenantID != tenantID || !l.HasWebsite() || l.SiteAnalyzedAt != nil {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (f *fakeStore) UpdateLead(_ context.Context, _ string, id string, patch model.LeadPatch) error {
	if f.failFor[id] {
		return errors.New("connection reset")
	}
	f.patches[id] = patch
	return nil
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}
