package prospect

import (
	"context"
	"fmt"

	"github.com/sells-group/prospect-cli/internal/events"
	"github.com/sells-group/prospect-cli/internal/model"
)

const tenant = "11111111-1111-1111-1111-111111111111"

type fakeStore struct {
	emails    map[string]bool
	websites  map[string]bool
	inserted  []model.Lead
	insertErr error
	emailErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{emails: map[string]bool{}, websites: map[string]bool{}}
}

func (f *fakeStore) InsertLeads(_ context.Context, tenantID string, leads []model.Lead) ([]model.Lead, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	out := make([]model.Lead, len(leads))
	for i, l := range leads {
		l.ID = fmt.Sprintf("lead-%d", len(f.inserted)+1)
		l.TenantID = tenantID
		f.inserted = append(f.inserted, l)
		out[i] = l
	}
	return out, nil
}

func (f *fakeStore) ExistingEmails(_ context.Context, _ string, emails []string) (map[string]bool, error) {
	if f.emailErr != nil {
		return nil, f.emailErr
	}
	out := map[string]bool{}
	for _, e := range emails {
		if f.emails[e] {
			out[e] = true
		}
	}
	return out, nil
}

func (f *fakeStore) ExistingWebsites(_ context.Context, _ string, websites []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, w := range websites {
		if f.websites[w] {
			out[w] = true
		}
	}
	return out, nil
}

type recordingPublisher struct{ events []events.Event }

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) kinds() []events.Kind {
	out := make([]events.Kind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}
