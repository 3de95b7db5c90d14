package api

import (
	"context"

	"github.com/sells-group/prospect-cli/internal/board"
	"github.com/sells-group/prospect-cli/internal/interest"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/outreach"
	"github.com/sells-group/prospect-cli/internal/pipeline"
	"github.com/sells-group/prospect-cli/internal/prospect"
	"github.com/sells-group/prospect-cli/internal/sitecheck"
	"github.com/sells-group/prospect-cli/internal/store"
)

type fakeImporter struct {
	gotTenant string
	gotRows   []model.PartialLead
	gotSource model.Source
	gotSearch prospect.SearchRequest
	gotIntent prospect.IntentRequest
	res       *prospect.ImportResult
	err       error
}

func (f *fakeImporter) Import(_ context.Context, tenantID string, rows []model.PartialLead, source model.Source) (*prospect.ImportResult, error) {
	f.gotTenant, f.gotRows, f.gotSource = tenantID, rows, source
	return f.res, f.err
}

func (f *fakeImporter) Search(_ context.Context, tenantID string, req prospect.SearchRequest) (*prospect.ImportResult, error) {
	f.gotTenant, f.gotSearch = tenantID, req
	return f.res, f.err
}

func (f *fakeImporter) SearchIntent(_ context.Context, tenantID string, req prospect.IntentRequest) (*prospect.ImportResult, error) {
	f.gotTenant, f.gotIntent = tenantID, req
	return f.res, f.err
}

type fakeClassifier struct {
	gotLead  string
	gotLimit int
	res      *sitecheck.Result
	batch    *sitecheck.BatchResult
	err      error
}

func (f *fakeClassifier) ClassifyLead(_ context.Context, _ string, leadID string) (*sitecheck.Result, error) {
	f.gotLead = leadID
	return f.res, f.err
}

func (f *fakeClassifier) ClassifyBatch(_ context.Context, _ string, limit int) (*sitecheck.BatchResult, error) {
	f.gotLimit = limit
	return f.batch, f.err
}

type fakeReplies struct {
	gotChannel model.Channel
	res        *interest.Outcome
	err        error
}

func (f *fakeReplies) Process(_ context.Context, _, _, _ string, channel model.Channel) (*interest.Outcome, error) {
	f.gotChannel = channel
	return f.res, f.err
}

type fakeDecider struct {
	got outreach.Request
	res *outreach.Decision
	err error
}

func (f *fakeDecider) Decide(_ context.Context, _ string, req outreach.Request) (*outreach.Decision, error) {
	f.got = req
	return f.res, f.err
}

type fakeRunner struct {
	got pipeline.RunOptions
	res *pipeline.RunResult
	err error
}

func (f *fakeRunner) Run(_ context.Context, _ string, opts pipeline.RunOptions) (*pipeline.RunResult, error) {
	f.got = opts
	return f.res, f.err
}

type fakeMover struct {
	gotLead   string
	gotStatus model.Status
	gotIndex  int
	state     board.State
	err       error
}

func (f *fakeMover) Move(_ context.Context, _ string, leadID string, toStatus model.Status, index int) (board.State, error) {
	f.gotLead, f.gotStatus, f.gotIndex = leadID, toStatus, index
	return f.state, f.err
}

type fakeLeads struct {
	gotFilter store.LeadFilter
	gotIDs    []string
	leads     []model.Lead
	stats     *model.LeadStats
	deleted   int64
	err       error
}

func (f *fakeLeads) FindLeads(_ context.Context, _ string, filter store.LeadFilter) ([]model.Lead, error) {
	f.gotFilter = filter
	return f.leads, f.err
}

func (f *fakeLeads) DeleteLeads(_ context.Context, _ string, ids []string) (int64, error) {
	f.gotIDs = ids
	return f.deleted, f.err
}

func (f *fakeLeads) LeadStats(context.Context, string) (*model.LeadStats, error) {
	return f.stats, f.err
}
