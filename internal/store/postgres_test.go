package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := NewPostgresWithPool(mock)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func leadRow(rows *pgxmock.Rows, id, company string, website *string, classification *string) *pgxmock.Rows {
	return rows.AddRow(
		id, testTenant, company, "padaria", "Campinas", "SP", "oi@acme.com", "1999", "1999", website,
		classification, true, 80, true, nil,
		"new", 0, false, false, nil, 0, nil,
		[]string{"a"}, "", "manual", 1000.0, fixedNow, fixedNow,
	)
}

func TestPostgresStore_GetLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	site := "https://acme.com"
	class := "site_ok"
	mock.ExpectQuery(`SELECT id, tenant_id, company_name .* FROM leads WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs(testTenant, "lead-1").
		WillReturnRows(leadRow(pgxmock.NewRows(leadColumnNames), "lead-1", "Acme", &site, &class))

	l, err := s.GetLead(context.Background(), testTenant, "lead-1")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "Acme", l.CompanyName)
	assert.Equal(t, model.StatusNew, l.Status)
	require.NotNil(t, l.Classification)
	assert.Equal(t, model.ClassificationSiteOK, *l.Classification)
	assert.Equal(t, []string{"a"}, l.Tags)
	assert.Nil(t, l.SiteAnalyzedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLead_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM leads WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs(testTenant, "missing").
		WillReturnError(pgx.ErrNoRows)

	l, err := s.GetLead(context.Background(), testTenant, "missing")
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows(leadColumnNames)
	leadRow(rows, "lead-1", "Acme", nil, nil)
	leadRow(rows, "lead-2", "Beta", nil, nil)
	mock.ExpectQuery(`FROM leads WHERE tenant_id = \$1 AND status = ANY\(\$2\) AND email <> '' ORDER BY position, created_at LIMIT \$3`).
		WithArgs(testTenant, []string{"new"}, 5).
		WillReturnRows(rows)

	leads, err := s.FindLeads(context.Background(), testTenant, LeadFilter{
		Statuses: []model.Status{model.StatusNew},
		HasEmail: true,
		Limit:    5,
	})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Beta", leads[1].CompanyName)
	assert.Nil(t, leads[0].Website)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindLeads_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM leads`).WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.FindLeads(context.Background(), testTenant, LeadFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: find leads")
}

func TestPostgresStore_InsertLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\), 0\) FROM leads`).
		WithArgs(testTenant, "new").
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(5000.0))
	mock.ExpectCopyFrom(pgx.Identifier{"leads"}, leadColumnNames).WillReturnResult(2)

	out, err := s.InsertLeads(context.Background(), testTenant, []model.Lead{
		{CompanyName: "Acme", Source: model.SourceCSVImport},
		{CompanyName: "Beta"},
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.InDelta(t, 6000, out[0].Position, 0.001)
	assert.InDelta(t, 7000, out[1].Position, 0.001)
	assert.Equal(t, model.SourceCSVImport, out[0].Source)
	assert.Equal(t, model.SourceManual, out[1].Source)
	assert.Equal(t, fixedNow, out[0].CreatedAt)
	assert.NotEmpty(t, out[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertLeads_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	out, err := s.InsertLeads(context.Background(), testTenant, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leads SET status = \$1, updated_at = \$2 WHERE tenant_id = \$3 AND id = \$4`).
		WithArgs("contacted", fixedNow, testTenant, "lead-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateLead(context.Background(), testTenant, "lead-1", model.LeadPatch{Status: model.Ptr(model.StatusContacted)})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateLead_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE leads SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateLead(context.Background(), testTenant, "missing", model.LeadPatch{Score: model.Ptr(3)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_DeleteLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM leads WHERE tenant_id = \$1 AND id = ANY\(\$2\)`).
		WithArgs(testTenant, []string{"a", "b"}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	n, err := s.DeleteLeads(context.Background(), testTenant, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExistingEmails(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT DISTINCT email FROM leads WHERE tenant_id = \$1 AND email = ANY\(\$2\)`).
		WithArgs(testTenant, []string{"a@a.com", "b@b.com"}).
		WillReturnRows(pgxmock.NewRows([]string{"email"}).AddRow("a@a.com"))

	found, err := s.ExistingEmails(context.Background(), testTenant, []string{"a@a.com", "b@b.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a@a.com": true}, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ExistingWebsites_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	found, err := s.ExistingWebsites(context.Background(), testTenant, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LeadStats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	weak := "weak_site"
	mock.ExpectQuery(`SELECT status, classification`).
		WithArgs(testTenant).
		WillReturnRows(pgxmock.NewRows([]string{"status", "classification", "unanalyzed", "count"}).
			AddRow("new", nil, true, 4).
			AddRow("contacted", &weak, false, 2))

	stats, err := s.LeadStats(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 4, stats.ByStatus[model.StatusNew])
	assert.Equal(t, 2, stats.ByClassification[model.ClassificationWeakSite])
	assert.Equal(t, 4, stats.Unanalyzed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordActivity(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE leads SET status = \$1`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO contact_logs`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO tasks`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	log := &model.ContactLog{Direction: model.DirectionInbound, MessageType: model.MessageResponse}
	task := &model.Task{Title: "Interesse detectado: Acme", Priority: model.PriorityUrgent}
	err := s.RecordActivity(context.Background(), testTenant, "lead-1",
		model.LeadPatch{Status: model.Ptr(model.StatusInterested)}, log, task)
	require.NoError(t, err)

	assert.NotEmpty(t, log.ID)
	assert.Equal(t, "lead-1", log.LeadID)
	assert.Equal(t, model.ChannelEmail, log.Channel)
	assert.Equal(t, model.TaskPending, task.Status)
	assert.Equal(t, fixedNow, task.DueAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordActivity_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE leads SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO contact_logs`).
		WillReturnError(fmt.Errorf("disk full"))
	mock.ExpectRollback()

	err := s.RecordActivity(context.Background(), testTenant, "lead-1",
		model.LeadPatch{Status: model.Ptr(model.StatusEngaged)},
		&model.ContactLog{Direction: model.DirectionInbound, MessageType: model.MessageResponse}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert contact log")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordActivity_LeadMissing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE leads SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := s.RecordActivity(context.Background(), testTenant, "missing",
		model.LeadPatch{Status: model.Ptr(model.StatusEngaged)}, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_HasOutboundContact(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(testTenant, "lead-1", "oi@acme.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.HasOutboundContact(context.Background(), testTenant, "lead-1", "oi@acme.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindTemplate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM email_templates`).
		WithArgs(testTenant, "no_site", "initial").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "name", "classification", "message_type", "subject", "body", "is_default"}).
			AddRow("t1", testTenant, "n", "no_site", "initial", "Oi {{company_name}}", "corpo", true))

	tmpl, err := s.FindTemplate(context.Background(), testTenant, model.ClassificationNoSite, model.MessageInitial)
	require.NoError(t, err)
	require.NotNil(t, tmpl)
	assert.Equal(t, "t1", tmpl.ID)
	assert.Equal(t, model.MessageInitial, tmpl.MessageType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DefaultTemplate_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM email_templates`).
		WithArgs(model.DefaultTenantID, "initial").
		WillReturnError(pgx.ErrNoRows)

	tmpl, err := s.DefaultTemplate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, tmpl)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTemplates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO .*email_templates.* ON CONFLICT \("id"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	defaults, err := DefaultTemplates()
	require.NoError(t, err)
	require.NoError(t, s.UpsertTemplates(context.Background(), defaults[:2]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListTasks(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	leadID := "lead-1"
	mock.ExpectQuery(`FROM tasks WHERE tenant_id = \$1 AND lead_id = \$2 ORDER BY due_at`).
		WithArgs(testTenant, leadID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "lead_id", "title", "description", "task_type", "priority", "status", "due_at", "created_at"}).
			AddRow("task-1", testTenant, &leadID, "Interesse", "", "follow_up", "urgent", "pending", fixedNow, fixedNow).
			AddRow("task-2", testTenant, nil, "Orphan", "", "follow_up", "low", "done", fixedNow, fixedNow))

	tasks, err := s.ListTasks(context.Background(), testTenant, leadID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, leadID, tasks[0].LeadID)
	assert.Equal(t, model.PriorityUrgent, tasks[0].Priority)
	assert.Empty(t, tasks[1].LeadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate_RequiresDSN(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	err := s.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection string")
}
