package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/prospect-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: utcNow}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	company_name      TEXT NOT NULL CHECK (company_name <> ''),
	segment           TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	state             TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	whatsapp          TEXT NOT NULL DEFAULT '',
	website           TEXT,
	classification    TEXT,
	site_active       BOOLEAN NOT NULL DEFAULT 0,
	site_score        INTEGER NOT NULL DEFAULT 0,
	site_indexed      BOOLEAN NOT NULL DEFAULT 0,
	site_analyzed_at  DATETIME,
	status            TEXT NOT NULL DEFAULT 'new',
	score             INTEGER NOT NULL DEFAULT 0,
	automation_paused BOOLEAN NOT NULL DEFAULT 0,
	opted_out         BOOLEAN NOT NULL DEFAULT 0,
	opted_out_at      DATETIME,
	contact_attempts  INTEGER NOT NULL DEFAULT 0,
	last_contact_at   DATETIME,
	tags              TEXT NOT NULL DEFAULT '[]',
	notes             TEXT NOT NULL DEFAULT '',
	source            TEXT NOT NULL DEFAULT 'manual',
	position          REAL NOT NULL DEFAULT 0,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	CHECK (NOT opted_out OR automation_paused)
);

CREATE INDEX IF NOT EXISTS idx_leads_tenant_status_position ON leads(tenant_id, status, position);
CREATE INDEX IF NOT EXISTS idx_leads_tenant_email ON leads(tenant_id, email);
CREATE INDEX IF NOT EXISTS idx_leads_tenant_website ON leads(tenant_id, website);

CREATE TABLE IF NOT EXISTS contact_logs (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	lead_id           TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	channel           TEXT NOT NULL DEFAULT 'email',
	direction         TEXT NOT NULL,
	message_type      TEXT NOT NULL,
	recipient         TEXT NOT NULL DEFAULT '',
	subject           TEXT NOT NULL DEFAULT '',
	content           TEXT NOT NULL DEFAULT '',
	provider_id       TEXT NOT NULL DEFAULT '',
	sent_at           DATETIME,
	opened_at         DATETIME,
	responded_at      DATETIME,
	interest_detected BOOLEAN NOT NULL DEFAULT 0,
	interest_keywords TEXT NOT NULL DEFAULT '[]',
	created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contact_logs_lead ON contact_logs(tenant_id, lead_id, created_at);

CREATE TABLE IF NOT EXISTS email_templates (
	id             TEXT PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	name           TEXT NOT NULL,
	classification TEXT NOT NULL,
	message_type   TEXT NOT NULL,
	subject        TEXT NOT NULL,
	body           TEXT NOT NULL,
	is_default     BOOLEAN NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_email_templates_lookup ON email_templates(tenant_id, classification, message_type);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	lead_id     TEXT REFERENCES leads(id) ON DELETE SET NULL,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	task_type   TEXT NOT NULL DEFAULT 'follow_up',
	priority    TEXT NOT NULL DEFAULT 'medium',
	status      TEXT NOT NULL DEFAULT 'pending',
	due_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_tasks_tenant_due ON tasks(tenant_id, status, due_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindLeads(ctx context.Context, tenantID string, filter LeadFilter) ([]model.Lead, error) {
	query, args := buildFindLeads(dialectSQLite, tenantID, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		l, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE tenant_id = ? AND id = ?",
		tenantID, id,
	)
	l, err := scanSQLiteLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func scanSQLiteLead(row scannable) (*model.Lead, error) {
	var tags string
	l, err := scanLead(row, &tags)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan lead")
	}
	if err := decodeJSONList(tags, &l.Tags); err != nil {
		return nil, eris.Wrap(err, "sqlite: decode tags")
	}
	return l, nil
}

func (s *SQLiteStore) InsertLeads(ctx context.Context, tenantID string, leads []model.Lead) ([]model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin insert leads")
	}
	defer tx.Rollback() //nolint:errcheck

	var base float64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM leads WHERE tenant_id = ? AND status = ?`,
		tenantID, string(model.StatusNew),
	).Scan(&base); err != nil {
		return nil, eris.Wrap(err, "sqlite: max position")
	}

	prepared, err := prepareLeads(tenantID, leads, base, s.now(), newID)
	if err != nil {
		return nil, err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(leadColumnNames)), ", ")
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO leads ("+leadColumns+") VALUES ("+placeholders+")")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert lead")
	}
	defer stmt.Close() //nolint:errcheck

	for i := range prepared {
		if _, err := stmt.ExecContext(ctx, leadValues(dialectSQLite, &prepared[i])...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert lead %s", prepared[i].CompanyName)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit insert leads")
	}
	return prepared, nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, tenantID, id string, patch model.LeadPatch) error {
	if patch.Empty() {
		return nil
	}
	query, args := buildUpdateLead(dialectSQLite, tenantID, id, patch, s.now())
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) DeleteLeads(ctx context.Context, tenantID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	a := &argList{d: dialectSQLite}
	query := "DELETE FROM leads WHERE tenant_id = " + a.add(tenantID) + " AND " + a.in("id", ids)
	res, err := s.db.ExecContext(ctx, query, a.vals...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete leads")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) ExistingEmails(ctx context.Context, tenantID string, emails []string) (map[string]bool, error) {
	return s.existing(ctx, "email", tenantID, emails)
}

func (s *SQLiteStore) ExistingWebsites(ctx context.Context, tenantID string, websites []string) (map[string]bool, error) {
	return s.existing(ctx, "website", tenantID, websites)
}

func (s *SQLiteStore) existing(ctx context.Context, col, tenantID string, values []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(values) == 0 {
		return found, nil
	}

	a := &argList{d: dialectSQLite}
	query := fmt.Sprintf("SELECT DISTINCT %s FROM leads WHERE tenant_id = %s AND %s", col, a.add(tenantID), a.in(col, values))
	rows, err := s.db.QueryContext(ctx, query, a.vals...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: existing %s", col)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", col)
		}
		found[v] = true
	}
	return found, eris.Wrapf(rows.Err(), "sqlite: iterate %s", col)
}

func (s *SQLiteStore) LeadStats(ctx context.Context, tenantID string) (*model.LeadStats, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(statsQuery, "?"), tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead stats")
	}
	defer rows.Close() //nolint:errcheck

	stats := newStats()
	for rows.Next() {
		var (
			status         string
			classification *string
			unanalyzed     bool
			n              int
		)
		if err := rows.Scan(&status, &classification, &unanalyzed, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead stats")
		}
		addStat(stats, status, classification, unanalyzed, n)
	}
	return stats, eris.Wrap(rows.Err(), "sqlite: iterate lead stats")
}

func (s *SQLiteStore) RecordActivity(ctx context.Context, tenantID, leadID string, patch model.LeadPatch, log *model.ContactLog, task *model.Task) error {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin activity")
	}
	defer tx.Rollback() //nolint:errcheck

	if !patch.Empty() {
		query, args := buildUpdateLead(dialectSQLite, tenantID, leadID, patch, now)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update lead %s", leadID)
		}
		if err := checkRowsAffected(res, leadID); err != nil {
			return err
		}
	}

	if log != nil {
		fillLog(log, tenantID, leadID, now)
		keywords, _ := json.Marshal(nonNil(log.InterestKeywords))
		_, err := tx.ExecContext(ctx,
			`INSERT INTO contact_logs (`+contactLogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			log.ID, log.TenantID, log.LeadID, string(log.Channel), string(log.Direction), string(log.MessageType),
			log.Recipient, log.Subject, log.Content, log.ProviderID, log.SentAt, log.OpenedAt, log.RespondedAt,
			log.InterestDetected, string(keywords), log.CreatedAt,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert contact log")
		}
	}

	if task != nil {
		fillTask(task, tenantID, leadID, now)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.TenantID, task.LeadID, task.Title, task.Description, task.TaskType,
			string(task.Priority), string(task.Status), task.DueAt, task.CreatedAt,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert task")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit activity")
}

func (s *SQLiteStore) ListContactLogs(ctx context.Context, tenantID, leadID string) ([]model.ContactLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contactLogColumns+` FROM contact_logs WHERE tenant_id = ? AND lead_id = ? ORDER BY created_at`,
		tenantID, leadID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contact logs")
	}
	defer rows.Close() //nolint:errcheck

	var logs []model.ContactLog
	for rows.Next() {
		var l model.ContactLog
		var keywords string
		if err := rows.Scan(
			&l.ID, &l.TenantID, &l.LeadID, &l.Channel, &l.Direction, &l.MessageType, &l.Recipient, &l.Subject, &l.Content,
			&l.ProviderID, &l.SentAt, &l.OpenedAt, &l.RespondedAt, &l.InterestDetected, &keywords, &l.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact log")
		}
		if err := decodeJSONList(keywords, &l.InterestKeywords); err != nil {
			return nil, eris.Wrap(err, "sqlite: decode interest keywords")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: iterate contact logs")
}

func (s *SQLiteStore) HasOutboundContact(ctx context.Context, tenantID, leadID, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM contact_logs
			WHERE tenant_id = ? AND direction = 'outbound'
			AND (lead_id = ? OR (? <> '' AND recipient = ?))
		)`,
		tenantID, leadID, email, email,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: outbound contact check")
	}
	return exists, nil
}

func (s *SQLiteStore) FindTemplate(ctx context.Context, tenantID string, classification model.Classification, messageType model.MessageType) (*model.EmailTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM email_templates
		WHERE tenant_id = ? AND classification = ? AND message_type = ?
		ORDER BY is_default DESC, created_at LIMIT 1`,
		tenantID, string(classification), string(messageType),
	)
	return scanSQLiteTemplate(row)
}

func (s *SQLiteStore) DefaultTemplate(ctx context.Context) (*model.EmailTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM email_templates
		WHERE tenant_id = ? AND message_type = ? AND is_default
		ORDER BY created_at LIMIT 1`,
		model.DefaultTenantID, string(model.MessageInitial),
	)
	return scanSQLiteTemplate(row)
}

func scanSQLiteTemplate(row scannable) (*model.EmailTemplate, error) {
	var t model.EmailTemplate
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Classification, &t.MessageType, &t.Subject, &t.Body, &t.IsDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan template")
	}
	return &t, nil
}

func (s *SQLiteStore) UpsertTemplates(ctx context.Context, templates []model.EmailTemplate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert templates")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, t := range templates {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO email_templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				tenant_id = excluded.tenant_id, name = excluded.name,
				classification = excluded.classification, message_type = excluded.message_type,
				subject = excluded.subject, body = excluded.body, is_default = excluded.is_default`,
			t.ID, t.TenantID, t.Name, string(t.Classification), string(t.MessageType), t.Subject, t.Body, t.IsDefault,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert template %s", t.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit templates")
}

func (s *SQLiteStore) ListTasks(ctx context.Context, tenantID, leadID string) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE tenant_id = ?`
	args := []any{tenantID}
	if leadID != "" {
		query += ` AND lead_id = ?`
		args = append(args, leadID)
	}
	query += ` ORDER BY due_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tasks")
	}
	defer rows.Close() //nolint:errcheck

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var leadRef sql.NullString
		if err := rows.Scan(&t.ID, &t.TenantID, &leadRef, &t.Title, &t.Description, &t.TaskType,
			&t.Priority, &t.Status, &t.DueAt, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan task")
		}
		t.LeadID = leadRef.String
		tasks = append(tasks, t)
	}
	return tasks, eris.Wrap(rows.Err(), "sqlite: iterate tasks")
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: lead %s", id)
	}
	return nil
}

func decodeJSONList(raw string, out *[]string) error {
	if raw == "" || raw == "[]" {
		*out = nil
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}
