package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/db"
	"github.com/sells-group/prospect-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	dsn     string
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, dsn: connString, closeFn: pool.Close, now: utcNow}, nil
}

// NewPostgresWithPool wraps an existing pool. Migrate is unavailable
// without a connection string.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: utcNow}
}

func utcNow() time.Time { return time.Now().UTC() }

// Migrate applies the embedded schema migrations.
func (s *PostgresStore) Migrate(_ context.Context) error {
	if s.dsn == "" {
		return eris.New("postgres: migrate requires a connection string")
	}
	return MigratePostgres(s.dsn)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindLeads(ctx context.Context, tenantID string, filter LeadFilter) ([]model.Lead, error) {
	query, args := buildFindLeads(dialectPostgres, tenantID, filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPostgresLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) GetLead(ctx context.Context, tenantID, id string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+leadColumns+" FROM leads WHERE tenant_id = $1 AND id = $2",
		tenantID, id,
	)
	l, err := scanPostgresLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return l, nil
}

func scanPostgresLead(row scannable) (*model.Lead, error) {
	var tags []string
	l, err := scanLead(row, &tags)
	if err != nil {
		return nil, err
	}
	l.Tags = tags
	return l, nil
}

func (s *PostgresStore) InsertLeads(ctx context.Context, tenantID string, leads []model.Lead) ([]model.Lead, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	var base float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM leads WHERE tenant_id = $1 AND status = $2`,
		tenantID, string(model.StatusNew),
	).Scan(&base)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: max position")
	}

	prepared, err := prepareLeads(tenantID, leads, base, s.now(), newID)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, len(prepared))
	for i := range prepared {
		rows[i] = leadValues(dialectPostgres, &prepared[i])
	}
	if _, err := db.CopyFrom(ctx, s.pool, "leads", leadColumnNames, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: insert leads")
	}
	return prepared, nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, tenantID, id string, patch model.LeadPatch) error {
	if patch.Empty() {
		return nil
	}
	query, args := buildUpdateLead(dialectPostgres, tenantID, id, patch, s.now())
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: lead %s", id)
	}
	return nil
}

func (s *PostgresStore) DeleteLeads(ctx context.Context, tenantID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM leads WHERE tenant_id = $1 AND id = ANY($2)`,
		tenantID, ids,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete leads")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ExistingEmails(ctx context.Context, tenantID string, emails []string) (map[string]bool, error) {
	return s.existing(ctx, "email", tenantID, emails)
}

func (s *PostgresStore) ExistingWebsites(ctx context.Context, tenantID string, websites []string) (map[string]bool, error) {
	return s.existing(ctx, "website", tenantID, websites)
}

func (s *PostgresStore) existing(ctx context.Context, col, tenantID string, values []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(values) == 0 {
		return found, nil
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT DISTINCT %s FROM leads WHERE tenant_id = $1 AND %s = ANY($2)`, col, col),
		tenantID, values,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: existing %s", col)
	}
	defer rows.Close()

	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", col)
		}
		found[v] = true
	}
	return found, eris.Wrapf(rows.Err(), "postgres: iterate %s", col)
}

func (s *PostgresStore) LeadStats(ctx context.Context, tenantID string) (*model.LeadStats, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(statsQuery, "$1"), tenantID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead stats")
	}
	defer rows.Close()

	stats := newStats()
	for rows.Next() {
		var (
			status         string
			classification *string
			unanalyzed     bool
			n              int
		)
		if err := rows.Scan(&status, &classification, &unanalyzed, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead stats")
		}
		addStat(stats, status, classification, unanalyzed, n)
	}
	return stats, eris.Wrap(rows.Err(), "postgres: iterate lead stats")
}

func (s *PostgresStore) RecordActivity(ctx context.Context, tenantID, leadID string, patch model.LeadPatch, log *model.ContactLog, task *model.Task) error {
	now := s.now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin activity")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if !patch.Empty() {
		query, args := buildUpdateLead(dialectPostgres, tenantID, leadID, patch, now)
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return eris.Wrapf(err, "postgres: update lead %s", leadID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Wrapf(ErrNotFound, "postgres: lead %s", leadID)
		}
	}

	if log != nil {
		fillLog(log, tenantID, leadID, now)
		_, err := tx.Exec(ctx,
			`INSERT INTO contact_logs (`+contactLogColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			log.ID, log.TenantID, log.LeadID, string(log.Channel), string(log.Direction), string(log.MessageType),
			log.Recipient, log.Subject, log.Content, log.ProviderID, log.SentAt, log.OpenedAt, log.RespondedAt,
			log.InterestDetected, nonNil(log.InterestKeywords), log.CreatedAt,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert contact log")
		}
	}

	if task != nil {
		fillTask(task, tenantID, leadID, now)
		_, err := tx.Exec(ctx,
			`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			task.ID, task.TenantID, task.LeadID, task.Title, task.Description, task.TaskType,
			string(task.Priority), string(task.Status), task.DueAt, task.CreatedAt,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert task")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit activity")
}

func (s *PostgresStore) ListContactLogs(ctx context.Context, tenantID, leadID string) ([]model.ContactLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+contactLogColumns+` FROM contact_logs WHERE tenant_id = $1 AND lead_id = $2 ORDER BY created_at`,
		tenantID, leadID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contact logs")
	}
	defer rows.Close()

	var logs []model.ContactLog
	for rows.Next() {
		var l model.ContactLog
		if err := rows.Scan(
			&l.ID, &l.TenantID, &l.LeadID, &l.Channel, &l.Direction, &l.MessageType, &l.Recipient, &l.Subject, &l.Content,
			&l.ProviderID, &l.SentAt, &l.OpenedAt, &l.RespondedAt, &l.InterestDetected, &l.InterestKeywords, &l.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: iterate contact logs")
}

func (s *PostgresStore) HasOutboundContact(ctx context.Context, tenantID, leadID, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM contact_logs
			WHERE tenant_id = $1 AND direction = 'outbound'
			AND (lead_id = $2 OR ($3 <> '' AND recipient = $3))
		)`,
		tenantID, leadID, email,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrap(err, "postgres: outbound contact check")
	}
	return exists, nil
}

func (s *PostgresStore) FindTemplate(ctx context.Context, tenantID string, classification model.Classification, messageType model.MessageType) (*model.EmailTemplate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM email_templates
		WHERE tenant_id = $1 AND classification = $2 AND message_type = $3
		ORDER BY is_default DESC, created_at LIMIT 1`,
		tenantID, string(classification), string(messageType),
	)
	return scanPostgresTemplate(row)
}

func (s *PostgresStore) DefaultTemplate(ctx context.Context) (*model.EmailTemplate, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM email_templates
		WHERE tenant_id = $1 AND message_type = $2 AND is_default
		ORDER BY created_at LIMIT 1`,
		model.DefaultTenantID, string(model.MessageInitial),
	)
	return scanPostgresTemplate(row)
}

func scanPostgresTemplate(row scannable) (*model.EmailTemplate, error) {
	var t model.EmailTemplate
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Classification, &t.MessageType, &t.Subject, &t.Body, &t.IsDefault)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan template")
	}
	return &t, nil
}

func (s *PostgresStore) UpsertTemplates(ctx context.Context, templates []model.EmailTemplate) error {
	rows := make([][]any, len(templates))
	for i, t := range templates {
		rows[i] = []any{
			t.ID, t.TenantID, t.Name, string(t.Classification), string(t.MessageType), t.Subject, t.Body, t.IsDefault,
		}
	}
	_, err := db.Upsert(ctx, s.pool, db.UpsertConfig{
		Table:        "email_templates",
		Columns:      []string{"id", "tenant_id", "name", "classification", "message_type", "subject", "body", "is_default"},
		ConflictKeys: []string{"id"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert templates")
}

func (s *PostgresStore) ListTasks(ctx context.Context, tenantID, leadID string) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE tenant_id = $1`
	args := []any{tenantID}
	if leadID != "" {
		query += ` AND lead_id = $2`
		args = append(args, leadID)
	}
	query += ` ORDER BY due_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list tasks")
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var leadRef *string
		if err := rows.Scan(&t.ID, &t.TenantID, &leadRef, &t.Title, &t.Description, &t.TaskType,
			&t.Priority, &t.Status, &t.DueAt, &t.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan task")
		}
		if leadRef != nil {
			t.LeadID = *leadRef
		}
		tasks = append(tasks, t)
	}
	return tasks, eris.Wrap(rows.Err(), "postgres: iterate tasks")
}

func newID() string { return uuid.New().String() }

func fillLog(log *model.ContactLog, tenantID, leadID string, now time.Time) {
	if log.ID == "" {
		log.ID = newID()
	}
	log.TenantID = tenantID
	log.LeadID = leadID
	if log.Channel == "" {
		log.Channel = model.ChannelEmail
	}
	log.CreatedAt = now
}

func fillTask(task *model.Task, tenantID, leadID string, now time.Time) {
	if task.ID == "" {
		task.ID = newID()
	}
	task.TenantID = tenantID
	task.LeadID = leadID
	if task.Status == "" {
		task.Status = model.TaskPending
	}
	if task.DueAt.IsZero() {
		task.DueAt = now
	}
	task.CreatedAt = now
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
