package db

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsert_EmptyRows(t *testing.T) {
	n, err := Upsert(context.TODO(), nil, UpsertConfig{
		Table:        "email_templates",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBuildUpsert_Validation(t *testing.T) {
	_, _, err := buildUpsert(UpsertConfig{Table: "t", ConflictKeys: []string{"id"}}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")

	_, _, err = buildUpsert(UpsertConfig{Table: "t", Columns: []string{"id"}}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")

	_, _, err = buildUpsert(UpsertConfig{Table: "t", Columns: []string{"id", "name"}, ConflictKeys: []string{"id"}}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0 has 1 values, want 2")
}

func TestBuildUpsert_SQL(t *testing.T) {
	query, args, err := buildUpsert(UpsertConfig{
		Table:        "email_templates",
		Columns:      []string{"id", "name", "body"},
		ConflictKeys: []string{"id"},
	}, [][]any{{"a", "n1", "b1"}, {"b", "n2", "b2"}})
	require.NoError(t, err)

	assert.Equal(t,
		`INSERT INTO "email_templates" ("id", "name", "body") VALUES ($1, $2, $3), ($4, $5, $6) `+
			`ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name", "body" = EXCLUDED."body"`,
		query)
	assert.Equal(t, []any{"a", "n1", "b1", "b", "n2", "b2"}, args)
}

func TestBuildUpsert_KeysOnly(t *testing.T) {
	query, _, err := buildUpsert(UpsertConfig{
		Table:        "t",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}, [][]any{{1}})
	require.NoError(t, err)
	assert.Contains(t, query, "ON CONFLICT (\"id\") DO NOTHING")
}

func TestUpsert_Exec(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "email_templates"`)).
		WithArgs("a", "n1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n, err := Upsert(context.Background(), mock, UpsertConfig{
		Table:        "email_templates",
		Columns:      []string{"id", "name"},
		ConflictKeys: []string{"id"},
	}, [][]any{{"a", "n1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_ExecError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO").WillReturnError(fmt.Errorf("boom"))

	_, err = Upsert(context.Background(), mock, UpsertConfig{
		Table:        "email_templates",
		Columns:      []string{"id"},
		ConflictKeys: []string{"id"},
	}, [][]any{{"a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert into email_templates")
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"leads"`, sanitizeTable("leads"))
	assert.Equal(t, `"public"."leads"`, sanitizeTable("public.leads"))
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
