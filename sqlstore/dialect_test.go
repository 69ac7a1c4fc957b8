package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/downblog"
)

func render(t *testing.T, dialect Dialect, q downblog.Query) (string, []any) {
	t.Helper()

	stmt := &statement{dialect: dialect}
	stmt.write("SELECT id FROM posts")
	require.NoError(t, stmt.where(q))
	require.NoError(t, stmt.orderBy(q))
	stmt.page(q)

	return stmt.String(), stmt.args
}

func TestStatement_SQLite(t *testing.T) {
	cases := []struct {
		name         string
		query        downblog.Query
		expectedSQL  string
		expectedArgs []any
	}{
		{
			name:        "Natural order",
			query:       downblog.Query{},
			expectedSQL: "SELECT id FROM posts ORDER BY created_at ASC, id ASC",
		},
		{
			name: "Everything",
			query: downblog.Query{
				Limit:  10,
				Skip:   20,
				Sort:   &downblog.SortSpec{Field: downblog.FieldTitle, Order: downblog.SortDescending},
				Filter: &downblog.FieldMatch{Field: downblog.FieldAuthor, Value: "bob"},
				Search: "foo",
			},
			expectedSQL:  "SELECT id FROM posts WHERE author = ? AND substr(text, 1, length(?)) = ? ORDER BY title DESC, id ASC LIMIT ? OFFSET ?",
			expectedArgs: []any{"bob", "foo", "foo", int64(10), int64(20)},
		},
		{
			name:         "Skip without limit",
			query:        downblog.Query{Skip: 5},
			expectedSQL:  "SELECT id FROM posts ORDER BY created_at ASC, id ASC LIMIT -1 OFFSET ?",
			expectedArgs: []any{int64(5)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sql, args := render(t, DialectSQLite, tc.query)
			assert.Equal(t, tc.expectedSQL, sql)
			assert.Equal(t, tc.expectedArgs, args)
		})
	}
}

func TestStatement_Postgres(t *testing.T) {
	cases := []struct {
		name         string
		query        downblog.Query
		expectedSQL  string
		expectedArgs []any
	}{
		{
			name:        "Natural order",
			query:       downblog.Query{},
			expectedSQL: `SELECT id FROM posts ORDER BY created_at ASC, id COLLATE "C" ASC`,
		},
		{
			name: "Everything",
			query: downblog.Query{
				Limit:  10,
				Skip:   20,
				Sort:   &downblog.SortSpec{Field: downblog.FieldAuthor, Order: downblog.SortAscending},
				Filter: &downblog.FieldMatch{Field: downblog.FieldSlug, Value: "hello"},
				Search: "50%_off",
			},
			expectedSQL:  `SELECT id FROM posts WHERE slug = $1 AND starts_with(text, $2) ORDER BY author COLLATE "C" ASC, id COLLATE "C" ASC LIMIT $3 OFFSET $4`,
			expectedArgs: []any{"hello", "50%_off", int64(10), int64(20)},
		},
		{
			name:         "Sort by lastModified",
			query:        downblog.Query{Limit: 3, Sort: &downblog.SortSpec{Field: downblog.FieldLastModified, Order: downblog.SortDescending}},
			expectedSQL:  `SELECT id FROM posts ORDER BY last_modified DESC, id COLLATE "C" ASC LIMIT $1`,
			expectedArgs: []any{int64(3)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sql, args := render(t, DialectPostgres, tc.query)
			assert.Equal(t, tc.expectedSQL, sql)
			assert.Equal(t, tc.expectedArgs, args)
		})
	}
}

func TestStatement_RejectsUnknownFields(t *testing.T) {
	stmt := &statement{dialect: DialectSQLite}
	assert.Error(t, stmt.where(downblog.Query{Filter: &downblog.FieldMatch{Field: "1=1; --", Value: "x"}}))
	assert.Error(t, stmt.orderBy(downblog.Query{Sort: &downblog.SortSpec{Field: "random()", Order: downblog.SortAscending}}))
}

func TestStatement_In(t *testing.T) {
	stmt := &statement{dialect: DialectPostgres}
	assert.Equal(t, "($1, $2, $3)", stmt.in([]string{"a", "b", "c"}))
	assert.Equal(t, []any{"a", "b", "c"}, stmt.args)
}
