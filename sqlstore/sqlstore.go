package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"time"

	"github.com/hypergopher/downblog"
)

// DefaultTable is the table used when Options.Table is empty.
const DefaultTable = "posts"

// deleteBatchSize keeps each DELETE well under the placeholder limits of SQLite and Postgres.
const deleteBatchSize = 500

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store is a downblog.PostStore backed by SQLite or Postgres through database/sql.
// Timestamps are stored as unix nanoseconds so both dialects order them the same way.
type Store struct {
	db        *sql.DB
	dialect   Dialect
	tableName string
	logger    *slog.Logger
}

// Options configures a Store.
type Options struct {
	DB      *sql.DB      // DB is an open database. Required.
	Dialect Dialect      // Dialect of DB. Default is DialectSQLite.
	Table   string       // Table holding the posts. Default is DefaultTable.
	Logger  *slog.Logger // Logger is the logger used by the store.
}

// New creates a Store. Call Init before use.
func New(opts Options) (*Store, error) {
	if opts.DB == nil {
		return nil, errors.New("sqlstore: nil database")
	}

	if opts.Dialect == "" {
		opts.Dialect = DialectSQLite
	}

	if opts.Dialect != DialectSQLite && opts.Dialect != DialectPostgres {
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", opts.Dialect)
	}

	if opts.Table == "" {
		opts.Table = DefaultTable
	}

	if !tableNamePattern.MatchString(opts.Table) {
		return nil, fmt.Errorf("sqlstore: invalid table name %q", opts.Table)
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return &Store{
		db:        opts.DB,
		dialect:   opts.Dialect,
		tableName: opts.Table,
		logger:    opts.Logger,
	}, nil
}

// Init creates the posts table and its indexes if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.tableName + ` (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			text TEXT NOT NULL,
			author TEXT NOT NULL,
			slug TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			last_modified BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + s.tableName + `_created_at_idx ON ` + s.tableName + `(created_at, id)`,
		`CREATE INDEX IF NOT EXISTS ` + s.tableName + `_author_idx ON ` + s.tableName + `(author)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return downblog.NewStorageError("init", err)
		}
	}

	s.logger.Debug("sql store ready", slog.String("dialect", string(s.dialect)), slog.String("table", s.tableName))
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Clear deletes every post.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+s.tableName); err != nil {
		return downblog.NewStorageError("clear", err)
	}
	return nil
}

// Insert creates a new post. An existing id yields downblog.ErrPostExists.
func (s *Store) Insert(ctx context.Context, post *downblog.Post) error {
	stmt := &statement{dialect: s.dialect}
	stmt.write(
		`INSERT INTO `, s.tableName, ` (id, title, text, author, slug, created_at, last_modified) VALUES (`,
		stmt.bind(post.ID), ", ",
		stmt.bind(post.Title), ", ",
		stmt.bind(post.Text), ", ",
		stmt.bind(post.Author), ", ",
		stmt.bind(post.Slug), ", ",
		stmt.bind(post.CreatedAt.UnixNano()), ", ",
		stmt.bind(post.LastModified.UnixNano()),
		`) ON CONFLICT (id) DO NOTHING`,
	)

	result, err := s.db.ExecContext(ctx, stmt.String(), stmt.args...)
	if err != nil {
		return downblog.NewStorageError("insert", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return downblog.NewStorageError("insert", err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", downblog.ErrPostExists, post.ID)
	}

	return nil
}

// FindByID retrieves a post, including its text.
func (s *Store) FindByID(ctx context.Context, id string) (*downblog.Post, error) {
	stmt := &statement{dialect: s.dialect}
	stmt.write(`SELECT `, selectColumns(false), ` FROM `, s.tableName, ` WHERE id = `, stmt.bind(id))

	post, err := scanPost(s.db.QueryRowContext(ctx, stmt.String(), stmt.args...), false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, downblog.ErrPostNotFound
	}
	if err != nil {
		return nil, downblog.NewStorageError("find", err)
	}

	return post, nil
}

// List returns the posts selected by the query.
func (s *Store) List(ctx context.Context, q downblog.Query) ([]*downblog.Post, error) {
	stmt := &statement{dialect: s.dialect}
	stmt.write(`SELECT `, selectColumns(q.OmitText), ` FROM `, s.tableName)

	if err := stmt.where(q); err != nil {
		return nil, downblog.NewStorageError("list", err)
	}

	if err := stmt.orderBy(q); err != nil {
		return nil, downblog.NewStorageError("list", err)
	}

	stmt.page(q)

	rows, err := s.db.QueryContext(ctx, stmt.String(), stmt.args...)
	if err != nil {
		return nil, downblog.NewStorageError("list", err)
	}
	defer rows.Close()

	posts := make([]*downblog.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows, q.OmitText)
		if err != nil {
			return nil, downblog.NewStorageError("list", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, downblog.NewStorageError("list", err)
	}

	return posts, nil
}

// Count returns how many posts match the query's predicates.
func (s *Store) Count(ctx context.Context, q downblog.Query) (int, error) {
	stmt := &statement{dialect: s.dialect}
	stmt.write(`SELECT COUNT(*) FROM `, s.tableName)

	if err := stmt.where(q); err != nil {
		return 0, downblog.NewStorageError("count", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, stmt.String(), stmt.args...).Scan(&count); err != nil {
		return 0, downblog.NewStorageError("count", err)
	}

	return int(count), nil
}

// UpdateFields replaces the editable fields of a post. A missing id is a no-op.
func (s *Store) UpdateFields(ctx context.Context, id string, update downblog.PostUpdate) error {
	stmt := &statement{dialect: s.dialect}
	stmt.write(
		`UPDATE `, s.tableName, ` SET `,
		`title = `, stmt.bind(update.Title), `, `,
		`text = `, stmt.bind(update.Text), `, `,
		`author = `, stmt.bind(update.Author), `, `,
		`slug = `, stmt.bind(update.Slug), `, `,
		`last_modified = `, stmt.bind(update.LastModified.UnixNano()),
		` WHERE id = `, stmt.bind(id),
	)

	if _, err := s.db.ExecContext(ctx, stmt.String(), stmt.args...); err != nil {
		return downblog.NewStorageError("update", err)
	}

	return nil
}

// DeleteByIDs removes the posts with the given ids.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return downblog.NewStorageError("delete", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(ids); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(ids))

		stmt := &statement{dialect: s.dialect}
		stmt.write(`DELETE FROM `, s.tableName, ` WHERE id IN `, stmt.in(ids[start:end]))

		if _, err := tx.ExecContext(ctx, stmt.String(), stmt.args...); err != nil {
			return downblog.NewStorageError("delete", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return downblog.NewStorageError("delete", err)
	}

	return nil
}

// DistinctAuthors returns every non-empty author.
func (s *Store) DistinctAuthors(ctx context.Context) ([]string, error) {
	stmt := &statement{dialect: s.dialect}
	stmt.write(`SELECT DISTINCT author FROM `, s.tableName, ` WHERE author <> ''`)

	rows, err := s.db.QueryContext(ctx, stmt.String())
	if err != nil {
		return nil, downblog.NewStorageError("distinct authors", err)
	}
	defer rows.Close()

	var authors []string
	for rows.Next() {
		var author string
		if err := rows.Scan(&author); err != nil {
			return nil, downblog.NewStorageError("distinct authors", err)
		}
		authors = append(authors, author)
	}

	if err := rows.Err(); err != nil {
		return nil, downblog.NewStorageError("distinct authors", err)
	}

	return downblog.UniqueAuthors(authors), nil
}

func selectColumns(omitText bool) string {
	if omitText {
		return "id, title, author, slug, created_at, last_modified"
	}
	return "id, title, text, author, slug, created_at, last_modified"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner, omitText bool) (*downblog.Post, error) {
	var (
		post         downblog.Post
		createdAt    int64
		lastModified int64
	)

	dest := []any{&post.ID, &post.Title}
	if !omitText {
		dest = append(dest, &post.Text)
	}
	dest = append(dest, &post.Author, &post.Slug, &createdAt, &lastModified)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	post.CreatedAt = time.Unix(0, createdAt).UTC()
	post.LastModified = time.Unix(0, lastModified).UTC()
	return &post, nil
}
