package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hypergopher/downblog"
)

// Dialect is the SQL flavor spoken by the database behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// columns maps post fields to their column names. It doubles as the allowlist
// for anything interpolated into ORDER BY or WHERE.
var columns = map[string]string{
	downblog.FieldID:           "id",
	downblog.FieldTitle:        "title",
	downblog.FieldText:         "text",
	downblog.FieldAuthor:       "author",
	downblog.FieldSlug:         "slug",
	downblog.FieldCreatedAt:    "created_at",
	downblog.FieldLastModified: "last_modified",
}

var textColumns = map[string]bool{
	"id":     true,
	"title":  true,
	"text":   true,
	"author": true,
	"slug":   true,
}

// statement accumulates query arguments and renders placeholders for a dialect.
type statement struct {
	dialect Dialect
	sql     strings.Builder
	args    []any
}

func (s *statement) write(parts ...string) {
	for _, part := range parts {
		s.sql.WriteString(part)
	}
}

// bind records an argument and returns its placeholder.
func (s *statement) bind(value any) string {
	s.args = append(s.args, value)
	if s.dialect == DialectPostgres {
		return "$" + strconv.Itoa(len(s.args))
	}
	return "?"
}

// where renders the predicates of a query.
func (s *statement) where(q downblog.Query) error {
	conditions := make([]string, 0, 2)

	if q.HasFilter() {
		column, ok := columns[q.Filter.Field]
		if !ok {
			return fmt.Errorf("unsupported filter field %q", q.Filter.Field)
		}
		conditions = append(conditions, column+" = "+s.bind(q.Filter.Value))
	}

	if q.HasSearch() {
		conditions = append(conditions, s.prefixMatch("text", q.Search))
	}

	if len(conditions) > 0 {
		s.write(" WHERE ", strings.Join(conditions, " AND "))
	}

	return nil
}

// prefixMatch compares the leading characters of a column with a literal value.
// No LIKE or GLOB is involved, so wildcard characters in the value match only themselves.
func (s *statement) prefixMatch(column, value string) string {
	if s.dialect == DialectPostgres {
		return "starts_with(" + column + ", " + s.bind(value) + ")"
	}
	return "substr(" + column + ", 1, length(" + s.bind(value) + ")) = " + s.bind(value)
}

// orderBy renders the sort of a query. Ties are always broken by id.
func (s *statement) orderBy(q downblog.Query) error {
	column := "created_at"
	direction := "ASC"

	if q.HasSort() {
		var ok bool
		column, ok = columns[q.Sort.Field]
		if !ok {
			return fmt.Errorf("unsupported sort field %q", q.Sort.Field)
		}
		if q.Sort.Order.IsDescending() {
			direction = "DESC"
		}
	}

	s.write(" ORDER BY ", s.collate(column), " ", direction, ", ", s.collate("id"), " ASC")
	return nil
}

// collate forces byte-order comparison of text columns on Postgres, whose
// default collation depends on the server locale.
func (s *statement) collate(column string) string {
	if s.dialect == DialectPostgres && textColumns[column] {
		return column + ` COLLATE "C"`
	}
	return column
}

// page renders LIMIT and OFFSET. A zero limit means no limit.
func (s *statement) page(q downblog.Query) {
	switch s.dialect {
	case DialectPostgres:
		if q.Limit > 0 {
			s.write(" LIMIT ", s.bind(int64(q.Limit)))
		}
		if q.Skip > 0 {
			s.write(" OFFSET ", s.bind(int64(q.Skip)))
		}
	default:
		if q.Limit > 0 {
			s.write(" LIMIT ", s.bind(int64(q.Limit)))
		} else if q.Skip > 0 {
			s.write(" LIMIT -1")
		}
		if q.Skip > 0 {
			s.write(" OFFSET ", s.bind(int64(q.Skip)))
		}
	}
}

// in renders a parenthesized list of placeholders for the values.
func (s *statement) in(values []string) string {
	placeholders := make([]string, 0, len(values))
	for _, value := range values {
		placeholders = append(placeholders, s.bind(value))
	}
	return "(" + strings.Join(placeholders, ", ") + ")"
}

func (s *statement) String() string {
	return s.sql.String()
}
