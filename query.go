package downblog

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// DefaultLimit is the page size used when no valid limit is supplied.
const DefaultLimit = 100

// SortOrder is the direction of a sort instruction.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

func (so SortOrder) String() string {
	return string(so)
}

// IsDescending returns true for SortDescending.
func (so SortOrder) IsDescending() bool {
	return so == SortDescending
}

// sortableFields maps lower-cased names to the canonical field names a query may sort by.
var sortableFields = map[string]string{
	"id":           FieldID,
	"title":        FieldTitle,
	"text":         FieldText,
	"author":       FieldAuthor,
	"slug":         FieldSlug,
	"createdat":    FieldCreatedAt,
	"lastmodified": FieldLastModified,
}

// filterableFields maps lower-cased names to the canonical field names a query may filter on.
var filterableFields = map[string]string{
	"id":     FieldID,
	"title":  FieldTitle,
	"text":   FieldText,
	"author": FieldAuthor,
	"slug":   FieldSlug,
}

// QueryParams holds the raw, untrusted listing parameters, as received from a caller.
type QueryParams struct {
	Limit       string // The number of posts per page. Default is DefaultLimit.
	Page        string // The 1-based page number. Default is the first page.
	SortField   string // The field to sort by. Ignored unless SortOrder is also set.
	SortOrder   string // "asc" or "desc" (case-insensitive). Anything else sorts ascending.
	FilterField string // The field to match exactly. Ignored unless FilterValue is also set.
	FilterValue string // The value FilterField must equal.
	Search      string // A case-sensitive prefix the post text must start with.
}

// QueryParamsFromValues reads listing parameters from URL query values.
func QueryParamsFromValues(values url.Values) QueryParams {
	return QueryParams{
		Limit:       values.Get("limit"),
		Page:        values.Get("page"),
		SortField:   values.Get("sortField"),
		SortOrder:   values.Get("sortOrder"),
		FilterField: values.Get("filterField"),
		FilterValue: values.Get("filterValue"),
		Search:      values.Get("searchParam"),
	}
}

// SortSpec is a single-key sort instruction.
type SortSpec struct {
	Field string
	Order SortOrder
}

// FieldMatch is an exact-match predicate: Field == Value.
type FieldMatch struct {
	Field string
	Value string
}

// Query is a normalized, storage-agnostic description of a listing request.
// Stores apply it as filter, then sort, then skip, then limit.
type Query struct {
	Limit    int         // Maximum number of posts. Zero means no limit.
	Skip     int         // Number of posts to skip after sorting.
	Sort     *SortSpec   // Nil means natural (creation) order.
	Filter   *FieldMatch // Nil means no exact-match predicate.
	Search   string      // Case-sensitive prefix of the text field. Empty means no search.
	OmitText bool        // Exclude the text field from results.
}

// HasSort returns true if the query carries a sort instruction
func (q Query) HasSort() bool {
	return q.Sort != nil
}

// HasFilter returns true if the query carries an exact-match predicate
func (q Query) HasFilter() bool {
	return q.Filter != nil
}

// HasSearch returns true if the query carries a text prefix predicate
func (q Query) HasSearch() bool {
	return q.Search != ""
}

// BuildQuery turns untrusted listing parameters into a Query. Invalid input
// never errors; it falls back to the defaults.
func BuildQuery(params QueryParams) Query {
	query := Query{
		Limit: DefaultLimit,
	}

	if limit, ok := parsePositiveInt(params.Limit); ok && limit > 0 {
		query.Limit = limit
	}

	if page, ok := parsePositiveInt(params.Page); ok && page > 1 {
		query.Skip = multiplyClamped(query.Limit, page-1)
	}

	if field, ok := canonicalField(sortableFields, params.SortField); ok {
		if order := strings.TrimSpace(params.SortOrder); order != "" {
			query.Sort = &SortSpec{Field: field, Order: parseSortOrder(order)}
		}
	}

	if field, ok := canonicalField(filterableFields, params.FilterField); ok {
		if strings.TrimSpace(params.FilterValue) != "" {
			query.Filter = &FieldMatch{Field: field, Value: params.FilterValue}
		}
	}

	if strings.TrimSpace(params.Search) != "" {
		query.Search = params.Search
	}

	return query
}

func parseSortOrder(token string) SortOrder {
	if strings.ToLower(token) == SortDescending.String() {
		return SortDescending
	}
	return SortAscending
}

func canonicalField(allowed map[string]string, name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", false
	}
	field, ok := allowed[name]
	return field, ok
}

// parsePositiveInt parses a non-negative base-10 integer. Blank, non-numeric
// and negative input is reported as absent.
func parsePositiveInt(value string) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange && !strings.HasPrefix(value, "-") {
			return math.MaxInt, true
		}
		return 0, false
	}

	if n < 0 {
		return 0, false
	}

	return n, true
}

func multiplyClamped(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}
