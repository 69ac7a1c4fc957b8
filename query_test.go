package downblog_test

import (
	"math"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hypergopher/downblog"
)

func TestBuildQuery_Pagination(t *testing.T) {
	cases := []struct {
		name          string
		limit         string
		page          string
		expectedLimit int
		expectedSkip  int
	}{
		{name: "Defaults", expectedLimit: 100, expectedSkip: 0},
		{name: "Limit only", limit: "10", expectedLimit: 10, expectedSkip: 0},
		{name: "First page", limit: "10", page: "1", expectedLimit: 10, expectedSkip: 0},
		{name: "Third page", limit: "10", page: "3", expectedLimit: 10, expectedSkip: 20},
		{name: "Page without limit uses the default limit", page: "2", expectedLimit: 100, expectedSkip: 100},
		{name: "Non-numeric limit", limit: "ten", page: "2", expectedLimit: 100, expectedSkip: 100},
		{name: "Negative limit", limit: "-5", page: "2", expectedLimit: 100, expectedSkip: 100},
		{name: "Zero limit", limit: "0", expectedLimit: 100, expectedSkip: 0},
		{name: "Non-numeric page", limit: "10", page: "two", expectedLimit: 10, expectedSkip: 0},
		{name: "Negative page", limit: "10", page: "-1", expectedLimit: 10, expectedSkip: 0},
		{name: "Zero page", limit: "10", page: "0", expectedLimit: 10, expectedSkip: 0},
		{name: "Whitespace is trimmed", limit: " 5 ", page: " 2 ", expectedLimit: 5, expectedSkip: 5},
		{name: "Fractional limit is invalid", limit: "2.5", expectedLimit: 100, expectedSkip: 0},
		{name: "Huge page clamps", limit: "10", page: "999999999999999999999", expectedLimit: 10, expectedSkip: math.MaxInt},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			query := downblog.BuildQuery(downblog.QueryParams{Limit: tc.limit, Page: tc.page})
			assert.Equal(t, tc.expectedLimit, query.Limit)
			assert.Equal(t, tc.expectedSkip, query.Skip)
			assert.GreaterOrEqual(t, query.Skip, 0)
		})
	}
}

func TestBuildQuery_SkipIsLimitTimesPageMinusOne(t *testing.T) {
	for limit := 1; limit <= 20; limit++ {
		for page := 1; page <= 20; page++ {
			query := downblog.BuildQuery(downblog.QueryParams{
				Limit: strconv.Itoa(limit),
				Page:  strconv.Itoa(page),
			})
			assert.Equal(t, limit*(page-1), query.Skip)
			assert.Equal(t, limit, query.Limit)
		}
	}
}

func TestBuildQuery_Sort(t *testing.T) {
	cases := []struct {
		name     string
		field    string
		order    string
		expected *downblog.SortSpec
	}{
		{name: "asc", field: "title", order: "asc", expected: &downblog.SortSpec{Field: downblog.FieldTitle, Order: downblog.SortAscending}},
		{name: "ASC", field: "title", order: "ASC", expected: &downblog.SortSpec{Field: downblog.FieldTitle, Order: downblog.SortAscending}},
		{name: "desc", field: "title", order: "desc", expected: &downblog.SortSpec{Field: downblog.FieldTitle, Order: downblog.SortDescending}},
		{name: "DeSc", field: "createdAt", order: "DeSc", expected: &downblog.SortSpec{Field: downblog.FieldCreatedAt, Order: downblog.SortDescending}},
		{name: "Unknown order is ascending", field: "author", order: "sideways", expected: &downblog.SortSpec{Field: downblog.FieldAuthor, Order: downblog.SortAscending}},
		{name: "Field names are case-insensitive", field: "LASTMODIFIED", order: "desc", expected: &downblog.SortSpec{Field: downblog.FieldLastModified, Order: downblog.SortDescending}},
		{name: "Missing order", field: "title"},
		{name: "Missing field", order: "desc"},
		{name: "Whitespace order", field: "title", order: "   "},
		{name: "Whitespace field", field: "  ", order: "asc"},
		{name: "Unknown field", field: "$where", order: "asc"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			query := downblog.BuildQuery(downblog.QueryParams{SortField: tc.field, SortOrder: tc.order})
			assert.Equal(t, tc.expected, query.Sort)
			assert.Equal(t, tc.expected != nil, query.HasSort())
		})
	}
}

func TestBuildQuery_FilterAndSearch(t *testing.T) {
	cases := []struct {
		name           string
		params         downblog.QueryParams
		expectedFilter *downblog.FieldMatch
		expectedSearch string
	}{
		{
			name:           "Filter by author",
			params:         downblog.QueryParams{FilterField: "author", FilterValue: "bob"},
			expectedFilter: &downblog.FieldMatch{Field: downblog.FieldAuthor, Value: "bob"},
		},
		{
			name:   "Filter without value",
			params: downblog.QueryParams{FilterField: "author"},
		},
		{
			name:   "Filter without field",
			params: downblog.QueryParams{FilterValue: "bob"},
		},
		{
			name:   "Filter on an unknown field",
			params: downblog.QueryParams{FilterField: "password", FilterValue: "x"},
		},
		{
			name:   "Filter on createdAt is not supported",
			params: downblog.QueryParams{FilterField: "createdAt", FilterValue: "2024"},
		},
		{
			name:           "Search only",
			params:         downblog.QueryParams{Search: "foo"},
			expectedSearch: "foo",
		},
		{
			name:   "Whitespace search",
			params: downblog.QueryParams{Search: "  \t"},
		},
		{
			name:           "Search is kept literally",
			params:         downblog.QueryParams{Search: "a.*(b"},
			expectedSearch: "a.*(b",
		},
		{
			name:           "Filter and search",
			params:         downblog.QueryParams{FilterField: "Author", FilterValue: " bob ", Search: "foo"},
			expectedFilter: &downblog.FieldMatch{Field: downblog.FieldAuthor, Value: " bob "},
			expectedSearch: "foo",
		},
		{
			name:   "Whitespace filter value",
			params: downblog.QueryParams{FilterField: "author", FilterValue: " \t "},
		},
		{
			name:           "Filter value keeps surrounding spaces",
			params:         downblog.QueryParams{FilterField: "title", FilterValue: "  Padded  "},
			expectedFilter: &downblog.FieldMatch{Field: downblog.FieldTitle, Value: "  Padded  "},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			query := downblog.BuildQuery(tc.params)
			assert.Equal(t, tc.expectedFilter, query.Filter)
			assert.Equal(t, tc.expectedSearch, query.Search)
			assert.False(t, query.OmitText)
		})
	}
}

func TestQueryParamsFromValues(t *testing.T) {
	values, err := url.ParseQuery("limit=5&page=2&sortField=title&sortOrder=desc&filterField=author&filterValue=bob&searchParam=foo")
	assert.NoError(t, err)

	params := downblog.QueryParamsFromValues(values)
	assert.Equal(t, downblog.QueryParams{
		Limit:       "5",
		Page:        "2",
		SortField:   "title",
		SortOrder:   "desc",
		FilterField: "author",
		FilterValue: "bob",
		Search:      "foo",
	}, params)
}
