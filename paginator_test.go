package downblog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hypergopher/downblog"
)

func TestNewPaginator(t *testing.T) {
	cases := []struct {
		name     string
		query    downblog.Query
		total    int
		count    int
		expected downblog.Paginator
	}{
		{
			name:  "First of three pages",
			query: downblog.Query{Limit: 10},
			total: 25,
			count: 10,
			expected: downblog.Paginator{
				TotalPages: 3, CurrentPage: 1, NextPage: 2, PrevPage: 1, PageSize: 10,
				HasNext: true, HasPrev: false, HasPosts: true, TotalPosts: 25,
			},
		},
		{
			name:  "Last page",
			query: downblog.Query{Limit: 10, Skip: 20},
			total: 25,
			count: 5,
			expected: downblog.Paginator{
				TotalPages: 3, CurrentPage: 3, NextPage: 3, PrevPage: 2, PageSize: 10,
				HasNext: false, HasPrev: true, HasPosts: true, TotalPosts: 25,
			},
		},
		{
			name:  "Empty result",
			query: downblog.Query{Limit: 100},
			total: 0,
			count: 0,
			expected: downblog.Paginator{
				TotalPages: 0, CurrentPage: 1, NextPage: 0, PrevPage: 1, PageSize: 100,
				HasNext: false, HasPrev: false, HasPosts: false, TotalPosts: 0,
			},
		},
		{
			name:  "Unlimited query uses the default page size",
			query: downblog.Query{},
			total: 150,
			count: 150,
			expected: downblog.Paginator{
				TotalPages: 2, CurrentPage: 1, NextPage: 2, PrevPage: 1, PageSize: 100,
				HasNext: true, HasPrev: false, HasPosts: true, TotalPosts: 150,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, downblog.NewPaginator(tc.query, tc.total, tc.count))
		})
	}
}
