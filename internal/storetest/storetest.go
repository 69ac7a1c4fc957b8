// Package storetest holds the behavior every downblog.PostStore implementation
// must share. Store packages run it from their own tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/downblog"
)

// Factory returns a fresh, initialized, empty store. It should register its own cleanup.
type Factory func(t *testing.T) downblog.PostStore

var baseTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Fixture returns a post with the given id, fields and creation offset in minutes.
func Fixture(id, title, text, author string, minutes int) *downblog.Post {
	created := baseTime.Add(time.Duration(minutes) * time.Minute)
	return &downblog.Post{
		ID:           id,
		Title:        title,
		Text:         text,
		Author:       author,
		Slug:         downblog.Slugify(title),
		CreatedAt:    created,
		LastModified: created,
	}
}

// Fixtures is the shared data set. Natural order is p1..p5.
func Fixtures() []*downblog.Post {
	return []*downblog.Post{
		Fixture("p1", "Charlie", "foo bar", "alice", 0),
		Fixture("p2", "Alpha", "xfoo", "bob", 1),
		Fixture("p3", "Bravo", "foobar baz", "alice", 2),
		Fixture("p4", "Delta", "Foo upper", "carol", 3),
		Fixture("p5", "Echo", "a.*b regex", "bob", 4),
	}
}

// Seed inserts the fixtures into the store.
func Seed(t *testing.T, store downblog.PostStore) {
	t.Helper()
	for _, post := range Fixtures() {
		require.NoError(t, store.Insert(context.Background(), post))
	}
}

func ids(posts []*downblog.Post) []string {
	result := make([]string, 0, len(posts))
	for _, post := range posts {
		result = append(result, post.ID)
	}
	return result
}

// Run exercises a PostStore implementation.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("InsertAndFind", func(t *testing.T) {
		store := newStore(t)
		post := Fixture("a1", "Hello", "hello world", "bob", 0)
		require.NoError(t, store.Insert(ctx, post))

		found, err := store.FindByID(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, "Hello", found.Title)
		assert.Equal(t, "hello world", found.Text)
		assert.Equal(t, "bob", found.Author)
		assert.Equal(t, "hello", found.Slug)
		assert.True(t, post.CreatedAt.Equal(found.CreatedAt))
		assert.True(t, post.LastModified.Equal(found.LastModified))
	})

	t.Run("InsertDuplicate", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, Fixture("a1", "Hello", "hello", "bob", 0)))
		err := store.Insert(ctx, Fixture("a1", "Other", "other", "carol", 1))
		assert.ErrorIs(t, err, downblog.ErrPostExists)
	})

	t.Run("FindMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, downblog.ErrPostNotFound)
	})

	t.Run("List", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)

		cases := []struct {
			name     string
			query    downblog.Query
			expected []string
		}{
			{
				name:     "Natural order",
				query:    downblog.Query{},
				expected: []string{"p1", "p2", "p3", "p4", "p5"},
			},
			{
				name:     "Sort by title ascending",
				query:    downblog.Query{Sort: &downblog.SortSpec{Field: downblog.FieldTitle, Order: downblog.SortAscending}},
				expected: []string{"p2", "p3", "p1", "p4", "p5"},
			},
			{
				name:     "Sort by createdAt descending",
				query:    downblog.Query{Sort: &downblog.SortSpec{Field: downblog.FieldCreatedAt, Order: downblog.SortDescending}},
				expected: []string{"p5", "p4", "p3", "p2", "p1"},
			},
			{
				name:     "Sort by author descending ties break on id",
				query:    downblog.Query{Sort: &downblog.SortSpec{Field: downblog.FieldAuthor, Order: downblog.SortDescending}},
				expected: []string{"p4", "p2", "p5", "p1", "p3"},
			},
			{
				name:     "Limit",
				query:    downblog.Query{Limit: 2},
				expected: []string{"p1", "p2"},
			},
			{
				name:     "Skip and limit apply after sort",
				query:    downblog.Query{Limit: 2, Skip: 2, Sort: &downblog.SortSpec{Field: downblog.FieldTitle, Order: downblog.SortAscending}},
				expected: []string{"p1", "p4"},
			},
			{
				name:     "Skip past the end",
				query:    downblog.Query{Limit: 10, Skip: 10},
				expected: []string{},
			},
			{
				name:     "Filter by author",
				query:    downblog.Query{Filter: &downblog.FieldMatch{Field: downblog.FieldAuthor, Value: "alice"}},
				expected: []string{"p1", "p3"},
			},
			{
				name:     "Filter by id",
				query:    downblog.Query{Filter: &downblog.FieldMatch{Field: downblog.FieldID, Value: "p4"}},
				expected: []string{"p4"},
			},
			{
				name:     "Search is a case-sensitive prefix",
				query:    downblog.Query{Search: "foo"},
				expected: []string{"p1", "p3"},
			},
			{
				name:     "Search treats pattern characters literally",
				query:    downblog.Query{Search: "a.*b"},
				expected: []string{"p5"},
			},
			{
				name:     "Search pattern characters do not match as a pattern",
				query:    downblog.Query{Search: ".*"},
				expected: []string{},
			},
			{
				name: "Filter and search combine",
				query: downblog.Query{
					Filter: &downblog.FieldMatch{Field: downblog.FieldAuthor, Value: "alice"},
					Search: "foob",
				},
				expected: []string{"p3"},
			},
			{
				name: "Filter on text and search combine",
				query: downblog.Query{
					Filter: &downblog.FieldMatch{Field: downblog.FieldText, Value: "xfoo"},
					Search: "foo",
				},
				expected: []string{},
			},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				posts, err := store.List(ctx, tc.query)
				require.NoError(t, err)
				assert.Equal(t, tc.expected, ids(posts))

				count, err := store.Count(ctx, downblog.Query{Filter: tc.query.Filter, Search: tc.query.Search})
				require.NoError(t, err)
				if tc.query.Limit == 0 && tc.query.Skip == 0 {
					assert.Equal(t, len(tc.expected), count)
				}
			})
		}
	})

	t.Run("ListOmitText", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)

		posts, err := store.List(ctx, downblog.Query{OmitText: true})
		require.NoError(t, err)
		require.Len(t, posts, 5)
		for _, post := range posts {
			assert.Empty(t, post.Text)
			assert.NotEmpty(t, post.Title)
		}

		found, err := store.FindByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "foo bar", found.Text)
	})

	t.Run("Count", func(t *testing.T) {
		store := newStore(t)
		count, err := store.Count(ctx, downblog.Query{})
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		Seed(t, store)
		count, err = store.Count(ctx, downblog.Query{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("UpdateFields", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)

		modified := baseTime.Add(time.Hour)
		err := store.UpdateFields(ctx, "p2", downblog.PostUpdate{
			Title:        "Alpha Two",
			Text:         "new text",
			Author:       "dave",
			Slug:         "alpha-two",
			LastModified: modified,
		})
		require.NoError(t, err)

		found, err := store.FindByID(ctx, "p2")
		require.NoError(t, err)
		assert.Equal(t, "Alpha Two", found.Title)
		assert.Equal(t, "new text", found.Text)
		assert.Equal(t, "dave", found.Author)
		assert.Equal(t, "alpha-two", found.Slug)
		assert.True(t, modified.Equal(found.LastModified))
		assert.True(t, baseTime.Add(time.Minute).Equal(found.CreatedAt))

		posts, err := store.List(ctx, downblog.Query{Filter: &downblog.FieldMatch{Field: downblog.FieldAuthor, Value: "dave"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"p2"}, ids(posts))

		posts, err = store.List(ctx, downblog.Query{Search: "new"})
		require.NoError(t, err)
		assert.Equal(t, []string{"p2"}, ids(posts))
	})

	t.Run("UpdateMissingIsNoop", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)

		err := store.UpdateFields(ctx, "missing", downblog.PostUpdate{Title: "x", Text: "x", Author: "x", LastModified: baseTime})
		require.NoError(t, err)

		count, err := store.Count(ctx, downblog.Query{})
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("DeleteByIDs", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)

		require.NoError(t, store.DeleteByIDs(ctx, []string{"p1", "p3", "missing"}))
		require.NoError(t, store.DeleteByIDs(ctx, []string{"p1"}))
		require.NoError(t, store.DeleteByIDs(ctx, nil))

		posts, err := store.List(ctx, downblog.Query{})
		require.NoError(t, err)
		assert.Equal(t, []string{"p2", "p4", "p5"}, ids(posts))

		_, err = store.FindByID(ctx, "p1")
		assert.ErrorIs(t, err, downblog.ErrPostNotFound)

		posts, err = store.List(ctx, downblog.Query{Search: "foo"})
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("DeleteByIDs_LargeBatch", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)

		batch := make([]string, 0, 40_002)
		for i := range 40_000 {
			batch = append(batch, fmt.Sprintf("absent-%d", i))
		}
		batch = append(batch, "p2", "p5")

		require.NoError(t, store.DeleteByIDs(ctx, batch))

		posts, err := store.List(ctx, downblog.Query{})
		require.NoError(t, err)
		assert.Equal(t, []string{"p1", "p3", "p4"}, ids(posts))
	})

	t.Run("DistinctAuthors", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)
		require.NoError(t, store.Insert(ctx, Fixture("p6", "Foxtrot", "no author", "", 5)))

		authors, err := store.DistinctAuthors(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob", "carol"}, authors)
	})

	t.Run("ManyPosts", func(t *testing.T) {
		store := newStore(t)
		for i := 0; i < 25; i++ {
			post := Fixture(fmt.Sprintf("m%02d", i), fmt.Sprintf("Title %02d", i), "body", "author", i)
			require.NoError(t, store.Insert(ctx, post))
		}

		posts, err := store.List(ctx, downblog.Query{Limit: 10, Skip: 20})
		require.NoError(t, err)
		assert.Equal(t, []string{"m20", "m21", "m22", "m23", "m24"}, ids(posts))
	})
}
