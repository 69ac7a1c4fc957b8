package downblog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/downblog"
	"github.com/hypergopher/downblog/internal/storetest"
)

func TestMemoryPostStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) downblog.PostStore {
		return downblog.NewMemoryPostStore()
	})
}

func TestMemoryPostStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := downblog.NewMemoryPostStore()
	storetest.Seed(t, store)

	require.NoError(t, store.Clear(ctx))

	count, err := store.Count(ctx, downblog.Query{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMemoryPostStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := downblog.NewMemoryPostStore()
	storetest.Seed(t, store)

	found, err := store.FindByID(ctx, "p1")
	require.NoError(t, err)
	found.Title = "mutated"

	again, err := store.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Charlie", again.Title)
}

func TestUniqueAuthors(t *testing.T) {
	assert.Equal(t, []string{"alice", "bob"}, downblog.UniqueAuthors([]string{"bob", "", "alice", "bob"}))
	assert.Empty(t, downblog.UniqueAuthors(nil))
}
