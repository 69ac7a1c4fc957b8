package bboltstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/hypergopher/downblog"
)

func TestClear_BleveFailureReleasesBolt(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	store := New(dataDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { _ = store.Close() })

	openBleve = func(string) (bleve.Index, error) {
		return nil, errors.New("index unavailable")
	}
	t.Cleanup(func() { openBleve = bleve.Open })

	require.Error(t, store.Clear(ctx))

	_, err := store.FindByID(ctx, "p1")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, store.Insert(ctx, &downblog.Post{ID: "p1"}), ErrStoreClosed)
	_, err = store.Count(ctx, downblog.Query{})
	assert.ErrorIs(t, err, ErrStoreClosed)

	// The bolt file lock must be free once Clear gives up.
	db, err := bbolt.Open(filepath.Join(dataDir, bboltFile), 0600, &bbolt.Options{Timeout: 200 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	openBleve = bleve.Open
	require.NoError(t, store.Init(ctx))

	count, err := store.Count(ctx, downblog.Query{})
	require.NoError(t, err)
	assert.Zero(t, count)
}
