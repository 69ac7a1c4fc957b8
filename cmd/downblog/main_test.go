package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypergopher/downblog"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func storeArgs(dataDir, store string) []string {
	return []string{"--store", store, "--data-dir", dataDir, "--log-level", "error"}
}

func TestCLI_PostLifecycle(t *testing.T) {
	for _, store := range []string{"sqlite", "bbolt"} {
		t.Run(store, func(t *testing.T) {
			base := storeArgs(t.TempDir(), store)

			out, err := run(t, append([]string{"submit", "--title", "Hello World", "--text", "foo bar", "--author", "alice"}, base...)...)
			require.NoError(t, err)

			var post downblog.Post
			require.NoError(t, json.Unmarshal([]byte(out), &post))
			assert.Equal(t, "hello-world", post.Slug)
			require.NotEmpty(t, post.ID)

			_, err = run(t, append([]string{"submit", "--title", "Second", "--text", "xfoo", "--author", "bob"}, base...)...)
			require.NoError(t, err)

			out, err = run(t, append([]string{"list", "--search", "foo"}, base...)...)
			require.NoError(t, err)

			var page downblog.Page
			require.NoError(t, json.Unmarshal([]byte(out), &page))
			require.Len(t, page.Posts, 1)
			assert.Equal(t, post.ID, page.Posts[0].ID)
			assert.Empty(t, page.Posts[0].Text)
			assert.Equal(t, 1, page.Paginator.TotalPosts)

			out, err = run(t, append([]string{"edit", post.ID, "--title", "Renamed", "--text", "baz", "--author", "carol"}, base...)...)
			require.NoError(t, err)
			assert.Contains(t, out, `"slug": "renamed"`)

			out, err = run(t, append([]string{"authors"}, base...)...)
			require.NoError(t, err)
			assert.Equal(t, "bob\ncarol\n", out)

			_, err = run(t, append([]string{"delete", post.ID, "missing"}, base...)...)
			require.NoError(t, err)

			out, err = run(t, append([]string{"count"}, base...)...)
			require.NoError(t, err)
			assert.Equal(t, "1\n", out)

			_, err = run(t, append([]string{"get", post.ID}, base...)...)
			assert.True(t, downblog.IsNotFound(err))
		})
	}
}

func TestCLI_SubmitValidation(t *testing.T) {
	_, err := run(t, append([]string{"submit", "--title", "Only a title"}, storeArgs(t.TempDir(), "memory")...)...)
	assert.True(t, downblog.IsValidationError(err))
}

func TestCLI_Seed(t *testing.T) {
	dataDir := t.TempDir()
	seedPath := filepath.Join(dataDir, "posts.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(`posts:
  - title: First
    text: one
    author: alice
  - title: Second
    text: two
    author: bob
`), 0o600))

	base := storeArgs(dataDir, "sqlite")
	out, err := run(t, append([]string{"seed", seedPath}, base...)...)
	require.NoError(t, err)
	assert.Equal(t, "seeded 2 post(s)\n", out)

	out, err = run(t, append([]string{"count"}, base...)...)
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestCLI_SeedMarkdownDirectory(t *testing.T) {
	dataDir := t.TempDir()
	seedDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(seedDir, "first.md"), []byte(`---
title: First
author: alice
---
# Hello

one
`), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(seedDir, "drafts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(seedDir, "drafts", "second.md"), []byte(`+++
title = "Second"
author = "bob"
+++
two
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(seedDir, "notes.txt"), []byte("ignored"), 0o600))

	base := storeArgs(dataDir, "sqlite")
	out, err := run(t, append([]string{"seed", seedDir}, base...)...)
	require.NoError(t, err)
	assert.Equal(t, "seeded 2 post(s)\n", out)

	out, err = run(t, append([]string{"list", "--filter-field", "author", "--filter-value", "alice"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"First"`)
	assert.NotContains(t, out, `"Second"`)
}

func TestCLI_ConfigFile(t *testing.T) {
	dataDir := t.TempDir()
	configPath := filepath.Join(dataDir, "downblog.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"store = \"sqlite\"\ndata_dir = \""+filepath.ToSlash(dataDir)+"\"\nlog_level = \"error\"\n"), 0o600))

	_, err := run(t, "submit", "--config", configPath, "--title", "T", "--text", "x", "--author", "a")
	require.NoError(t, err)

	out, err := run(t, "count", "--config", configPath)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
	assert.FileExists(t, filepath.Join(dataDir, "downblog.sqlite"))
}

func TestCLI_UnknownStore(t *testing.T) {
	_, err := run(t, "count", "--store", "redis")
	assert.Error(t, err)
}

func TestServe_ShutsDownWithContext(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, "127.0.0.1:0", handler, discardLogger())
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
