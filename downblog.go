package downblog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// DownBlog is the main entry point for managing blog posts. It validates
// input, allocates identifiers and shapes store results for public and admin
// consumers. It holds no mutable state of its own and is safe for concurrent use.
type DownBlog struct {
	store  PostStore
	ids    IDAllocator
	now    func() time.Time
	logger *slog.Logger
}

// Options is a struct for configuring a new DownBlog instance.
type Options struct {
	Store  PostStore        // Store is where posts are persisted. Required.
	IDs    IDAllocator      // IDs allocates post identifiers. Default is UUIDAllocator.
	Now    func() time.Time // Now returns the current time. Default is time.Now in UTC.
	Logger *slog.Logger     // Logger is the logger used by DownBlog. Default is an info logger to stderr.
}

// Page is one page of a public listing.
type Page struct {
	Posts     []*Post   `json:"posts"`
	Paginator Paginator `json:"paginator"`
}

// New creates a new DownBlog instance with the provided options.
func New(opts Options) (*DownBlog, error) {
	if opts.Store == nil {
		return nil, ErrNilStore
	}

	if opts.IDs == nil {
		opts.IDs = UUIDAllocator{}
	}

	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}

	if opts.Logger == nil {
		opts.Logger = defaultLogger()
	}

	return &DownBlog{
		store:  opts.Store,
		ids:    opts.IDs,
		now:    opts.Now,
		logger: opts.Logger,
	}, nil
}

// Store returns the underlying post store.
func (db *DownBlog) Store() PostStore {
	return db.store
}

// Close closes the underlying post store.
func (db *DownBlog) Close() error {
	return db.store.Close()
}

// List returns one page of posts for public consumers. The text of each post is omitted.
func (db *DownBlog) List(ctx context.Context, params QueryParams) (Page, error) {
	query := BuildQuery(params)
	query.OmitText = true

	posts, err := db.store.List(ctx, query)
	if err != nil {
		return Page{}, db.storageFailure("list", err)
	}

	total, err := db.store.Count(ctx, query)
	if err != nil {
		return Page{}, db.storageFailure("count", err)
	}

	return Page{
		Posts:     posts,
		Paginator: NewPaginator(query, total, len(posts)),
	}, nil
}

// AdminList returns every post in creation order, unfiltered and unpaginated. The text of each post is omitted.
func (db *DownBlog) AdminList(ctx context.Context) ([]*Post, error) {
	posts, err := db.store.List(ctx, Query{OmitText: true})
	if err != nil {
		return nil, db.storageFailure("admin list", err)
	}
	return posts, nil
}

// Get retrieves a single post, including its text.
func (db *DownBlog) Get(ctx context.Context, id string) (*Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &NotFoundError{ID: id}
	}

	post, err := db.store.FindByID(ctx, id)
	if errors.Is(err, ErrPostNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, db.storageFailure("find", err)
	}

	return post, nil
}

// Submit validates and stores a new post. The post receives a fresh id, and
// its createdAt and lastModified are set to the same instant.
func (db *DownBlog) Submit(ctx context.Context, fields PostFields) (*Post, error) {
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	now := db.now()
	post := &Post{
		ID:           db.ids.Allocate(),
		Title:        fields.Title,
		Text:         fields.Text,
		Author:       fields.Author,
		Slug:         Slugify(fields.Title),
		CreatedAt:    now,
		LastModified: now,
	}

	if err := db.store.Insert(ctx, post); err != nil {
		if errors.Is(err, ErrPostExists) {
			db.logger.Error("allocated post id already in use", slog.String("id", post.ID))
			return nil, fmt.Errorf("error adding to store: %w", err)
		}
		return nil, db.storageFailure("insert", err)
	}

	db.logger.Debug("post submitted", slog.String("id", post.ID), slog.String("author", post.Author))
	return post, nil
}

// Edit replaces the title, text and author of an existing post. A missing post
// is reported before the fields are validated.
func (db *DownBlog) Edit(ctx context.Context, id string, fields PostFields) (*Post, error) {
	existing, err := db.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fields.Validate(); err != nil {
		return nil, err
	}

	modified := db.now()
	if modified.Before(existing.CreatedAt) {
		modified = existing.CreatedAt
	}

	update := PostUpdate{
		Title:        fields.Title,
		Text:         fields.Text,
		Author:       fields.Author,
		Slug:         Slugify(fields.Title),
		LastModified: modified,
	}

	if err := db.store.UpdateFields(ctx, existing.ID, update); err != nil {
		return nil, db.storageFailure("update", err)
	}

	db.logger.Debug("post edited", slog.String("id", existing.ID))
	return existing.Apply(update), nil
}

// Delete permanently removes the posts with the given ids. Ids that do not exist are ignored.
func (db *DownBlog) Delete(ctx context.Context, ids ...string) error {
	set := normalizeIDs(ids)
	if len(set) == 0 {
		return nil
	}

	if err := db.store.DeleteByIDs(ctx, set); err != nil {
		return db.storageFailure("delete", err)
	}

	db.logger.Debug("posts deleted", slog.Int("count", len(set)))
	return nil
}

// Authors returns every distinct, non-empty author.
func (db *DownBlog) Authors(ctx context.Context) ([]string, error) {
	authors, err := db.store.DistinctAuthors(ctx)
	if err != nil {
		return nil, db.storageFailure("distinct authors", err)
	}
	return UniqueAuthors(authors), nil
}

// Count returns the total number of posts.
func (db *DownBlog) Count(ctx context.Context) (int, error) {
	total, err := db.store.Count(ctx, Query{})
	if err != nil {
		return 0, db.storageFailure("count", err)
	}
	return total, nil
}

// Seed submits each of the given posts, stopping at the first failure.
func (db *DownBlog) Seed(ctx context.Context, entries []PostFields) ([]*Post, error) {
	posts := make([]*Post, 0, len(entries))
	for i, fields := range entries {
		post, err := db.Submit(ctx, fields)
		if err != nil {
			return posts, fmt.Errorf("error seeding post %d: %w", i+1, err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// storageFailure logs a store failure and returns it as a StorageError.
func (db *DownBlog) storageFailure(op string, err error) error {
	db.logger.Error("post store operation failed", slog.String("op", op), slog.String("error", err.Error()))
	if IsStorageError(err) {
		return err
	}
	return NewStorageError(op, err)
}

// normalizeIDs trims, drops blanks and de-duplicates ids, keeping their first-seen order.
func normalizeIDs(ids []string) []string {
	set := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		set = append(set, id)
	}
	return set
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelInfo,
		}))
}
