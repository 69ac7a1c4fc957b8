package downblog

import "context"

// PostStore is the data-access contract for posts. It is the sole owner of
// persisted post state. Every method addressing a post keys on its id.
type PostStore interface {
	// Init initializes the post store, such as creating the necessary tables or indexes.
	Init(ctx context.Context) error
	// Close closes the post store.
	Close() error
	// Insert adds a new post. The caller guarantees a fresh id; a duplicate id returns ErrPostExists.
	Insert(ctx context.Context, post *Post) error
	// FindByID retrieves a post by its id, or ErrPostNotFound.
	FindByID(ctx context.Context, id string) (*Post, error)
	// List returns the posts matching the query: filter, then sort, then skip, then limit.
	List(ctx context.Context, query Query) ([]*Post, error)
	// Count returns the number of posts matching the query's filter and search, ignoring pagination.
	Count(ctx context.Context, query Query) (int, error)
	// UpdateFields replaces title, text, author, slug and lastModified of the post with the given id.
	// It is a no-op if no post has that id.
	UpdateFields(ctx context.Context, id string, update PostUpdate) error
	// DeleteByIDs deletes every post whose id is in ids. Unknown ids are ignored.
	DeleteByIDs(ctx context.Context, ids []string) error
	// DistinctAuthors returns the sorted set of non-empty author names.
	DistinctAuthors(ctx context.Context) ([]string, error)
}
