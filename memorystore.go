package downblog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryPostStore implements PostStore using in-memory storage
type MemoryPostStore struct {
	posts map[string]*Post
	mu    sync.RWMutex
}

// NewMemoryPostStore creates a new MemoryPostStore
func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{
		posts: make(map[string]*Post),
	}
}

// Init initializes the post store
func (m *MemoryPostStore) Init(_ context.Context) error {
	return nil
}

// Clear removes all posts from the store
func (m *MemoryPostStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts = make(map[string]*Post)
	return nil
}

// Close closes the post store
func (m *MemoryPostStore) Close() error {
	return nil
}

// Insert adds a new post to the store
func (m *MemoryPostStore) Insert(_ context.Context, post *Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.posts[post.ID]; exists {
		return fmt.Errorf("%w: %s", ErrPostExists, post.ID)
	}

	m.posts[post.ID] = post.Clone()
	return nil
}

// FindByID retrieves a post from the store
func (m *MemoryPostStore) FindByID(_ context.Context, id string) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, ErrPostNotFound
	}

	return post.Clone(), nil
}

// List returns the posts matching the query
func (m *MemoryPostStore) List(_ context.Context, query Query) ([]*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := m.filter(query)
	sortPosts(filtered, query.Sort)

	start, end := paginationBounds(query.Skip, query.Limit, len(filtered))
	results := make([]*Post, 0, end-start)
	for _, post := range filtered[start:end] {
		if query.OmitText {
			results = append(results, post.WithoutText())
		} else {
			results = append(results, post.Clone())
		}
	}

	return results, nil
}

// Count returns the number of posts matching the query's predicates
func (m *MemoryPostStore) Count(_ context.Context, query Query) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.filter(query)), nil
}

// UpdateFields replaces the editable fields of an existing post
func (m *MemoryPostStore) UpdateFields(_ context.Context, id string, update PostUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	post, exists := m.posts[id]
	if !exists {
		return nil
	}

	m.posts[id] = post.Apply(update)
	return nil
}

// DeleteByIDs removes posts from the store
func (m *MemoryPostStore) DeleteByIDs(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.posts, id)
	}
	return nil
}

// DistinctAuthors returns the unique, non-empty authors.
func (m *MemoryPostStore) DistinctAuthors(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	authors := make([]string, 0, len(m.posts))
	for _, post := range m.posts {
		authors = append(authors, post.Author)
	}

	return UniqueAuthors(authors), nil
}

// filter returns the stored posts matching the query's predicates. The caller holds the lock.
func (m *MemoryPostStore) filter(query Query) []*Post {
	var filtered []*Post
	for _, post := range m.posts {
		if postMatchesQuery(post, query) {
			filtered = append(filtered, post)
		}
	}
	return filtered
}

// postMatchesQuery checks if a post matches the query's filter and search
func postMatchesQuery(post *Post, query Query) bool {
	if query.HasFilter() && stringField(post, query.Filter.Field) != query.Filter.Value {
		return false
	}

	if query.HasSearch() && !strings.HasPrefix(post.Text, query.Search) {
		return false
	}

	return true
}

// stringField returns the value of a string field of the post
func stringField(post *Post, field string) string {
	switch field {
	case FieldID:
		return post.ID
	case FieldTitle:
		return post.Title
	case FieldText:
		return post.Text
	case FieldAuthor:
		return post.Author
	case FieldSlug:
		return post.Slug
	default:
		return ""
	}
}

// sortPosts sorts posts by the sort instruction, or in creation order when it is nil.
// Ties always break on id so the order is deterministic.
func sortPosts(posts []*Post, spec *SortSpec) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]

		if spec != nil {
			comparison := compareField(a, b, spec.Field)
			if comparison != 0 {
				if spec.Order.IsDescending() {
					return comparison > 0
				}
				return comparison < 0
			}
		} else if comparison := compareTime(a.CreatedAt, b.CreatedAt); comparison != 0 {
			return comparison < 0
		}

		return a.ID < b.ID
	})
}

func compareField(a, b *Post, field string) int {
	switch field {
	case FieldCreatedAt:
		return compareTime(a.CreatedAt, b.CreatedAt)
	case FieldLastModified:
		return compareTime(a.LastModified, b.LastModified)
	default:
		return strings.Compare(stringField(a, field), stringField(b, field))
	}
}

// compareTime compares two time.Time values
func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// paginationBounds calculates the start and end indices for skip and limit. A zero limit means no limit.
func paginationBounds(skip, limit, totalItems int) (start, end int) {
	start = skip
	if start > totalItems || start < 0 {
		start = totalItems
	}
	end = totalItems
	if limit > 0 && limit < totalItems-start {
		end = start + limit
	}
	return start, end
}

// UniqueAuthors returns the sorted, de-duplicated, non-empty authors.
func UniqueAuthors(authors []string) []string {
	result := make([]string, 0, len(authors))
	inResult := map[string]bool{}
	for _, author := range authors {
		if author == "" {
			continue
		}
		if _, ok := inResult[author]; !ok {
			inResult[author] = true
			result = append(result, author)
		}
	}
	sort.Strings(result)
	return result
}
