package bboltstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.etcd.io/bbolt"

	"github.com/hypergopher/downblog"
)

const (
	bboltFile     = "downblog.db"
	bleveFile     = "downblog.bleve"
	bucketPosts   = "posts"
	bucketAuthors = "authors"
)

var (
	errBucketNotFound = errors.New("bucket not found")

	// ErrStoreClosed is returned by operations on a store that is not open.
	ErrStoreClosed = errors.New("store is closed")
)

// openBleve opens an existing bleve index. Tests replace it to simulate failures.
var openBleve = bleve.Open

// BBoltStore keeps post documents in bbolt and executes queries with a bleve index
// over the same posts. Writes update both under one lock.
type BBoltStore struct {
	bleveIndex bleve.Index
	boltIndex  *bbolt.DB
	dataDir    string // dataDir is the directory where the bbolt file and bleve index are stored.
	logger     *slog.Logger
	mu         sync.Mutex
}

// New creates a new BBoltStore. Call Init before use.
func New(dataDir string, logger *slog.Logger) *BBoltStore {
	if logger == nil {
		logger = defaultLogger()
	}

	return &BBoltStore{
		dataDir: dataDir,
		logger:  logger,
	}
}

// Init opens, or creates, the bbolt database and the bleve index.
func (bbs *BBoltStore) Init(_ context.Context) error {
	if err := os.MkdirAll(bbs.dataDir, 0755); err != nil {
		return downblog.NewStorageError("init", fmt.Errorf("failed to create data directory: %w", err))
	}

	boltIndex, err := bbs.initBolt()
	if err != nil {
		return downblog.NewStorageError("init", fmt.Errorf("failed to initialize bbolt: %w", err))
	}

	bleveIndex, err := bbs.initBleve()
	if err != nil {
		_ = boltIndex.Close()
		return downblog.NewStorageError("init", fmt.Errorf("failed to initialize bleve: %w", err))
	}

	bbs.boltIndex = boltIndex
	bbs.bleveIndex = bleveIndex

	return nil
}

// Clear removes every post by deleting and recreating the bbolt file and bleve index.
func (bbs *BBoltStore) Clear(_ context.Context) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if err := bbs.Close(); err != nil {
		return fmt.Errorf("failed to close indexes: %w", err)
	}

	// Drop the on-disk files.
	boltPath := filepath.Join(bbs.dataDir, bboltFile)
	blevePath := filepath.Join(bbs.dataDir, bleveFile)

	if err := os.Remove(boltPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove bolt file: %w", err)
	}

	if err := os.RemoveAll(blevePath); err != nil {
		return fmt.Errorf("failed to remove bleve file: %w", err)
	}

	// Start over with empty stores.
	boltIndex, err := bbs.initBolt()
	if err != nil {
		return fmt.Errorf("failed to reinitialize bolt: %w", err)
	}

	bleveIndex, err := bbs.initBleve()
	if err != nil {
		_ = boltIndex.Close()
		return fmt.Errorf("failed to reinitialize bleve: %w", err)
	}

	bbs.boltIndex = boltIndex
	bbs.bleveIndex = bleveIndex

	return nil
}

// Close closes the bbolt database and the bleve index.
func (bbs *BBoltStore) Close() error {
	if bbs.boltIndex != nil {
		if err := bbs.boltIndex.Close(); err != nil {
			return err
		}
		bbs.boltIndex = nil
	}

	if bbs.bleveIndex != nil {
		err := bbs.bleveIndex.Close()
		bbs.bleveIndex = nil
		return err
	}

	return nil
}

// Insert stores a new post and indexes it.
func (bbs *BBoltStore) Insert(_ context.Context, post *downblog.Post) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if err := bbs.checkOpen("insert"); err != nil {
		return err
	}

	postBytes, err := post.Serialize()
	if err != nil {
		return downblog.NewStorageError("insert", fmt.Errorf("failed to serialize post: %w", err))
	}

	err = bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b == nil {
			return errBucketNotFound
		}

		if b.Get([]byte(post.ID)) != nil {
			return fmt.Errorf("%w: %s", downblog.ErrPostExists, post.ID)
		}

		if err := b.Put([]byte(post.ID), postBytes); err != nil {
			return fmt.Errorf("failed to put post in bucket: %w", err)
		}

		return bbs.updateAuthorCount(tx, post.Author, 1)
	})
	if errors.Is(err, downblog.ErrPostExists) {
		return err
	}
	if err != nil {
		return downblog.NewStorageError("insert", err)
	}

	if err := bbs.bleveIndex.Index(post.ID, indexDocument(post)); err != nil {
		bbs.logger.Error("failed to index post, removing it",
			slog.String("id", post.ID),
			slog.String("error", err.Error()))
		if rbErr := bbs.deleteFromBolt([]string{post.ID}); rbErr != nil {
			return downblog.NewStorageError("insert", fmt.Errorf("failed to index post and rollback failed: %v, %w", rbErr, err))
		}
		return downblog.NewStorageError("insert", fmt.Errorf("failed to index post in bleve: %w", err))
	}

	return nil
}

// FindByID retrieves a post by its id.
func (bbs *BBoltStore) FindByID(_ context.Context, id string) (*downblog.Post, error) {
	if err := bbs.checkOpen("find"); err != nil {
		return nil, err
	}

	var post *downblog.Post
	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b == nil {
			return errBucketNotFound
		}

		postBytes := b.Get([]byte(id))
		if postBytes == nil {
			return downblog.ErrPostNotFound
		}

		var err error
		post, err = downblog.Deserialize(postBytes)
		if err != nil {
			return fmt.Errorf("error deserializing post: %w", err)
		}

		return nil
	})

	if errors.Is(err, downblog.ErrPostNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, downblog.NewStorageError("find", fmt.Errorf("error getting post %s: %w", id, err))
	}
	return post, nil
}

// List returns the posts matching the query.
func (bbs *BBoltStore) List(ctx context.Context, q downblog.Query) ([]*downblog.Post, error) {
	if err := bbs.checkOpen("list"); err != nil {
		return nil, err
	}

	ids, err := bbs.searchIDs(ctx, q)
	if err != nil {
		return nil, downblog.NewStorageError("list", err)
	}

	posts := make([]*downblog.Post, 0, len(ids))
	err = bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b == nil {
			return errBucketNotFound
		}

		for _, id := range ids {
			postBytes := b.Get([]byte(id))
			if postBytes == nil {
				bbs.logger.Warn("indexed post missing from bolt", slog.String("id", id))
				continue
			}

			post, err := downblog.Deserialize(postBytes)
			if err != nil {
				return fmt.Errorf("error deserializing post %s: %w", id, err)
			}

			if q.OmitText {
				post = post.WithoutText()
			}
			posts = append(posts, post)
		}

		return nil
	})
	if err != nil {
		return nil, downblog.NewStorageError("list", err)
	}

	return posts, nil
}

// Count returns the number of posts matching the query's predicates.
func (bbs *BBoltStore) Count(ctx context.Context, q downblog.Query) (int, error) {
	if err := bbs.checkOpen("count"); err != nil {
		return 0, err
	}

	request := bleve.NewSearchRequestOptions(searchQuery(q), 0, 0, false)
	result, err := bbs.bleveIndex.SearchInContext(ctx, request)
	if err != nil {
		return 0, downblog.NewStorageError("count", fmt.Errorf("error searching for posts: %w", err))
	}
	return int(result.Total), nil
}

// UpdateFields replaces the editable fields of a post. It is a no-op if the post does not exist.
func (bbs *BBoltStore) UpdateFields(_ context.Context, id string, update downblog.PostUpdate) error {
	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if err := bbs.checkOpen("update"); err != nil {
		return err
	}

	var updated *downblog.Post
	err := bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b == nil {
			return errBucketNotFound
		}

		postBytes := b.Get([]byte(id))
		if postBytes == nil {
			return nil
		}

		current, err := downblog.Deserialize(postBytes)
		if err != nil {
			return fmt.Errorf("error deserializing post: %w", err)
		}

		updated = current.Apply(update)
		newBytes, err := updated.Serialize()
		if err != nil {
			return fmt.Errorf("failed to serialize post: %w", err)
		}

		if err := b.Put([]byte(id), newBytes); err != nil {
			return fmt.Errorf("failed to put post in bucket: %w", err)
		}

		if current.Author != updated.Author {
			if err := bbs.updateAuthorCount(tx, current.Author, -1); err != nil {
				return err
			}
			if err := bbs.updateAuthorCount(tx, updated.Author, 1); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return downblog.NewStorageError("update", err)
	}

	if updated == nil {
		return nil
	}

	if err := bbs.bleveIndex.Index(id, indexDocument(updated)); err != nil {
		return downblog.NewStorageError("update", fmt.Errorf("post was saved but failed to reindex: %w", err))
	}

	return nil
}

// DeleteByIDs removes posts from bolt and bleve. Unknown ids are ignored.
func (bbs *BBoltStore) DeleteByIDs(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	bbs.mu.Lock()
	defer bbs.mu.Unlock()

	if err := bbs.checkOpen("delete"); err != nil {
		return err
	}

	if err := bbs.deleteFromBolt(ids); err != nil {
		return downblog.NewStorageError("delete", err)
	}

	batch := bbs.bleveIndex.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}

	if err := bbs.bleveIndex.Batch(batch); err != nil {
		return downblog.NewStorageError("delete", fmt.Errorf("posts were deleted but failed to deindex: %w", err))
	}

	return nil
}

// DistinctAuthors returns the authors with at least one post, in byte order.
func (bbs *BBoltStore) DistinctAuthors(_ context.Context) ([]string, error) {
	if err := bbs.checkOpen("distinct authors"); err != nil {
		return nil, err
	}

	var authors []string
	err := bbs.boltIndex.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketAuthors))
		if b == nil {
			return errBucketNotFound
		}

		cursor := b.Cursor()
		for k, _ := cursor.First(); k != nil; k, _ = cursor.Next() {
			authors = append(authors, string(k))
		}

		return nil
	})

	if err != nil {
		return nil, downblog.NewStorageError("distinct authors", fmt.Errorf("error getting authors: %w", err))
	}

	return downblog.UniqueAuthors(authors), nil
}

// deleteFromBolt deletes posts and their author counts. The caller holds the lock.
func (bbs *BBoltStore) checkOpen(op string) error {
	if bbs.boltIndex == nil || bbs.bleveIndex == nil {
		return downblog.NewStorageError(op, ErrStoreClosed)
	}
	return nil
}

func (bbs *BBoltStore) deleteFromBolt(ids []string) error {
	return bbs.boltIndex.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketPosts))
		if b == nil {
			return errBucketNotFound
		}

		for _, id := range ids {
			postBytes := b.Get([]byte(id))
			if postBytes == nil {
				continue
			}

			post, err := downblog.Deserialize(postBytes)
			if err != nil {
				return fmt.Errorf("error deserializing post %s: %w", id, err)
			}

			if err := b.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete post: %w", err)
			}

			if err := bbs.updateAuthorCount(tx, post.Author, -1); err != nil {
				return err
			}
		}

		return nil
	})
}

func (bbs *BBoltStore) initBolt() (*bbolt.DB, error) {
	boltPath := filepath.Join(bbs.dataDir, bboltFile)
	boltIndex, err := bbolt.Open(boltPath, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt index: %w", err)
	}

	err = boltIndex.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPosts))
		if err != nil {
			return fmt.Errorf("failed to create posts bucket: %w", err)
		}

		_, err = tx.CreateBucketIfNotExists([]byte(bucketAuthors))
		if err != nil {
			return fmt.Errorf("failed to create authors bucket: %w", err)
		}

		return nil
	})

	if err != nil {
		_ = boltIndex.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return boltIndex, nil
}

func (bbs *BBoltStore) initBleve() (bleve.Index, error) {
	blevePath := filepath.Join(bbs.dataDir, bleveFile)
	index, err := openBleve(blevePath)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		bbs.logger.Debug("Creating new bleve index", slog.String("path", blevePath))
		index, err = bleve.NewUsing(blevePath, defineBleveMapping(), bleve.Config.DefaultIndexType, bleve.Config.DefaultKVStore, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create bleve index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}

	return index, nil
}

// defineBleveMapping maps every string field as a single keyword term, so term
// queries are exact matches and prefix queries are case-sensitive prefixes of
// the whole value.
func defineBleveMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	for _, field := range []string{
		downblog.FieldID,
		downblog.FieldTitle,
		downblog.FieldText,
		downblog.FieldAuthor,
		downblog.FieldSlug,
	} {
		docMapping.AddFieldMappingsAt(field, bleve.NewKeywordFieldMapping())
	}

	docMapping.AddFieldMappingsAt(downblog.FieldCreatedAt, bleve.NewDateTimeFieldMapping())
	docMapping.AddFieldMappingsAt(downblog.FieldLastModified, bleve.NewDateTimeFieldMapping())

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// updateAuthorCount tracks how many posts each author has, so distinct authors
// can be read from the bucket keys.
func (bbs *BBoltStore) updateAuthorCount(tx *bbolt.Tx, author string, delta int) error {
	if author == "" {
		return nil
	}

	b := tx.Bucket([]byte(bucketAuthors))
	if b == nil {
		return errBucketNotFound
	}

	count := 0
	key := []byte(author)
	countBytes := b.Get(key)
	if countBytes != nil {
		count = int(binary.BigEndian.Uint64(countBytes))
	}

	count += delta
	if count <= 0 {
		return b.Delete(key)
	}

	newCount := make([]byte, 8)
	binary.BigEndian.PutUint64(newCount, uint64(count))
	return b.Put(key, newCount)
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{
			AddSource: false,
			Level:     slog.LevelInfo,
		}))
}
