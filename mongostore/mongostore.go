// Package mongostore stores posts in a MongoDB collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hypergopher/downblog"
)

const (
	DefaultDatabase   = "blog"
	DefaultCollection = "posts"
)

// DefaultTimeout bounds connecting to the server.
const DefaultTimeout = 10 * time.Second

// Store is a downblog.PostStore backed by a MongoDB collection. Posts keep their
// own id field; the server-assigned _id is never exposed. Timestamps are stored
// with millisecond precision.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	ownsClient bool
	logger     *slog.Logger
}

// Options configures a Store. Either Client or URI is required.
type Options struct {
	Client     *mongo.Client // Client is an existing connection. It is not disconnected by Close.
	URI        string        // URI is used to connect when Client is nil.
	Database   string        // Database holding the collection. Default is DefaultDatabase.
	Collection string        // Collection holding the posts. Default is DefaultCollection.
	Logger     *slog.Logger
}

// New creates a Store, connecting to the server if no client is given. Call Init before use.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Database == "" {
		opts.Database = DefaultDatabase
	}

	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	client := opts.Client
	ownsClient := false
	if client == nil {
		if opts.URI == "" {
			return nil, errors.New("mongostore: a client or a URI is required")
		}

		connectCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()

		var err error
		client, err = mongo.Connect(connectCtx, options.Client().ApplyURI(opts.URI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
		}

		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to ping mongodb: %w", err)
		}
		ownsClient = true
	}

	return &Store{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		ownsClient: ownsClient,
		logger:     opts.Logger,
	}, nil
}

// Init creates the unique id index and the natural order index.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: downblog.FieldID, Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: downblog.FieldCreatedAt, Value: 1}, {Key: downblog.FieldID, Value: 1}},
		},
	})
	if err != nil {
		return downblog.NewStorageError("init", err)
	}

	s.logger.Debug("mongo store ready", slog.String("collection", s.collection.Name()))
	return nil
}

// Close disconnects the client if the store created it.
func (s *Store) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// Clear deletes every post.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return downblog.NewStorageError("clear", err)
	}
	return nil
}

// Drop removes the collection and its indexes.
func (s *Store) Drop(ctx context.Context) error {
	if err := s.collection.Drop(ctx); err != nil {
		return downblog.NewStorageError("drop", err)
	}
	return nil
}

// Insert creates a new post. An existing id yields downblog.ErrPostExists.
func (s *Store) Insert(ctx context.Context, post *downblog.Post) error {
	_, err := s.collection.InsertOne(ctx, post)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", downblog.ErrPostExists, post.ID)
	}
	if err != nil {
		return downblog.NewStorageError("insert", err)
	}
	return nil
}

// FindByID retrieves a post, including its text.
func (s *Store) FindByID(ctx context.Context, id string) (*downblog.Post, error) {
	var post downblog.Post
	err := s.collection.FindOne(ctx, bson.M{downblog.FieldID: id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, downblog.ErrPostNotFound
	}
	if err != nil {
		return nil, downblog.NewStorageError("find", err)
	}
	return normalize(&post), nil
}

// List returns the posts selected by the query.
func (s *Store) List(ctx context.Context, q downblog.Query) ([]*downblog.Post, error) {
	cursor, err := s.collection.Find(ctx, filterDocument(q), findOptions(q))
	if err != nil {
		return nil, downblog.NewStorageError("list", err)
	}

	posts := make([]*downblog.Post, 0)
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, downblog.NewStorageError("list", err)
	}

	for _, post := range posts {
		normalize(post)
	}

	return posts, nil
}

// Count returns how many posts match the query's predicates.
func (s *Store) Count(ctx context.Context, q downblog.Query) (int, error) {
	count, err := s.collection.CountDocuments(ctx, filterDocument(q))
	if err != nil {
		return 0, downblog.NewStorageError("count", err)
	}
	return int(count), nil
}

// UpdateFields replaces the editable fields of a post. A missing id is a no-op.
func (s *Store) UpdateFields(ctx context.Context, id string, update downblog.PostUpdate) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{downblog.FieldID: id},
		bson.M{"$set": bson.M{
			downblog.FieldTitle:        update.Title,
			downblog.FieldText:         update.Text,
			downblog.FieldAuthor:       update.Author,
			downblog.FieldSlug:         update.Slug,
			downblog.FieldLastModified: update.LastModified,
		}},
	)
	if err != nil {
		return downblog.NewStorageError("update", err)
	}
	return nil
}

// DeleteByIDs removes the posts with the given ids.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := s.collection.DeleteMany(ctx, bson.M{downblog.FieldID: bson.M{"$in": ids}}); err != nil {
		return downblog.NewStorageError("delete", err)
	}
	return nil
}

// DistinctAuthors returns every non-empty author.
func (s *Store) DistinctAuthors(ctx context.Context) ([]string, error) {
	values, err := s.collection.Distinct(ctx, downblog.FieldAuthor, bson.M{})
	if err != nil {
		return nil, downblog.NewStorageError("distinct authors", err)
	}

	authors := make([]string, 0, len(values))
	for _, value := range values {
		if author, ok := value.(string); ok {
			authors = append(authors, author)
		}
	}

	return downblog.UniqueAuthors(authors), nil
}

// normalize returns decoded timestamps in UTC.
func normalize(post *downblog.Post) *downblog.Post {
	post.CreatedAt = post.CreatedAt.UTC()
	post.LastModified = post.LastModified.UTC()
	return post
}
