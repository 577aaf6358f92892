package users

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore is a Store backed by a MongoDB collection. Documents are
// keyed by the collection's unique _id, which gives Insert its atomic
// create-if-absent semantics. Every operation runs under a bounded
// timeout so a stalled store cannot hang a request.
type MongoStore struct {
	coll    *mongo.Collection
	timeout time.Duration
	logger  Logger
}

var _ Store = (*MongoStore)(nil)

type StoreOption func(*MongoStore)

// WithStoreTimeout overrides the per-operation timeout.
func WithStoreTimeout(d time.Duration) StoreOption {
	return func(s *MongoStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithStoreLogger overrides the store logger.
func WithStoreLogger(l Logger) StoreOption {
	return func(s *MongoStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewMongoStore creates a Store over the given collection.
func NewMongoStore(coll *mongo.Collection, opts ...StoreOption) *MongoStore {
	s := &MongoStore{
		coll:    coll,
		timeout: DefaultStoreTimeout,
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// ConnectMongoStore dials the document store named by the configuration
// and returns a Store over its users collection, together with a
// disconnect function.
func ConnectMongoStore(ctx context.Context, cfg Config) (*MongoStore, func(context.Context) error, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryOperation, "failed to connect to document store")
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, errors.Wrap(err, errors.CategoryOperation, "failed to reach document store")
	}

	coll := client.Database(cfg.DatabaseName).Collection(cfg.UsersCollection)
	store := NewMongoStore(coll, WithStoreTimeout(cfg.StoreTimeout))

	return store, client.Disconnect, nil
}

func (s *MongoStore) Get(ctx context.Context, key string) (Document, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	doc := bson.M{}
	if err := s.coll.FindOne(ctx, bson.M{fieldKey: key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, withMetadata(ErrNotFound, map[string]any{"key": key})
		}
		return nil, s.storeError(err, "get", key)
	}

	return normalizeDocument(doc), nil
}

func (s *MongoStore) Insert(ctx context.Context, key string, doc Document) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	record := bson.M(doc)
	record[fieldKey] = key

	if _, err := s.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.logger.Debug("duplicate key found", "key", key)
			return withMetadata(ErrDuplicateKey, map[string]any{"key": key})
		}
		return s.storeError(err, "insert", key)
	}

	return nil
}

func (s *MongoStore) Set(ctx context.Context, key string, doc Document) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	record := bson.M(doc)
	record[fieldKey] = key

	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{fieldKey: key}, record, opts); err != nil {
		return s.storeError(err, "set", key)
	}

	return nil
}

func (s *MongoStore) Update(ctx context.Context, key string, fields Document) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.coll.UpdateOne(ctx, bson.M{fieldKey: key}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return s.storeError(err, "update", key)
	}

	if res.MatchedCount == 0 {
		return withMetadata(ErrNotFound, map[string]any{"key": key})
	}

	return nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	// Deleting an absent key matches zero documents and still succeeds.
	if _, err := s.coll.DeleteOne(ctx, bson.M{fieldKey: key}); err != nil {
		return s.storeError(err, "delete", key)
	}

	return nil
}

func (s *MongoStore) All(ctx context.Context) ([]Document, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, s.storeError(err, "all", "")
	}

	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, s.storeError(err, "all", "")
	}

	docs := make([]Document, 0, len(raw))
	for _, d := range raw {
		docs = append(docs, normalizeDocument(d))
	}

	return docs, nil
}

func (s *MongoStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// storeError classifies a driver failure. Timeouts are surfaced as a
// transient operation error so callers can distinguish them from not
// found and decide on retries; this library itself never retries.
func (s *MongoStore) storeError(err error, op, key string) error {
	meta := map[string]any{"op": op}
	if key != "" {
		meta["key"] = key
	}

	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("store operation timed out", "op", op, "key", key)
		return errors.Wrap(err, errors.CategoryOperation, "store operation timed out").
			WithTextCode(TextCodeStoreTimeout).
			WithMetadata(meta)
	}

	s.logger.Error("store operation failed", "op", op, "key", key, "error", err)
	return errors.Wrap(err, errors.CategoryInternal, "store operation failed").
		WithTextCode(TextCodeStoreWrite).
		WithMetadata(meta)
}

// normalizeDocument converts driver-specific value types into the plain
// Go types decodeUser expects.
func normalizeDocument(doc bson.M) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if dt, ok := v.(bson.DateTime); ok {
			out[k] = dt.Time()
			continue
		}
		out[k] = v
	}
	return out
}
