package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/bookshelf/internal/config"
	"github.com/lehigh-university-libraries/bookshelf/internal/identity"
	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps one document per book with the scans embedded as an array.
// Metadata and scan updates are two separate writes.
type MongoStore struct {
	client  *mongo.Client
	books   *mongo.Collection
	hasher  *identity.Hasher
	timeout time.Duration
	now     func() time.Time
}

// OpenMongo connects to cfg.MongoURI. An unreachable server is logged and the
// store is returned anyway; every call then fails with ErrUnavailable until
// the server answers.
func OpenMongo(ctx context.Context, cfg config.StoreConfig, hasher *identity.Hasher) (*MongoStore, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	s := &MongoStore{
		client:  client,
		books:   client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection),
		hasher:  hasher,
		timeout: timeout,
		now:     time.Now,
	}

	if !s.IsConnected(ctx) {
		slog.Warn("MongoDB not reachable, books will be treated as new", "uri", cfg.MongoURI)
		return s, nil
	}

	_, err = s.books.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "book_hash", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		slog.Warn("Unable to create book_hash index", "err", err)
	}

	slog.Info("Connected to MongoDB", "database", cfg.MongoDatabase, "collection", cfg.MongoCollection)
	return s, nil
}

func (s *MongoStore) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary()) == nil
}

func (s *MongoStore) GetByIdentity(ctx context.Context, id string) (*models.BookAggregate, error) {
	var agg models.BookAggregate
	err := s.books.FindOne(ctx, bson.M{"book_hash": id}).Decode(&agg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, s.wrap(fmt.Errorf("failed to find book %s: %w", id, err))
	}
	return &agg, nil
}

func (s *MongoStore) GetByMetadata(ctx context.Context, meta models.Metadata) (*models.BookAggregate, error) {
	return s.GetByIdentity(ctx, s.hasher.Derive(meta))
}

func (s *MongoStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.books.CountDocuments(ctx, bson.M{"book_hash": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, s.wrap(fmt.Errorf("failed to count book %s: %w", id, err))
	}
	return n > 0, nil
}

// Upsert sets the metadata, creating the document when needed, then replaces
// the scan with the same raw page token in place or pushes it.
func (s *MongoStore) Upsert(ctx context.Context, id string, meta models.Metadata, scan models.ScanRecord) error {
	now := s.now().UTC()

	bookUpdate, err := metadataUpdate(id, meta, now)
	if err != nil {
		return err
	}
	_, err = s.books.UpdateOne(ctx, bson.M{"book_hash": id}, bookUpdate, options.Update().SetUpsert(true))
	if err != nil {
		return s.wrap(fmt.Errorf("failed to upsert book %s: %w", id, err))
	}

	scan.ProcessedAt = now
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = now
	}
	replace, push, err := scanUpdates(scan)
	if err != nil {
		return err
	}

	res, err := s.books.UpdateOne(ctx, bson.M{"book_hash": id, "scans.page_raw_number_str": scan.RawToken}, replace)
	if err != nil {
		return s.wrap(fmt.Errorf("failed to update scan %s of %s: %w", scan.RawToken, id, err))
	}
	if res.MatchedCount > 0 {
		return nil
	}

	if _, err := s.books.UpdateOne(ctx, bson.M{"book_hash": id}, push); err != nil {
		return s.wrap(fmt.Errorf("failed to add scan %s to %s: %w", scan.RawToken, id, err))
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]*models.BookAggregate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "book_hash", Value: 1}})
	cursor, err := s.books.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, s.wrap(fmt.Errorf("failed to list books: %w", err))
	}

	var result []*models.BookAggregate
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode books: %w", err)
	}
	return result, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// wrap marks errors caused by server selection so callers can tell an
// outage from a bad document.
func (s *MongoStore) wrap(err error) error {
	if errors.Is(err, mongo.ErrClientDisconnected) || mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func metadataUpdate(id string, meta models.Metadata, now time.Time) (bson.M, error) {
	set, err := toDoc(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata for %s: %w", id, err)
	}
	set["last_updated_book_at"] = now

	return bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"book_hash":  id,
			"created_at": now,
			"scans":      bson.A{},
		},
	}, nil
}

// scanUpdates returns the positional update for an existing token, which
// leaves created_at alone, and the push for a new one.
func scanUpdates(scan models.ScanRecord) (replace, push bson.M, err error) {
	doc, err := toDoc(scan)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode scan %s: %w", scan.RawToken, err)
	}

	set := bson.M{}
	for k, v := range doc {
		if k == "created_at" {
			continue
		}
		set["scans.$."+k] = v
	}
	return bson.M{"$set": set}, bson.M{"$push": bson.M{"scans": doc}}, nil
}

func toDoc(v any) (bson.M, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
