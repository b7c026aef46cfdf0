package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	collectionName = "car_models"

	summaryCacheKey = "catalog:summaries"
	summaryCacheTTL = 5 * time.Minute
)

var (
	// ErrNotFound indicates no catalog document exists for the slug.
	ErrNotFound = errors.New("catalog: car model not found")
	// ErrDuplicateSlug indicates a create collided with an existing slug.
	ErrDuplicateSlug = errors.New("catalog: slug already exists")
)

// Store handles car-model document CRUD in MongoDB, with an optional redis
// cache in front of the summary listing.
type Store struct {
	col    *mongo.Collection
	cache  *redis.Client
	logger *zap.Logger
}

// StoreConfig describes the dependencies for a catalog store. Cache and Logger
// are optional.
type StoreConfig struct {
	Database *mongo.Database
	Cache    *redis.Client
	Logger   *zap.Logger
}

// NewStore constructs a catalog store bound to the car_models collection.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, errors.New("catalog: mongo database required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		col:    cfg.Database.Collection(collectionName),
		cache:  cfg.Cache,
		logger: logger,
	}, nil
}

// EnsureIndexes creates the unique slug index backing duplicate detection.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("catalog: create slug index: %w", err)
	}
	return nil
}

// List returns catalog summaries for every model, sorted by name.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	if cached, ok := s.cachedSummaries(ctx); ok {
		return cached, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer cur.Close(ctx)

	var models []CarModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("catalog: decode list: %w", err)
	}

	summaries := make([]Summary, 0, len(models))
	for _, model := range models {
		summaries = append(summaries, model.Summarize())
	}

	s.storeSummaries(ctx, summaries)
	return summaries, nil
}

// Get returns the full document for a slug.
func (s *Store) Get(ctx context.Context, slug string) (*CarModel, error) {
	var model CarModel
	err := s.col.FindOne(ctx, bson.M{"slug": slug}).Decode(&model)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get %q: %w", slug, err)
	}
	return &model, nil
}

// Create persists a new catalog document.
func (s *Store) Create(ctx context.Context, model *CarModel) (*CarModel, error) {
	if _, err := s.col.InsertOne(ctx, model); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("catalog: create %q: %w", model.Slug, err)
	}
	s.invalidateSummaries(ctx)
	return model, nil
}

// Update replaces the document for a slug.
func (s *Store) Update(ctx context.Context, slug string, model *CarModel) (*CarModel, error) {
	model.Slug = slug
	result, err := s.col.ReplaceOne(ctx, bson.M{"slug": slug}, model)
	if err != nil {
		return nil, fmt.Errorf("catalog: update %q: %w", slug, err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	s.invalidateSummaries(ctx)
	return model, nil
}

// Remove deletes the document for a slug.
func (s *Store) Remove(ctx context.Context, slug string) error {
	result, err := s.col.DeleteOne(ctx, bson.M{"slug": slug})
	if err != nil {
		return fmt.Errorf("catalog: remove %q: %w", slug, err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	s.invalidateSummaries(ctx)
	return nil
}

func (s *Store) cachedSummaries(ctx context.Context) ([]Summary, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, summaryCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("catalog cache read failed", zap.Error(err))
		return nil, false
	}
	var summaries []Summary
	if err := json.Unmarshal(raw, &summaries); err != nil {
		s.logger.Warn("catalog cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return summaries, true
}

func (s *Store) storeSummaries(ctx context.Context, summaries []Summary) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(summaries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, summaryCacheKey, raw, summaryCacheTTL).Err(); err != nil {
		s.logger.Warn("catalog cache write failed", zap.Error(err))
	}
}

func (s *Store) invalidateSummaries(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryCacheKey).Err(); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}
