package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/merchkit/recsys/internal/config"
	"github.com/merchkit/recsys/pkg/models"
)

// RecommendationCache stores ranked lists in redis. Keys embed the
// snapshot id, so every refit strands the old entries and they expire on
// their own; nothing ever has to be invalidated explicitly. Cache failures
// are logged and swallowed; redis being down degrades to recomputing.
type RecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRecommendationCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RecommendationCache {
	return &RecommendationCache{client: client, ttl: ttl, logger: logger}
}

func (c *RecommendationCache) Get(ctx context.Context, snapshotID uuid.UUID, userID int64,
	topN int, w config.HybridWeights) ([]models.ScoredItem, bool) {

	data, err := c.client.Get(ctx, c.key(snapshotID, userID, topN, w)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).Warn("Recommendation cache read failed")
		return nil, false
	}

	var items []models.ScoredItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		c.logger.WithError(err).Warn("Recommendation cache entry corrupt")
		return nil, false
	}
	return items, true
}

func (c *RecommendationCache) Set(ctx context.Context, snapshotID uuid.UUID, userID int64,
	topN int, w config.HybridWeights, items []models.ScoredItem) {

	data, err := json.Marshal(items)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to marshal recommendations for cache")
		return
	}
	if err := c.client.Set(ctx, c.key(snapshotID, userID, topN, w), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("Recommendation cache write failed")
	}
}

func (c *RecommendationCache) key(snapshotID uuid.UUID, userID int64, topN int, w config.HybridWeights) string {
	return fmt.Sprintf("recs:%s:%d:%d:%g:%g:%g", snapshotID, userID, topN, w.Item, w.User, w.Content)
}
