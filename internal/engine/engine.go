package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/merchkit/recsys/internal/config"
	"github.com/merchkit/recsys/pkg/models"
)

// ResultCache caches ranked lists for a (snapshot, user, request) triple.
// Keys include the snapshot id, so every refit invalidates the cache
// implicitly. Implemented by the redis cache in internal/cache.
type ResultCache interface {
	Get(ctx context.Context, snapshotID uuid.UUID, userID int64, topN int, w config.HybridWeights) ([]models.ScoredItem, bool)
	Set(ctx context.Context, snapshotID uuid.UUID, userID int64, topN int, w config.HybridWeights, items []models.ScoredItem)
}

// Engine owns the current fitted snapshot and coordinates refits against
// concurrent scoring. Scoring reads whatever snapshot is installed at call
// time; a fit builds the next snapshot on the side and installs it with a
// single atomic swap, so readers never observe a partial fit.
type Engine struct {
	cfg    *config.EngineConfig
	logger *logrus.Logger
	cache  ResultCache

	current atomic.Pointer[Snapshot]
	fitMu   sync.Mutex // at most one fit in flight
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithResultCache attaches a recommendation result cache.
func WithResultCache(c ResultCache) Option {
	return func(e *Engine) { e.cache = c }
}

func New(cfg *config.EngineConfig, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit builds a complete snapshot from a full interaction log snapshot and
// the catalog, then installs it as the serving snapshot. On any error the
// previously installed snapshot stays in place untouched. If ctx is
// cancelled before installation the freshly built snapshot is discarded.
func (e *Engine) Fit(ctx context.Context, interactions []models.Interaction,
	catalog []models.Product, users []models.User) (*Snapshot, error) {

	e.fitMu.Lock()
	defer e.fitMu.Unlock()

	start := time.Now()
	snapshot, err := fitSnapshot(ctx, e.cfg, e.logger, interactions, catalog, users)
	if err != nil {
		observeFit(time.Since(start), false)
		e.logger.WithError(err).Error("Fit failed, keeping previous snapshot")
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		observeFit(time.Since(start), false)
		e.logger.WithError(err).Warn("Fit cancelled, discarding built snapshot")
		return nil, err
	}

	e.current.Store(snapshot)
	observeFit(time.Since(start), true)
	e.logger.WithFields(logrus.Fields{
		"snapshot_id": snapshot.ID,
		"users":       snapshot.NumUsers(),
		"items":       snapshot.NumItems(),
		"duration":    time.Since(start),
	}).Info("Installed new snapshot")
	return snapshot, nil
}

// fitSnapshot runs the full batch pipeline: matrix build, then both
// similarity matrices. It never touches engine state.
func fitSnapshot(ctx context.Context, cfg *config.EngineConfig, logger *logrus.Logger,
	interactions []models.Interaction, catalog []models.Product, users []models.User) (*Snapshot, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot, err := buildMatrices(cfg, logger, interactions, catalog)
	if err != nil {
		return nil, err
	}

	if snapshot.interactions != nil {
		snapshot.itemSim = cosineSimilarity(snapshot.interactions.T())
		snapshot.userSim = cosineSimilarity(snapshot.interactions)
	}

	// Known users: the user table, plus anyone present in the log. Ids
	// outside this set are unknown users, not cold starts.
	snapshot.knownUsers = make(map[int64]struct{}, len(users)+len(snapshot.history))
	for _, u := range users {
		snapshot.knownUsers[u.ID] = struct{}{}
	}
	for id := range snapshot.history {
		snapshot.knownUsers[id] = struct{}{}
	}

	snapshot.ID = uuid.New()
	snapshot.FittedAt = time.Now()
	return snapshot, nil
}

// Current returns the serving snapshot, or nil before the first fit.
func (e *Engine) Current() *Snapshot {
	return e.current.Load()
}

// Recommend ranks topN items for a user against the current snapshot.
func (e *Engine) Recommend(ctx context.Context, userID int64, topN int, w config.HybridWeights) ([]models.ScoredItem, error) {
	snapshot := e.current.Load()
	if snapshot == nil {
		return nil, ErrNotFitted
	}

	if e.cache != nil {
		if items, ok := e.cache.Get(ctx, snapshot.ID, userID, topN, w); ok {
			observeCache(true)
			return items, nil
		}
		observeCache(false)
	}

	items, err := snapshot.Recommend(userID, topN, w)
	if err != nil {
		return nil, err
	}

	strategy := string(StrategyHybrid)
	if len(items) > 0 {
		strategy = items[0].Strategy
	}
	observeRecommendation(strategy)
	if strategy == string(StrategyPopularity) {
		e.logger.WithField("user_id", userID).Debug("Cold-start user, served popularity fallback")
	}

	if e.cache != nil {
		e.cache.Set(ctx, snapshot.ID, userID, topN, w, items)
	}
	return items, nil
}
