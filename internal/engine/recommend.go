package engine

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/merchkit/recsys/internal/config"
	"github.com/merchkit/recsys/pkg/models"
)

// Strategy selects which score vector(s) back a recommendation request.
type Strategy string

const (
	StrategyHybrid     Strategy = "hybrid"
	StrategyItem       Strategy = "item_based"
	StrategyUser       Strategy = "user_based"
	StrategyContent    Strategy = "content_based"
	StrategyPopularity Strategy = "popularity"
)

// Recommend ranks the catalog for a user. It is a pure function of the
// fitted snapshot and the request parameters; two calls with the same
// snapshot, user, weights and topN return identical lists.
//
// A user id missing from the user table is an UnknownUserError. A known
// user with no history at all takes the popularity path: there is no
// signal to combine, so the weighted sum is skipped entirely rather than
// degenerating to zeros.
func (s *Snapshot) Recommend(userID int64, topN int, w config.HybridWeights) ([]models.ScoredItem, error) {
	if _, known := s.knownUsers[userID]; !known {
		return nil, &UnknownUserError{UserID: userID}
	}
	if len(s.history[userID]) == 0 {
		return s.PopularItems(topN), nil
	}

	item := s.ItemBasedScores(userID)
	user := s.UserBasedScores(userID)
	content := s.ContentBasedScores(userID)

	// The three strategies score on incomparable raw scales; min-max
	// normalization makes the blend fair.
	minMaxNormalize(item)
	minMaxNormalize(user)
	minMaxNormalize(content)

	combined := make([]float64, s.NumItems())
	floats.AddScaled(combined, w.Item, item)
	floats.AddScaled(combined, w.User, user)
	floats.AddScaled(combined, w.Content, content)

	return s.rank(combined, s.history[userID], topN, string(StrategyHybrid)), nil
}

// RecommendByStrategy ranks using a single strategy's raw scores. Used by
// the evaluator to compare strategies in isolation; w only applies to the
// hybrid strategy.
func (s *Snapshot) RecommendByStrategy(userID int64, topN int, strategy Strategy, w config.HybridWeights) ([]models.ScoredItem, error) {
	if strategy == StrategyHybrid {
		return s.Recommend(userID, topN, w)
	}
	if _, known := s.knownUsers[userID]; !known {
		return nil, &UnknownUserError{UserID: userID}
	}
	if len(s.history[userID]) == 0 || strategy == StrategyPopularity {
		return s.PopularItems(topN), nil
	}

	var scores []float64
	switch strategy {
	case StrategyItem:
		scores = s.ItemBasedScores(userID)
	case StrategyUser:
		scores = s.UserBasedScores(userID)
	case StrategyContent:
		scores = s.ContentBasedScores(userID)
	default:
		return nil, dataErrorf("unknown strategy %q", strategy)
	}
	return s.rank(scores, s.history[userID], topN, string(strategy)), nil
}

// PopularItems returns the global top items by total interaction weight,
// ties broken by item id. This is the cold-start fallback.
func (s *Snapshot) PopularItems(topN int) []models.ScoredItem {
	return s.rank(s.popularity, nil, topN, string(StrategyPopularity))
}

// rank orders candidate items by score descending, breaking ties by
// catalog popularity and then by item id so the ordering is total. Items
// present in exclude (the user's interaction history) never appear.
func (s *Snapshot) rank(scores []float64, exclude map[int64]float64, topN int, strategy string) []models.ScoredItem {
	idx := make([]int, 0, len(scores))
	for i := range scores {
		if _, seen := exclude[s.itemIDs[i]]; seen {
			continue
		}
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if scores[i] != scores[j] {
			return scores[i] > scores[j]
		}
		if s.popularity[i] != s.popularity[j] {
			return s.popularity[i] > s.popularity[j]
		}
		return s.itemIDs[i] < s.itemIDs[j]
	})
	if len(idx) > topN {
		idx = idx[:topN]
	}

	out := make([]models.ScoredItem, len(idx))
	for n, i := range idx {
		out[n] = models.ScoredItem{ItemID: s.itemIDs[i], Score: scores[i], Strategy: strategy}
	}
	return out
}

// minMaxNormalize rescales v onto [0,1] in place. An all-zero vector is
// left alone so it contributes nothing to the hybrid blend; a constant
// nonzero vector maps to all ones.
func minMaxNormalize(v []float64) {
	if len(v) == 0 {
		return
	}
	min, max := floats.Min(v), floats.Max(v)
	if max == min {
		if max != 0 {
			for i := range v {
				v[i] = 1
			}
		}
		return
	}
	for i := range v {
		v[i] = (v[i] - min) / (max - min)
	}
}
