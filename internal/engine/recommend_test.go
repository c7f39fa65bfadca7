package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/recsys/internal/config"
	"github.com/merchkit/recsys/pkg/models"
)

func TestMinMaxNormalize(t *testing.T) {
	t.Run("rescales onto unit interval", func(t *testing.T) {
		v := []float64{2, 4, 8}
		minMaxNormalize(v)
		assert.Equal(t, []float64{0, 1.0 / 3, 1}, v)
	})

	t.Run("all-zero vector is left alone", func(t *testing.T) {
		v := []float64{0, 0, 0}
		minMaxNormalize(v)
		assert.Equal(t, []float64{0, 0, 0}, v)
	})

	t.Run("constant nonzero vector maps to ones", func(t *testing.T) {
		v := []float64{5, 5, 5}
		minMaxNormalize(v)
		assert.Equal(t, []float64{1, 1, 1}, v)
	})
}

func fiveItemCatalog() []models.Product {
	return append(threeItemCatalog(),
		models.Product{ID: 4, Name: "D", Category: "Home", Brand: "CozyNest", Price: 80, Rating: 4.2},
		models.Product{ID: 5, Name: "E", Category: "Home", Brand: "CozyNest", Price: 120, Rating: 4.8},
	)
}

func denseInteractions() []models.Interaction {
	return []models.Interaction{
		{UserID: 7, ItemID: 1, Action: models.ActionView, Timestamp: at(1)},
		{UserID: 7, ItemID: 2, Action: models.ActionPurchase, Timestamp: at(2)},
		{UserID: 8, ItemID: 1, Action: models.ActionView, Timestamp: at(1)},
		{UserID: 8, ItemID: 3, Action: models.ActionCart, Timestamp: at(3)},
		{UserID: 8, ItemID: 4, Action: models.ActionPurchase, Timestamp: at(4)},
		{UserID: 9, ItemID: 2, Action: models.ActionView, Timestamp: at(2)},
		{UserID: 9, ItemID: 4, Action: models.ActionView, Timestamp: at(5)},
		{UserID: 9, ItemID: 5, Action: models.ActionPurchase, Timestamp: at(6)},
	}
}

func TestSnapshotRecommend(t *testing.T) {
	users := []models.User{{ID: 7}, {ID: 8}, {ID: 9}, {ID: 100}}
	s := fitTestSnapshot(t, denseInteractions(), fiveItemCatalog(), users)
	weights := config.HybridWeights{Item: 0.4, User: 0.3, Content: 0.3}

	t.Run("never returns already-interacted items", func(t *testing.T) {
		recs, err := s.Recommend(7, 5, weights)
		require.NoError(t, err)
		for _, r := range recs {
			assert.NotContains(t, []int64{1, 2}, r.ItemID)
		}
	})

	t.Run("is deterministic for fixed inputs", func(t *testing.T) {
		first, err := s.Recommend(8, 3, weights)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := s.Recommend(8, 3, weights)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	t.Run("unknown user is an error not a fallback", func(t *testing.T) {
		_, err := s.Recommend(404, 3, weights)
		var unknown *UnknownUserError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, int64(404), unknown.UserID)
	})

	t.Run("registered user with no history gets the popularity list", func(t *testing.T) {
		// Item weights: 1→2, 2→4, 3→2, 4→4, 5→3. Ties resolve by
		// popularity then id, so the full order is fixed.
		for _, w := range []config.HybridWeights{
			weights,
			{Item: 1},
			{Content: 1},
		} {
			recs, err := s.Recommend(100, 3, w)
			require.NoError(t, err)
			require.Len(t, recs, 3)
			assert.Equal(t, int64(2), recs[0].ItemID)
			assert.Equal(t, int64(4), recs[1].ItemID)
			assert.Equal(t, int64(5), recs[2].ItemID)
			assert.Equal(t, string(StrategyPopularity), recs[0].Strategy)
		}
	})

	t.Run("truncates to topN", func(t *testing.T) {
		recs, err := s.Recommend(7, 2, weights)
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("partially cold user falls through to content signal", func(t *testing.T) {
		interactions := append(denseInteractions(),
			models.Interaction{UserID: 10, ItemID: 4, Action: models.ActionPurchase, Timestamp: at(7)})
		s2 := fitTestSnapshot(t, interactions, fiveItemCatalog(), users)

		recs, err := s2.Recommend(10, 2, weights)
		require.NoError(t, err)
		require.NotEmpty(t, recs)
		assert.Equal(t, string(StrategyHybrid), recs[0].Strategy)
		// Item 5 shares category and brand with the only purchase.
		assert.Equal(t, int64(5), recs[0].ItemID)
	})
}

func TestRecommendByStrategy(t *testing.T) {
	users := []models.User{{ID: 7}, {ID: 8}, {ID: 9}}
	s := fitTestSnapshot(t, denseInteractions(), fiveItemCatalog(), users)
	weights := config.HybridWeights{Item: 0.4, User: 0.3, Content: 0.3}

	for _, strategy := range []Strategy{StrategyItem, StrategyUser, StrategyContent, StrategyHybrid, StrategyPopularity} {
		t.Run(string(strategy), func(t *testing.T) {
			recs, err := s.RecommendByStrategy(7, 3, strategy, weights)
			require.NoError(t, err)
			assert.NotEmpty(t, recs)
		})
	}

	t.Run("rejects unknown strategies", func(t *testing.T) {
		_, err := s.RecommendByStrategy(7, 3, Strategy("pagerank"), weights)
		require.Error(t, err)
	})
}

func TestNormalizedScoreVectorBounds(t *testing.T) {
	s := fitTestSnapshot(t, denseInteractions(), fiveItemCatalog(), nil)

	for _, userID := range []int64{7, 8, 9} {
		for _, scores := range [][]float64{
			s.ItemBasedScores(userID),
			s.UserBasedScores(userID),
			s.ContentBasedScores(userID),
		} {
			minMaxNormalize(scores)
			anyNonZero := false
			min, max := 1.0, 0.0
			for _, v := range scores {
				if v != 0 {
					anyNonZero = true
				}
				if v < min {
					min = v
				}
				if v > max {
					max = v
				}
			}
			if anyNonZero {
				assert.Equal(t, 0.0, min)
				assert.Equal(t, 1.0, max)
			}
		}
	}
}
