package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/recsys/pkg/models"
)

func fitTestSnapshot(t *testing.T, interactions []models.Interaction, catalog []models.Product, users []models.User) *Snapshot {
	t.Helper()
	s, err := fitSnapshot(context.Background(), testEngineConfig(), testLogger(), interactions, catalog, users)
	require.NoError(t, err)
	return s
}

func TestItemBasedScores(t *testing.T) {
	t.Run("scores are interaction weights times item similarity", func(t *testing.T) {
		// Single user: view(A), purchase(B) → M[user] = [1, 3, 0]. Item C's
		// score must be S_item[A,C]·1 + S_item[B,C]·3.
		s := fitTestSnapshot(t, []models.Interaction{
			{UserID: 7, ItemID: 1, Action: models.ActionView, Timestamp: at(1)},
			{UserID: 7, ItemID: 2, Action: models.ActionPurchase, Timestamp: at(2)},
		}, threeItemCatalog(), nil)

		scores := s.ItemBasedScores(7)
		require.Len(t, scores, 3)
		for j := 0; j < 3; j++ {
			expected := s.itemSim.At(0, j)*1 + s.itemSim.At(1, j)*3
			assert.InDelta(t, expected, scores[j], 1e-12)
		}
	})

	t.Run("absent user yields all zeros", func(t *testing.T) {
		s := fitTestSnapshot(t, []models.Interaction{
			{UserID: 7, ItemID: 1, Action: models.ActionView},
			{UserID: 7, ItemID: 2, Action: models.ActionView},
		}, threeItemCatalog(), nil)

		assert.Equal(t, []float64{0, 0, 0}, s.ItemBasedScores(404))
	})
}

func TestUserBasedScores(t *testing.T) {
	interactions := []models.Interaction{
		// Target: items 1 and 2.
		{UserID: 7, ItemID: 1, Action: models.ActionView},
		{UserID: 7, ItemID: 2, Action: models.ActionView},
		// Neighbor with overlapping taste plus item 3.
		{UserID: 8, ItemID: 1, Action: models.ActionView},
		{UserID: 8, ItemID: 2, Action: models.ActionView},
		{UserID: 8, ItemID: 3, Action: models.ActionPurchase},
	}
	s := fitTestSnapshot(t, interactions, threeItemCatalog(), nil)

	t.Run("neighbors contribute their rows weighted by similarity", func(t *testing.T) {
		scores := s.UserBasedScores(7)
		require.Len(t, scores, 3)

		sim := s.userSim.At(0, 1) // users sorted: 7 is row 0, 8 is row 1
		assert.Greater(t, sim, 0.0)
		assert.InDelta(t, sim*1, scores[0], 1e-12)
		assert.InDelta(t, sim*1, scores[1], 1e-12)
		assert.InDelta(t, sim*3, scores[2], 1e-12)
	})

	t.Run("absent user yields all zeros", func(t *testing.T) {
		assert.Equal(t, []float64{0, 0, 0}, s.UserBasedScores(404))
	})
}

func TestUserBasedScoresTopKTieBreak(t *testing.T) {
	cfg := testEngineConfig()
	cfg.TopKSimilarUsers = 1

	// Users 8 and 9 have identical rows, so identical similarity to 7. With
	// k=1 the tie must resolve to the lower user id.
	interactions := []models.Interaction{
		{UserID: 7, ItemID: 1, Action: models.ActionView},
		{UserID: 7, ItemID: 2, Action: models.ActionView},
		{UserID: 8, ItemID: 1, Action: models.ActionView},
		{UserID: 8, ItemID: 3, Action: models.ActionCart},
		{UserID: 9, ItemID: 1, Action: models.ActionView},
		{UserID: 9, ItemID: 3, Action: models.ActionCart},
	}
	s, err := fitSnapshot(context.Background(), cfg, testLogger(), interactions, threeItemCatalog(), nil)
	require.NoError(t, err)

	scores := s.UserBasedScores(7)

	sim := s.userSim.At(0, 1)
	assert.InDelta(t, sim*1, scores[0], 1e-12)
	assert.InDelta(t, 0.0, scores[1], 1e-12)
	assert.InDelta(t, sim*2, scores[2], 1e-12)
}

func TestContentBasedScores(t *testing.T) {
	t.Run("partially cold user still gets content scores", func(t *testing.T) {
		// User 8 has a single interaction, below min_interactions=2: no
		// collaborative signal, but the content profile works.
		interactions := []models.Interaction{
			{UserID: 7, ItemID: 1, Action: models.ActionView},
			{UserID: 7, ItemID: 2, Action: models.ActionView},
			{UserID: 8, ItemID: 1, Action: models.ActionPurchase},
		}
		s := fitTestSnapshot(t, interactions, threeItemCatalog(), nil)

		assert.Equal(t, []float64{0, 0, 0}, s.ItemBasedScores(8))
		assert.Equal(t, []float64{0, 0, 0}, s.UserBasedScores(8))

		scores := s.ContentBasedScores(8)
		// Item 1 is the profile itself; item 2 shares the Electronics
		// category; both must beat the Fashion item.
		assert.Greater(t, scores[0], scores[2])
		assert.Greater(t, scores[1], scores[2])
	})

	t.Run("profile weights favor heavily interacted items", func(t *testing.T) {
		interactions := []models.Interaction{
			{UserID: 7, ItemID: 1, Action: models.ActionView},
			{UserID: 7, ItemID: 3, Action: models.ActionPurchase},
			{UserID: 7, ItemID: 3, Action: models.ActionPurchase},
		}
		s := fitTestSnapshot(t, interactions, threeItemCatalog(), nil)

		scores := s.ContentBasedScores(7)
		// Profile is dominated by item 3 (weight 6 vs 1).
		assert.Greater(t, scores[2], scores[0])
	})

	t.Run("no history yields all zeros", func(t *testing.T) {
		interactions := []models.Interaction{
			{UserID: 7, ItemID: 1, Action: models.ActionView},
			{UserID: 7, ItemID: 2, Action: models.ActionView},
		}
		s := fitTestSnapshot(t, interactions, threeItemCatalog(), nil)
		assert.Equal(t, []float64{0, 0, 0}, s.ContentBasedScores(404))
	})
}
