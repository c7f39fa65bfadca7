package engine

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/merchkit/recsys/internal/config"
	"github.com/merchkit/recsys/pkg/models"
)

// buildMatrices turns the interaction log and catalog into the interaction
// matrix, content feature matrix and popularity vector of a new snapshot.
// It also fixes the row/column index orderings every later matrix and score
// vector aligns to: user ids and item ids in ascending order, so refitting
// an unchanged log reproduces bit-identical matrices.
func buildMatrices(cfg *config.EngineConfig, logger *logrus.Logger,
	interactions []models.Interaction, catalog []models.Product) (*Snapshot, error) {

	if len(interactions) == 0 {
		return nil, dataErrorf("interaction log is empty")
	}
	if len(catalog) == 0 {
		return nil, dataErrorf("catalog is empty")
	}

	itemIDs := make([]int64, 0, len(catalog))
	itemIndex := make(map[int64]int, len(catalog))
	for _, p := range catalog {
		if _, dup := itemIndex[p.ID]; dup {
			return nil, dataErrorf("duplicate item id %d in catalog", p.ID)
		}
		itemIndex[p.ID] = 0 // reserve; positions assigned after sorting
		itemIDs = append(itemIDs, p.ID)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })
	for i, id := range itemIDs {
		itemIndex[id] = i
	}

	weights := map[models.Action]float64{
		models.ActionView:     cfg.ActionWeights.View,
		models.ActionCart:     cfg.ActionWeights.Cart,
		models.ActionPurchase: cfg.ActionWeights.Purchase,
	}

	// Aggregate the log: summed action weight per (user, item). Rows that
	// reference items missing from the catalog are dropped, not retained.
	history := make(map[int64]map[int64]float64)
	popularity := make([]float64, len(itemIDs))
	dropped := 0
	for _, in := range interactions {
		w, ok := weights[in.Action]
		if !ok {
			dropped++
			continue
		}
		col, ok := itemIndex[in.ItemID]
		if !ok {
			dropped++
			continue
		}
		items := history[in.UserID]
		if items == nil {
			items = make(map[int64]float64)
			history[in.UserID] = items
		}
		items[in.ItemID] += w
		popularity[col] += w
	}
	if dropped > 0 {
		logger.WithFields(logrus.Fields{
			"dropped": dropped,
			"total":   len(interactions),
		}).Warn("Dropped interactions referencing unknown items or actions")
	}
	if len(history) == 0 {
		return nil, dataErrorf("no interaction references an item in the catalog")
	}

	// Only users with enough distinct items enter the collaborative index
	// space; the rest stay in history as cold-start candidates.
	userIDs := make([]int64, 0, len(history))
	for userID, items := range history {
		if len(items) >= cfg.MinInteractions {
			userIDs = append(userIDs, userID)
		}
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	userIndex := make(map[int64]int, len(userIDs))
	for i, id := range userIDs {
		userIndex[id] = i
	}

	var m *mat.Dense
	if len(userIDs) > 0 {
		m = mat.NewDense(len(userIDs), len(itemIDs), nil)
		for row, userID := range userIDs {
			for itemID, w := range history[userID] {
				m.Set(row, itemIndex[itemID], w)
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"users": len(userIDs),
		"items": len(itemIDs),
	}).Info("Built user-item interaction matrix")

	return &Snapshot{
		interactions:     m,
		features:         buildContentFeatures(catalog, itemIndex),
		popularity:       popularity,
		userIDs:          userIDs,
		userIndex:        userIndex,
		itemIDs:          itemIDs,
		itemIndex:        itemIndex,
		history:          history,
		topKSimilarUsers: cfg.TopKSimilarUsers,
	}, nil
}

// buildContentFeatures derives the item×feature matrix from the catalog
// alone: one-hot category, one-hot brand, min-max-normalized price and the
// rating mapped from its [1,5] domain onto [0,1].
func buildContentFeatures(catalog []models.Product, itemIndex map[int64]int) *mat.Dense {
	categories := make(map[string]int)
	brands := make(map[string]int)
	for _, p := range catalog {
		if _, ok := categories[p.Category]; !ok {
			categories[p.Category] = 0
		}
		if _, ok := brands[p.Brand]; !ok {
			brands[p.Brand] = 0
		}
	}
	for i, c := range sortedKeys(categories) {
		categories[c] = i
	}
	for i, b := range sortedKeys(brands) {
		brands[b] = i
	}

	priceMin, priceMax := catalog[0].Price, catalog[0].Price
	for _, p := range catalog[1:] {
		if p.Price < priceMin {
			priceMin = p.Price
		}
		if p.Price > priceMax {
			priceMax = p.Price
		}
	}

	dim := len(categories) + len(brands) + 2
	f := mat.NewDense(len(itemIndex), dim, nil)
	for _, p := range catalog {
		row := itemIndex[p.ID]
		f.Set(row, categories[p.Category], 1)
		f.Set(row, len(categories)+brands[p.Brand], 1)
		if priceMax > priceMin {
			f.Set(row, dim-2, (p.Price-priceMin)/(priceMax-priceMin))
		}
		f.Set(row, dim-1, (p.Rating-1)/4)
	}
	return f
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
