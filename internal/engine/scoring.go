package engine

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// The three scoring strategies below share one contract: they return a
// dense score vector aligned to the snapshot's item index ordering, and a
// user without the signal the strategy needs yields an all-zero vector.
// That all-zero vector is the cold-start signal the aggregator reads; it is
// never an error.

// ItemBasedScores scores every item as the similarity-weighted sum of the
// user's existing interaction weights: M[u,:] · S_item. Items the user
// already touched are not masked here; their similarity still contributes
// to the scores of other items. The aggregator masks them afterwards.
func (s *Snapshot) ItemBasedScores(userID int64) []float64 {
	scores := make([]float64, s.NumItems())
	row, ok := s.userRow(userID)
	if !ok || s.interactions == nil {
		return scores
	}
	u := mat.NewVecDense(s.NumItems(), nil)
	for j := 0; j < s.NumItems(); j++ {
		u.SetVec(j, s.interactions.At(row, j))
	}
	var out mat.VecDense
	out.MulVec(s.itemSim, u)
	copy(scores, out.RawVector().Data)
	return scores
}

// UserBasedScores takes the top-k users most similar to the target (ties
// broken by lower user id) and sums their interaction rows weighted by
// their similarity.
func (s *Snapshot) UserBasedScores(userID int64) []float64 {
	scores := make([]float64, s.NumItems())
	row, ok := s.userRow(userID)
	if !ok || s.interactions == nil {
		return scores
	}

	type neighbor struct {
		row int
		sim float64
	}
	neighbors := make([]neighbor, 0, s.NumUsers()-1)
	for i := 0; i < s.NumUsers(); i++ {
		if i == row {
			continue
		}
		neighbors = append(neighbors, neighbor{row: i, sim: s.userSim.At(row, i)})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return s.userIDs[neighbors[i].row] < s.userIDs[neighbors[j].row]
	})
	if len(neighbors) > s.topKSimilarUsers {
		neighbors = neighbors[:s.topKSimilarUsers]
	}

	other := make([]float64, s.NumItems())
	for _, n := range neighbors {
		if n.sim == 0 {
			continue
		}
		mat.Row(other, n.row, s.interactions)
		floats.AddScaled(scores, n.sim, other)
	}
	return scores
}

// ContentBasedScores builds the user's content profile, the weighted
// average of feature rows for items in their history, and scores every
// catalog item by cosine similarity to it. The profile uses the full
// history, not the interaction matrix, so users below the collaborative
// threshold still get content scores; that is the point of this strategy.
func (s *Snapshot) ContentBasedScores(userID int64) []float64 {
	scores := make([]float64, s.NumItems())
	items := s.history[userID]
	if len(items) == 0 {
		return scores
	}

	_, dim := s.features.Dims()
	profile := make([]float64, dim)
	featRow := make([]float64, dim)
	var total float64
	for itemID, w := range items {
		col, ok := s.itemIndex[itemID]
		if !ok {
			continue
		}
		mat.Row(featRow, col, s.features)
		floats.AddScaled(profile, w, featRow)
		total += w
	}
	if total == 0 {
		return scores
	}
	floats.Scale(1/total, profile)

	for i := 0; i < s.NumItems(); i++ {
		mat.Row(featRow, i, s.features)
		scores[i] = cosine(featRow, profile)
	}
	return scores
}
