package models

// ScoredItem is one ranked recommendation candidate.
type ScoredItem struct {
	ItemID   int64   `json:"item_id"`
	Score    float64 `json:"score"`
	Strategy string  `json:"strategy"`
}

// RankingMetrics are offline ranking-quality metrics at a fixed cutoff K,
// averaged over all evaluated users.
type RankingMetrics struct {
	K         int     `json:"k"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	NDCG      float64 `json:"ndcg"`
	Users     int     `json:"users"`
}
