package engine

import (
	"context"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/merchkit/recsys/internal/config"
	"github.com/merchkit/recsys/pkg/models"
)

// Evaluator measures offline ranking quality with a leave-last-out
// protocol: each user's chronologically most recent interactions are held
// out as test data, the pipeline is refit on the remainder, and the
// held-out items are the relevance labels. The split is chronological, not
// random, so no future signal leaks into training.
type Evaluator struct {
	engineCfg *config.EngineConfig
	evalCfg   *config.EvaluationConfig
	logger    *logrus.Logger
}

func NewEvaluator(engineCfg *config.EngineConfig, evalCfg *config.EvaluationConfig, logger *logrus.Logger) *Evaluator {
	return &Evaluator{engineCfg: engineCfg, evalCfg: evalCfg, logger: logger}
}

// Split partitions the log per user. Users with fewer than three
// interactions contribute training rows only; for everyone else the most
// recent max(1, n·holdout_ratio) interactions are held out.
func (ev *Evaluator) Split(interactions []models.Interaction) (train, test []models.Interaction) {
	byUser := make(map[int64][]models.Interaction)
	userOrder := make([]int64, 0)
	for _, in := range interactions {
		if _, seen := byUser[in.UserID]; !seen {
			userOrder = append(userOrder, in.UserID)
		}
		byUser[in.UserID] = append(byUser[in.UserID], in)
	}

	for _, userID := range userOrder {
		rows := byUser[userID]
		if len(rows) < 3 {
			train = append(train, rows...)
			continue
		}
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		})
		nTest := int(float64(len(rows)) * ev.evalCfg.HoldoutRatio)
		if nTest < 1 {
			nTest = 1
		}
		train = append(train, rows[:len(rows)-nTest]...)
		test = append(test, rows[len(rows)-nTest:]...)
	}
	return train, test
}

// Evaluate refits on the train partition and reports Precision, Recall, F1
// and NDCG at the configured K for one strategy.
func (ev *Evaluator) Evaluate(ctx context.Context, interactions []models.Interaction,
	catalog []models.Product, users []models.User, strategy Strategy) (models.RankingMetrics, error) {

	results, err := ev.CompareStrategies(ctx, interactions, catalog, users, strategy)
	if err != nil {
		return models.RankingMetrics{}, err
	}
	return results[strategy], nil
}

// CompareStrategies refits once on the train partition and evaluates every
// given strategy against the same held-out set, so the numbers are
// directly comparable.
func (ev *Evaluator) CompareStrategies(ctx context.Context, interactions []models.Interaction,
	catalog []models.Product, users []models.User, strategies ...Strategy) (map[Strategy]models.RankingMetrics, error) {

	train, test := ev.Split(interactions)
	if len(train) == 0 {
		return nil, dataErrorf("train partition is empty")
	}

	snapshot, err := fitSnapshot(ctx, ev.engineCfg, ev.logger, train, catalog, users)
	if err != nil {
		return nil, err
	}

	// Held-out item sets per user; users with nothing held out are
	// excluded from the averages, not scored as zero.
	heldOut := make(map[int64]map[int64]struct{})
	for _, in := range test {
		items := heldOut[in.UserID]
		if items == nil {
			items = make(map[int64]struct{})
			heldOut[in.UserID] = items
		}
		items[in.ItemID] = struct{}{}
	}
	testUsers := make([]int64, 0, len(heldOut))
	for userID := range heldOut {
		testUsers = append(testUsers, userID)
	}
	sort.Slice(testUsers, func(i, j int) bool { return testUsers[i] < testUsers[j] })

	k := ev.evalCfg.K
	results := make(map[Strategy]models.RankingMetrics, len(strategies))
	for _, strategy := range strategies {
		var sumP, sumR, sumF1, sumNDCG float64
		evaluated := 0
		for _, userID := range testUsers {
			relevant := heldOut[userID]
			recs, err := snapshot.RecommendByStrategy(userID, k, strategy, ev.engineCfg.Weights)
			if err != nil {
				ev.logger.WithError(err).WithField("user_id", userID).Warn("Skipping user in evaluation")
				continue
			}
			recommended := make([]int64, len(recs))
			for i, r := range recs {
				recommended[i] = r.ItemID
			}

			p := precisionAtK(recommended, relevant, k)
			r := recallAtK(recommended, relevant, k)
			sumP += p
			sumR += r
			sumF1 += f1Score(p, r)
			sumNDCG += ndcgAtK(recommended, relevant, k)
			evaluated++
		}

		m := models.RankingMetrics{K: k, Users: evaluated}
		if evaluated > 0 {
			n := float64(evaluated)
			m.Precision = sumP / n
			m.Recall = sumR / n
			m.F1 = sumF1 / n
			m.NDCG = sumNDCG / n
		}
		ev.logger.WithFields(logrus.Fields{
			"strategy":  strategy,
			"k":         k,
			"users":     evaluated,
			"precision": m.Precision,
			"recall":    m.Recall,
			"f1":        m.F1,
			"ndcg":      m.NDCG,
		}).Info("Evaluation completed")
		results[strategy] = m
	}
	return results, nil
}

func precisionAtK(recommended []int64, relevant map[int64]struct{}, k int) float64 {
	if k == 0 {
		return 0
	}
	if len(recommended) > k {
		recommended = recommended[:k]
	}
	hits := 0
	for _, itemID := range recommended {
		if _, ok := relevant[itemID]; ok {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

func recallAtK(recommended []int64, relevant map[int64]struct{}, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	if len(recommended) > k {
		recommended = recommended[:k]
	}
	hits := 0
	for _, itemID := range recommended {
		if _, ok := relevant[itemID]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(relevant))
}

func f1Score(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// ndcgAtK uses binary relevance with a log2 position discount. The ideal
// DCG places all held-out items first, capped at k, so the result is 1
// exactly when every held-out item leads the list.
func ndcgAtK(recommended []int64, relevant map[int64]struct{}, k int) float64 {
	if len(recommended) > k {
		recommended = recommended[:k]
	}
	dcg := 0.0
	for i, itemID := range recommended {
		if _, ok := relevant[itemID]; ok {
			dcg += 1 / math.Log2(float64(i)+2)
		}
	}
	ideal := len(relevant)
	if ideal > k {
		ideal = k
	}
	idcg := 0.0
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i)+2)
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}
