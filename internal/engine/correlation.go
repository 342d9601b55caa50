package engine

import (
	"math"
	"time"
)

// ReportableCorrelation is the minimum absolute score at which a pair is
// surfaced to callers. All pairs stay available internally for scoring.
const ReportableCorrelation = 0.3

// PairEstimator scores the statistical dependence between two legs. The
// engine never hard-codes an estimation model: callers can swap in an
// estimator backed by historical data. The default HeuristicEstimator is a
// deterministic rule set, documented as a heuristic, not a fitted model.
type PairEstimator interface {
	EstimatePair(a, b Wager) CorrelationEntry
}

// HeuristicWeights are the factor contributions used by the default
// estimator. Scores are the sum of applicable factors, clamped to [-1, 1].
type HeuristicWeights struct {
	SameGameBase          float64
	SpreadMoneylineBonus  float64
	TotalMoneylinePenalty float64
	SameSportBonus        map[string]float64
	DefaultSportBonus     float64
	TimeOverlapTight      float64 // games starting within 1 hour
	TimeOverlapLoose      float64 // games starting within 3 hours
	EnvironmentMax        float64
	PatternSameDirection  float64
	PatternOppositeDir    float64
}

// DefaultHeuristicWeights mirrors the documented factor table: same-game base
// 0.5 with market-combination adjustments, sport-specific cross-game bonuses,
// start-time proximity, shared outdoor conditions, and total-line movement.
func DefaultHeuristicWeights() HeuristicWeights {
	return HeuristicWeights{
		SameGameBase:          0.5,
		SpreadMoneylineBonus:  0.2,
		TotalMoneylinePenalty: -0.1,
		SameSportBonus: map[string]float64{
			"nba":   0.08,
			"ncaab": 0.08,
			"nhl":   0.06,
			"nfl":   0.06,
			"mlb":   0.04,
		},
		DefaultSportBonus:    0.05,
		TimeOverlapTight:     0.3,
		TimeOverlapLoose:     0.1,
		EnvironmentMax:       0.2,
		PatternSameDirection: 0.3,
		PatternOppositeDir:   -0.15,
	}
}

// HeuristicEstimator is the default PairEstimator.
type HeuristicEstimator struct {
	weights HeuristicWeights
}

// NewHeuristicEstimator creates an estimator with the default weights.
func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{weights: DefaultHeuristicWeights()}
}

// NewHeuristicEstimatorWithWeights creates an estimator with custom weights.
func NewHeuristicEstimatorWithWeights(weights HeuristicWeights) *HeuristicEstimator {
	return &HeuristicEstimator{weights: weights}
}

// EstimatePair scores one unordered pair. The result is symmetric in its
// arguments by construction: every factor is computed from set properties of
// the pair, never from argument order.
func (e *HeuristicEstimator) EstimatePair(a, b Wager) CorrelationEntry {
	w := e.weights
	factors := make([]CorrelationFactor, 0, 4)

	if a.GameID == b.GameID {
		factors = append(factors, CorrelationFactor{Name: "same_game", Impact: w.SameGameBase})

		if marketPair(a, b, MarketSpread, MarketMoneyline) {
			factors = append(factors, CorrelationFactor{Name: "spread_moneyline", Impact: w.SpreadMoneylineBonus})
		}
		if marketPair(a, b, MarketTotal, MarketMoneyline) {
			factors = append(factors, CorrelationFactor{Name: "total_moneyline", Impact: w.TotalMoneylinePenalty})
		}
	} else {
		if a.Sport == b.Sport && a.Sport != "" {
			bonus, ok := w.SameSportBonus[a.Sport]
			if !ok {
				bonus = w.DefaultSportBonus
			}
			factors = append(factors, CorrelationFactor{Name: "same_sport", Impact: bonus})
		}

		// Start-time proximity only matters across distinct games; the
		// same-game base already covers shared timing.
		if impact := timeOverlapImpact(a.ScheduledTime, b.ScheduledTime, w); impact != 0 {
			factors = append(factors, CorrelationFactor{Name: "time_overlap", Impact: impact})
		}
	}

	if impact := environmentImpact(a.Venue, b.Venue, w.EnvironmentMax); impact != 0 {
		factors = append(factors, CorrelationFactor{Name: "shared_environment", Impact: impact})
	}

	if impact := patternImpact(a, b, w); impact != 0 {
		factors = append(factors, CorrelationFactor{Name: "market_pattern", Impact: impact})
	}

	score := 0.0
	sumAbs := 0.0
	for _, f := range factors {
		score += f.Impact
		sumAbs += math.Abs(f.Impact)
	}
	score = math.Max(-1.0, math.Min(1.0, score))

	confidence := 0.5
	if len(factors) > 0 {
		confidence = math.Min(0.95, 0.5+sumAbs/float64(len(factors)))
	}

	return CorrelationEntry{
		Score:      score,
		Confidence: confidence,
		Factors:    factors,
	}
}

// marketPair reports whether the two legs cover exactly the given pair of
// market types, in either order.
func marketPair(a, b Wager, m1, m2 MarketType) bool {
	return (a.MarketType == m1 && b.MarketType == m2) || (a.MarketType == m2 && b.MarketType == m1)
}

func timeOverlapImpact(a, b time.Time, w HeuristicWeights) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}

	gap := a.Sub(b)
	if gap < 0 {
		gap = -gap
	}

	switch {
	case gap <= time.Hour:
		return w.TimeOverlapTight
	case gap <= 3*time.Hour:
		return w.TimeOverlapLoose
	default:
		return 0
	}
}

// environmentImpact scores shared outdoor conditions. Two outdoor games in
// similar temperature and wind move together (weather suppresses or inflates
// scoring on both); the impact scales down as conditions diverge.
func environmentImpact(a, b *VenueEnvironment, max float64) float64 {
	if a == nil || b == nil || !a.Outdoor || !b.Outdoor {
		return 0
	}

	tempSim := 1.0 - math.Min(1.0, math.Abs(a.TemperatureF-b.TemperatureF)/30.0)
	windSim := 1.0 - math.Min(1.0, math.Abs(a.WindMPH-b.WindMPH)/20.0)

	return max * (tempSim + windSim) / 2.0
}

func patternImpact(a, b Wager, w HeuristicWeights) float64 {
	if a.MarketType != MarketTotal || b.MarketType != MarketTotal {
		return 0
	}
	if a.TotalLineMove == "" || b.TotalLineMove == "" {
		return 0
	}

	if a.TotalLineMove == b.TotalLineMove {
		return w.PatternSameDirection
	}
	return w.PatternOppositeDir
}

// CorrelationTable holds the pairwise scores for one run's pool, computed
// once and read concurrently by every combination scorer. It is built fresh
// per run and never shared across runs.
type CorrelationTable struct {
	scores  map[int]map[int]float64
	entries []CorrelationEntry
}

// BuildCorrelationTable scores every unordered pair in the pool.
func BuildCorrelationTable(pool []Wager, estimator PairEstimator) *CorrelationTable {
	table := &CorrelationTable{
		scores:  make(map[int]map[int]float64, len(pool)),
		entries: make([]CorrelationEntry, 0, len(pool)*(len(pool)-1)/2),
	}

	for i := 0; i < len(pool); i++ {
		if table.scores[i] == nil {
			table.scores[i] = make(map[int]float64)
		}
		for j := i + 1; j < len(pool); j++ {
			if table.scores[j] == nil {
				table.scores[j] = make(map[int]float64)
			}

			entry := estimator.EstimatePair(pool[i], pool[j])
			entry.LegA = i
			entry.LegB = j

			table.scores[i][j] = entry.Score
			table.scores[j][i] = entry.Score
			table.entries = append(table.entries, entry)
		}
	}

	return table
}

// Score returns the pairwise score for two pool indexes.
func (t *CorrelationTable) Score(i, j int) float64 {
	if i == j {
		return 1.0
	}
	return t.scores[i][j]
}

// MeanPairwise returns the mean pairwise score over the given leg set.
func (t *CorrelationTable) MeanPairwise(idx []int) float64 {
	if len(idx) < 2 {
		return 0
	}

	total := 0.0
	count := 0
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			total += t.Score(idx[i], idx[j])
			count++
		}
	}

	return total / float64(count)
}

// MeanAbsPairwise returns the mean absolute pairwise score over the leg set.
func (t *CorrelationTable) MeanAbsPairwise(idx []int) float64 {
	if len(idx) < 2 {
		return 0
	}

	total := 0.0
	count := 0
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			total += math.Abs(t.Score(idx[i], idx[j]))
			count++
		}
	}

	return total / float64(count)
}

// Reportable returns the pairs whose absolute score clears the threshold.
func (t *CorrelationTable) Reportable(threshold float64) []CorrelationEntry {
	reportable := make([]CorrelationEntry, 0)
	for _, entry := range t.entries {
		if math.Abs(entry.Score) > threshold {
			reportable = append(reportable, entry)
		}
	}
	return reportable
}

// PairCount returns the number of scored pairs.
func (t *CorrelationTable) PairCount() int {
	return len(t.entries)
}
