package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scorerPool() []Wager {
	// Far-apart games in different sports, so the default estimator scores
	// the pair at zero and the parlay math is exactly the naive case.
	return []Wager{
		{
			GameID: "g1", Sport: "nba", MarketType: MarketMoneyline, Selection: "lakers",
			Book: "betmgm", AmericanOdds: -110, TrueProbability: 0.58,
			ScheduledTime: tipoff,
		},
		{
			GameID: "g2", Sport: "nfl", MarketType: MarketMoneyline, Selection: "chiefs",
			Book: "draftkings", AmericanOdds: 120, TrueProbability: 0.50,
			ScheduledTime: tipoff.Add(24 * time.Hour),
		},
	}
}

func TestScoreTwoLegParlay(t *testing.T) {
	pool := scorerPool()
	table := BuildCorrelationTable(pool, NewHeuristicEstimator())
	scorer := NewScorer(pool, table, DefaultScorerConfig())

	candidate, err := scorer.Score([]int{0, 1}, 1000)
	require.NoError(t, err)

	assert.InDelta(t, 4.2, candidate.CombinedDecimalOdds, 1e-6)
	assert.Equal(t, 320, candidate.CombinedAmericanOdds)
	assert.InDelta(t, 0.29, candidate.NaiveProbability, 1e-9)

	// Uncorrelated legs keep the naive probability.
	assert.Zero(t, candidate.MeanCorrelation)
	assert.InDelta(t, 0.29, candidate.AdjustedProbability, 1e-9)
	assert.InDelta(t, 21.8, candidate.ExpectedValue, 1e-6)

	// Quarter Kelly on the combined price, no correlation discount.
	full := (0.29*4.2 - 1.0) / (4.2 - 1.0)
	assert.InDelta(t, full*0.25, candidate.KellyFraction, 1e-6)
	assert.InDelta(t, 1000*full*0.25, candidate.SuggestedStake, 0.01)

	assert.NotEmpty(t, candidate.ID)
	assert.Empty(t, candidate.Warnings)
}

func TestScoreCorrelationAdjustsProbability(t *testing.T) {
	pool := scorerPool()
	scorer := NewScorer(pool, BuildCorrelationTable(pool, fixedEstimator{score: 0.5}), DefaultScorerConfig())

	candidate, err := scorer.Score([]int{0, 1}, 1000)
	require.NoError(t, err)

	// naive * (1 + 0.1 * 0.5)
	assert.InDelta(t, 0.29*1.05, candidate.AdjustedProbability, 1e-9)

	// The Kelly stake is discounted by half the mean correlation.
	full := (candidate.AdjustedProbability*candidate.CombinedDecimalOdds - 1.0) /
		(candidate.CombinedDecimalOdds - 1.0)
	assert.InDelta(t, full*0.25*0.75, candidate.KellyFraction, 1e-9)
}

func TestScoreNegativeCorrelation(t *testing.T) {
	pool := scorerPool()
	cfg := DefaultScorerConfig()

	// Mildly negative correlation leaves the naive probability alone.
	scorer := NewScorer(pool, BuildCorrelationTable(pool, fixedEstimator{score: -0.2}), cfg)
	candidate, err := scorer.Score([]int{0, 1}, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.29, candidate.AdjustedProbability, 1e-9)

	// Strongly negative correlation hurts the joint hit rate.
	scorer = NewScorer(pool, BuildCorrelationTable(pool, fixedEstimator{score: -0.5}), cfg)
	candidate, err = scorer.Score([]int{0, 1}, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.29*0.95, candidate.AdjustedProbability, 1e-9)

	// Negative correlation never inflates the stake past plain Kelly.
	full := (candidate.AdjustedProbability*candidate.CombinedDecimalOdds - 1.0) /
		(candidate.CombinedDecimalOdds - 1.0)
	assert.LessOrEqual(t, candidate.KellyFraction, full*0.25+1e-12)
}

func TestScoreSameGameNudges(t *testing.T) {
	pool := []Wager{
		{
			GameID: "g1", Sport: "nba", MarketType: MarketMoneyline, Selection: "lakers",
			AmericanOdds: -150, TrueProbability: 0.62, ScheduledTime: tipoff,
		},
		{
			GameID: "g1", Sport: "nba", MarketType: MarketTotal, Selection: "under 220.5",
			AmericanOdds: -110, TrueProbability: 0.55, Line: 220.5, ScheduledTime: tipoff,
		},
	}
	table := BuildCorrelationTable(pool, NewHeuristicEstimator())
	scorer := NewScorer(pool, table, DefaultScorerConfig())

	candidate, err := scorer.Score([]int{0, 1}, 1000)
	require.NoError(t, err)

	// Favorite moneyline with the under: same-game total+ml base 0.4 plus
	// the 0.15 directional nudge.
	assert.InDelta(t, 0.55, candidate.MeanCorrelation, 1e-9)
	assert.Greater(t, candidate.AdjustedProbability, candidate.NaiveProbability)
}

func TestScoreRejectsDegenerateSets(t *testing.T) {
	pool := scorerPool()
	// Same position at a second book.
	pool = append(pool, Wager{
		GameID: "g1", Sport: "nba", MarketType: MarketMoneyline, Selection: "Lakers",
		Book: "caesars", AmericanOdds: -105, TrueProbability: 0.58, ScheduledTime: tipoff,
	})

	table := BuildCorrelationTable(pool, NewHeuristicEstimator())
	scorer := NewScorer(pool, table, DefaultScorerConfig())

	_, err := scorer.Score([]int{0}, 1000)
	assert.True(t, errors.Is(err, ErrInvalidCombination))

	// Key comparison is case-insensitive on the selection.
	_, err = scorer.Score([]int{0, 2}, 1000)
	assert.True(t, errors.Is(err, ErrInvalidCombination))

	_, err = scorer.Score([]int{0, 99}, 1000)
	assert.True(t, errors.Is(err, ErrInvalidCombination))
}

func BenchmarkScore(b *testing.B) {
	pool := scorerPool()
	table := BuildCorrelationTable(pool, NewHeuristicEstimator())
	scorer := NewScorer(pool, table, DefaultScorerConfig())
	idx := []int{0, 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := scorer.Score(idx, 1000); err != nil {
			b.Fatal(err)
		}
	}
}

func TestScoreWarnings(t *testing.T) {
	pool := make([]Wager, 6)
	for i := range pool {
		pool[i] = Wager{
			GameID: string(rune('a' + i)), Sport: "nba", MarketType: MarketMoneyline,
			Selection: "home", AmericanOdds: -110, TrueProbability: 0.70,
			ScheduledTime: tipoff.Add(time.Duration(i) * 12 * time.Hour),
		}
	}

	scorer := NewScorer(pool, BuildCorrelationTable(pool, fixedEstimator{score: 0.65}), DefaultScorerConfig())
	candidate, err := scorer.Score([]int{0, 1, 2, 3, 4, 5}, 1000)
	require.NoError(t, err)

	assert.Contains(t, candidate.Warnings, "6 legs sharply reduce hit probability")
	assert.Contains(t, candidate.Warnings, "high correlation between selections")
	assert.Contains(t, candidate.Warnings, "concentrated exposure to a single sport")
}
