package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRiskScoreComponents(t *testing.T) {
	legs := []Wager{
		{GameID: "g1", Sport: "nba", AmericanOdds: -110, TrueProbability: 0.9},
		{GameID: "g2", Sport: "nba", AmericanOdds: -110, TrueProbability: 0.1},
	}

	score := ComputeRiskScore(legs, nil, nil)

	// Single sport, widest possible probability spread, a 0.1 weak leg.
	assert.InDelta(t, 100.0, score.Concentration, 1e-9)
	assert.InDelta(t, 80.0, score.Variance, 1e-9)
	assert.InDelta(t, 90.0, score.MaxDrawdown, 1e-9)
	assert.Zero(t, score.Correlation)

	want := 0.2*100 + 0.2*80 + 0.3*90
	assert.InDelta(t, want, score.Overall, 1e-9)
}

func TestComputeRiskScoreMixedSports(t *testing.T) {
	legs := []Wager{
		{GameID: "g1", Sport: "nba", AmericanOdds: -110, TrueProbability: 0.6},
		{GameID: "g2", Sport: "nfl", AmericanOdds: -110, TrueProbability: 0.6},
		{GameID: "g3", Sport: "mlb", AmericanOdds: -110, TrueProbability: 0.6},
	}

	score := ComputeRiskScore(legs, nil, nil)

	assert.InDelta(t, 100.0/3.0, score.Concentration, 1e-9)
	assert.Zero(t, score.Variance)
	assert.InDelta(t, 40.0, score.MaxDrawdown, 1e-9)
}

func TestComputeRiskScoreCorrelationComponent(t *testing.T) {
	pool := []Wager{
		{GameID: "g1", Sport: "nba", AmericanOdds: -110, TrueProbability: 0.6},
		{GameID: "g2", Sport: "nfl", AmericanOdds: -110, TrueProbability: 0.6},
	}
	table := BuildCorrelationTable(pool, fixedEstimator{score: -0.4})

	score := ComputeRiskScore(pool, table, []int{0, 1})

	// Absolute correlation drives risk; the sign does not.
	assert.InDelta(t, 40.0, score.Correlation, 1e-9)
}

func TestComputeRiskScoreBounds(t *testing.T) {
	assert.Equal(t, RiskScore{}, ComputeRiskScore(nil, nil, nil))

	legs := []Wager{
		{GameID: "g1", Sport: "nba", AmericanOdds: -110, TrueProbability: 0.001},
		{GameID: "g2", Sport: "nba", AmericanOdds: -110, TrueProbability: 0.999},
	}
	score := ComputeRiskScore(legs, nil, nil)

	for _, v := range []float64{score.Concentration, score.Correlation, score.Variance, score.MaxDrawdown, score.Overall} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
	assert.InDelta(t, 99.8, score.Variance, 0.1)
}
