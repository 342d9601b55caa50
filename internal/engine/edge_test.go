package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/wager-engine/internal/oddsmath"
)

func TestEvaluateLeg(t *testing.T) {
	tests := []struct {
		name         string
		wager        Wager
		bankroll     float64
		wantEdge     float64
		wantEV       float64
		wantIsValue  bool
		wantFairOdds int
	}{
		{
			name: "favorite with real edge",
			wager: Wager{
				GameID: "g1", Sport: "nba", MarketType: MarketMoneyline,
				Selection: "lakers", AmericanOdds: -110, TrueProbability: 0.58,
			},
			bankroll:     1000,
			wantEdge:     0.58 - 100.0/210.0,
			wantEV:       (0.58*(210.0/110.0) - 1.0) * 100.0,
			wantIsValue:  true,
			wantFairOdds: -138,
		},
		{
			name: "underdog with real edge",
			wager: Wager{
				GameID: "g2", Sport: "nfl", MarketType: MarketMoneyline,
				Selection: "chiefs", AmericanOdds: 120, TrueProbability: 0.50,
			},
			bankroll:     1000,
			wantEdge:     0.50 - 100.0/220.0,
			wantEV:       (0.50*2.2 - 1.0) * 100.0,
			wantIsValue:  true,
			wantFairOdds: -100,
		},
		{
			name: "no edge at the posted price",
			wager: Wager{
				GameID: "g3", Sport: "mlb", MarketType: MarketMoneyline,
				Selection: "yankees", AmericanOdds: -110, TrueProbability: 0.52,
			},
			bankroll:    1000,
			wantEdge:    0.52 - 100.0/210.0,
			wantEV:      (0.52*(210.0/110.0) - 1.0) * 100.0,
			wantIsValue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := EvaluateLeg(tt.wager, tt.bankroll, DefaultEdgeConfig())
			require.NoError(t, err)

			assert.InDelta(t, tt.wantEdge, eval.Edge, 1e-9)
			assert.InDelta(t, tt.wantEV, eval.ExpectedValue, 1e-9)
			assert.Equal(t, tt.wantIsValue, eval.IsValue)
			if tt.wantFairOdds != 0 {
				assert.Equal(t, tt.wantFairOdds, eval.FairOdds)
			}
		})
	}
}

func TestEvaluateLegRejectsMalformedInput(t *testing.T) {
	_, err := EvaluateLeg(Wager{GameID: "g1", AmericanOdds: 0, TrueProbability: 0.5}, 1000, DefaultEdgeConfig())
	assert.True(t, errors.Is(err, oddsmath.ErrInvalidOdds))

	_, err = EvaluateLeg(Wager{GameID: "g1", AmericanOdds: -110, TrueProbability: 1.0}, 1000, DefaultEdgeConfig())
	assert.True(t, errors.Is(err, oddsmath.ErrInvalidProbability))

	_, err = EvaluateLeg(Wager{GameID: "g1", AmericanOdds: -110, TrueProbability: 0}, 1000, DefaultEdgeConfig())
	assert.True(t, errors.Is(err, oddsmath.ErrInvalidProbability))
}

func TestKellyFractionClampAndDivisor(t *testing.T) {
	cfg := DefaultEdgeConfig()

	// Negative-edge legs never get a positive stake.
	kelly, err := kellyFraction(0.40, 2.0, cfg)
	require.NoError(t, err)
	assert.Zero(t, kelly)

	// A massive edge is capped before the safety divisor applies.
	kelly, err = kellyFraction(0.90, 3.0, cfg)
	require.NoError(t, err)
	assert.InDelta(t, cfg.KellyCap*cfg.KellyDivisor, kelly, 1e-9)

	// Odds that pay nothing are invalid, not a zero stake.
	_, err = kellyFraction(0.50, 1.0, cfg)
	assert.True(t, errors.Is(err, oddsmath.ErrInvalidOdds))
}

func TestKellyFractionQuarterSizing(t *testing.T) {
	// p=0.58 at -110: f* = (0.58*1.9091 - 1) / 0.9091.
	kelly, err := kellyFraction(0.58, 210.0/110.0, DefaultEdgeConfig())
	require.NoError(t, err)

	full := (0.58*(210.0/110.0) - 1.0) / (210.0/110.0 - 1.0)
	assert.InDelta(t, full*0.25, kelly, 1e-9)
}
