package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/wager-engine/internal/engine"
)

func TestRequestKeyIsDeterministic(t *testing.T) {
	pool := []engine.Wager{
		{GameID: "g1", Sport: "nba", MarketType: engine.MarketMoneyline, Selection: "lakers",
			AmericanOdds: -110, TrueProbability: 0.58},
		{GameID: "g2", Sport: "nfl", MarketType: engine.MarketMoneyline, Selection: "chiefs",
			AmericanOdds: 120, TrueProbability: 0.50},
	}

	first, err := RequestKey(pool, "moderate", 1000)
	require.NoError(t, err)
	second, err := RequestKey(pool, "moderate", 1000)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, first, "optimization:moderate:")
}

func TestRequestKeyChangesWithInput(t *testing.T) {
	pool := []engine.Wager{
		{GameID: "g1", Sport: "nba", MarketType: engine.MarketMoneyline, Selection: "lakers",
			AmericanOdds: -110, TrueProbability: 0.58},
		{GameID: "g2", Sport: "nfl", MarketType: engine.MarketMoneyline, Selection: "chiefs",
			AmericanOdds: 120, TrueProbability: 0.50},
	}

	base, err := RequestKey(pool, "moderate", 1000)
	require.NoError(t, err)

	other, err := RequestKey(pool, "aggressive", 1000)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)

	other, err = RequestKey(pool, "moderate", 2000)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)

	// A one-cent line move is a different request.
	moved := make([]engine.Wager, len(pool))
	copy(moved, pool)
	moved[0].AmericanOdds = -112
	other, err = RequestKey(moved, "moderate", 1000)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)
}
