package oddsmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmericanToDecimal(t *testing.T) {
	testCases := []struct {
		name     string
		american int
		expected float64
	}{
		{"even money underdog", 100, 2.00},
		{"standard juice", -110, 1.9091},
		{"big underdog", 250, 3.50},
		{"big favorite", -250, 1.40},
		{"plus 150", 150, 2.50},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decimal, err := AmericanToDecimal(tc.american)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, decimal, 0.001)
		})
	}
}

func TestAmericanToDecimal_ZeroOdds(t *testing.T) {
	_, err := AmericanToDecimal(0)
	assert.ErrorIs(t, err, ErrInvalidOdds)
}

func TestDecimalToAmerican(t *testing.T) {
	testCases := []struct {
		name     string
		decimal  float64
		expected int
	}{
		{"plus 150", 2.50, 150},
		{"minus 150", 1.6667, -150},
		{"even money", 2.00, 100},
		{"standard juice", 1.9091, -110},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			american, err := DecimalToAmerican(tc.decimal)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, american)
		})
	}
}

func TestDecimalToAmerican_Invalid(t *testing.T) {
	_, err := DecimalToAmerican(1.0)
	assert.ErrorIs(t, err, ErrInvalidOdds)

	_, err = DecimalToAmerican(0.5)
	assert.ErrorIs(t, err, ErrInvalidOdds)
}

func TestImpliedProbability(t *testing.T) {
	testCases := []struct {
		name     string
		american int
		expected float64
	}{
		{"minus 110", -110, 0.5238},
		{"plus 120", 120, 0.4545},
		{"minus 150", -150, 0.60},
		{"plus 150", 150, 0.40},
		{"even", 100, 0.50},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			prob, err := ImpliedProbability(tc.american)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, prob, 0.001)
		})
	}
}

func TestImpliedProbability_ZeroOdds(t *testing.T) {
	_, err := ImpliedProbability(0)
	assert.ErrorIs(t, err, ErrInvalidOdds)
}

func TestFairOdds(t *testing.T) {
	testCases := []struct {
		name        string
		probability float64
		expected    int
	}{
		{"clear favorite", 0.60, -150},
		{"clear underdog", 0.40, 150},
		{"coin flip maps to favorite side", 0.50, -100},
		{"heavy favorite", 0.80, -400},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			odds, err := FairOdds(tc.probability)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, odds)
		})
	}
}

func TestFairOdds_InvalidProbability(t *testing.T) {
	for _, p := range []float64{0, 1, -0.1, 1.5} {
		_, err := FairOdds(p)
		assert.ErrorIs(t, err, ErrInvalidProbability, "probability %.2f should be rejected", p)
	}
}

// Round-trip: implied(fair(p)) must land back on p within rounding tolerance
// across the useful probability range.
func TestFairOdds_RoundTrip(t *testing.T) {
	probabilities := []float64{0.1, 0.3, 0.5238, 0.7, 0.9}

	for _, p := range probabilities {
		odds, err := FairOdds(p)
		require.NoError(t, err)

		back, err := ImpliedProbability(odds)
		require.NoError(t, err)

		assert.InDelta(t, p, back, 0.005, "round-trip for p=%.4f via odds %d", p, odds)
	}
}
