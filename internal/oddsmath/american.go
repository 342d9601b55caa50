package oddsmath

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidOdds is returned for American odds of zero, the one value the
// convention leaves undefined.
var ErrInvalidOdds = errors.New("invalid odds")

// ErrInvalidProbability is returned for probabilities outside the open
// interval (0, 1).
var ErrInvalidProbability = errors.New("invalid probability")

// AmericanToDecimal converts American odds to decimal odds
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("%w: American odds cannot be 0", ErrInvalidOdds)
	}

	if american > 0 {
		return (float64(american) / 100.0) + 1.0, nil
	}

	return (100.0 / float64(-american)) + 1.0, nil
}

// DecimalToAmerican converts decimal odds to American odds
// Decimal 2.50 → American +150
// Decimal 1.67 → American -150
func DecimalToAmerican(decimal float64) (int, error) {
	if decimal <= 1.0 {
		return 0, fmt.Errorf("%w: decimal odds must be > 1.0, got %.4f", ErrInvalidOdds, decimal)
	}

	if decimal >= 2.0 {
		return int(math.Round((decimal - 1.0) * 100.0)), nil
	}

	return int(math.Round(-100.0 / (decimal - 1.0))), nil
}

// ImpliedProbability converts American odds to the probability the price
// implies.
// +150 → 0.40, -150 → 0.60
func ImpliedProbability(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("%w: American odds cannot be 0", ErrInvalidOdds)
	}

	if american > 0 {
		return 100.0 / (float64(american) + 100.0), nil
	}

	abs := math.Abs(float64(american))
	return abs / (abs + 100.0), nil
}

// FairOdds converts a win probability to the break-even American price.
// Probabilities of 0.5 and above map to negative (favorite) odds.
// 0.60 → -150, 0.40 → +150
func FairOdds(probability float64) (int, error) {
	if probability <= 0 || probability >= 1 {
		return 0, fmt.Errorf("%w: must be in (0, 1), got %.4f", ErrInvalidProbability, probability)
	}

	if probability >= 0.5 {
		return -int(math.Round(probability / (1.0 - probability) * 100.0)), nil
	}

	return int(math.Round((1.0 - probability) / probability * 100.0)), nil
}
