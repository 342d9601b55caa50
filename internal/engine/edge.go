package engine

import (
	"fmt"
	"math"

	"github.com/stitts-dev/wager-engine/internal/oddsmath"
)

// EdgeConfig holds the per-leg evaluation parameters.
type EdgeConfig struct {
	MinEdge      float64 `json:"min_edge"`      // minimum edge to qualify as a value leg
	KellyCap     float64 `json:"kelly_cap"`     // hard cap on the raw Kelly fraction
	KellyDivisor float64 `json:"kelly_divisor"` // safety scaling applied after the cap
}

// DefaultEdgeConfig returns the standard screen: 3% minimum edge,
// quarter-Kelly staking capped at 25% of bankroll pre-division.
func DefaultEdgeConfig() EdgeConfig {
	return EdgeConfig{
		MinEdge:      0.03,
		KellyCap:     0.25,
		KellyDivisor: 0.25,
	}
}

// EdgeEvaluation is the priced view of a single leg.
type EdgeEvaluation struct {
	Edge               float64 `json:"edge"`
	ImpliedProbability float64 `json:"implied_probability"`
	FairOdds           int     `json:"fair_odds"`
	ExpectedValue      float64 `json:"expected_value"` // percent
	KellyFraction      float64 `json:"kelly_fraction"` // after cap and safety divisor
	SuggestedStake     float64 `json:"suggested_stake"`
	IsValue            bool    `json:"is_value"`
}

// EvaluateLeg prices a single wager: edge against the implied probability,
// expected value, and a fractional-Kelly stake against the given bankroll.
// Pure computation; a zero bankroll yields a zero stake.
func EvaluateLeg(w Wager, bankroll float64, cfg EdgeConfig) (*EdgeEvaluation, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	implied, err := oddsmath.ImpliedProbability(w.AmericanOdds)
	if err != nil {
		return nil, err
	}

	decimal, err := oddsmath.AmericanToDecimal(w.AmericanOdds)
	if err != nil {
		return nil, err
	}

	fairOdds, err := oddsmath.FairOdds(w.TrueProbability)
	if err != nil {
		return nil, err
	}

	edge := w.TrueProbability - implied
	ev := (w.TrueProbability*decimal - 1.0) * 100.0

	kelly, err := kellyFraction(w.TrueProbability, decimal, cfg)
	if err != nil {
		return nil, err
	}

	return &EdgeEvaluation{
		Edge:               edge,
		ImpliedProbability: implied,
		FairOdds:           fairOdds,
		ExpectedValue:      ev,
		KellyFraction:      kelly,
		SuggestedStake:     roundCents(bankroll * kelly),
		IsValue:            edge >= cfg.MinEdge,
	}, nil
}

// kellyFraction computes f* = (p*d - 1) / (d - 1), clamps it to
// [0, KellyCap], then applies the safety divisor. Decimal odds at or below
// 1.0 have no defined Kelly stake and are treated as invalid odds.
func kellyFraction(trueProb, decimalOdds float64, cfg EdgeConfig) (float64, error) {
	if decimalOdds <= 1.0 {
		return 0, fmt.Errorf("%w: decimal odds %.4f leave no payout", oddsmath.ErrInvalidOdds, decimalOdds)
	}

	kelly := (trueProb*decimalOdds - 1.0) / (decimalOdds - 1.0)

	kelly = math.Max(0, kelly)
	kelly = math.Min(cfg.KellyCap, kelly)

	return kelly * cfg.KellyDivisor, nil
}

// roundCents rounds a stake to the currency's smallest unit.
func roundCents(val float64) float64 {
	return math.Round(val*100) / 100
}
