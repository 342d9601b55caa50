package engine

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/stitts-dev/wager-engine/internal/oddsmath"
)

// ScorerConfig holds the parlay pricing parameters.
type ScorerConfig struct {
	CorrelationAdjustment float64 `json:"correlation_adjustment"` // probability sensitivity to mean correlation
	NegativeCorrFloor     float64 `json:"negative_corr_floor"`    // negative correlation below this starts hurting the hit rate
	KellyCap              float64 `json:"kelly_cap"`
	KellyDivisor          float64 `json:"kelly_divisor"`
	WarnLegCount          int     `json:"warn_leg_count"`
	WarnCorrelation       float64 `json:"warn_correlation"`
	WarnConcentration     float64 `json:"warn_concentration"`
}

// DefaultScorerConfig returns the documented pricing thresholds.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		CorrelationAdjustment: 0.1,
		NegativeCorrFloor:     -0.3,
		KellyCap:              0.25,
		KellyDivisor:          0.25,
		WarnLegCount:          5,
		WarnCorrelation:       0.6,
		WarnConcentration:     70,
	}
}

// Scorer prices leg sets against a shared read-only correlation table. A
// scorer is safe for concurrent use: it only reads the pool and the table.
type Scorer struct {
	pool  []Wager
	table *CorrelationTable
	cfg   ScorerConfig
}

// NewScorer creates a scorer over an immutable pool snapshot.
func NewScorer(pool []Wager, table *CorrelationTable, cfg ScorerConfig) *Scorer {
	return &Scorer{pool: pool, table: table, cfg: cfg}
}

// Score prices one combination of pool indexes. Leg sets smaller than two or
// containing duplicate game+market+selection positions are rejected with
// ErrInvalidCombination.
func (s *Scorer) Score(idx []int, bankroll float64) (*ParlayCandidate, error) {
	if len(idx) < 2 {
		return nil, fmt.Errorf("%w: parlay needs at least 2 legs, got %d", ErrInvalidCombination, len(idx))
	}

	legs := make([]Wager, len(idx))
	seen := make(map[string]bool, len(idx))
	for i, poolIdx := range idx {
		if poolIdx < 0 || poolIdx >= len(s.pool) {
			return nil, fmt.Errorf("%w: leg index %d out of range", ErrInvalidCombination, poolIdx)
		}
		leg := s.pool[poolIdx]
		if seen[leg.Key()] {
			return nil, fmt.Errorf("%w: duplicate position %s", ErrInvalidCombination, leg.Key())
		}
		seen[leg.Key()] = true
		legs[i] = leg
	}

	combinedDecimal := 1.0
	naive := 1.0
	for _, leg := range legs {
		decimal, err := leg.DecimalOdds()
		if err != nil {
			return nil, err
		}
		combinedDecimal *= decimal
		naive *= leg.TrueProbability
	}

	combinedAmerican, err := oddsmath.DecimalToAmerican(combinedDecimal)
	if err != nil {
		return nil, err
	}

	meanCorr := s.table.MeanPairwise(idx) + s.sameGameNudge(idx)
	meanCorr = math.Max(-1.0, math.Min(1.0, meanCorr))

	adjusted := naive
	if meanCorr > 0 || meanCorr < s.cfg.NegativeCorrFloor {
		adjusted = naive * (1.0 + s.cfg.CorrelationAdjustment*meanCorr)
	}
	adjusted = math.Max(0.01, math.Min(0.99, adjusted))

	ev := (adjusted*combinedDecimal - 1.0) * 100.0

	kelly, err := kellyFraction(adjusted, combinedDecimal, EdgeConfig{
		KellyCap:     s.cfg.KellyCap,
		KellyDivisor: s.cfg.KellyDivisor,
	})
	if err != nil {
		return nil, err
	}
	// Dependent legs overlap in outcome space, so the combined edge is less
	// diversifiable than the Kelly formula assumes. Discount the stake for
	// positive correlation; never inflate it for negative.
	kelly *= math.Min(1.0, 1.0-0.5*meanCorr)

	risk := ComputeRiskScore(legs, s.table, idx)

	return &ParlayCandidate{
		ID:                   uuid.New().String(),
		Legs:                 legs,
		LegIndexes:           append([]int(nil), idx...),
		CombinedDecimalOdds:  combinedDecimal,
		CombinedAmericanOdds: combinedAmerican,
		NaiveProbability:     naive,
		AdjustedProbability:  adjusted,
		MeanCorrelation:      meanCorr,
		ExpectedValue:        ev,
		KellyFraction:        kelly,
		SuggestedStake:       roundCents(bankroll * kelly),
		Risk:                 risk,
		Warnings:             s.buildWarnings(legs, meanCorr, risk),
	}, nil
}

// Directional nudges for same-game moneyline+total pairs. A favorite
// covering tends to come with clock-draining, lower-scoring game scripts, so
// favorite+under leans positively correlated and underdog+under leans
// negative; the over pairings mirror at half strength.
const (
	nudgeFavoriteUnder = 0.15
	nudgeUnderdogUnder = -0.15
	nudgeFavoriteOver  = -0.075
	nudgeUnderdogOver  = 0.075
)

// sameGameNudge returns the mean directional adjustment over all same-game
// moneyline+total pairs in the set, normalized by total pair count so the
// nudge stays on the same scale as the mean pairwise correlation.
func (s *Scorer) sameGameNudge(idx []int) float64 {
	pairCount := len(idx) * (len(idx) - 1) / 2
	if pairCount == 0 {
		return 0
	}

	total := 0.0
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			a, b := s.pool[idx[i]], s.pool[idx[j]]
			if a.GameID != b.GameID {
				continue
			}

			ml, tot := a, b
			if ml.MarketType != MarketMoneyline {
				ml, tot = b, a
			}
			if ml.MarketType != MarketMoneyline || tot.MarketType != MarketTotal {
				continue
			}

			favorite := ml.AmericanOdds < 0
			switch {
			case tot.IsUnder() && favorite:
				total += nudgeFavoriteUnder
			case tot.IsUnder():
				total += nudgeUnderdogUnder
			case tot.IsOver() && favorite:
				total += nudgeFavoriteOver
			case tot.IsOver():
				total += nudgeUnderdogOver
			}
		}
	}

	return total / float64(pairCount)
}

func (s *Scorer) buildWarnings(legs []Wager, meanCorr float64, risk RiskScore) []string {
	var warnings []string

	if len(legs) > s.cfg.WarnLegCount {
		warnings = append(warnings, fmt.Sprintf("%d legs sharply reduce hit probability", len(legs)))
	}
	if meanCorr > s.cfg.WarnCorrelation {
		warnings = append(warnings, "high correlation between selections")
	}
	if risk.Concentration > s.cfg.WarnConcentration {
		warnings = append(warnings, "concentrated exposure to a single sport")
	}

	return warnings
}
