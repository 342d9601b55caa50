package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Risk component weights for the overall score.
const (
	riskWeightConcentration = 0.2
	riskWeightCorrelation   = 0.3
	riskWeightVariance      = 0.2
	riskWeightMaxDrawdown   = 0.3
)

// ComputeRiskScore assembles the composite risk score for a leg set:
//   - concentration: the dominant sport's share of legs
//   - correlation: mean absolute pairwise score
//   - variance: spread of the per-leg win probabilities (population stddev,
//     scaled so the maximum possible spread of 0.5 maps to 100)
//   - max drawdown proxy: one minus the weakest leg's probability
//
// Every component and the overall value are clamped to [0, 100].
func ComputeRiskScore(legs []Wager, table *CorrelationTable, idx []int) RiskScore {
	if len(legs) == 0 {
		return RiskScore{}
	}

	sportCounts := make(map[string]int)
	probs := make([]float64, len(legs))
	minProb := 1.0

	for i, leg := range legs {
		sportCounts[leg.Sport]++
		probs[i] = leg.TrueProbability
		if leg.TrueProbability < minProb {
			minProb = leg.TrueProbability
		}
	}

	maxSportShare := 0.0
	for _, count := range sportCounts {
		share := float64(count) / float64(len(legs))
		if share > maxSportShare {
			maxSportShare = share
		}
	}

	concentration := clampRisk(maxSportShare * 100.0)

	correlation := 0.0
	if table != nil && len(idx) >= 2 {
		correlation = clampRisk(table.MeanAbsPairwise(idx) * 100.0)
	}

	variance := 0.0
	if len(probs) >= 2 {
		variance = clampRisk(stat.PopStdDev(probs, nil) * 200.0)
	}

	maxDrawdown := clampRisk((1.0 - minProb) * 100.0)

	overall := clampRisk(
		riskWeightConcentration*concentration +
			riskWeightCorrelation*correlation +
			riskWeightVariance*variance +
			riskWeightMaxDrawdown*maxDrawdown)

	return RiskScore{
		Concentration: concentration,
		Correlation:   correlation,
		Variance:      variance,
		MaxDrawdown:   maxDrawdown,
		Overall:       overall,
	}
}

func clampRisk(val float64) float64 {
	return math.Max(0, math.Min(100, val))
}
