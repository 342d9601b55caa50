package engine

import (
	"fmt"
	"sort"
	"strings"
)

// StrategyProfile bounds which candidates survive ranking and how much
// bankroll the surviving set may claim in aggregate.
type StrategyProfile struct {
	Name           string  `json:"name"`
	MinEdge        float64 `json:"min_edge"`
	MaxCorrelation float64 `json:"max_correlation"`
	MaxLegs        int     `json:"max_legs"`
	MinEV          float64 `json:"min_ev"` // percent
	MaxExposure    float64 `json:"max_exposure"`
}

// The built-in strategy profiles.
var (
	ProfileConservative = StrategyProfile{
		Name:           "conservative",
		MinEdge:        0.05,
		MaxCorrelation: 0.3,
		MaxLegs:        3,
		MinEV:          5.0,
		MaxExposure:    0.10,
	}

	ProfileModerate = StrategyProfile{
		Name:           "moderate",
		MinEdge:        0.03,
		MaxCorrelation: 0.5,
		MaxLegs:        4,
		MinEV:          3.0,
		MaxExposure:    0.20,
	}

	ProfileAggressive = StrategyProfile{
		Name:           "aggressive",
		MinEdge:        0.02,
		MaxCorrelation: 0.7,
		MaxLegs:        6,
		MinEV:          1.0,
		MaxExposure:    0.35,
	}
)

// ProfileByName resolves a profile name, defaulting to moderate for the empty
// string. Unknown names are an error rather than a silent default.
func ProfileByName(name string) (StrategyProfile, error) {
	switch strings.ToLower(name) {
	case "", ProfileModerate.Name:
		return ProfileModerate, nil
	case ProfileConservative.Name:
		return ProfileConservative, nil
	case ProfileAggressive.Name:
		return ProfileAggressive, nil
	default:
		return StrategyProfile{}, fmt.Errorf("unknown strategy profile %q", name)
	}
}

// FilterAndRank applies the profile's screens, ranks the survivors by
// expected value (risk breaking ties), and scales stakes down proportionally
// if the set would exceed the profile's bankroll exposure cap. The sort is
// stable, so candidates tied on both EV and risk keep generation order and
// the ranking is deterministic for a given pool.
//
// An empty result is not an error. When everything is filtered out, the
// returned reason says which screen did the filtering.
func FilterAndRank(candidates []ParlayCandidate, profile StrategyProfile, bankroll float64) ([]ParlayCandidate, string) {
	if len(candidates) == 0 {
		return nil, "no combinations were generated from the pool"
	}

	dropped := make(map[string]int)
	kept := make([]ParlayCandidate, 0, len(candidates))

	for _, c := range candidates {
		switch {
		case len(c.Legs) > profile.MaxLegs:
			dropped["leg count above profile maximum"]++
		case c.MeanCorrelation > profile.MaxCorrelation:
			dropped["correlation above profile ceiling"]++
		case c.ExpectedValue < profile.MinEV:
			dropped["expected value below profile minimum"]++
		default:
			kept = append(kept, c)
		}
	}

	if len(kept) == 0 {
		return nil, fmt.Sprintf("all %d candidates filtered out (%s)", len(candidates), dominantReason(dropped))
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].ExpectedValue != kept[j].ExpectedValue {
			return kept[i].ExpectedValue > kept[j].ExpectedValue
		}
		return kept[i].Risk.Overall < kept[j].Risk.Overall
	})

	applyExposureCap(kept, profile, bankroll)

	return kept, ""
}

// applyExposureCap scales every suggested stake by the same factor when the
// total would exceed the profile's share of bankroll. Proportional scaling
// preserves the relative Kelly sizing across candidates.
func applyExposureCap(candidates []ParlayCandidate, profile StrategyProfile, bankroll float64) {
	maxTotal := bankroll * profile.MaxExposure
	if maxTotal <= 0 {
		for i := range candidates {
			candidates[i].SuggestedStake = 0
		}
		return
	}

	total := 0.0
	for _, c := range candidates {
		total += c.SuggestedStake
	}
	if total <= maxTotal {
		return
	}

	scale := maxTotal / total
	for i := range candidates {
		candidates[i].SuggestedStake = roundCents(candidates[i].SuggestedStake * scale)
	}
}

func dominantReason(dropped map[string]int) string {
	best := ""
	bestCount := 0
	for reason, count := range dropped {
		if count > bestCount || (count == bestCount && reason < best) {
			best = reason
			bestCount = count
		}
	}
	if best == "" {
		return "no screen recorded"
	}
	return fmt.Sprintf("mostly: %s", best)
}
