package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedCandidate(id string, ev, meanCorr, risk, stake float64, legCount int) ParlayCandidate {
	legs := make([]Wager, legCount)
	for i := range legs {
		legs[i] = Wager{GameID: "g", Sport: "nba", AmericanOdds: -110, TrueProbability: 0.55}
	}
	return ParlayCandidate{
		ID:              id,
		Legs:            legs,
		ExpectedValue:   ev,
		MeanCorrelation: meanCorr,
		Risk:            RiskScore{Overall: risk},
		SuggestedStake:  stake,
	}
}

func TestProfileByName(t *testing.T) {
	profile, err := ProfileByName("")
	require.NoError(t, err)
	assert.Equal(t, "moderate", profile.Name)

	profile, err = ProfileByName("Conservative")
	require.NoError(t, err)
	assert.Equal(t, "conservative", profile.Name)

	_, err = ProfileByName("yolo")
	assert.Error(t, err)
}

func TestFilterAndRankScreens(t *testing.T) {
	candidates := []ParlayCandidate{
		namedCandidate("keep-high", 12.0, 0.2, 40, 50, 2),
		namedCandidate("low-ev", 1.5, 0.1, 30, 50, 2),
		namedCandidate("too-correlated", 15.0, 0.6, 45, 50, 2),
		namedCandidate("too-many-legs", 20.0, 0.2, 50, 50, 5),
		namedCandidate("keep-low", 8.0, 0.3, 35, 50, 3),
	}

	ranked, reason := FilterAndRank(candidates, ProfileModerate, 10000)
	assert.Empty(t, reason)
	require.Len(t, ranked, 2)
	assert.Equal(t, "keep-high", ranked[0].ID)
	assert.Equal(t, "keep-low", ranked[1].ID)
}

func TestFilterAndRankTieBreaksOnRisk(t *testing.T) {
	candidates := []ParlayCandidate{
		namedCandidate("risky", 10.0, 0.1, 60, 50, 2),
		namedCandidate("safe", 10.0, 0.1, 20, 50, 2),
	}

	ranked, _ := FilterAndRank(candidates, ProfileModerate, 10000)
	require.Len(t, ranked, 2)
	assert.Equal(t, "safe", ranked[0].ID)
	assert.Equal(t, "risky", ranked[1].ID)
}

func TestFilterAndRankEmptyIsNotAnError(t *testing.T) {
	ranked, reason := FilterAndRank(nil, ProfileModerate, 10000)
	assert.Nil(t, ranked)
	assert.NotEmpty(t, reason)

	candidates := []ParlayCandidate{
		namedCandidate("a", 1.0, 0.1, 30, 50, 2),
		namedCandidate("b", 2.0, 0.1, 30, 50, 2),
	}
	ranked, reason = FilterAndRank(candidates, ProfileConservative, 10000)
	assert.Nil(t, ranked)
	assert.Contains(t, reason, "expected value below profile minimum")
}

func TestFilterAndRankExposureCap(t *testing.T) {
	// Combined stakes of 250 against a 1000 bankroll exceed moderate's 20%
	// cap; both scale by the same 0.8 factor.
	candidates := []ParlayCandidate{
		namedCandidate("a", 12.0, 0.1, 30, 150, 2),
		namedCandidate("b", 8.0, 0.1, 30, 100, 2),
	}

	ranked, _ := FilterAndRank(candidates, ProfileModerate, 1000)
	require.Len(t, ranked, 2)
	assert.InDelta(t, 120.0, ranked[0].SuggestedStake, 0.01)
	assert.InDelta(t, 80.0, ranked[1].SuggestedStake, 0.01)

	// Under the cap, stakes are untouched.
	candidates = []ParlayCandidate{namedCandidate("c", 12.0, 0.1, 30, 50, 2)}
	ranked, _ = FilterAndRank(candidates, ProfileModerate, 1000)
	assert.InDelta(t, 50.0, ranked[0].SuggestedStake, 0.01)
}
