package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stitts-dev/wager-engine/internal/oddsmath"
)

// ErrInvalidCombination is returned for degenerate leg sets: fewer than two
// legs, or two legs on the same game+market+selection.
var ErrInvalidCombination = errors.New("invalid combination")

// ErrPoolTooSmall is returned when the validated pool has fewer legs than the
// minimum parlay size.
var ErrPoolTooSmall = errors.New("pool too small")

// MarketType identifies the market a wager is placed on.
type MarketType string

const (
	MarketMoneyline MarketType = "moneyline"
	MarketSpread    MarketType = "spread"
	MarketTotal     MarketType = "total"
	MarketProp      MarketType = "prop"
)

// Line movement directions for the market-pattern correlation factor.
const (
	LineMoveUp   = "up"
	LineMoveDown = "down"
)

// VenueEnvironment describes game conditions for outdoor sports. Used only by
// the environmental correlation factor; indoor games carry no environment.
type VenueEnvironment struct {
	Outdoor      bool    `json:"outdoor"`
	TemperatureF float64 `json:"temperature_f"`
	WindMPH      float64 `json:"wind_mph"`
}

// Wager is a single candidate leg: one selection on one market of one game,
// priced in American odds, with an externally supplied win probability.
// Wagers are immutable once validated; everything derived (implied
// probability, edge, fair odds) is computed on demand.
type Wager struct {
	GameID          string            `json:"game_id"`
	Sport           string            `json:"sport"`
	MarketType      MarketType        `json:"market_type"`
	Selection       string            `json:"selection"`
	Book            string            `json:"book"`
	AmericanOdds    int               `json:"american_odds"`
	TrueProbability float64           `json:"true_probability"`
	Line            float64           `json:"line,omitempty"`
	ScheduledTime   time.Time         `json:"scheduled_time"`
	Venue           *VenueEnvironment `json:"venue,omitempty"`
	TotalLineMove   string            `json:"total_line_move,omitempty"`
}

// Validate checks the wager invariants: odds must be non-zero and the true
// probability must sit strictly inside (0, 1).
func (w Wager) Validate() error {
	if w.AmericanOdds == 0 {
		return fmt.Errorf("%w: %s %s", oddsmath.ErrInvalidOdds, w.GameID, w.Selection)
	}
	if w.TrueProbability <= 0 || w.TrueProbability >= 1 {
		return fmt.Errorf("%w: %.4f for %s %s", oddsmath.ErrInvalidProbability, w.TrueProbability, w.GameID, w.Selection)
	}
	return nil
}

// ImpliedProbability returns the probability implied by the posted odds.
func (w Wager) ImpliedProbability() (float64, error) {
	return oddsmath.ImpliedProbability(w.AmericanOdds)
}

// DecimalOdds returns the posted odds in decimal form.
func (w Wager) DecimalOdds() (float64, error) {
	return oddsmath.AmericanToDecimal(w.AmericanOdds)
}

// Key identifies the market position a wager occupies. Two wagers with the
// same key are the same bet, possibly at different books.
func (w Wager) Key() string {
	return fmt.Sprintf("%s:%s:%s", w.GameID, w.MarketType, strings.ToLower(w.Selection))
}

// IsOver reports whether a total leg is on the over side.
func (w Wager) IsOver() bool {
	return w.MarketType == MarketTotal && strings.HasPrefix(strings.ToLower(w.Selection), "over")
}

// IsUnder reports whether a total leg is on the under side.
func (w Wager) IsUnder() bool {
	return w.MarketType == MarketTotal && strings.HasPrefix(strings.ToLower(w.Selection), "under")
}

// CorrelationFactor is one contribution to a pairwise correlation score.
type CorrelationFactor struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
}

// CorrelationEntry is the symmetric dependence score between two pool legs,
// with the factor breakdown that produced it. Entries are scoped to a single
// optimization run; odds and probabilities are too time-varying to persist.
type CorrelationEntry struct {
	LegA       int                 `json:"leg_a"`
	LegB       int                 `json:"leg_b"`
	Score      float64             `json:"score"`
	Confidence float64             `json:"confidence"`
	Factors    []CorrelationFactor `json:"factors"`
}

// RiskScore is the composite risk assessment of a parlay. Each component and
// the overall value are clamped to [0, 100].
type RiskScore struct {
	Concentration float64 `json:"concentration"`
	Correlation   float64 `json:"correlation"`
	Variance      float64 `json:"variance"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	Overall       float64 `json:"overall"`
}

// ParlayCandidate is a scored multi-leg combination. Candidates are built by
// the generator, priced by the scorer, and discarded after ranking; callers
// that want the final selection persisted go through the selection store.
type ParlayCandidate struct {
	ID                   string    `json:"id"`
	Legs                 []Wager   `json:"legs"`
	LegIndexes           []int     `json:"-"`
	CombinedDecimalOdds  float64   `json:"combined_decimal_odds"`
	CombinedAmericanOdds int       `json:"combined_american_odds"`
	NaiveProbability     float64   `json:"naive_probability"`
	AdjustedProbability  float64   `json:"adjusted_probability"`
	MeanCorrelation      float64   `json:"mean_correlation"`
	ExpectedValue        float64   `json:"expected_value"`
	KellyFraction        float64   `json:"kelly_fraction"`
	SuggestedStake       float64   `json:"suggested_stake"`
	Risk                 RiskScore `json:"risk"`
	Warnings             []string  `json:"warnings,omitempty"`
}

// Hedge structure types.
const (
	HedgeTwoWay = "two_way"
	HedgeMiddle = "middle"
)

// HedgeLeg is one side of a hedge structure with its stake allocation.
type HedgeLeg struct {
	Wager  Wager   `json:"wager"`
	Stake  float64 `json:"stake"`
	Payout float64 `json:"payout"`
}

// HedgeStructure is a two-sided or middle position across price sources.
// Two-way structures carry a guaranteed profit; middles pay only when the
// final number lands inside the window and must never be labeled guaranteed.
type HedgeStructure struct {
	Type          string     `json:"type"`
	GameID        string     `json:"game_id"`
	MarketType    MarketType `json:"market_type"`
	Legs          []HedgeLeg `json:"legs"`
	Guaranteed    bool       `json:"guaranteed"`
	ProfitPercent float64    `json:"profit_percent"`
	MiddleWindow  float64    `json:"middle_window,omitempty"`
	Description   string     `json:"description"`
}

// RejectedLeg records a pool entry the engine refused, with the reason. The
// engine skips bad legs and keeps going; it never fails the whole run over
// one malformed input.
type RejectedLeg struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Summary holds portfolio-level statistics over the selected candidates.
type Summary struct {
	CandidateCount     int            `json:"candidate_count"`
	HedgeCount         int            `json:"hedge_count"`
	TotalExpectedValue float64        `json:"total_expected_value"`
	MeanRisk           float64        `json:"mean_risk"`
	TotalStake         float64        `json:"total_stake"`
	SportCounts        map[string]int `json:"sport_counts"`
}

// Result is the output of a single optimization run.
type Result struct {
	RunID        string             `json:"run_id"`
	Profile      string             `json:"profile"`
	Candidates   []ParlayCandidate  `json:"candidates"`
	Hedges       []HedgeStructure   `json:"hedges"`
	Correlations []CorrelationEntry `json:"correlations"`
	Summary      Summary            `json:"summary"`
	Reason       string             `json:"reason,omitempty"`
	Rejected     []RejectedLeg      `json:"rejected,omitempty"`
	ElapsedMS    int64              `json:"elapsed_ms"`
}
