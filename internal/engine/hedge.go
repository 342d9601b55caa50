package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// HedgeConfig bounds hedge and middle detection.
type HedgeConfig struct {
	UnitStake        float64 `json:"unit_stake"`         // total outlay a two-way structure is sized to
	MinMiddleWindow  float64 `json:"min_middle_window"`  // minimum gap between lines for a middle
	MinProfitPercent float64 `json:"min_profit_percent"` // floor below which two-way structures are discarded
}

// DefaultHedgeConfig sizes structures to a 100-unit outlay and reports every
// positive two-way hold.
func DefaultHedgeConfig() HedgeConfig {
	return HedgeConfig{
		UnitStake:        100.0,
		MinMiddleWindow:  1.0,
		MinProfitPercent: 0.0,
	}
}

// HedgeDetector scans a pool for riskless two-way structures and middle
// opportunities across books. It works from posted prices only; the true
// probabilities on the legs play no part in arbitrage.
type HedgeDetector struct {
	cfg HedgeConfig
}

// NewHedgeDetector creates a detector with the given bounds.
func NewHedgeDetector(cfg HedgeConfig) *HedgeDetector {
	return &HedgeDetector{cfg: cfg}
}

// Detect runs both scans over the pool and returns the structures found,
// two-ways first, in descending profit order within each kind.
func (d *HedgeDetector) Detect(pool []Wager) []HedgeStructure {
	structures := d.detectTwoWay(pool)
	structures = append(structures, d.detectMiddles(pool)...)
	return structures
}

// detectTwoWay groups moneyline legs by game, takes the best posted price on
// each side, and reports a structure whenever the inverse decimal odds sum
// below one. Stakes are split so both outcomes pay the same amount.
func (d *HedgeDetector) detectTwoWay(pool []Wager) []HedgeStructure {
	type sideBest struct {
		wager   Wager
		decimal float64
	}

	byGame := make(map[string]map[string]sideBest)
	gameOrder := make([]string, 0)

	for _, w := range pool {
		if w.MarketType != MarketMoneyline {
			continue
		}
		decimal, err := w.DecimalOdds()
		if err != nil {
			continue
		}

		side := strings.ToLower(w.Selection)
		if byGame[w.GameID] == nil {
			byGame[w.GameID] = make(map[string]sideBest)
			gameOrder = append(gameOrder, w.GameID)
		}
		if best, ok := byGame[w.GameID][side]; !ok || decimal > best.decimal {
			byGame[w.GameID][side] = sideBest{wager: w, decimal: decimal}
		}
	}

	var structures []HedgeStructure
	for _, gameID := range gameOrder {
		sides := byGame[gameID]
		if len(sides) != 2 {
			continue
		}

		best := make([]sideBest, 0, 2)
		for _, s := range sides {
			best = append(best, s)
		}
		sort.Slice(best, func(i, j int) bool {
			return best[i].wager.Selection < best[j].wager.Selection
		})

		invSum := 1.0/best[0].decimal + 1.0/best[1].decimal
		if invSum >= 1.0 {
			continue
		}

		profitPct := (1.0 - invSum) * 100.0
		if profitPct < d.cfg.MinProfitPercent {
			continue
		}

		legs := make([]HedgeLeg, 0, 2)
		for _, s := range best {
			stake := roundCents(d.cfg.UnitStake * (1.0 / s.decimal) / invSum)
			legs = append(legs, HedgeLeg{
				Wager:  s.wager,
				Stake:  stake,
				Payout: roundCents(stake * s.decimal),
			})
		}

		structures = append(structures, HedgeStructure{
			Type:          HedgeTwoWay,
			GameID:        gameID,
			MarketType:    MarketMoneyline,
			Legs:          legs,
			Guaranteed:    true,
			ProfitPercent: profitPct,
			Description: fmt.Sprintf("two-way arbitrage on %s: %s @ %s vs %s @ %s, %.2f%% locked",
				gameID,
				best[0].wager.Selection, best[0].wager.Book,
				best[1].wager.Selection, best[1].wager.Book,
				profitPct),
		})
	}

	sort.SliceStable(structures, func(i, j int) bool {
		return structures[i].ProfitPercent > structures[j].ProfitPercent
	})

	return structures
}

// detectMiddles pairs opposing spread or total legs on the same game whose
// lines sit at least the minimum window apart, leaving numbers where both
// sides cash. Middles are conditional positions and are never reported as
// guaranteed.
func (d *HedgeDetector) detectMiddles(pool []Wager) []HedgeStructure {
	var structures []HedgeStructure

	for i := 0; i < len(pool); i++ {
		for j := i + 1; j < len(pool); j++ {
			a, b := pool[i], pool[j]
			if a.GameID != b.GameID || a.MarketType != b.MarketType {
				continue
			}

			var low, high Wager
			switch {
			case a.MarketType == MarketTotal && a.IsOver() && b.IsUnder():
				low, high = a, b
			case a.MarketType == MarketTotal && a.IsUnder() && b.IsOver():
				low, high = b, a
			case a.MarketType == MarketSpread && oppositeSpreadSides(a, b):
				low, high = a, b
			default:
				continue
			}

			window := middleWindow(low, high)
			if window < d.cfg.MinMiddleWindow {
				continue
			}

			legs, ok := d.middleLegs(low, high)
			if !ok {
				continue
			}

			structures = append(structures, HedgeStructure{
				Type:         HedgeMiddle,
				GameID:       a.GameID,
				MarketType:   a.MarketType,
				Legs:         legs,
				Guaranteed:   false,
				MiddleWindow: window,
				Description: fmt.Sprintf("middle on %s %s: %s %.1f @ %s / %s %.1f @ %s, %.1f point window",
					a.GameID, a.MarketType,
					low.Selection, low.Line, low.Book,
					high.Selection, high.Line, high.Book,
					window),
			})
		}
	}

	sort.SliceStable(structures, func(i, j int) bool {
		return structures[i].MiddleWindow > structures[j].MiddleWindow
	})

	return structures
}

// middleLegs splits the unit stake evenly across the two sides.
func (d *HedgeDetector) middleLegs(low, high Wager) ([]HedgeLeg, bool) {
	lowDec, err := low.DecimalOdds()
	if err != nil {
		return nil, false
	}
	highDec, err := high.DecimalOdds()
	if err != nil {
		return nil, false
	}

	half := roundCents(d.cfg.UnitStake / 2.0)
	return []HedgeLeg{
		{Wager: low, Stake: half, Payout: roundCents(half * lowDec)},
		{Wager: high, Stake: half, Payout: roundCents(half * highDec)},
	}, true
}

// middleWindow measures the gap a middle can land in. For totals it is the
// distance between an over line below the under line. For spreads the lines
// must overlap in the middle's favor: a positive sum means final margins
// inside the gap cash both sides, a negative sum means they lose both.
func middleWindow(low, high Wager) float64 {
	if low.MarketType == MarketTotal {
		if low.Line >= high.Line {
			return 0
		}
		return high.Line - low.Line
	}
	return math.Max(0, low.Line+high.Line)
}

// oppositeSpreadSides reports whether two spread legs cover opposite teams,
// approximated by opposite line signs on different selections.
func oppositeSpreadSides(a, b Wager) bool {
	if strings.EqualFold(a.Selection, b.Selection) {
		return false
	}
	return (a.Line < 0 && b.Line > 0) || (a.Line > 0 && b.Line < 0)
}
