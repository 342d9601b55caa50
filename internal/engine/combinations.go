package engine

// GeneratorConfig bounds combination enumeration.
type GeneratorConfig struct {
	MinLegs            int     `json:"min_legs"`
	MaxLegs            int     `json:"max_legs"`
	CorrelationCeiling float64 `json:"correlation_ceiling"`
	PruneThreshold     int     `json:"prune_threshold"` // pool size at which pruning activates
}

// DefaultGeneratorConfig enumerates 2-4 leg combinations and starts pruning
// once the pool is large enough for exhaustive enumeration to hurt.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MinLegs:            2,
		MaxLegs:            4,
		CorrelationCeiling: 0.7,
		PruneThreshold:     30,
	}
}

// GenerateCombinations enumerates all size-k index subsets of the pool for k
// in [MinLegs, MaxLegs], ascending in k and lexicographic within each k, so
// the output order is stable for a given pool.
//
// For pools above PruneThreshold the walk is branch-and-bound rather than
// materialize-then-filter: a partial combination whose running mean pairwise
// correlation already exceeds the ceiling is abandoned, along with every
// extension of it. Adding legs to an over-correlated prefix cannot be allowed
// to resurrect it, so the cut is safe for the ceiling filter the scorer would
// apply anyway.
func GenerateCombinations(poolSize int, table *CorrelationTable, cfg GeneratorConfig) [][]int {
	if cfg.MinLegs < 2 {
		cfg.MinLegs = 2
	}
	if poolSize < cfg.MinLegs || cfg.MaxLegs < cfg.MinLegs {
		return nil
	}

	prune := cfg.PruneThreshold > 0 && poolSize > cfg.PruneThreshold && table != nil

	var combos [][]int
	current := make([]int, 0, cfg.MaxLegs)

	var extend func(start int, size int, pairSum float64, pairCount int)
	extend = func(start int, size int, pairSum float64, pairCount int) {
		if len(current) == size {
			combo := make([]int, size)
			copy(combo, current)
			combos = append(combos, combo)
			return
		}

		for i := start; i < poolSize; i++ {
			newSum := pairSum
			newCount := pairCount
			if table != nil {
				for _, j := range current {
					newSum += table.Score(j, i)
					newCount++
				}
			}

			if prune && newCount > 0 && newSum/float64(newCount) > cfg.CorrelationCeiling {
				continue
			}

			current = append(current, i)
			extend(i+1, size, newSum, newCount)
			current = current[:len(current)-1]
		}
	}

	for k := cfg.MinLegs; k <= cfg.MaxLegs && k <= poolSize; k++ {
		extend(0, k, 0, 0)
	}

	return combos
}
