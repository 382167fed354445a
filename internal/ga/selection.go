package ga

import (
	"fmt"
	"math/rand"
)

// ReproductionMethod selects how the next generation is bred
type ReproductionMethod int

const (
	// Reward samples parents by rank and mutates copies of them.
	Reward ReproductionMethod = iota
	// Mating averages the elite with every other individual, then mutates.
	Mating
)

func (r ReproductionMethod) String() string {
	switch r {
	case Reward:
		return "reward"
	case Mating:
		return "mating"
	default:
		return fmt.Sprintf("ReproductionMethod(%d)", int(r))
	}
}

// ParseReproductionMethod maps a config name to a ReproductionMethod
func ParseReproductionMethod(s string) (ReproductionMethod, error) {
	switch s {
	case "reward":
		return Reward, nil
	case "mating":
		return Mating, nil
	}
	return 0, fmt.Errorf("unknown reproduction method %q", s)
}

// SelectRank samples a rank from the given weights. Ranks beyond the weights
// have zero probability. Weights need not be normalized.
func SelectRank(weights []float64, rng *rand.Rand) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	// rounding: fall back to the last rank with any weight
	for i := len(weights) - 1; i > 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return 0
}
