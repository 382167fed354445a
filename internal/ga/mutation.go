package ga

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/Talendar/neuroevolutionary-snake/internal/nn"
)

// MutationMethod selects how weights are perturbed
type MutationMethod int

const (
	// Replace swaps each weight, with probability rate, for a fresh draw.
	Replace MutationMethod = iota
	// Nudge scales every weight by a factor in [1-rate, 1+rate].
	Nudge
)

func (m MutationMethod) String() string {
	switch m {
	case Replace:
		return "replace"
	case Nudge:
		return "nudge"
	default:
		return fmt.Sprintf("MutationMethod(%d)", int(m))
	}
}

// ParseMutationMethod maps a config name to a MutationMethod
func ParseMutationMethod(s string) (MutationMethod, error) {
	switch s {
	case "replace":
		return Replace, nil
	case "nudge":
		return Nudge, nil
	}
	return 0, fmt.Errorf("unknown mutation method %q", s)
}

// Mutate perturbs ws in place. multiplier scales replacement draws, which
// come from U[-1, 1] like freshly initialized weights.
func Mutate(ws []*mat.Dense, method MutationMethod, rate, multiplier float64, rng *rand.Rand) {
	var fn func(_, _ int, v float64) float64
	switch method {
	case Nudge:
		fn = func(_, _ int, v float64) float64 {
			return v * (1 - rate + rng.Float64()*2*rate)
		}
	default:
		fn = func(_, _ int, v float64) float64 {
			if rng.Float64() < rate {
				return (rng.Float64()*2 - 1) * multiplier
			}
			return v
		}
	}
	for _, w := range ws {
		w.Apply(fn, w)
	}
}

// Mate returns the element-wise average of two networks' weights.
func Mate(a, b *nn.Network) ([]*mat.Dense, error) {
	wa, wb := a.Weights(), b.Weights()
	if len(wa) != len(wb) {
		return nil, fmt.Errorf("mate: %d vs %d weighted layers", len(wa), len(wb))
	}
	for i := range wa {
		ra, ca := wa[i].Dims()
		rb, cb := wb[i].Dims()
		if ra != rb || ca != cb {
			return nil, fmt.Errorf("mate: layer %d is %dx%d vs %dx%d", i+1, ra, ca, rb, cb)
		}
		wa[i].Add(wa[i], wb[i])
		wa[i].Scale(0.5, wa[i])
	}
	return wa, nil
}
