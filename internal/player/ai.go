package player

import (
	"fmt"
	"sort"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
	"github.com/Talendar/neuroevolutionary-snake/internal/env"
	"github.com/Talendar/neuroevolutionary-snake/internal/nn"
)

// AI is a player controlled by a neural network. It is stateful (last action,
// override cooldown, accumulated penalty) and must not be shared between
// concurrent episodes.
type AI struct {
	brain      *nn.Network
	features   *env.FeatureExtractor
	lifeSaving config.LifeSavingConfig

	lastAction env.Action
	cooldown   int
	penalty    float64
	overrides  int
	err        error
}

// NewAI wraps brain. The sight radius must match the brain's input layer.
func NewAI(brain *nn.Network, sightRadius int, lifeSaving config.LifeSavingConfig) (*AI, error) {
	if dim := env.FeatureDim(sightRadius); dim != brain.InputSize() {
		return nil, fmt.Errorf("sight radius %d yields %d features, brain expects %d", sightRadius, dim, brain.InputSize())
	}
	if sizes := brain.Sizes(); sizes[len(sizes)-1] != len(env.Actions) {
		return nil, fmt.Errorf("brain has %d outputs, need one per action (%d)", sizes[len(sizes)-1], len(env.Actions))
	}
	return &AI{
		brain:      brain,
		features:   env.NewFeatureExtractor(sightRadius),
		lifeSaving: lifeSaving,
		lastAction: initialAction,
	}, nil
}

// Act ranks the network outputs and picks the best one, subject to the
// life-saving override and to the ban on reversing into the body.
func (a *AI) Act(w *env.World, _ []InputEvent) env.Action {
	out, err := a.brain.Predict(a.features.Extract(w))
	if err != nil {
		// only possible on a shape mismatch, which NewAI rules out
		a.err = err
		return a.lastAction
	}
	ranked := rank(out)
	choice := ranked[0]

	a.cooldown--
	if a.lifeSaving.Enabled && a.cooldown <= 0 && !w.IsSafe(choice) {
		for _, act := range ranked[1:] {
			if w.IsSafe(act) {
				choice = act
				break
			}
		}
		a.cooldown = a.lifeSaving.Cooldown
		a.penalty += a.lifeSaving.Penalty
		a.overrides++
	}

	if choice != a.lastAction.Opposite() {
		a.lastAction = choice
	}
	return a.lastAction
}

// Penalty is the score delta accumulated by life-saving overrides.
func (a *AI) Penalty() float64 { return a.penalty }

// Overrides is the number of life-saving overrides used.
func (a *AI) Overrides() int { return a.overrides }

// LastAction is the action returned by the previous Act.
func (a *AI) LastAction() env.Action { return a.lastAction }

// Err reports an inference failure, if any happened.
func (a *AI) Err() error { return a.err }

// rank orders the actions by output activation, highest first. Ties keep
// the neuron order.
func rank(out []float64) []env.Action {
	ranked := make([]env.Action, len(env.Actions))
	copy(ranked, env.Actions[:])
	sort.SliceStable(ranked, func(i, j int) bool {
		return out[ranked[i]] > out[ranked[j]]
	})
	return ranked
}
