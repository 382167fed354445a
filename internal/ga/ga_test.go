package ga

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
	"github.com/Talendar/neuroevolutionary-snake/internal/nn"
	"github.com/Talendar/neuroevolutionary-snake/internal/store"
)

var testTime = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Game.SightRadius = 1
	cfg.Brain.Hidden = []int{6}
	return cfg
}

func newTestPopulation(t *testing.T, cfg *config.Config, size int) *Population {
	t.Helper()
	p, err := NewPopulation(cfg, Options{Size: size}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	return p
}

// firstWeight scores an individual by its first weight, so fitness follows
// the genome.
type firstWeight struct {
	calls int
	gens  []int
}

func (f *firstWeight) Evaluate(_ context.Context, gen int, pop []*Individual) error {
	f.calls++
	f.gens = append(f.gens, gen)
	for _, ind := range pop {
		ind.Fitness = ind.Brain.Layers()[1].Weights.At(0, 0)
	}
	return nil
}

// constant gives every individual the same fitness
type constant float64

func (c constant) Evaluate(_ context.Context, _ int, pop []*Individual) error {
	for _, ind := range pop {
		ind.Fitness = float64(c)
	}
	return nil
}

func containsPtr(list []*Individual, ind *Individual) bool {
	for _, o := range list {
		if o == ind {
			return true
		}
	}
	return false
}

type failing struct{}

func (failing) Evaluate(context.Context, int, []*Individual) error {
	return errors.New("boom")
}

func TestNewPopulationOptions(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(1))

	_, err := NewPopulation(cfg, Options{}, rng)
	assert.ErrorIs(t, err, ErrPopulationArgs)
	_, err = NewPopulation(cfg, Options{Size: 10, FromDir: t.TempDir()}, rng)
	assert.ErrorIs(t, err, ErrPopulationArgs)
	_, err = NewPopulation(cfg, Options{Size: 3}, rng)
	assert.ErrorIs(t, err, ErrPopulationArgs, "smaller than the selection ranks")

	seed := newTestPopulation(t, cfg, 5).Best().Brain
	_, err = NewPopulation(cfg, Options{FromDir: t.TempDir(), Pretrained: seed}, rng)
	assert.ErrorIs(t, err, ErrPopulationArgs)

	p := newTestPopulation(t, cfg, 12)
	assert.Equal(t, 12, p.Size())
	assert.Equal(t, []int{12, 6, 4}, p.Best().Brain.Sizes())
}

func TestNewPopulationPretrained(t *testing.T) {
	cfg := testConfig()
	brain, err := nn.New(nn.Topology{Sizes: []int{12, 3, 4}, Hidden: nn.ReLU, Output: nn.Sigmoid, WeightsMultiplier: 1},
		rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	p, err := NewPopulation(cfg, Options{Size: 8, Pretrained: brain}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Same(t, brain, p.Individuals()[0].Brain)
	// fresh individuals follow the seed's shape
	assert.Equal(t, []int{12, 3, 4}, p.Individuals()[1].Brain.Sizes())
}

func TestNewPopulationFromDir(t *testing.T) {
	cfg := testConfig()
	run, err := store.NewRun(t.TempDir(), testTime)
	require.NoError(t, err)

	best := newTestPopulation(t, cfg, 5).Best().Brain
	require.NoError(t, run.SaveModel(best, 3))
	info := store.NewInfo(cfg, 9)
	info.BestScoreEverGen = 3
	require.NoError(t, run.WriteInfo(info))

	p, err := NewPopulation(cfg, Options{FromDir: run.Dir}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 9, p.Size())
	assert.True(t, mat.Equal(best.Layers()[1].Weights, p.Best().Brain.Layers()[1].Weights))

	_, err = NewPopulation(cfg, Options{FromDir: t.TempDir()}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestMutationRate(t *testing.T) {
	cfg := testConfig()
	cfg.GA.MinMutationRate = 0.01
	cfg.GA.MaxMutationRate = 0.5
	cfg.GA.MassExtinctionThreshold = 40
	p := newTestPopulation(t, cfg, 10)

	prev := 0.0
	for c := 0; c < 60; c++ {
		p.extinctionCounter = c
		rate := p.MutationRate()
		assert.GreaterOrEqual(t, rate, prev, "counter %d", c)
		assert.GreaterOrEqual(t, rate, 0.01)
		assert.LessOrEqual(t, rate, 0.5)
		prev = rate
	}
	p.extinctionCounter = 0
	assert.InDelta(t, 0.0125, p.MutationRate(), 1e-12)
	p.extinctionCounter = 39
	assert.InDelta(t, 0.5, p.MutationRate(), 1e-12)

	p.cfg.MinMutationRate = 0.2
	p.extinctionCounter = 0
	assert.InDelta(t, 0.2, p.MutationRate(), 1e-12)
}

func TestSortByFitnessIsStable(t *testing.T) {
	p := newTestPopulation(t, testConfig(), 6)
	inds := append([]*Individual(nil), p.Individuals()...)
	for i, ind := range inds {
		ind.Fitness = float64(i % 2)
	}
	p.SortByFitness()
	got := p.Individuals()
	assert.Equal(t, []*Individual{inds[1], inds[3], inds[5], inds[0], inds[2], inds[4]}, got)
}

func TestSelectRank(t *testing.T) {
	weights := []float64{0.3, 0.25, 0.2, 0.15, 0.1, 0, 0, 0}
	rng := rand.New(rand.NewSource(1))
	counts := make([]int, len(weights))
	const draws = 20000
	for i := 0; i < draws; i++ {
		counts[SelectRank(weights, rng)]++
	}
	for i := 5; i < len(weights); i++ {
		assert.Zero(t, counts[i], "rank %d has no weight", i)
	}
	for i := 0; i < 5; i++ {
		assert.InDelta(t, weights[i], float64(counts[i])/draws, 0.02, "rank %d", i)
	}
}

func TestReproduceRewardKeepsEliteAndSamplesTopRanks(t *testing.T) {
	cfg := testConfig()
	cfg.GA.MinMutationRate = 0
	cfg.GA.MaxMutationRate = 0
	p := newTestPopulation(t, cfg, 20)
	for i, ind := range p.Individuals() {
		ind.Fitness = float64(-i)
	}
	p.SortByFitness()
	old := append([]*Individual(nil), p.Individuals()...)

	require.NoError(t, p.Reproduce())
	next := p.Individuals()
	require.Len(t, next, 20)
	assert.Same(t, old[0], next[0])

	for _, child := range next[1:] {
		assert.False(t, containsPtr(old, child))
		parent := -1
		for r := 0; r < 5; r++ {
			if mat.Equal(old[r].Brain.Layers()[1].Weights, child.Brain.Layers()[1].Weights) {
				parent = r
			}
		}
		assert.GreaterOrEqual(t, parent, 0, "child weights come from a top-5 parent")
	}
}

func TestReproduceMating(t *testing.T) {
	cfg := testConfig()
	cfg.GA.Reproduction = "mating"
	cfg.GA.MinMutationRate = 0
	cfg.GA.MaxMutationRate = 0
	p := newTestPopulation(t, cfg, 6)
	old := append([]*Individual(nil), p.Individuals()...)

	require.NoError(t, p.Reproduce())
	next := p.Individuals()
	assert.Same(t, old[0], next[0])
	for i := 1; i < len(next); i++ {
		var want mat.Dense
		want.Add(old[0].Brain.Layers()[2].Weights, old[i].Brain.Layers()[2].Weights)
		want.Scale(0.5, &want)
		assert.True(t, mat.EqualApprox(&want, next[i].Brain.Layers()[2].Weights, 1e-12), "child %d", i)
	}
}

func TestMutate(t *testing.T) {
	base := mat.NewDense(2, 3, []float64{1, -2, 3, 0.5, -0.25, 4})
	rng := rand.New(rand.NewSource(1))

	w := mat.DenseCopyOf(base)
	Mutate([]*mat.Dense{w}, Replace, 0, 1, rng)
	assert.True(t, mat.Equal(base, w), "rate 0 leaves weights alone")

	Mutate([]*mat.Dense{w}, Replace, 1, 0, rng)
	assert.True(t, mat.Equal(mat.NewDense(2, 3, nil), w), "rate 1 replaces every weight")

	w = mat.DenseCopyOf(base)
	Mutate([]*mat.Dense{w}, Replace, 1, 0.5, rng)
	for _, v := range w.RawMatrix().Data {
		assert.True(t, v >= -0.5 && v <= 0.5)
	}

	w = mat.DenseCopyOf(base)
	Mutate([]*mat.Dense{w}, Nudge, 0.5, 1, rng)
	for i, v := range w.RawMatrix().Data {
		orig := base.RawMatrix().Data[i]
		lo, hi := orig*0.5, orig*1.5
		if lo > hi {
			lo, hi = hi, lo
		}
		assert.True(t, v >= lo && v <= hi, "weight %d: %g not within nudge of %g", i, v, orig)
	}
}

func TestMateRejectsShapeMismatch(t *testing.T) {
	a := newTestPopulation(t, testConfig(), 5).Best().Brain
	cfg := testConfig()
	cfg.Brain.Hidden = []int{2}
	b := newTestPopulation(t, cfg, 5).Best().Brain
	_, err := Mate(a, b)
	assert.Error(t, err)
}

func TestCull(t *testing.T) {
	cfg := testConfig()
	cfg.GA.RandomKillPC = 0.1
	p := newTestPopulation(t, cfg, 20)
	old := append([]*Individual(nil), p.Individuals()...)

	require.NoError(t, p.Cull())
	next := p.Individuals()
	require.Len(t, next, 20)
	assert.Same(t, old[0], next[0])

	// a later kill may hit an individual appended by an earlier one
	fresh := 0
	for _, ind := range next {
		if !containsPtr(old, ind) {
			fresh++
		}
	}
	assert.True(t, fresh >= 1 && fresh <= 2, "fresh individuals: %d", fresh)
}

func TestMassExtinction(t *testing.T) {
	p := newTestPopulation(t, testConfig(), 20)
	old := append([]*Individual(nil), p.Individuals()...)
	p.extinctionCounter = 40
	p.cycleBest = 12

	require.NoError(t, p.MassExtinction())
	next := p.Individuals()
	require.Len(t, next, 20)
	assert.Same(t, old[0], next[0])
	for _, ind := range next[1:] {
		assert.False(t, containsPtr(old, ind))
	}
	assert.Zero(t, p.ExtinctionCounter())
	assert.Zero(t, p.cycleBest)
}

func TestEvolveImproving(t *testing.T) {
	p := newTestPopulation(t, testConfig(), 10)
	ev := &firstWeight{}
	var seen []GenerationRecord
	obs := ObserverFunc(func(_ context.Context, rec GenerationRecord, best *Individual) error {
		seen = append(seen, rec)
		assert.Equal(t, rec.Best, best.Fitness)
		return nil
	})

	sum, err := p.Evolve(context.Background(), 5, ev, obs)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Generations)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ev.gens)
	assert.Equal(t, seen, p.History())

	for i := 1; i < len(seen); i++ {
		// the elite is carried over unchanged, so the best never drops
		assert.GreaterOrEqual(t, seen[i].Best, seen[i-1].Best)
	}
	assert.Equal(t, seen[len(seen)-1].Best, sum.BestEver)
	for _, rec := range seen {
		assert.LessOrEqual(t, rec.Mean, rec.Best)
		assert.InDelta(t, rec.Mean*10, rec.Total, 1e-9)
	}
}

func TestEvolveMassExtinction(t *testing.T) {
	cfg := testConfig()
	cfg.GA.MassExtinctionThreshold = 3
	p := newTestPopulation(t, cfg, 10)

	sum, err := p.Evolve(context.Background(), 5, constant(0))
	require.NoError(t, err)

	h := p.History()
	require.Len(t, h, 5)
	counters := make([]int, len(h))
	extinct := make([]bool, len(h))
	for i, rec := range h {
		counters[i] = rec.ExtinctionCounter
		extinct[i] = rec.MassExtinction
	}
	assert.Equal(t, []int{1, 2, 3, 1, 2}, counters)
	assert.Equal(t, []bool{false, false, true, false, false}, extinct)
	assert.Equal(t, 0, sum.BestEverGen)
}

func TestEvolveErrors(t *testing.T) {
	p := newTestPopulation(t, testConfig(), 10)
	_, err := p.Evolve(context.Background(), 3, failing{})
	assert.ErrorContains(t, err, "boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Evolve(ctx, 3, constant(1))
	assert.ErrorIs(t, err, context.Canceled)

	stop := errors.New("stop")
	_, err = p.Evolve(context.Background(), 3, constant(1), ObserverFunc(func(context.Context, GenerationRecord, *Individual) error {
		return stop
	}))
	assert.ErrorIs(t, err, stop)
}
