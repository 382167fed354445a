package ga

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
	"github.com/Talendar/neuroevolutionary-snake/internal/env"
	"github.com/Talendar/neuroevolutionary-snake/internal/nn"
	"github.com/Talendar/neuroevolutionary-snake/internal/store"
)

// ErrPopulationArgs reports contradictory or missing population options
var ErrPopulationArgs = errors.New("invalid population arguments")

// Individual is one member of the population
type Individual struct {
	Brain   *nn.Network
	Fitness float64
	Stats   env.AggregatedStats
}

// Options select how the initial population is built. Exactly one of Size
// and FromDir must be set.
type Options struct {
	Size int
	// FromDir resumes from a finished run: the size is read from its
	// metadata and its best model ever seeds index 0.
	FromDir string
	// Pretrained replaces the brain at index 0
	Pretrained *nn.Network
	Log        *slog.Logger
}

// Population manages the collection of individuals
type Population struct {
	cfg          config.GAConfig
	topology     nn.Topology
	reproduction ReproductionMethod
	mutation     MutationMethod
	rng          *rand.Rand
	log          *slog.Logger

	individuals []*Individual

	extinctionCounter int
	cycleBest         float64
	history           []GenerationRecord
}

// Topology returns the brain shape described by the configuration
func Topology(cfg *config.Config) (nn.Topology, error) {
	hidden, err := nn.ParseActivation(cfg.Brain.HiddenActivation)
	if err != nil {
		return nn.Topology{}, err
	}
	output, err := nn.ParseActivation(cfg.Brain.OutputActivation)
	if err != nil {
		return nn.Topology{}, err
	}
	return nn.Topology{
		Sizes:             cfg.LayerSizes(),
		Hidden:            hidden,
		Output:            output,
		WeightsMultiplier: cfg.Brain.WeightsMultiplier,
	}, nil
}

// NewPopulation creates the initial population. Fresh brains follow the
// configured topology, or the seed brain's topology when one is given.
func NewPopulation(cfg *config.Config, opts Options, rng *rand.Rand) (*Population, error) {
	switch {
	case opts.Size == 0 && opts.FromDir == "":
		return nil, fmt.Errorf("%w: need a size or a run directory", ErrPopulationArgs)
	case opts.Size != 0 && opts.FromDir != "":
		return nil, fmt.Errorf("%w: size is read from the run directory when resuming", ErrPopulationArgs)
	case opts.FromDir != "" && opts.Pretrained != nil:
		return nil, fmt.Errorf("%w: a resumed run already provides the seed brain", ErrPopulationArgs)
	}

	size, seed := opts.Size, opts.Pretrained
	if opts.FromDir != "" {
		var err error
		size, seed, err = store.LoadSeed(opts.FromDir)
		if err != nil {
			return nil, err
		}
	}
	if size < len(cfg.GA.SelectionWeights) {
		return nil, fmt.Errorf("%w: size %d is smaller than the %d selection ranks",
			ErrPopulationArgs, size, len(cfg.GA.SelectionWeights))
	}

	topology, err := Topology(cfg)
	if err != nil {
		return nil, err
	}
	if seed != nil {
		topology = seed.Topology()
	}
	reproduction, err := ParseReproductionMethod(cfg.GA.Reproduction)
	if err != nil {
		return nil, err
	}
	mutation, err := ParseMutationMethod(cfg.GA.MutationMethod)
	if err != nil {
		return nil, err
	}

	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	p := &Population{
		cfg:          cfg.GA,
		topology:     topology,
		reproduction: reproduction,
		mutation:     mutation,
		rng:          rng,
		log:          log,
		individuals:  make([]*Individual, size),
	}
	for i := range p.individuals {
		ind, err := p.fresh()
		if err != nil {
			return nil, err
		}
		p.individuals[i] = ind
	}
	if seed != nil {
		p.individuals[0].Brain = seed
	}
	return p, nil
}

func (p *Population) fresh() (*Individual, error) {
	brain, err := nn.New(p.topology, p.rng)
	if err != nil {
		return nil, err
	}
	return &Individual{Brain: brain}, nil
}

// child builds a fresh individual that takes ws as its weights. Biases keep
// their new random values.
func (p *Population) child(ind *Individual, rate float64, mate *Individual) (*Individual, error) {
	var err error
	ws := ind.Brain.Weights()
	if mate != nil {
		if ws, err = Mate(mate.Brain, ind.Brain); err != nil {
			return nil, err
		}
	}
	Mutate(ws, p.mutation, rate, p.topology.WeightsMultiplier, p.rng)

	c, err := p.fresh()
	if err != nil {
		return nil, err
	}
	if err := c.Brain.SetWeights(ws); err != nil {
		return nil, err
	}
	return c, nil
}

// Size returns the population size
func (p *Population) Size() int {
	return len(p.individuals)
}

// Individuals returns the current members. After SortByFitness the elite is
// at index 0.
func (p *Population) Individuals() []*Individual {
	return p.individuals
}

// Best returns the individual at index 0
func (p *Population) Best() *Individual {
	return p.individuals[0]
}

// ExtinctionCounter counts the generations since the cycle best improved
func (p *Population) ExtinctionCounter() int {
	return p.extinctionCounter
}

// SortByFitness sorts individuals by fitness (descending). Equal fitness keeps
// the current order.
func (p *Population) SortByFitness() {
	sort.SliceStable(p.individuals, func(i, j int) bool {
		return p.individuals[i].Fitness > p.individuals[j].Fitness
	})
}

// ResetFitness resets all individuals' fitness to 0
func (p *Population) ResetFitness() {
	for _, ind := range p.individuals {
		ind.Fitness = 0
		ind.Stats = env.AggregatedStats{}
	}
}

// MutationRate grows with the extinction counter, from min_mutation_rate up to
// max_mutation_rate right before an extinction.
func (p *Population) MutationRate() float64 {
	rate := float64(1+p.extinctionCounter) / float64(p.cfg.MassExtinctionThreshold) * p.cfg.MaxMutationRate
	if rate < p.cfg.MinMutationRate {
		rate = p.cfg.MinMutationRate
	}
	if rate > p.cfg.MaxMutationRate {
		rate = p.cfg.MaxMutationRate
	}
	return rate
}

// Reproduce replaces every individual but the elite with a child. The
// population must be sorted.
func (p *Population) Reproduce() error {
	rate := p.MutationRate()
	elite := p.individuals[0]
	next := make([]*Individual, 1, len(p.individuals))
	next[0] = elite

	for i := 1; i < len(p.individuals); i++ {
		var (
			c   *Individual
			err error
		)
		switch p.reproduction {
		case Mating:
			c, err = p.child(p.individuals[i], rate, elite)
		default:
			parent := p.individuals[SelectRank(p.cfg.SelectionWeights, p.rng)]
			c, err = p.child(parent, rate, nil)
		}
		if err != nil {
			return fmt.Errorf("breeding individual %d: %w", i, err)
		}
		next = append(next, c)
	}
	p.individuals = next
	return nil
}

// Cull removes int(N * random_kill_pc) random non-elite individuals, appending
// a fresh one for each.
func (p *Population) Cull() error {
	n := len(p.individuals)
	if n < 2 {
		return nil
	}
	kills := int(float64(n) * p.cfg.RandomKillPC)
	for k := 0; k < kills; k++ {
		i := 1 + p.rng.Intn(n-1)
		p.individuals = append(p.individuals[:i], p.individuals[i+1:]...)
		ind, err := p.fresh()
		if err != nil {
			return err
		}
		p.individuals = append(p.individuals, ind)
	}
	return nil
}

// MassExtinction keeps the elite and replaces everyone else with fresh
// individuals. The extinction counter and the cycle best start over.
func (p *Population) MassExtinction() error {
	n := len(p.individuals)
	next := make([]*Individual, 1, n)
	next[0] = p.individuals[0]
	for len(next) < n {
		ind, err := p.fresh()
		if err != nil {
			return err
		}
		next = append(next, ind)
	}
	p.individuals = next
	p.extinctionCounter = 0
	p.cycleBest = 0
	return nil
}

// History returns the records of every evolved generation
func (p *Population) History() []GenerationRecord {
	return append([]GenerationRecord(nil), p.history...)
}
