package ga

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Evaluator assigns Fitness and Stats to every individual of a generation.
// It returns once all of them are done.
type Evaluator interface {
	Evaluate(ctx context.Context, gen int, pop []*Individual) error
}

// GenerationRecord summarizes one generation
type GenerationRecord struct {
	Generation        int     `csv:"generation" json:"generation"`
	Total             float64 `csv:"total_fitness" json:"total_fitness"`
	Mean              float64 `csv:"mean_fitness" json:"mean_fitness"`
	Std               float64 `csv:"std_fitness" json:"std_fitness"`
	Best              float64 `csv:"best_fitness" json:"best_fitness"`
	BestFoods         float64 `csv:"best_foods" json:"best_foods"`
	BestTurns         float64 `csv:"best_turns" json:"best_turns"`
	MutationRate      float64 `csv:"mutation_rate" json:"mutation_rate"`
	ExtinctionCounter int     `csv:"extinction_counter" json:"extinction_counter"`
	MassExtinction    bool    `csv:"mass_extinction" json:"mass_extinction"`
}

// Observer is notified after every evaluated generation, before breeding.
// best is the elite; it must not be modified.
type Observer interface {
	Observe(ctx context.Context, rec GenerationRecord, best *Individual) error
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(ctx context.Context, rec GenerationRecord, best *Individual) error

// Observe calls f
func (f ObserverFunc) Observe(ctx context.Context, rec GenerationRecord, best *Individual) error {
	return f(ctx, rec, best)
}

// Summary is the outcome of Evolve
type Summary struct {
	BestEver    float64
	BestEverGen int
	Generations int
}

// Evolve runs the given number of generations: evaluate, sort, report, then
// either breed and cull or, after mass_extinction_threshold generations
// without improvement, wipe out all but the elite.
func (p *Population) Evolve(ctx context.Context, generations int, ev Evaluator, observers ...Observer) (Summary, error) {
	var sum Summary
	p.extinctionCounter = 0
	p.cycleBest = 0

	for gen := 0; gen < generations; gen++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		p.ResetFitness()
		if err := ev.Evaluate(ctx, gen, p.individuals); err != nil {
			return sum, fmt.Errorf("evaluating generation %d: %w", gen, err)
		}
		p.SortByFitness()

		best := p.individuals[0]
		if gen == 0 || best.Fitness > sum.BestEver {
			sum.BestEver = best.Fitness
			sum.BestEverGen = gen
		}
		if best.Fitness > p.cycleBest {
			p.cycleBest = best.Fitness
			p.extinctionCounter = 0
		} else {
			p.extinctionCounter++
		}
		extinct := p.extinctionCounter >= p.cfg.MassExtinctionThreshold

		rec := p.record(gen)
		rec.MassExtinction = extinct
		p.history = append(p.history, rec)
		sum.Generations = gen + 1

		for _, o := range observers {
			if err := o.Observe(ctx, rec, best); err != nil {
				return sum, fmt.Errorf("generation %d: %w", gen, err)
			}
		}

		if extinct {
			p.log.Info("mass extinction", "gen", gen, "counter", p.extinctionCounter)
			if err := p.MassExtinction(); err != nil {
				return sum, err
			}
			continue
		}
		if err := p.Reproduce(); err != nil {
			return sum, err
		}
		if err := p.Cull(); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (p *Population) record(gen int) GenerationRecord {
	fit := make([]float64, len(p.individuals))
	for i, ind := range p.individuals {
		fit[i] = ind.Fitness
	}
	mean, std := stat.PopMeanStdDev(fit, nil)
	best := p.individuals[0]
	return GenerationRecord{
		Generation:        gen,
		Total:             floats.Sum(fit),
		Mean:              mean,
		Std:               std,
		Best:              best.Fitness,
		BestFoods:         best.Stats.FoodsMean,
		BestTurns:         best.Stats.TurnsMean,
		MutationRate:      p.MutationRate(),
		ExtinctionCounter: p.extinctionCounter,
	}
}
