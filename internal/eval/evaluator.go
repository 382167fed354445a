package eval

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
	"github.com/Talendar/neuroevolutionary-snake/internal/env"
	"github.com/Talendar/neuroevolutionary-snake/internal/ga"
	"github.com/Talendar/neuroevolutionary-snake/internal/nn"
	"github.com/Talendar/neuroevolutionary-snake/internal/player"
)

// Evaluator handles episode evaluation and fitness computation
type Evaluator struct {
	cfg     *config.Config
	food    []env.Point // nil unless the fixed food list is enabled
	workers int
}

// NewEvaluator creates a new evaluator
func NewEvaluator(cfg *config.Config) (*Evaluator, error) {
	food, err := FoodList(cfg)
	if err != nil {
		return nil, err
	}

	workers := cfg.Eval.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Evaluator{
		cfg:     cfg,
		food:    food,
		workers: workers,
	}, nil
}

// FoodList resolves the fixed food sequence: the file at food_list_path if
// set, otherwise the inline food_list. Nil when use_food_list is off.
func FoodList(cfg *config.Config) ([]env.Point, error) {
	if !cfg.Eval.UseFoodList {
		return nil, nil
	}
	if cfg.Eval.FoodListPath != "" {
		pts, err := env.LoadFoodList(cfg.Eval.FoodListPath)
		if err != nil {
			return nil, fmt.Errorf("loading food list: %w", err)
		}
		return pts, nil
	}
	return env.PointsFromPairs(cfg.Eval.FoodList), nil
}

// Workers returns the evaluation parallelism
func (e *Evaluator) Workers() int {
	return e.workers
}

// Evaluate computes the fitness of every individual. Individuals are spread
// over a bounded pool of goroutines, each owning a copy of its brain; the
// call returns once all of them are done. The first failure cancels the rest
// and is returned.
func (e *Evaluator) Evaluate(ctx context.Context, gen int, pop []*ga.Individual) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, ind := range pop {
		ind := ind
		brain := ind.Brain.Clone()
		g.Go(func() error {
			agg, err := e.EvaluateBrain(ctx, brain, gen)
			if err != nil {
				return err
			}
			ind.Stats = agg
			ind.Fitness = agg.ScoreMean
			return nil
		})
	}
	return g.Wait()
}

// EvaluateBrain plays plays_per_gen independent games and aggregates them.
// Every brain of a generation sees the same seeds.
func (e *Evaluator) EvaluateBrain(ctx context.Context, brain *nn.Network, gen int) (env.AggregatedStats, error) {
	plays := e.cfg.Eval.PlaysPerGen
	episodes := make([]env.EpisodeStats, plays)
	for i := 0; i < plays; i++ {
		stats, err := e.Play(ctx, brain, e.seed(gen, i), nil)
		if err != nil {
			return env.AggregatedStats{}, err
		}
		episodes[i] = stats
	}
	return env.Aggregate(episodes), nil
}

func (e *Evaluator) seed(gen, play int) int64 {
	return e.cfg.Seed + int64(gen)*int64(e.cfg.Eval.PlaysPerGen) + int64(play)
}

// Play runs a single headless game. onAction may be nil.
func (e *Evaluator) Play(ctx context.Context, brain *nn.Network, seed int64, onAction func(env.Action)) (env.EpisodeStats, error) {
	stats, _, err := e.play(ctx, brain, seed, onAction)
	return stats, err
}

func (e *Evaluator) play(ctx context.Context, brain *nn.Network, seed int64, onAction func(env.Action)) (env.EpisodeStats, *env.World, error) {
	world, err := env.NewWorld(e.cfg.Game, e.food, rand.New(rand.NewSource(seed)))
	if err != nil {
		return env.EpisodeStats{}, nil, err
	}
	ai, err := player.NewAI(brain, e.cfg.Game.SightRadius, e.cfg.LifeSaving)
	if err != nil {
		return env.EpisodeStats{}, nil, err
	}

	ep := &Episode{
		World:          world,
		Player:         ai,
		Scoring:        e.cfg.Scoring,
		MaxTurns:       e.cfg.Eval.MaxTurns,
		MaxNoFoodTurns: e.cfg.Eval.MaxNoFoodTurns,
		OnAction:       onAction,
	}
	stats, err := ep.Run(ctx)
	if err != nil {
		return stats, world, err
	}
	if err := ai.Err(); err != nil {
		return stats, world, err
	}
	stats.Score += ai.Penalty()
	stats.Overrides = ai.Overrides()
	stats.Seed = seed
	return stats, world, nil
}

// Record replays the first evaluation game of generation gen and returns
// its action trace.
func (e *Evaluator) Record(ctx context.Context, brain *nn.Network, gen int) (*env.Replay, error) {
	replay := env.NewReplay(e.cfg.Game, gen)
	stats, world, err := e.play(ctx, brain.Clone(), e.seed(gen, 0), replay.Record)
	if err != nil {
		return nil, err
	}
	replay.Finish(world, stats)
	return replay, nil
}
