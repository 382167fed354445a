package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
	"github.com/Talendar/neuroevolutionary-snake/internal/eval"
	"github.com/Talendar/neuroevolutionary-snake/internal/ga"
	"github.com/Talendar/neuroevolutionary-snake/internal/logging"
	"github.com/Talendar/neuroevolutionary-snake/internal/nn"
	"github.com/Talendar/neuroevolutionary-snake/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults are used when empty)")
	generations := flag.Int("generations", 0, "number of generations to run (overrides ga.generations)")
	resume := flag.String("resume", "", "run directory to resume from; its best model seeds the population")
	baseModel := flag.String("base-model", "", "pre-trained model placed at index 0 of the new population")
	logFormat := flag.String("log-format", "text", "log format: text or json")
	flag.Parse()

	log := newLogger(*logFormat)
	slog.SetDefault(log)

	if err := run(*configPath, *generations, *resume, *baseModel, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func run(configPath string, generations int, resume, baseModel string, log *slog.Logger) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	if generations > 0 {
		cfg.GA.Generations = generations
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts := ga.Options{Log: log}
	if resume != "" {
		opts.FromDir = resume
	} else {
		opts.Size = cfg.GA.Population
	}
	if baseModel != "" {
		brain, err := nn.LoadFile(baseModel)
		if err != nil {
			return err
		}
		opts.Pretrained = brain
	}

	pop, err := ga.NewPopulation(cfg, opts, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return err
	}
	evaluator, err := eval.NewEvaluator(cfg)
	if err != nil {
		return err
	}

	run, err := store.NewRun(cfg.Output.BaseDir, time.Now())
	if err != nil {
		return err
	}
	if err := run.WriteConfig(cfg); err != nil {
		return err
	}
	logger, err := logging.NewLogger(run, log)
	if err != nil {
		return err
	}
	defer logger.Close()

	observers := []ga.Observer{logger}
	if every := cfg.Output.ReplayEvery; every > 0 {
		observers = append(observers, ga.ObserverFunc(func(ctx context.Context, rec ga.GenerationRecord, best *ga.Individual) error {
			if rec.Generation%every != 0 {
				return nil
			}
			replay, err := evaluator.Record(ctx, best.Brain, rec.Generation)
			if err != nil {
				return err
			}
			return replay.Save(run.ReplayPath(rec.Generation))
		}))
	}

	log.Info("training",
		"run", run.Dir,
		"id", run.ID,
		"population", pop.Size(),
		"generations", cfg.GA.Generations,
		"layers", cfg.LayerSizes(),
		"workers", evaluator.Workers(),
		"reproduction", cfg.GA.Reproduction,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	summary, err := pop.Evolve(ctx, cfg.GA.Generations, evaluator, observers...)
	if err != nil {
		return err
	}

	info := store.NewInfo(cfg, pop.Size())
	info.Generations = summary.Generations
	info.BestScoreEver = summary.BestEver
	info.BestScoreEverGen = summary.BestEverGen
	if err := run.WriteInfo(info); err != nil {
		return err
	}
	if food, err := eval.FoodList(cfg); err != nil {
		return err
	} else if food != nil {
		if err := run.WriteFoodList(food); err != nil {
			return err
		}
	}
	if err := logging.PlotHistory(pop.History(), run.Path(store.HistoryPlot)); err != nil {
		log.Warn("failed to plot history", "err", err)
	}

	log.Info("training complete",
		"generations", summary.Generations,
		"elapsed", time.Since(start).Round(time.Second),
		"best_ever", summary.BestEver,
		"best_ever_gen", summary.BestEverGen,
		"dir", run.Dir,
	)
	return nil
}
