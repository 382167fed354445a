package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
	"github.com/Talendar/neuroevolutionary-snake/internal/env"
	"github.com/Talendar/neuroevolutionary-snake/internal/eval"
	"github.com/Talendar/neuroevolutionary-snake/internal/nn"
	"github.com/Talendar/neuroevolutionary-snake/internal/player"
	"github.com/Talendar/neuroevolutionary-snake/internal/render"
	"github.com/Talendar/neuroevolutionary-snake/internal/store"
)

type options struct {
	configPath string
	modelPath  string
	runDir     string
	gen        int
	replayPath string
	wsAddr     string
	human      bool
	fps        int
	seed       int64
	maxTurns   int
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to config file (a run's config.yaml is used with -run)")
	flag.StringVar(&o.modelPath, "model", "", "path to a saved model")
	flag.StringVar(&o.runDir, "run", "", "training run directory to load a model from")
	flag.IntVar(&o.gen, "gen", -1, "generation of the model to load with -run (default: best ever)")
	flag.StringVar(&o.replayPath, "replay", "", "replay file to play back")
	flag.StringVar(&o.wsAddr, "ws", "", "serve frames over websocket on this address instead of the terminal")
	flag.BoolVar(&o.human, "human", false, "play with the keyboard through the websocket client")
	flag.IntVar(&o.fps, "fps", 0, "frames per second (overrides game.fps)")
	flag.Int64Var(&o.seed, "seed", time.Now().UnixNano(), "random seed for food placement")
	flag.IntVar(&o.maxTurns, "max-turns", 0, "stop after this many turns (0 = play until death)")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, log); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, log *slog.Logger) error {
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	var (
		world *env.World
		p     player.Player
		ai    *player.AI
		label string
	)
	switch {
	case o.replayPath != "":
		replay, err := env.LoadReplay(o.replayPath)
		if err != nil {
			return err
		}
		if world, err = replay.Playback(); err != nil {
			return err
		}
		p = player.NewScripted(replay.Actions)
		o.maxTurns = len(replay.Actions)
		cfg.Game = replay.Game
		label = fmt.Sprintf("%d (replay)", replay.Generation)

	case o.human:
		if o.wsAddr == "" {
			return errors.New("-human needs -ws: keys are read from the websocket client")
		}
		if world, err = newWorld(cfg, o); err != nil {
			return err
		}
		p = player.NewHuman()
		label = "human"

	default:
		brain, gen, err := loadBrain(o)
		if err != nil {
			return err
		}
		if world, err = newWorld(cfg, o); err != nil {
			return err
		}
		if ai, err = player.NewAI(brain, cfg.Game.SightRadius, cfg.LifeSaving); err != nil {
			return err
		}
		p = ai
		label = gen
	}

	if o.fps > 0 {
		cfg.Game.FPS = o.fps
	}

	ep := &eval.Episode{
		World:      world,
		Player:     p,
		Scoring:    cfg.Scoring,
		MaxTurns:   o.maxTurns,
		Generation: label,
		FPS:        cfg.Game.FPS,
	}
	if cfg.Game.FPS > 0 {
		ep.Pace = time.Second / time.Duration(cfg.Game.FPS)
	}

	if o.wsAddr != "" {
		hub := render.NewHub(world.Rows(), world.Cols(), log)
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		srv := &http.Server{Addr: o.wsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("websocket server", "err", err)
			}
		}()
		defer srv.Close()

		log.Info("waiting for a websocket client", "addr", o.wsAddr, "path", "/ws")
		if err := waitForClient(ctx, hub); err != nil {
			return err
		}
		ep.Renderer = hub
		ep.Events = hub.Events
	} else {
		ep.Renderer = render.NewTerminal(os.Stdout, true)
	}

	stats, err := ep.Run(ctx)
	if err != nil {
		return err
	}
	if ai != nil {
		stats.Score += ai.Penalty()
		stats.Overrides = ai.Overrides()
	}
	fmt.Printf("\nGame over: %s | Score: %.0f | Foods: %d | Turns: %d | Length: %d | Overrides: %d\n",
		stats.Outcome, stats.Score, stats.Foods, stats.Turns, stats.Length, stats.Overrides)
	return nil
}

func loadConfig(o options) (*config.Config, error) {
	path := o.configPath
	if path == "" && o.runDir != "" {
		if p := filepath.Join(o.runDir, store.ConfigFile); fileExists(p) {
			path = p
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadBrain returns the model to play and a label for the status line.
func loadBrain(o options) (*nn.Network, string, error) {
	if o.modelPath != "" {
		brain, err := nn.LoadFile(o.modelPath)
		return brain, filepath.Base(o.modelPath), err
	}
	if o.runDir == "" {
		return nil, "", errors.New("one of -model, -run, -replay or -human is required")
	}

	gen := o.gen
	if gen < 0 {
		info, err := store.ReadInfo(o.runDir)
		if err != nil {
			return nil, "", err
		}
		gen = info.BestScoreEverGen
	}
	brain, err := store.LoadModel(o.runDir, gen)
	return brain, fmt.Sprintf("%d", gen), err
}

func newWorld(cfg *config.Config, o options) (*env.World, error) {
	food, err := eval.FoodList(cfg)
	if err != nil {
		return nil, err
	}
	if food == nil && o.runDir != "" {
		if food, err = store.LoadFoodList(o.runDir); err != nil {
			return nil, err
		}
	}
	return env.NewWorld(cfg.Game, food, rand.New(rand.NewSource(o.seed)))
}

func waitForClient(ctx context.Context, hub *render.Hub) error {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for hub.Clients() == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
