package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
	"github.com/Talendar/neuroevolutionary-snake/internal/env"
	"github.com/Talendar/neuroevolutionary-snake/internal/player"
	"github.com/Talendar/neuroevolutionary-snake/internal/render"
)

// Episode runs one game from a fresh world until the snake dies or a cap is
// hit. Training uses it headless; the viewer attaches a renderer and pacing.
type Episode struct {
	World   *env.World
	Player  player.Player
	Scoring config.ScoringConfig

	MaxTurns       int // 0 means unlimited
	MaxNoFoodTurns int // 0 means unlimited

	// Optional viewer hooks
	Renderer   render.Renderer
	Events     func() []player.InputEvent
	Generation string
	FPS        int
	Pace       time.Duration

	// OnAction sees every action before it is applied.
	OnAction func(env.Action)
}

// Run plays the episode. Reaching a cap or dying is a normal end; errors
// are invariant violations (board full), canceled contexts and renderer
// failures.
func (ep *Episode) Run(ctx context.Context) (env.EpisodeStats, error) {
	w := ep.World
	var stats env.EpisodeStats

	turn, lastFoodTurn := 0, 0
	lastDist := w.FoodDistance()
	state := env.StateRunning
	last := env.ActionLeft

	if err := ep.render(stats.Score, turn, true, last); err != nil {
		return stats, err
	}

	for {
		if state == env.StateDead {
			stats.Outcome = env.OutcomeDied
			break
		}
		if ep.MaxTurns > 0 && turn >= ep.MaxTurns {
			stats.Outcome = env.OutcomeTurnCap
			break
		}
		if ep.MaxNoFoodTurns > 0 && turn-lastFoodTurn >= ep.MaxNoFoodTurns {
			stats.Outcome = env.OutcomeStarved
			break
		}
		if err := ctx.Err(); err != nil {
			stats.Outcome = env.OutcomeCanceled
			return stats, err
		}

		var events []player.InputEvent
		if ep.Events != nil {
			events = ep.Events()
		}
		last = ep.Player.Act(w, events)
		if ep.OnAction != nil {
			ep.OnAction(last)
		}

		next, err := w.Step(last)
		if err != nil {
			return stats, fmt.Errorf("turn %d: %w", turn, err)
		}
		state = next

		newDist := w.FoodDistance()
		if state == env.StateFoodEaten {
			stats.Score += ep.Scoring.Food
			stats.Foods++
			lastFoodTurn = turn
		} else if newDist >= lastDist {
			stats.Score += ep.Scoring.FartherFromFood
		} else {
			stats.Score += ep.Scoring.CloserToFood
		}
		lastDist = newDist
		turn++

		if err := ep.render(stats.Score, turn, state != env.StateDead, last); err != nil {
			return stats, err
		}
		if ep.Pace > 0 {
			select {
			case <-ctx.Done():
				stats.Outcome = env.OutcomeCanceled
				return stats, ctx.Err()
			case <-time.After(ep.Pace):
			}
		}
	}

	stats.Turns = turn
	stats.Length = w.Len()
	return stats, nil
}

func (ep *Episode) render(score float64, turn int, alive bool, last env.Action) error {
	if ep.Renderer == nil {
		return nil
	}
	s := ep.World.Snapshot(score, turn, alive, last)
	s.FPS = ep.FPS
	s.Generation = ep.Generation
	if err := ep.Renderer.Render(s); err != nil {
		return fmt.Errorf("rendering turn %d: %w", turn, err)
	}
	return nil
}
