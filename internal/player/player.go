// Package player holds the controllers that can drive a snake: the evolved
// AI, a human sending key events and a scripted replay.
package player

import "github.com/Talendar/neuroevolutionary-snake/internal/env"

// InputEvent is a direction key pressed by a human.
type InputEvent struct {
	Key env.Action `json:"key"`
}

// Player decides the next action for the snake in w. events carries the
// input received since the previous turn and may be nil.
type Player interface {
	Act(w *env.World, events []InputEvent) env.Action
}

// initialAction matches the starting layout: the body trails to the right of
// the head, so the snake starts heading left.
const initialAction = env.ActionLeft
