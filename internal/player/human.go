package player

import "github.com/Talendar/neuroevolutionary-snake/internal/env"

// Human turns key events into actions. Without input the snake keeps going.
type Human struct {
	current env.Action
}

// NewHuman creates a human player heading in the initial direction
func NewHuman() *Human {
	return &Human{current: initialAction}
}

// Act applies the key events in order, ignoring reversals.
func (h *Human) Act(_ *env.World, events []InputEvent) env.Action {
	next := h.current
	for _, e := range events {
		if e.Key != h.current.Opposite() {
			next = e.Key
		}
	}
	h.current = next
	return next
}

// Scripted replays a fixed list of actions, then repeats the last one.
type Scripted struct {
	actions []env.Action
	next    int
}

// NewScripted creates a player for a recorded action trace
func NewScripted(actions []env.Action) *Scripted {
	return &Scripted{actions: actions}
}

// Act returns the next recorded action.
func (s *Scripted) Act(_ *env.World, _ []InputEvent) env.Action {
	if len(s.actions) == 0 {
		return initialAction
	}
	if s.next >= len(s.actions) {
		return s.actions[len(s.actions)-1]
	}
	a := s.actions[s.next]
	s.next++
	return a
}

// Done reports whether every recorded action has been played.
func (s *Scripted) Done() bool {
	return s.next >= len(s.actions)
}
