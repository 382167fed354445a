package env

import (
	"fmt"
	"strings"
)

// Cell is the content of one board cell
type Cell int

const (
	CellWall Cell = iota
	CellEmpty
	CellHead
	CellBody
	CellFood
	CellVoid // outside the board, only seen through Area
)

// Value returns the numeric code fed to the network for this cell.
func (c Cell) Value() float64 {
	switch c {
	case CellFood:
		return 2
	case CellEmpty:
		return 1
	case CellHead:
		return 0
	case CellBody:
		return -1
	case CellWall:
		return -2
	default:
		return -3
	}
}

func (c Cell) String() string {
	switch c {
	case CellWall:
		return "wall"
	case CellEmpty:
		return "empty"
	case CellHead:
		return "head"
	case CellBody:
		return "body"
	case CellFood:
		return "food"
	case CellVoid:
		return "void"
	default:
		return "unknown"
	}
}

// MarshalText encodes the cell by name for JSON snapshots.
func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Action is an absolute movement direction. The order matches the output
// neurons of the network.
type Action int

const (
	ActionUp Action = iota
	ActionDown
	ActionLeft
	ActionRight
)

// Actions lists every action in output-neuron order.
var Actions = [...]Action{ActionUp, ActionDown, ActionLeft, ActionRight}

// Opposite returns the action that reverses a.
func (a Action) Opposite() Action {
	switch a {
	case ActionUp:
		return ActionDown
	case ActionDown:
		return ActionUp
	case ActionLeft:
		return ActionRight
	default:
		return ActionLeft
	}
}

func (a Action) String() string {
	switch a {
	case ActionUp:
		return "UP"
	case ActionDown:
		return "DOWN"
	case ActionLeft:
		return "LEFT"
	case ActionRight:
		return "RIGHT"
	default:
		return "unknown"
	}
}

// MarshalText encodes the action by name.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText, case-insensitively.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction converts a direction name into an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(s) {
	case "UP":
		return ActionUp, nil
	case "DOWN":
		return ActionDown, nil
	case "LEFT":
		return ActionLeft, nil
	case "RIGHT":
		return ActionRight, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// State is the result of a single Step
type State int

const (
	StateRunning State = iota
	StateFoodEaten
	StateDead
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFoodEaten:
		return "food_eaten"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Point is a board coordinate
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Manhattan returns the L1 distance between p and q.
func (p Point) Manhattan(q Point) int {
	return abs(p.Row-q.Row) + abs(p.Col-q.Col)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
