package env

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
)

// ErrBoardFull is returned when food must be placed but no empty cell is left.
var ErrBoardFull = errors.New("no free cell available for placing the new food")

// World is the deterministic snake simulator. Given the same food queue and
// random source it always produces the same sequence of states.
type World struct {
	rows        int
	cols        int
	minFoodDist int

	board   [][]Cell
	snake   []Point // head is at index 0
	food    Point
	queue   *FoodQueue
	growing bool
	placed  []Point

	rng *rand.Rand
}

// NewWorld builds the initial board: walls on the outer ring, the head at the
// centre and the body extending to the right. The first food is placed before
// returning. food may be nil, in which case every food is placed at random.
func NewWorld(cfg config.GameConfig, food []Point, rng *rand.Rand) (*World, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	w := &World{
		rows:        cfg.BoardHeight,
		cols:        cfg.BoardWidth,
		minFoodDist: cfg.FoodSpawnMinDist,
		queue:       NewFoodQueue(food),
		rng:         rng,
	}

	w.board = make([][]Cell, w.rows)
	for r := range w.board {
		w.board[r] = make([]Cell, w.cols)
		for c := range w.board[r] {
			if r == 0 || r == w.rows-1 || c == 0 || c == w.cols-1 {
				w.board[r][c] = CellWall
			} else {
				w.board[r][c] = CellEmpty
			}
		}
	}

	head := Point{Row: w.rows / 2, Col: w.cols / 2}
	w.snake = make([]Point, 0, cfg.InitialSnakeSize)
	for i := 0; i < cfg.InitialSnakeSize; i++ {
		p := Point{Row: head.Row, Col: head.Col + i}
		w.snake = append(w.snake, p)
		w.board[p.Row][p.Col] = CellBody
	}
	w.board[head.Row][head.Col] = CellHead

	if err := w.placeFood(); err != nil {
		return nil, err
	}
	return w, nil
}

// Rows returns the board height.
func (w *World) Rows() int { return w.rows }

// Cols returns the board width.
func (w *World) Cols() int { return w.cols }

// Head returns the snake's head position
func (w *World) Head() Point { return w.snake[0] }

// Food returns the current food position
func (w *World) Food() Point { return w.food }

// Len returns the snake length
func (w *World) Len() int { return len(w.snake) }

// Snake returns a copy of the snake coordinates, head first.
func (w *World) Snake() []Point {
	out := make([]Point, len(w.snake))
	copy(out, w.snake)
	return out
}

// PlacedFood returns every food position placed so far, in order. Feeding it
// back as the food queue of a new world reproduces the same episode.
func (w *World) PlacedFood() []Point {
	out := make([]Point, len(w.placed))
	copy(out, w.placed)
	return out
}

// At returns the content of a cell, or CellVoid outside the board.
func (w *World) At(p Point) Cell {
	if p.Row < 0 || p.Row >= w.rows || p.Col < 0 || p.Col >= w.cols {
		return CellVoid
	}
	return w.board[p.Row][p.Col]
}

// NewHeadPosition returns the cell one step from the head in the direction
// of action. It does not look at the board.
func (w *World) NewHeadPosition(action Action) Point {
	h := w.snake[0]
	switch action {
	case ActionUp:
		return Point{Row: h.Row - 1, Col: h.Col}
	case ActionDown:
		return Point{Row: h.Row + 1, Col: h.Col}
	case ActionLeft:
		return Point{Row: h.Row, Col: h.Col - 1}
	default:
		return Point{Row: h.Row, Col: h.Col + 1}
	}
}

// IsSafe reports whether moving in the direction of action keeps the snake
// alive for one more turn.
func (w *World) IsSafe(action Action) bool {
	c := w.At(w.NewHeadPosition(action))
	return c == CellEmpty || c == CellFood
}

// Step advances the world by one turn. The only error is ErrBoardFull, raised
// when eaten food cannot be replaced.
func (w *World) Step(action Action) (State, error) {
	target := w.NewHeadPosition(action)
	switch w.At(target) {
	case CellWall, CellBody, CellVoid:
		return StateDead, nil
	}

	ate := w.board[target.Row][target.Col] == CellFood
	w.move(target)

	if ate {
		w.growing = true
		if err := w.placeFood(); err != nil {
			return StateFoodEaten, err
		}
		return StateFoodEaten, nil
	}
	return StateRunning, nil
}

func (w *World) move(target Point) {
	head := w.snake[0]
	w.board[head.Row][head.Col] = CellBody
	w.board[target.Row][target.Col] = CellHead

	tail := w.snake[len(w.snake)-1]
	grow := w.growing
	if grow {
		w.growing = false
	} else {
		w.board[tail.Row][tail.Col] = CellEmpty
	}

	for i := len(w.snake) - 1; i > 0; i-- {
		w.snake[i] = w.snake[i-1]
	}
	w.snake[0] = target
	if grow {
		w.snake = append(w.snake, tail)
	}
}

// placeFood pops queued coordinates until one is free, skipping any that sit
// on a wall or the snake. Once the queue is exhausted a random empty cell is
// chosen, preferring cells at least minFoodDist away from the head.
func (w *World) placeFood() error {
	for {
		p, ok := w.queue.Pop()
		if !ok {
			break
		}
		switch w.At(p) {
		case CellWall, CellHead, CellBody, CellVoid:
			continue
		}
		w.setFood(p)
		return nil
	}

	head := w.snake[0]
	var preferred, other []Point
	for r := 0; r < w.rows; r++ {
		for c := 0; c < w.cols; c++ {
			if w.board[r][c] != CellEmpty {
				continue
			}
			p := Point{Row: r, Col: c}
			if head.Manhattan(p) >= w.minFoodDist {
				preferred = append(preferred, p)
			} else {
				other = append(other, p)
			}
		}
	}

	slots := preferred
	if len(slots) == 0 {
		slots = other
	}
	if len(slots) == 0 {
		return ErrBoardFull
	}
	w.setFood(slots[w.rng.Intn(len(slots))])
	return nil
}

func (w *World) setFood(p Point) {
	w.food = p
	w.board[p.Row][p.Col] = CellFood
	w.placed = append(w.placed, p)
}

// RelativeFoodDistance returns the vertical and horizontal distance from the
// food to the head (head minus food).
func (w *World) RelativeFoodDistance() (int, int) {
	h := w.snake[0]
	return h.Row - w.food.Row, h.Col - w.food.Col
}

// FoodDistance returns the Manhattan distance between head and food.
func (w *World) FoodDistance() int {
	return w.snake[0].Manhattan(w.food)
}

// AngleToFood returns the bearing from the head to the food in degrees,
// measured in board-centred coordinates with up as the positive direction.
func (w *World) AngleToFood() float64 {
	cr, cc := float64(w.rows)/2, float64(w.cols)/2
	h := w.snake[0]
	x0, y0 := float64(h.Col)-cc, float64(h.Row)-cr
	x1, y1 := float64(w.food.Col)-cc, float64(w.food.Row)-cr
	// rows grow downwards on screen, hence the sign flip
	return -math.Atan2(y1-y0, x1-x0) * 180 / math.Pi
}

// Area returns the (2r+1)x(2r+1) window of cells centred on the head. Cells
// outside the board are reported as CellVoid.
func (w *World) Area(radius int) [][]Cell {
	h := w.snake[0]
	area := make([][]Cell, 0, 2*radius+1)
	for r := h.Row - radius; r <= h.Row+radius; r++ {
		row := make([]Cell, 0, 2*radius+1)
		for c := h.Col - radius; c <= h.Col+radius; c++ {
			row = append(row, w.At(Point{Row: r, Col: c}))
		}
		area = append(area, row)
	}
	return area
}

// Board returns a deep copy of the board.
func (w *World) Board() [][]Cell {
	out := make([][]Cell, len(w.board))
	for r := range w.board {
		out[r] = make([]Cell, len(w.board[r]))
		copy(out[r], w.board[r])
	}
	return out
}
