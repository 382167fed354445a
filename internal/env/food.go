package env

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// FoodQueue is an ordered list of predetermined food positions
type FoodQueue struct {
	items []Point
}

// NewFoodQueue copies items into a new queue.
func NewFoodQueue(items []Point) *FoodQueue {
	q := &FoodQueue{items: make([]Point, len(items))}
	copy(q.items, items)
	return q
}

// Pop removes and returns the front of the queue.
func (q *FoodQueue) Pop() (Point, bool) {
	if len(q.items) == 0 {
		return Point{}, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, true
}

// Len returns the number of queued positions
func (q *FoodQueue) Len() int {
	return len(q.items)
}

// PointsFromPairs converts [row, col] pairs, as stored in the config, to points.
func PointsFromPairs(pairs [][2]int) []Point {
	pts := make([]Point, len(pairs))
	for i, p := range pairs {
		pts[i] = Point{Row: p[0], Col: p[1]}
	}
	return pts
}

// ReadFoodList parses one "row col" pair per line. Blank lines are ignored.
func ReadFoodList(r io.Reader) ([]Point, error) {
	var pts []Point
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("food list line %d: expected \"row col\", got %q", line, sc.Text())
		}
		row, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("food list line %d: %w", line, err)
		}
		col, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("food list line %d: %w", line, err)
		}
		pts = append(pts, Point{Row: row, Col: col})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading food list: %w", err)
	}
	return pts, nil
}

// LoadFoodList reads a food-sequence file.
func LoadFoodList(path string) ([]Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFoodList(f)
}

// WriteFoodList writes one "row col" pair per line.
func WriteFoodList(w io.Writer, pts []Point) error {
	bw := bufio.NewWriter(w)
	for _, p := range pts {
		if _, err := fmt.Fprintf(bw, "%d %d\n", p.Row, p.Col); err != nil {
			return err
		}
	}
	return bw.Flush()
}
