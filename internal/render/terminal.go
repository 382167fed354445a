// Package render contains the consumers of per-turn snapshots. Training never
// renders; the viewer picks one of these at startup.
package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Talendar/neuroevolutionary-snake/internal/env"
)

// Renderer consumes one snapshot per turn.
type Renderer interface {
	Render(s env.Snapshot) error
}

// Terminal draws snapshots as text
type Terminal struct {
	w     io.Writer
	clear bool
}

// NewTerminal creates a terminal renderer. With clear set, the screen is
// wiped with an ANSI escape before every frame.
func NewTerminal(w io.Writer, clear bool) *Terminal {
	return &Terminal{w: w, clear: clear}
}

// Render draws the board and a status line
func (t *Terminal) Render(s env.Snapshot) error {
	bw := bufio.NewWriter(t.w)
	if t.clear {
		bw.WriteString("\033[H\033[2J")
	}

	for _, row := range s.Board {
		for _, c := range row {
			bw.WriteString(glyph(c, s.Alive))
		}
		bw.WriteByte('\n')
	}

	fmt.Fprintf(bw, "  Gen: %s | Turn: %d | Score: %.0f | Length: %d | Action: %s | FPS: %d\n",
		s.Generation, s.Turn, s.Score, s.Length, s.LastAction, s.FPS)
	if !s.Alive {
		bw.WriteString("  DEAD\n")
	}
	return bw.Flush()
}

func glyph(c env.Cell, alive bool) string {
	switch c {
	case env.CellWall:
		return "██"
	case env.CellHead:
		if !alive {
			return "xx"
		}
		return "@@"
	case env.CellBody:
		return "[]"
	case env.CellFood:
		return "<>"
	default:
		return "  "
	}
}
