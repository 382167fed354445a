package env

// Snapshot is a read-only view of one turn, handed to renderers.
type Snapshot struct {
	Board      [][]Cell `json:"board"`
	Score      float64  `json:"score"`
	Turn       int      `json:"turn"`
	FPS        int      `json:"fps"`
	Generation string   `json:"generation"`
	Alive      bool     `json:"alive"`
	LastAction Action   `json:"last_action"`
	Length     int      `json:"length"`
}

// Snapshot captures the board together with the episode counters.
func (w *World) Snapshot(score float64, turn int, alive bool, last Action) Snapshot {
	return Snapshot{
		Board:      w.Board(),
		Score:      score,
		Turn:       turn,
		Alive:      alive,
		LastAction: last,
		Length:     len(w.snake),
	}
}
