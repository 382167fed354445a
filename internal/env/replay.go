package env

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
)

// Replay stores a deterministic action trace for playback. The food list holds
// every food placed during the episode, so playback needs no random source.
type Replay struct {
	Generation int               `json:"generation"`
	Game       config.GameConfig `json:"game"`
	Food       []Point           `json:"food"`
	Actions    []Action          `json:"actions"`
	FinalStats EpisodeStats      `json:"final_stats"`
}

// NewReplay creates a new replay recorder
func NewReplay(game config.GameConfig, generation int) *Replay {
	return &Replay{
		Generation: generation,
		Game:       game,
		Actions:    make([]Action, 0, 256),
	}
}

// Record adds an action to the replay
func (r *Replay) Record(action Action) {
	r.Actions = append(r.Actions, action)
}

// Finish stores the placed food and the final statistics of the episode.
func (r *Replay) Finish(w *World, stats EpisodeStats) {
	r.Food = w.PlacedFood()
	r.FinalStats = stats
}

// Save writes the replay to a file
func (r *Replay) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadReplay loads a replay from a file
func LoadReplay(path string) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Replay
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing replay %s: %w", path, err)
	}
	return &r, nil
}

// Playback recreates the initial world of the replay
func (r *Replay) Playback() (*World, error) {
	return NewWorld(r.Game, r.Food, nil)
}
