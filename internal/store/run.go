// Package store lays out a training run on disk: the run directory, the
// per-generation best models, the info.ini metadata and the food list.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/ini.v1"

	"github.com/Talendar/neuroevolutionary-snake/internal/config"
	"github.com/Talendar/neuroevolutionary-snake/internal/env"
	"github.com/Talendar/neuroevolutionary-snake/internal/nn"
)

// File names inside a run directory
const (
	InfoFile     = "info.ini"
	FoodListFile = "base_food_list.txt"
	ConfigFile   = "config.yaml"
	HistoryCSV   = "history.csv"
	HistoryJSONL = "history.jsonl"
	HistoryPlot  = "history.png"
	ModelsDir    = "best_models"
	ReplaysDir   = "replays"
)

// Run is an output directory of one training session
type Run struct {
	Dir string
	ID  string
}

// NewRun creates <base>/pop_YY_MM_DD_HH_MM_SS with its best_models folder.
func NewRun(base string, now time.Time) (*Run, error) {
	dir := filepath.Join(base, "pop_"+now.Format("06_01_02_15_04_05"))
	if err := os.MkdirAll(filepath.Join(dir, ModelsDir), 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return &Run{Dir: dir, ID: uuid.NewString()}, nil
}

// Path joins name to the run directory
func (r *Run) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// ModelPath is the file holding the best model of generation gen
func ModelPath(dir string, gen int) string {
	return filepath.Join(dir, ModelsDir, fmt.Sprintf("gen_%d", gen))
}

// SaveModel persists the best network of generation gen
func (r *Run) SaveModel(net *nn.Network, gen int) error {
	return net.SaveFile(ModelPath(r.Dir, gen))
}

// LoadModel reads the best network of generation gen from a run directory
func LoadModel(dir string, gen int) (*nn.Network, error) {
	return nn.LoadFile(ModelPath(dir, gen))
}

// ReplayPath is where the replay of generation gen is written
func (r *Run) ReplayPath(gen int) string {
	return filepath.Join(r.Dir, ReplaysDir, fmt.Sprintf("replay_gen%d.json", gen))
}

// Info is the run metadata written at the end of training
type Info struct {
	Size             int     `ini:"SIZE"`
	Generations      int     `ini:"GENERATIONS"`
	BoardWidth       int     `ini:"BOARD_WIDTH"`
	BoardHeight      int     `ini:"BOARD_HEIGHT"`
	SightRadius      int     `ini:"SIGHT_RADIUS"`
	MaxTurns         int     `ini:"MAX_TURNS"`
	MinMutationRate  float64 `ini:"MIN_MUTATION_RATE"`
	MaxMutationRate  float64 `ini:"MAX_MUTATION_RATE"`
	BrainFormat      []int   `ini:"BRAIN_FORMAT" delim:","`
	RandomKillPC     float64 `ini:"RANDOM_KILL_PC"`
	BestScoreEver    float64 `ini:"BEST_SCORE_EVER"`
	BestScoreEverGen int     `ini:"BEST_SCORE_EVER_GEN"`
	RunID            string  `ini:"RUN_ID"`
}

// NewInfo fills the configuration part of the metadata
func NewInfo(cfg *config.Config, size int) Info {
	return Info{
		Size:            size,
		Generations:     cfg.GA.Generations,
		BoardWidth:      cfg.Game.BoardWidth,
		BoardHeight:     cfg.Game.BoardHeight,
		SightRadius:     cfg.Game.SightRadius,
		MaxTurns:        cfg.Eval.MaxTurns,
		MinMutationRate: cfg.GA.MinMutationRate,
		MaxMutationRate: cfg.GA.MaxMutationRate,
		BrainFormat:     append([]int(nil), cfg.Brain.Hidden...),
		RandomKillPC:    cfg.GA.RandomKillPC,
	}
}

// WriteInfo writes info.ini into the run directory
func (r *Run) WriteInfo(info Info) error {
	if info.RunID == "" {
		info.RunID = r.ID
	}
	f := ini.Empty()
	if err := f.Section("").ReflectFrom(&info); err != nil {
		return fmt.Errorf("encoding run info: %w", err)
	}
	if err := f.SaveTo(r.Path(InfoFile)); err != nil {
		return fmt.Errorf("writing run info: %w", err)
	}
	return nil
}

// ReadInfo loads info.ini from a run directory
func ReadInfo(dir string) (Info, error) {
	var info Info
	f, err := ini.Load(filepath.Join(dir, InfoFile))
	if err != nil {
		return info, fmt.Errorf("failed to load run info from '%s': %w", dir, err)
	}
	if err := f.Section("").MapTo(&info); err != nil {
		return info, fmt.Errorf("decoding run info: %w", err)
	}
	if info.Size < 1 {
		return info, fmt.Errorf("run info in '%s' has invalid SIZE %d", dir, info.Size)
	}
	return info, nil
}

// WriteFoodList saves the fixed food sequence used by the run
func (r *Run) WriteFoodList(pts []env.Point) error {
	f, err := os.Create(r.Path(FoodListFile))
	if err != nil {
		return err
	}
	if err := env.WriteFoodList(f, pts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFoodList reads the food sequence saved in a run directory. A run
// without one yields nil.
func LoadFoodList(dir string) ([]env.Point, error) {
	path := filepath.Join(dir, FoodListFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return env.LoadFoodList(path)
}

// WriteConfig snapshots the configuration the run was trained with
func (r *Run) WriteConfig(cfg *config.Config) error {
	return cfg.WriteYAML(r.Path(ConfigFile))
}

// LoadSeed reads a finished run: its population size and its best model ever.
func LoadSeed(dir string) (int, *nn.Network, error) {
	info, err := ReadInfo(dir)
	if err != nil {
		return 0, nil, err
	}
	net, err := LoadModel(dir, info.BestScoreEverGen)
	if err != nil {
		return 0, nil, fmt.Errorf("loading best model of '%s': %w", dir, err)
	}
	return info.Size, net, nil
}
