package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the root configuration structure
type Config struct {
	Seed       int64            `yaml:"seed"`
	Game       GameConfig       `yaml:"game"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	LifeSaving LifeSavingConfig `yaml:"life_saving"`
	Eval       EvalConfig       `yaml:"eval"`
	Brain      BrainConfig      `yaml:"brain"`
	GA         GAConfig         `yaml:"ga"`
	Output     OutputConfig     `yaml:"output"`
}

// GameConfig defines the board and the observation window
type GameConfig struct {
	BoardWidth       int `yaml:"board_width"`
	BoardHeight      int `yaml:"board_height"`
	InitialSnakeSize int `yaml:"initial_snake_size"`
	FoodSpawnMinDist int `yaml:"food_spawn_min_dist"`
	SightRadius      int `yaml:"sight_radius"`
	FPS              int `yaml:"fps"`
}

// ScoringConfig holds the per-event score deltas
type ScoringConfig struct {
	Food            float64 `yaml:"food"`
	CloserToFood    float64 `yaml:"closer_to_food"`
	FartherFromFood float64 `yaml:"farther_from_food"`
}

// LifeSavingConfig controls the look-ahead override of the AI player
type LifeSavingConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Penalty  float64 `yaml:"penalty"`  // added to the score on every override
	Cooldown int     `yaml:"cooldown"` // turns between overrides
}

// EvalConfig defines fitness evaluation parameters
type EvalConfig struct {
	PlaysPerGen    int      `yaml:"plays_per_gen"`
	MaxTurns       int      `yaml:"max_turns"`
	MaxNoFoodTurns int      `yaml:"max_no_food_turns"`
	Workers        int      `yaml:"workers"` // 0 means runtime.NumCPU()
	UseFoodList    bool     `yaml:"use_food_list"`
	FoodListPath   string   `yaml:"food_list_path"`
	FoodList       [][2]int `yaml:"food_list,flow"`
}

// BrainConfig defines the network topology
type BrainConfig struct {
	Hidden            []int   `yaml:"hidden,flow"`
	HiddenActivation  string  `yaml:"hidden_activation"`
	OutputActivation  string  `yaml:"output_activation"`
	WeightsMultiplier float64 `yaml:"weights_multiplier"`
}

// GAConfig defines genetic algorithm parameters
type GAConfig struct {
	Population              int       `yaml:"population"`
	Generations             int       `yaml:"generations"`
	MinMutationRate         float64   `yaml:"min_mutation_rate"`
	MaxMutationRate         float64   `yaml:"max_mutation_rate"`
	MutationMethod          string    `yaml:"mutation_method"` // replace|nudge
	Reproduction            string    `yaml:"reproduction"`    // reward|mating
	SelectionWeights        []float64 `yaml:"selection_weights,flow"`
	RandomKillPC            float64   `yaml:"random_kill_pc"`
	MassExtinctionThreshold int       `yaml:"mass_extinction_threshold"`
}

// OutputConfig defines where run artifacts go
type OutputConfig struct {
	BaseDir     string `yaml:"base_dir"`
	ReplayEvery int    `yaml:"replay_every"`
}

// NumActions is the size of the network output layer: UP, DOWN, LEFT, RIGHT.
const NumActions = 4

// Default returns the embedded default configuration.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic(fmt.Sprintf("parsing embedded defaults: %v", err))
	}
	return cfg
}

// Load reads a YAML config file over the embedded defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// NumFeatures returns the length of the observation vector.
func (c *Config) NumFeatures() int {
	side := 2*c.Game.SightRadius + 1
	return side*side + 3
}

// LayerSizes returns input, hidden and output layer sizes.
func (c *Config) LayerSizes() []int {
	sizes := make([]int, 0, len(c.Brain.Hidden)+2)
	sizes = append(sizes, c.NumFeatures())
	sizes = append(sizes, c.Brain.Hidden...)
	return append(sizes, NumActions)
}

// Validate checks the configuration for contradictions. Activation names are
// checked by the nn package when the topology is built.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	g := c.Game
	check(g.BoardWidth >= 3 && g.BoardHeight >= 3, "board must be at least 3x3, got %dx%d", g.BoardWidth, g.BoardHeight)
	check(g.InitialSnakeSize >= 1, "initial_snake_size must be >= 1")
	// the body extends to the right of the centred head and must stay off the wall
	check(g.BoardWidth/2+g.InitialSnakeSize-1 < g.BoardWidth-1, "snake of size %d does not fit a board %d wide", g.InitialSnakeSize, g.BoardWidth)
	check(g.FoodSpawnMinDist >= 0, "food_spawn_min_dist must be >= 0")
	check(g.SightRadius >= 0, "sight_radius must be >= 0")

	check(c.LifeSaving.Cooldown >= 0, "life_saving.cooldown must be >= 0")

	e := c.Eval
	check(e.PlaysPerGen >= 1, "plays_per_gen must be >= 1")
	check(e.MaxTurns >= 1, "max_turns must be >= 1")
	check(e.MaxNoFoodTurns >= 1, "max_no_food_turns must be >= 1")
	check(e.Workers >= 0, "workers must be >= 0")
	for i, p := range e.FoodList {
		check(p[0] > 0 && p[0] < g.BoardHeight-1 && p[1] > 0 && p[1] < g.BoardWidth-1,
			"food_list[%d] = %v lies outside the playable area", i, p)
	}

	for i, h := range c.Brain.Hidden {
		check(h >= 1, "brain.hidden[%d] must be >= 1", i)
	}
	check(c.Brain.WeightsMultiplier >= 0, "weights_multiplier must be >= 0")

	ga := c.GA
	check(ga.Generations >= 1, "generations must be >= 1")
	check(ga.MinMutationRate >= 0 && ga.MinMutationRate <= ga.MaxMutationRate && ga.MaxMutationRate <= 1,
		"mutation rates must satisfy 0 <= min <= max <= 1, got [%g, %g]", ga.MinMutationRate, ga.MaxMutationRate)
	check(ga.MutationMethod == "replace" || ga.MutationMethod == "nudge", "unknown mutation_method %q", ga.MutationMethod)
	check(ga.Reproduction == "reward" || ga.Reproduction == "mating", "unknown reproduction %q", ga.Reproduction)
	check(ga.RandomKillPC >= 0 && ga.RandomKillPC < 1, "random_kill_pc must be in [0, 1)")
	check(ga.MassExtinctionThreshold >= 1, "mass_extinction_threshold must be >= 1")

	var sum float64
	for _, w := range ga.SelectionWeights {
		check(w >= 0, "selection_weights must be non-negative")
		sum += w
	}
	check(len(ga.SelectionWeights) > 0 && math.Abs(sum-1) < 1e-9, "selection_weights must sum to 1, got %g", sum)
	// population 0 means the size comes from a resumed run
	check(ga.Population == 0 || ga.Population >= len(ga.SelectionWeights),
		"population %d is smaller than the %d selection ranks", ga.Population, len(ga.SelectionWeights))

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
