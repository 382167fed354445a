package env

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Outcome indicates how an episode ended
type Outcome int

const (
	OutcomeNone     Outcome = iota
	OutcomeDied             // hit a wall or its own body
	OutcomeTurnCap          // turn limit reached
	OutcomeStarved          // too many turns without food
	OutcomeCanceled         // stopped from outside (viewer only)
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeDied:
		return "died"
	case OutcomeTurnCap:
		return "turn_cap"
	case OutcomeStarved:
		return "starved"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (o *Outcome) UnmarshalText(text []byte) error {
	for c := OutcomeNone; c <= OutcomeCanceled; c++ {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// EpisodeStats captures all metrics from a single episode
type EpisodeStats struct {
	Score     float64 `json:"score"`
	Foods     int     `json:"foods"`
	Turns     int     `json:"turns"`
	Length    int     `json:"length"`
	Overrides int     `json:"overrides"` // life-saving overrides used
	Outcome   Outcome `json:"outcome"`
	Seed      int64   `json:"seed"`
}

// AggregatedStats holds statistics across multiple episodes
type AggregatedStats struct {
	ScoreMean     float64
	ScoreStd      float64
	FoodsMean     float64
	TurnsMean     float64
	OverridesMean float64
	OutcomeCounts map[Outcome]int
	NumEpisodes   int
}

// Aggregate computes statistics from multiple episode stats
func Aggregate(episodes []EpisodeStats) AggregatedStats {
	agg := AggregatedStats{
		OutcomeCounts: make(map[Outcome]int),
		NumEpisodes:   len(episodes),
	}
	if len(episodes) == 0 {
		return agg
	}

	scores := make([]float64, len(episodes))
	foods := make([]float64, len(episodes))
	turns := make([]float64, len(episodes))
	overrides := make([]float64, len(episodes))
	for i, ep := range episodes {
		scores[i] = ep.Score
		foods[i] = float64(ep.Foods)
		turns[i] = float64(ep.Turns)
		overrides[i] = float64(ep.Overrides)
		agg.OutcomeCounts[ep.Outcome]++
	}

	agg.ScoreMean, agg.ScoreStd = stat.PopMeanStdDev(scores, nil)
	agg.FoodsMean = stat.Mean(foods, nil)
	agg.TurnsMean = stat.Mean(turns, nil)
	agg.OverridesMean = stat.Mean(overrides, nil)
	return agg
}
