// Package logging records training progress: the per-generation history
// files, the best model of every generation and a console line.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/Talendar/neuroevolutionary-snake/internal/ga"
	"github.com/Talendar/neuroevolutionary-snake/internal/store"
)

// Logger handles all training output and artifact saving. It implements
// ga.Observer.
type Logger struct {
	run *store.Run
	log *slog.Logger

	csvFile       *os.File
	jsonFile      *os.File
	headerWritten bool
}

// NewLogger opens the history files of a run
func NewLogger(run *store.Run, log *slog.Logger) (*Logger, error) {
	if log == nil {
		log = slog.Default()
	}
	l := &Logger{run: run, log: log}

	var err error
	l.csvFile, err = os.Create(run.Path(store.HistoryCSV))
	if err != nil {
		return nil, fmt.Errorf("creating history csv: %w", err)
	}
	l.jsonFile, err = os.Create(run.Path(store.HistoryJSONL))
	if err != nil {
		l.csvFile.Close()
		return nil, fmt.Errorf("creating history jsonl: %w", err)
	}
	return l, nil
}

// Observe saves the elite's brain and appends the generation record to the
// history files.
func (l *Logger) Observe(_ context.Context, rec ga.GenerationRecord, best *ga.Individual) error {
	if err := l.run.SaveModel(best.Brain, rec.Generation); err != nil {
		return fmt.Errorf("saving best model: %w", err)
	}

	records := []ga.GenerationRecord{rec}
	if !l.headerWritten {
		if err := gocsv.Marshal(records, l.csvFile); err != nil {
			return fmt.Errorf("writing history: %w", err)
		}
		l.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, l.csvFile); err != nil {
			return fmt.Errorf("writing history: %w", err)
		}
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := l.jsonFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}

	l.log.Info("generation",
		"gen", rec.Generation,
		"best", rec.Best,
		"mean", rec.Mean,
		"std", rec.Std,
		"foods", rec.BestFoods,
		"mutation_rate", rec.MutationRate,
		"extinction_counter", rec.ExtinctionCounter,
	)
	return nil
}

// Close closes all log files
func (l *Logger) Close() error {
	cerr := l.csvFile.Close()
	jerr := l.jsonFile.Close()
	if cerr != nil {
		return cerr
	}
	return jerr
}
