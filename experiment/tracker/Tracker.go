// Package tracker implements Trackers, which receive a Record after
// every training iteration and report or persist it
package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"github.com/nottombrown/parallel-trpo/trpo"
)

// Record describes one training iteration
type Record struct {
	Iteration  int
	MeanReward float64

	// ElapsedSteps counts the steps before this iteration, TotalSteps
	// includes this iteration's batch
	ElapsedSteps int
	TotalSteps   int

	// TimestepsPerBatch and MaxKL are the values for the next iteration
	TimestepsPerBatch int
	MaxKL             float64

	TotalTime   time.Duration
	RolloutTime time.Duration
	LearnTime   time.Duration

	Stats trpo.Stats
}

// Tracker keeps track of experiment data and saves the data after the
// experiment has finished
type Tracker interface {
	Track(r Record) error
	Save() error
}

// LoadData loads and returns the data saved by a Return Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loadData: could not open data file: %v", err)
	}
	defer file.Close()

	var data []float64
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("loadData: could not decode data: %v", err)
	}
	return data, nil
}
