package tracker

import (
	"encoding/gob"
	"fmt"
	"os"
)

// Return tracks the mean episodic return of each iteration and saves
// them with gob. Saved data can be read back with LoadData.
type Return struct {
	returns  []float64
	filename string
}

// NewReturn creates and returns a new *Return Tracker saving to
// filename
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track implements the Tracker interface
func (r *Return) Track(rec Record) error {
	r.returns = append(r.returns, rec.MeanReward)
	return nil
}

// Returns returns the mean returns tracked so far
func (r *Return) Returns() []float64 {
	return append([]float64(nil), r.returns...)
}

// Save saves the tracked returns to disk
func (r *Return) Save() error {
	file, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(r.returns); err != nil {
		return fmt.Errorf("save: could not encode return data: %v", err)
	}
	return nil
}
