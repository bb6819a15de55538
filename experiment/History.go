package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// History records every training iteration. Times are in minutes.
type History struct {
	RolloutTime []float64 `json:"rollout_time"`
	LearnTime   []float64 `json:"learn_time"`
	MeanReward  []float64 `json:"mean_reward"`
	Timesteps   []int     `json:"timesteps"`
}

// Append records one iteration
func (h *History) Append(rollout, learn time.Duration, meanReward float64,
	timesteps int) {
	h.RolloutTime = append(h.RolloutTime, rollout.Minutes())
	h.LearnTime = append(h.LearnTime, learn.Minutes())
	h.MeanReward = append(h.MeanReward, meanReward)
	h.Timesteps = append(h.Timesteps, timesteps)
}

// Len returns the number of iterations recorded
func (h *History) Len() int {
	return len(h.MeanReward)
}

// Save writes the history to filename as JSON
func (h *History) Save(filename string) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("save: %v", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("save: %v", err)
	}
	return nil
}

// LoadHistory reads a history written by Save
func LoadHistory(filename string) (*History, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("loadHistory: %v", err)
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("loadHistory: %v", err)
	}
	return &h, nil
}
