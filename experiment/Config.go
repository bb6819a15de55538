// Package experiment implements the TRPO training loop, its
// configuration, and the history it records
package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/nottombrown/parallel-trpo/baseline"
	"github.com/nottombrown/parallel-trpo/environment/envconfig"
	"github.com/nottombrown/parallel-trpo/policy"
	"github.com/nottombrown/parallel-trpo/rollout"
	"github.com/nottombrown/parallel-trpo/trpo"
)

// Config represents a configuration of a training run
type Config struct {
	Task              string  `json:"task"`
	RunName           string  `json:"run_name"`
	TimestepsPerBatch int     `json:"timesteps_per_batch"`
	NSteps            int     `json:"n_steps"`
	Gamma             float64 `json:"gamma"`
	MaxKL             float64 `json:"max_kl"`
	CGDamping         float64 `json:"cg_damping"`
	NumThreads        int     `json:"num_threads"`
	Monitor           bool    `json:"monitor"`
	MonitorAddr       string  `json:"monitor_addr"`

	DecayMethod   string  `json:"decay_method"`
	TimestepAdapt int     `json:"timestep_adapt"`
	KLAdapt       float64 `json:"kl_adapt"`

	Seed             uint64 `json:"seed"`
	Baseline         string `json:"baseline"`
	CommitLineSearch bool   `json:"commit_linesearch"`

	// HistoryEvery dumps the history every HistoryEvery iterations, 0
	// disables dumps. KeepHistory enumerates dump filenames instead of
	// overwriting one file.
	HistoryEvery int  `json:"history_every"`
	KeepHistory  bool `json:"keep_history"`

	Redis       string `json:"redis"`
	Plot        string `json:"plot"`
	ReturnsFile string `json:"returns_file"`

	// Progress replaces the per-iteration report with a progress bar
	Progress bool `json:"progress"`

	// LearnerTimeout bounds each learner request, 0 disables the bound
	LearnerTimeout time.Duration `json:"learner_timeout"`

	Policy policy.Config `json:"policy"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Task:              envconfig.Pendulum,
		RunName:           "test_run",
		TimestepsPerBatch: 10000,
		NSteps:            6000000,
		Gamma:             0.99,
		MaxKL:             0.001,
		CGDamping:         1e-3,
		NumThreads:        rollout.DefaultWorkers,
		MonitorAddr:       ":8080",
		DecayMethod:       "none",
		Baseline:          baseline.LinearName,
		Policy:            policy.DefaultConfig(),
	}
}

// LoadConfig reads a JSON configuration file. Options missing from the
// file keep their default values.
func LoadConfig(filename string) (Config, error) {
	c := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("loadConfig: could not decode %v: %v",
			filename, err)
	}
	return c, nil
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	switch {
	case c.Task == "":
		return fmt.Errorf("validate: no task")
	case c.TimestepsPerBatch <= 0:
		return fmt.Errorf("validate: timesteps per batch must be positive"+
			"\n\thave(%v)", c.TimestepsPerBatch)
	case c.NSteps <= 0:
		return fmt.Errorf("validate: number of steps must be positive"+
			"\n\thave(%v)", c.NSteps)
	case c.MaxKL <= 0:
		return fmt.Errorf("validate: max KL must be positive\n\thave(%v)",
			c.MaxKL)
	case c.NumThreads < 1:
		return fmt.Errorf("validate: at least one rollout worker is "+
			"required\n\thave(%v)", c.NumThreads)
	case c.HistoryEvery < 0:
		return fmt.Errorf("validate: history interval must be "+
			"non-negative\n\thave(%v)", c.HistoryEvery)
	case c.LearnerTimeout < 0:
		return fmt.Errorf("validate: learner timeout must be non-negative"+
			"\n\thave(%v)", c.LearnerTimeout)
	}
	if err := c.TRPOConfig().Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// TRPOConfig returns the learner configuration
func (c Config) TRPOConfig() trpo.Config {
	t := trpo.DefaultConfig()
	t.Gamma = c.Gamma
	t.CGDamping = c.CGDamping
	t.CommitLineSearchResult = c.CommitLineSearch
	return t
}

// InitialState returns the training state before the first iteration
func (c Config) InitialState() trpo.State {
	return trpo.State{
		MaxKL:             c.MaxKL,
		TimestepsPerBatch: c.TimestepsPerBatch,
	}
}

// HistoryFilename returns the name of the history dump, which
// identifies the run by its starting hyperparameters
func (c Config) HistoryFilename() string {
	return c.HistoryPrefix() + ".json"
}

// HistoryPrefix returns HistoryFilename without its extension
func (c Config) HistoryPrefix() string {
	return fmt.Sprintf("%s-%s-%f-%f-%f-%f", c.Task, c.DecayMethod,
		float64(c.TimestepsPerBatch), c.MaxKL, float64(c.TimestepAdapt),
		c.KLAdapt)
}
