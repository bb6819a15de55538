package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nottombrown/parallel-trpo/baseline"
	"github.com/nottombrown/parallel-trpo/environment"
	"github.com/nottombrown/parallel-trpo/environment/toy"
	"github.com/nottombrown/parallel-trpo/experiment/checkpointer"
	"github.com/nottombrown/parallel-trpo/experiment/tracker"
	"github.com/nottombrown/parallel-trpo/policy"
	"github.com/nottombrown/parallel-trpo/rollout"
	"github.com/nottombrown/parallel-trpo/schedule"
	"github.com/nottombrown/parallel-trpo/trpo"
)

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config: %v", err)
	}

	cases := map[string]func(*Config){
		"zero batch":      func(c *Config) { c.TimestepsPerBatch = 0 },
		"zero steps":      func(c *Config) { c.NSteps = 0 },
		"gamma above one": func(c *Config) { c.Gamma = 1.01 },
		"zero gamma":      func(c *Config) { c.Gamma = 0 },
		"zero max KL":     func(c *Config) { c.MaxKL = 0 },
		"negative damp":   func(c *Config) { c.CGDamping = -1 },
		"no workers":      func(c *Config) { c.NumThreads = 0 },
		"no task":         func(c *Config) { c.Task = "" },
	}
	for name, modify := range cases {
		c := DefaultConfig()
		modify(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%v: expected validation error", name)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.json")
	data := `{"task": "Constant-v0", "max_kl": 0.01, "policy": {"HiddenSizes": [8]}}`
	if err := os.WriteFile(filename, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if c.Task != "Constant-v0" || c.MaxKL != 0.01 {
		t.Errorf("loaded options\n\twant(Constant-v0, 0.01)\n\thave(%v, %v)",
			c.Task, c.MaxKL)
	}
	if c.TimestepsPerBatch != 10000 || c.Gamma != 0.99 {
		t.Errorf("default options\n\twant(10000, 0.99)\n\thave(%v, %v)",
			c.TimestepsPerBatch, c.Gamma)
	}
	if len(c.Policy.HiddenSizes) != 1 || c.Policy.Activation != policy.ReLU {
		t.Errorf("policy\n\twant([8] relu)\n\thave(%v %v)",
			c.Policy.HiddenSizes, c.Policy.Activation)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestHistoryFilename(t *testing.T) {
	c := DefaultConfig()
	want := "Pendulum-v0-none-10000.000000-0.001000-0.000000-0.000000.json"
	if got := c.HistoryFilename(); got != want {
		t.Errorf("filename\n\twant(%v)\n\thave(%v)", want, got)
	}
}

func TestHistorySave(t *testing.T) {
	var h History
	h.Append(60e9, 30e9, -10, 1000)
	h.Append(120e9, 30e9, -5, 2000)

	filename := filepath.Join(t.TempDir(), "history.json")
	if err := h.Save(filename); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadHistory(filename)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Len() != 2 || loaded.RolloutTime[1] != 2 ||
		loaded.LearnTime[0] != 0.5 || loaded.MeanReward[1] != -5 ||
		loaded.Timesteps[1] != 2000 {
		t.Errorf("loaded history\n\twant(%+v)\n\thave(%+v)", h, *loaded)
	}
}

// newTestTrainer returns a Trainer on the Constant environment with two
// rollout workers
func newTestTrainer(t *testing.T, state trpo.State, nSteps int) *Trainer {
	t.Helper()
	c := policy.DefaultConfig()
	c.HiddenSizes = []int{8}
	p, err := policy.NewGaussianMLP(1, 1, c, 1)
	if err != nil {
		t.Fatal(err)
	}

	factory := func(uint64) (environment.Environment, error) {
		return toy.NewConstant(10, 1, 1)
	}
	collector, err := rollout.NewCollector(factory, p, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { collector.Close() })

	learner, err := trpo.NewLearner(p.Clone(0), baseline.NewLinear(),
		trpo.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	worker := trpo.NewWorker(learner, 0)
	t.Cleanup(func() { worker.Close() })

	s, err := schedule.New("none", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	trainer, err := NewTrainer(collector, worker, s, state, nSteps)
	if err != nil {
		t.Fatal(err)
	}
	return trainer
}

func TestTrainerRun(t *testing.T) {
	trainer := newTestTrainer(t, trpo.State{MaxKL: 0.01,
		TimestepsPerBatch: 20}, 50)

	var out strings.Builder
	trainer.Register(tracker.NewPrinter(&out))
	returns := tracker.NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	trainer.Register(returns)

	historyFile := filepath.Join(t.TempDir(), "history.json")
	c, err := checkpointer.NewNStep(2, trainer.History(),
		checkpointer.Fixed(historyFile))
	if err != nil {
		t.Fatal(err)
	}
	trainer.RegisterCheckpointer(c)

	if err := trainer.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := trainer.Save(); err != nil {
		t.Fatal(err)
	}

	// Steps elapse 20, 40, 60 and training stops once past 50
	state := trainer.State()
	if state.Iteration != 3 || state.ElapsedSteps != 60 {
		t.Errorf("final state\n\twant(iteration 3, 60 steps)\n\thave(%+v)",
			state)
	}

	h := trainer.History()
	if h.Len() != 3 {
		t.Fatalf("history length\n\twant(3)\n\thave(%v)", h.Len())
	}
	for i := 0; i < 3; i++ {
		if h.MeanReward[i] != 10 || h.Timesteps[i] != 20 {
			t.Errorf("iteration %v\n\twant(reward 10, 20 timesteps)"+
				"\n\thave(reward %v, %v timesteps)", i+1, h.MeanReward[i],
				h.Timesteps[i])
		}
	}

	if n := strings.Count(out.String(), "-------- Iteration"); n != 3 {
		t.Errorf("printed iterations\n\twant(3)\n\thave(%v)", n)
	}
	if !strings.Contains(out.String(), "60 total steps have happened") {
		t.Errorf("final progress line missing from\n%v", out.String())
	}
	if len(returns.Returns()) != 3 {
		t.Errorf("tracked returns\n\twant(3)\n\thave(%v)", returns.Returns())
	}

	// The history was dumped at iteration 2 only
	dumped, err := LoadHistory(historyFile)
	if err != nil {
		t.Fatal(err)
	}
	if dumped.Len() != 2 {
		t.Errorf("dumped history length\n\twant(2)\n\thave(%v)", dumped.Len())
	}
}

// failingLearner fails every update
type failingLearner struct{}

func (failingLearner) Params(context.Context) ([]float64, error) {
	return nil, nil
}

func (failingLearner) Learn(context.Context, []*rollout.Path,
	trpo.State) ([]float64, trpo.Stats, error) {
	return nil, trpo.Stats{}, trpo.ErrFailed
}

// idleCollector returns no paths
type idleCollector struct{}

func (idleCollector) SetParams([]float64) error { return nil }

func (idleCollector) Collect(context.Context, int) ([]*rollout.Path, error) {
	return nil, nil
}

func TestTrainerLearnerFailure(t *testing.T) {
	s, _ := schedule.New("none", 0, 0)
	trainer, err := NewTrainer(idleCollector{}, failingLearner{}, s,
		trpo.State{MaxKL: 0.01, TimestepsPerBatch: 10}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if err := trainer.Run(context.Background()); !errors.Is(err, trpo.ErrFailed) {
		t.Errorf("run\n\twant(%v)\n\thave(%v)", trpo.ErrFailed, err)
	}
}

func TestNewTrainerErrors(t *testing.T) {
	s, _ := schedule.New("none", 0, 0)
	if _, err := NewTrainer(idleCollector{}, failingLearner{}, s,
		trpo.State{}, 100); err == nil {
		t.Error("expected error for empty initial state")
	}
	if _, err := NewTrainer(nil, failingLearner{}, s,
		trpo.State{MaxKL: 0.01, TimestepsPerBatch: 10}, 100); err == nil {
		t.Error("expected error for missing collector")
	}
}
