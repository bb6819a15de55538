package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/nottombrown/parallel-trpo/experiment/checkpointer"
	"github.com/nottombrown/parallel-trpo/experiment/tracker"
	"github.com/nottombrown/parallel-trpo/rollout"
	"github.com/nottombrown/parallel-trpo/schedule"
	"github.com/nottombrown/parallel-trpo/trpo"
)

// Collector collects batches of paths with the most recently set
// policy parameters
type Collector interface {
	SetParams(params []float64) error
	Collect(ctx context.Context, timesteps int) ([]*rollout.Path, error)
}

// Learner serves the policy being trained
type Learner interface {
	Params(ctx context.Context) ([]float64, error)
	Learn(ctx context.Context, paths []*rollout.Path,
		state trpo.State) ([]float64, trpo.Stats, error)
}

// Trainer runs the TRPO training loop: collect a batch with the
// current policy, update the policy, record the iteration, adapt the
// hyperparameters, and broadcast the new policy, until the step budget
// is spent.
type Trainer struct {
	collector Collector
	learner   Learner
	schedule  schedule.Schedule
	nSteps    int

	state   trpo.State
	history History

	trackers      []tracker.Tracker
	checkpointers []checkpointer.Checkpointer
}

// NewTrainer returns a new Trainer starting from state which runs until
// more than nSteps steps have elapsed
func NewTrainer(c Collector, l Learner, s schedule.Schedule,
	state trpo.State, nSteps int) (*Trainer, error) {
	if c == nil || l == nil || s == nil {
		return nil, fmt.Errorf("newTrainer: collector, learner and " +
			"schedule are required")
	}
	if state.TimestepsPerBatch <= 0 || state.MaxKL <= 0 {
		return nil, fmt.Errorf("newTrainer: invalid initial state %+v",
			state)
	}
	return &Trainer{
		collector: c,
		learner:   l,
		schedule:  s,
		nSteps:    nSteps,
		state:     state,
	}, nil
}

// Register registers a Tracker which receives a Record after every
// iteration
func (t *Trainer) Register(tr tracker.Tracker) {
	t.trackers = append(t.trackers, tr)
}

// RegisterCheckpointer registers a Checkpointer which is called after
// every iteration
func (t *Trainer) RegisterCheckpointer(c checkpointer.Checkpointer) {
	t.checkpointers = append(t.checkpointers, c)
}

// History returns the history of the training run
func (t *Trainer) History() *History {
	return &t.history
}

// State returns the current training state
func (t *Trainer) State() trpo.State {
	return t.state
}

// Run runs the training loop until the step budget is spent, the
// context is cancelled, or a component fails
func (t *Trainer) Run(ctx context.Context) error {
	params, err := t.learner.Params(ctx)
	if err != nil {
		return fmt.Errorf("run: could not fetch initial parameters: %v", err)
	}
	if err := t.collector.SetParams(params); err != nil {
		return fmt.Errorf("run: %v", err)
	}

	start := time.Now()
	for {
		done, err := t.iterate(ctx, start)
		if err != nil {
			return fmt.Errorf("run: iteration %v: %w", t.state.Iteration, err)
		}
		if done {
			return nil
		}
	}
}

// iterate runs one iteration and reports whether the step budget is
// spent
func (t *Trainer) iterate(ctx context.Context, start time.Time) (bool,
	error) {
	t.state.Iteration++

	rolloutStart := time.Now()
	paths, err := t.collector.Collect(ctx, t.state.TimestepsPerBatch)
	if err != nil {
		return false, err
	}
	rolloutTime := time.Since(rolloutStart)

	learnStart := time.Now()
	params, stats, err := t.learner.Learn(ctx, paths, t.state)
	if err != nil {
		return false, err
	}
	learnTime := time.Since(learnStart)

	t.history.Append(rolloutTime, learnTime, stats.MeanReward,
		t.state.TimestepsPerBatch)

	t.schedule.Adapt(stats.MeanReward, &t.state)

	totalSteps := t.state.ElapsedSteps + t.state.TimestepsPerBatch
	record := tracker.Record{
		Iteration:         t.state.Iteration,
		MeanReward:        stats.MeanReward,
		ElapsedSteps:      t.state.ElapsedSteps,
		TotalSteps:        totalSteps,
		TimestepsPerBatch: t.state.TimestepsPerBatch,
		MaxKL:             t.state.MaxKL,
		TotalTime:         time.Since(start),
		RolloutTime:       rolloutTime,
		LearnTime:         learnTime,
		Stats:             stats,
	}
	for _, tr := range t.trackers {
		if err := tr.Track(record); err != nil {
			return false, err
		}
	}
	for _, c := range t.checkpointers {
		if err := c.Checkpoint(t.state.Iteration); err != nil {
			return false, err
		}
	}

	t.state.ElapsedSteps = totalSteps
	if t.state.ElapsedSteps > t.nSteps {
		return true, nil
	}

	return false, t.collector.SetParams(params)
}

// Save saves the data of every registered Tracker. All trackers are
// saved even if some fail; the first error is returned.
func (t *Trainer) Save() error {
	var firstErr error
	for _, tr := range t.trackers {
		if err := tr.Save(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("save: %v", err)
		}
	}
	return firstErr
}
