package trpo

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"

	"github.com/nottombrown/parallel-trpo/baseline"
	"github.com/nottombrown/parallel-trpo/optimize"
	"github.com/nottombrown/parallel-trpo/policy"
	"github.com/nottombrown/parallel-trpo/rollout"
)

// ErrEmptyBatch is returned when learning from paths with no timesteps
var ErrEmptyBatch = errors.New("empty batch")

// Learner owns the policy being optimized and its value baseline, and
// performs TRPO updates on batches of paths. A Learner is not safe for
// concurrent use; see Worker.
type Learner struct {
	policy   *policy.GaussianMLP
	baseline baseline.Baseline
	config   Config
	phase    atomic.Int32
}

// NewLearner returns a new Learner
func NewLearner(p *policy.GaussianMLP, b baseline.Baseline,
	c Config) (*Learner, error) {
	if p == nil || b == nil {
		return nil, fmt.Errorf("newLearner: policy and baseline are required")
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newLearner: %v", err)
	}
	return &Learner{policy: p, baseline: b, config: c}, nil
}

// Params returns a copy of the current flat policy parameters
func (l *Learner) Params() []float64 {
	return l.policy.Params()
}

// Phase returns the stage of the update currently running. It may be
// called concurrently with Learn.
func (l *Learner) Phase() Phase {
	return Phase(l.phase.Load())
}

func (l *Learner) setPhase(p Phase) {
	l.phase.Store(int32(p))
}

// Learn performs one TRPO update of the policy using paths, which must
// have been sampled from the current policy, and the trust region size
// state.MaxKL. The baseline is fit to the paths' returns.
func (l *Learner) Learn(paths []*rollout.Path, state State) (Stats, error) {
	defer l.setPhase(Idle)

	total := 0
	for _, p := range paths {
		total += p.Len()
	}
	if total == 0 {
		return Stats{}, fmt.Errorf("learn: %w", ErrEmptyBatch)
	}
	if state.MaxKL <= 0 {
		return Stats{}, fmt.Errorf("learn: max KL must be positive"+
			"\n\thave(%v)", state.MaxKL)
	}

	l.setPhase(CollectingStats)
	var rewardSum float64
	for i, p := range paths {
		if err := p.Validate(); err != nil {
			return Stats{}, fmt.Errorf("learn: path %v: %v", i, err)
		}
		p.Baseline = l.baseline.Predict(p)
		p.Returns = rollout.Discount(p.Rewards, l.config.Gamma)
		p.Advantage = make([]float64, p.Len())
		floats.SubTo(p.Advantage, p.Returns, p.Baseline)
		rewardSum += p.TotalReward()
	}

	batch, err := rollout.Concat(paths)
	if err != nil {
		return Stats{}, fmt.Errorf("learn: %v", err)
	}
	rollout.NormalizeAdvantages(batch.Advantages)

	if err := l.baseline.Fit(paths); err != nil {
		return Stats{}, fmt.Errorf("learn: could not fit baseline: %v", err)
	}

	obj, err := newObjective(l.policy, batch)
	if err != nil {
		return Stats{}, fmt.Errorf("learn: %v", err)
	}
	thetaPrev := l.policy.Params()
	surrBefore, grad, err := obj.surrogateGrad(thetaPrev)
	if err != nil {
		return Stats{}, fmt.Errorf("learn: %v", err)
	}
	tape := l.policy.Forward(batch.Obs)

	l.setPhase(Solving)
	fisher := NewFisherProduct(l.policy, tape, l.config.CGDamping)
	negGrad := make([]float64, len(grad))
	floats.ScaleTo(negGrad, -1, grad)
	stepDir := optimize.ConjugateGradient(fisher.Apply, negGrad,
		l.config.CGIters, l.config.CGResidualTol)

	shs := 0.5 * fisher.quadratic(stepDir)
	if shs < MinSHS {
		shs = MinSHS
	}
	lm := math.Sqrt(shs / state.MaxKL)
	fullStep := make([]float64, len(stepDir))
	floats.ScaleTo(fullStep, 1/lm, stepDir)
	expectedImprove := -floats.Dot(grad, stepDir) / lm

	var lossErr error
	loss := func(theta []float64) float64 {
		surr, err := obj.surrogate(theta)
		if err != nil {
			lossErr = err
			return math.Inf(1)
		}
		return surr
	}
	searched, accepted := optimize.LineSearch(loss, thetaPrev, fullStep,
		expectedImprove, l.config.MaxBacktracks, l.config.AcceptRatio)
	if lossErr != nil {
		return Stats{}, fmt.Errorf("learn: line search: %v", lossErr)
	}

	l.setPhase(Committing)
	commit := searched
	if !l.config.CommitLineSearchResult {
		commit = make([]float64, len(thetaPrev))
		floats.AddTo(commit, thetaPrev, fullStep)
	}
	if err := l.policy.SetParams(commit); err != nil {
		return Stats{}, fmt.Errorf("learn: could not commit: %v", err)
	}

	surrAfter, err := obj.surrogate(commit)
	if err != nil {
		return Stats{}, fmt.Errorf("learn: %v", err)
	}
	after := l.policy.Forward(batch.Obs)
	return Stats{
		MeanReward:         rewardSum / float64(len(paths)),
		Episodes:           len(paths),
		Timesteps:          total,
		Entropy:            policy.Entropy(after.LogStd),
		MaxKL:              state.MaxKL,
		KLOldNew:           obj.meanKL(after),
		SurrogateBefore:    surrBefore,
		SurrogateAfter:     surrAfter,
		LineSearchAccepted: accepted,
	}, nil
}
