// Package rollout implements trajectories, the flattened batch a
// learner consumes, and the parallel collector that produces them
package rollout

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// AdvantageEpsilon is added to the standard deviation when normalizing
// advantages
const AdvantageEpsilon = 1e-8

// Path is one complete episode. Row t of every matrix, and element t of
// every slice, belong to timestep t. MeanDists and LogStdDists hold the
// action distribution the actions were sampled from.
type Path struct {
	Obs         *mat.Dense
	Actions     *mat.Dense
	MeanDists   *mat.Dense
	LogStdDists *mat.Dense
	Rewards     []float64

	// Terminated is true if the environment ended the episode, false if
	// the collector cut it off at the timestep limit
	Terminated bool

	// Filled in by the learner
	Baseline  []float64
	Returns   []float64
	Advantage []float64
}

// Len returns the number of timesteps in the path
func (p *Path) Len() int {
	return len(p.Rewards)
}

// TotalReward returns the undiscounted sum of rewards of the path
func (p *Path) TotalReward() float64 {
	return floats.Sum(p.Rewards)
}

// Validate checks that all per-timestep fields of the path have the
// same length
func (p *Path) Validate() error {
	n := p.Len()
	if n == 0 {
		return fmt.Errorf("validate: empty path")
	}
	for _, m := range []*mat.Dense{p.Obs, p.Actions, p.MeanDists,
		p.LogStdDists} {
		if m == nil {
			return fmt.Errorf("validate: missing path data")
		}
		if r, _ := m.Dims(); r != n {
			return fmt.Errorf("validate: inconsistent path length"+
				"\n\twant(%v)\n\thave(%v)", n, r)
		}
	}
	return nil
}

// Discount returns the discounted cumulative sum of x,
// y[t] = x[t] + gamma * y[t+1]
func Discount(x []float64, gamma float64) []float64 {
	y := make([]float64, len(x))
	var next float64
	for t := len(x) - 1; t >= 0; t-- {
		next = x[t] + gamma*next
		y[t] = next
	}
	return y
}

// NormalizeAdvantages shifts and scales adv in place to have zero mean
// and unit (population) standard deviation. AdvantageEpsilon keeps
// constant advantages finite.
func NormalizeAdvantages(adv []float64) {
	mean := stat.Mean(adv, nil)
	std := stat.PopStdDev(adv, nil)

	floats.AddConst(-mean, adv)
	floats.Scale(1/(std+AdvantageEpsilon), adv)
}
