// Package baseline implements state value baselines which are
// subtracted from returns to form advantages.
package baseline

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/nottombrown/parallel-trpo/rollout"
)

// Available baseline names
const (
	LinearName = "linear"
	NeuralName = "neural"
	ZeroName   = "zero"
)

// TimeScale divides the timestep index before it is used as a feature
const TimeScale = 100.0

// ErrUnknownBaseline is returned when creating a baseline with an
// unknown name
var ErrUnknownBaseline = errors.New("unknown baseline")

// Baseline predicts the return from each timestep of a path
type Baseline interface {
	// Predict returns one value per timestep of p
	Predict(p *rollout.Path) []float64

	// Fit regresses the baseline onto the Returns of paths
	Fit(paths []*rollout.Path) error
}

// New returns the baseline with the given name for observations with
// obsDims dimensions
func New(name string, obsDims int, seed uint64) (Baseline, error) {
	switch name {
	case LinearName, "":
		return NewLinear(), nil
	case NeuralName:
		n, err := NewNeural(obsDims, DefaultNeuralConfig(), seed)
		if err != nil {
			return nil, fmt.Errorf("new: %v", err)
		}
		return n, nil
	case ZeroName:
		return Zero{}, nil
	}
	return nil, fmt.Errorf("new: %w %q", ErrUnknownBaseline, name)
}

// Names returns the names of all available baselines
func Names() []string {
	return []string{LinearName, NeuralName, ZeroName}
}

// targets stacks the Returns of paths
func targets(paths []*rollout.Path) ([]float64, error) {
	var y []float64
	for i, p := range paths {
		if len(p.Returns) != p.Len() {
			return nil, fmt.Errorf("path %v: returns length\n\twant(%v)"+
				"\n\thave(%v)", i, p.Len(), len(p.Returns))
		}
		y = append(y, p.Returns...)
	}
	if len(y) == 0 {
		return nil, fmt.Errorf("no timesteps to fit")
	}
	return y, nil
}

// timeFeature returns the scaled timestep index of row t
func timeFeature(t int) float64 {
	return float64(t) / TimeScale
}

// stackRows vertically stacks the feature matrices of paths
func stackRows(paths []*rollout.Path, features func(*rollout.Path) *mat.Dense) *mat.Dense {
	var out *mat.Dense
	for _, p := range paths {
		f := features(p)
		if out == nil {
			out = f
			continue
		}
		var stacked mat.Dense
		stacked.Stack(out, f)
		out = &stacked
	}
	return out
}

// Zero is a baseline which always predicts zero, making the advantage
// equal to the return
type Zero struct{}

// Predict implements the Baseline interface
func (Zero) Predict(p *rollout.Path) []float64 {
	return make([]float64, p.Len())
}

// Fit implements the Baseline interface
func (Zero) Fit([]*rollout.Path) error {
	return nil
}
