package trpo

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/nottombrown/parallel-trpo/policy"
)

// FisherProduct computes damped Fisher-vector products of a policy at
// its current parameters. F is the Hessian of the mean
// KL(old || current) over the batch with the old distribution held
// fixed at the current one. At that point the KL has zero gradient and
// its Hessian is Jᵀ diag(1/σ², 2) J / N, where J is the Jacobian of the
// action means and log standard deviations.
type FisherProduct struct {
	policy  *policy.GaussianMLP
	tape    *policy.Tape
	invVar  []float64
	damping float64
}

// NewFisherProduct returns the Fisher-vector product of p evaluated on
// tape. The tape must have been recorded at p's current parameters.
func NewFisherProduct(p *policy.GaussianMLP, tape *policy.Tape,
	damping float64) *FisherProduct {
	invVar := make([]float64, len(tape.LogStd))
	for j, ls := range tape.LogStd {
		invVar[j] = math.Exp(-2 * ls)
	}
	return &FisherProduct{
		policy:  p,
		tape:    tape,
		invVar:  invVar,
		damping: damping,
	}
}

// Apply sets dst = F t + λ t
func (f *FisherProduct) Apply(dst, t []float64) {
	dMean, dLogStd := f.policy.Tangent(f.tape, t)
	n := float64(f.tape.Len())

	rows, _ := dMean.Dims()
	for r := 0; r < rows; r++ {
		row := dMean.RawRowView(r)
		for j := range row {
			row[j] *= f.invVar[j] / n
		}
	}
	floats.Scale(2, dLogStd)

	copy(dst, f.policy.Backward(f.tape, dMean, dLogStd))
	if f.damping != 0 {
		floats.AddScaled(dst, f.damping, t)
	}
}

// quadratic returns tᵀ(F + λI)t
func (f *FisherProduct) quadratic(t []float64) float64 {
	ft := make([]float64, len(t))
	f.Apply(ft, t)
	return floats.Dot(t, ft)
}
