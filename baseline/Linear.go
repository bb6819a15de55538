package baseline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/nottombrown/parallel-trpo/rollout"
)

// RidgeRegularizer is the L2 penalty of the linear baseline's ridge
// regression
const RidgeRegularizer = 2.0

// Linear is a linear value function over the features
// [o, o², t/100, (t/100)², 1] fit by ridge regression. It predicts zero
// before it is first fit.
type Linear struct {
	coeffs *mat.VecDense
}

// NewLinear returns a new, unfit, linear baseline
func NewLinear() *Linear {
	return &Linear{}
}

// linearFeatures returns the feature matrix of p, one row per timestep
func linearFeatures(p *rollout.Path) *mat.Dense {
	n, obsDims := p.Obs.Dims()
	x := mat.NewDense(n, 2*obsDims+3, nil)
	for t := 0; t < n; t++ {
		row := x.RawRowView(t)
		for j := 0; j < obsDims; j++ {
			o := p.Obs.At(t, j)
			row[j] = o
			row[obsDims+j] = o * o
		}
		al := timeFeature(t)
		row[2*obsDims] = al
		row[2*obsDims+1] = al * al
		row[2*obsDims+2] = 1
	}
	return x
}

// Predict implements the Baseline interface
func (l *Linear) Predict(p *rollout.Path) []float64 {
	if l.coeffs == nil {
		return make([]float64, p.Len())
	}

	x := linearFeatures(p)
	if _, c := x.Dims(); c != l.coeffs.Len() {
		return make([]float64, p.Len())
	}
	var pred mat.VecDense
	pred.MulVec(x, l.coeffs)
	return mat.Col(nil, 0, &pred)
}

// Fit solves (XᵀX + λI)c = Xᵀy for the coefficients c
func (l *Linear) Fit(paths []*rollout.Path) error {
	y, err := targets(paths)
	if err != nil {
		return fmt.Errorf("fit: %v", err)
	}
	x := stackRows(paths, linearFeatures)
	_, cols := x.Dims()

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	for i := 0; i < cols; i++ {
		xtx.SetSym(i, i, xtx.At(i, i)+RidgeRegularizer)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), mat.NewVecDense(len(y), y))

	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return fmt.Errorf("fit: regularized normal equations are not " +
			"positive definite")
	}
	coeffs := mat.NewVecDense(cols, nil)
	if err := chol.SolveVecTo(coeffs, &xty); err != nil {
		return fmt.Errorf("fit: %v", err)
	}
	l.coeffs = coeffs
	return nil
}

// Coefficients returns a copy of the fit coefficients, or nil if the
// baseline has not been fit
func (l *Linear) Coefficients() []float64 {
	if l.coeffs == nil {
		return nil
	}
	return mat.Col(nil, 0, l.coeffs)
}
