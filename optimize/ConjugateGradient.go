// Package optimize implements the two numerical routines of a TRPO
// update: a matrix-free conjugate gradient solver and a backtracking
// line search.
package optimize

import "gonum.org/v1/gonum/floats"

// Defaults for ConjugateGradient
const (
	DefaultCGIters     = 10
	DefaultResidualTol = 1e-10
)

// Operator computes dst = A x for some symmetric positive-definite
// matrix A that is never formed explicitly
type Operator func(dst, x []float64)

// ConjugateGradient approximately solves A x = b starting from x = 0,
// using at most iters applications of A. Iteration stops early once the
// squared residual norm falls below residualTol. The best estimate is
// returned when the iteration budget runs out; non-convergence is not
// an error.
//
// If b is (numerically) zero the zero vector is returned. If A turns
// out not to be positive-definite along a search direction, the current
// estimate is returned.
func ConjugateGradient(apply Operator, b []float64, iters int,
	residualTol float64) []float64 {
	x := make([]float64, len(b))
	r := append([]float64(nil), b...)
	p := append([]float64(nil), b...)
	z := make([]float64, len(b))

	rdotr := floats.Dot(r, r)
	if rdotr < residualTol {
		return x
	}

	for i := 0; i < iters; i++ {
		apply(z, p)
		pz := floats.Dot(p, z)
		if pz <= 0 {
			break
		}

		v := rdotr / pz
		floats.AddScaled(x, v, p)
		floats.AddScaled(r, -v, z)

		newRdotr := floats.Dot(r, r)
		mu := newRdotr / rdotr
		floats.AddScaledTo(p, r, mu, p)

		rdotr = newRdotr
		if rdotr < residualTol {
			break
		}
	}
	return x
}
