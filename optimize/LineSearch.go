package optimize

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Defaults for LineSearch
const (
	DefaultMaxBacktracks = 10
	DefaultAcceptRatio   = 0.1
)

// LineSearch performs a backtracking line search along fullStep,
// minimizing f. Step fractions 1, 1/2, 1/4, ... are tried in order, up
// to maxBacktracks of them. A fraction is accepted when the actual
// improvement f(x0) - f(x) is positive and at least acceptRatio times
// the improvement expected from the linear model, expectedImproveRate
// times the fraction.
//
// The accepted point and true are returned. If no fraction is accepted,
// x0 and false are returned.
func LineSearch(f func([]float64) float64, x0, fullStep []float64,
	expectedImproveRate float64, maxBacktracks int,
	acceptRatio float64) ([]float64, bool) {
	fval := f(x0)
	x := make([]float64, len(x0))

	for n := 0; n < maxBacktracks; n++ {
		frac := math.Pow(0.5, float64(n))
		floats.AddScaledTo(x, x0, frac, fullStep)

		newFval := f(x)
		actual := fval - newFval
		expected := expectedImproveRate * frac
		if actual > 0 && actual/expected > acceptRatio {
			return x, true
		}
	}
	return append([]float64(nil), x0...), false
}
