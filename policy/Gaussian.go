package policy

import "math"

var (
	log2Pi      = math.Log(2 * math.Pi)
	halfLog2PiE = 0.5 * math.Log(2*math.Pi*math.E)
)

// LogProb returns the log density of action under a diagonal Gaussian
// with the given means and log standard deviations.
func LogProb(mean, logStd, action []float64) float64 {
	if len(mean) != len(logStd) || len(mean) != len(action) {
		panic("logProb: mean, logStd, and action must have equal length")
	}

	var sum float64
	for i := range mean {
		z := (action[i] - mean[i]) / math.Exp(logStd[i])
		sum += z*z + 2*logStd[i] + log2Pi
	}
	return -0.5 * sum
}

// KL returns KL(p1 || p2) between two diagonal Gaussians, summed over
// the action dimensions.
func KL(mean1, logStd1, mean2, logStd2 []float64) float64 {
	var sum float64
	for i := range mean1 {
		v1 := math.Exp(2 * logStd1[i])
		v2 := math.Exp(2 * logStd2[i])
		d := mean1[i] - mean2[i]
		sum += logStd2[i] - logStd1[i] + (v1+d*d)/(2*v2) - 0.5
	}
	return sum
}

// Entropy returns the entropy of a diagonal Gaussian with the given log
// standard deviations, summed over the action dimensions.
func Entropy(logStd []float64) float64 {
	var sum float64
	for _, ls := range logStd {
		sum += ls + halfLog2PiE
	}
	return sum
}
