package beam

import "math"

var LogZero = math.Inf(-1)

// LogAdd returns log(exp(a) + exp(b)).
// The smaller term is dropped once it is below float64 precision.
func LogAdd(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a < b {
		a, b = b, a
	}
	d := b - a
	if d < -36.0 {
		return a
	}
	return a + math.Log1p(math.Exp(d))
}
