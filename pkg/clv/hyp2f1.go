package clv

import "math"

const (
	hypMaxTerms = 200000
	hypRelTol   = 1e-15
)

// hyp2f1 sums the Gauss series of 2F1(a, b; c; z) for 0 <= z < 1. It returns +Inf when the
// partial sums leave the float64 range and NaN when c is a non-positive integer.
func hyp2f1(a, b, c, z float64) float64 {
	if z == 0 {
		return 1
	}
	if c <= 0 && c == math.Trunc(c) {
		return math.NaN()
	}
	sum, term := 1.0, 1.0
	for n := 0.0; n < hypMaxTerms; n++ {
		ratio := (a + n) * (b + n) / ((c + n) * (n + 1)) * z
		term *= ratio
		sum += term
		if math.IsInf(sum, 0) || math.IsNaN(sum) {
			return math.Inf(1)
		}
		if term == 0 || (math.Abs(term) <= hypRelTol*math.Abs(sum) && math.Abs(ratio) < 1) {
			return sum
		}
	}
	return sum
}

// logHyp2f1 returns ln 2F1(a, b; c; z). When the direct series overflows it uses Euler's
// transformation 2F1(a, b; c; z) = (1-z)^(c-a-b) 2F1(c-a, c-b; c; z), whose series stays
// small for large a and b.
func logHyp2f1(a, b, c, z float64) float64 {
	if v := hyp2f1(a, b, c, z); v > 0 && !math.IsInf(v, 0) {
		return math.Log(v)
	}
	return math.Log(hyp2f1(c-a, c-b, c, z)) + (c-a-b)*math.Log1p(-z)
}
