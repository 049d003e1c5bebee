package clv

import (
	"fmt"
	"math"

	"clv-segments/pkg/models"

	"gonum.org/v1/gonum/floats"
)

// MinTimingCustomers is the smallest population the purchase-timing model is fit on.
const MinTimingCustomers = 4

// BetaGeo is a fitted beta-geometric/negative-binomial purchase-timing model.
// Purchase rates are Gamma(R, Alpha) across customers; the dropout probability after
// each purchase is Beta(A, B).
type BetaGeo struct {
	R, Alpha, A, B float64

	Customers        int
	NegLogLikelihood float64 // mean per customer at the optimum
}

// FitBetaGeo fits the four population parameters by maximum likelihood over the
// (frequency, recency, T) triples of every summary.
func FitBetaGeo(summaries []Summary, opts FitOptions) (*BetaGeo, error) {
	if len(summaries) < MinTimingCustomers {
		return nil, fmt.Errorf("purchase-timing model: %w: %d customers, need %d",
			models.ErrInsufficientData, len(summaries), MinTimingCustomers)
	}
	for _, s := range summaries {
		if s.Frequency < 0 || s.Recency < 0 || s.Recency > s.T {
			return nil, fmt.Errorf("purchase-timing model: customer %s: %w: frequency=%d recency=%v T=%v",
				s.CustomerID, models.ErrInvalidInput, s.Frequency, s.Recency, s.T)
		}
	}

	nll := func(p []float64) float64 {
		m := BetaGeo{R: p[0], Alpha: p[1], A: p[2], B: p[3]}
		total := 0.0
		for _, s := range summaries {
			total += m.logLikelihood(float64(s.Frequency), s.Recency, s.T)
		}
		return -total / float64(len(summaries))
	}

	params, f, err := minimizeLog("purchase-timing model", 4, nll, opts)
	if err != nil {
		return nil, fmt.Errorf("%w (%d customers)", err, len(summaries))
	}
	return &BetaGeo{
		R: params[0], Alpha: params[1], A: params[2], B: params[3],
		Customers:        len(summaries),
		NegLogLikelihood: f,
	}, nil
}

func (m BetaGeo) logLikelihood(x, tx, T float64) float64 {
	r, alpha, a, b := m.R, m.Alpha, m.A, m.B
	a1 := lgamma(r+x) - lgamma(r) + r*math.Log(alpha)
	a2 := lgamma(a+b) + lgamma(b+x) - lgamma(b) - lgamma(a+b+x)
	a3 := -(r + x) * math.Log(alpha+T)
	if x == 0 {
		return a1 + a2 + a3
	}
	a4 := math.Log(a) - math.Log(b+x-1) - (r+x)*math.Log(tx+alpha)
	return a1 + a2 + floats.LogSumExp([]float64{a3, a4})
}

// ExpectedPurchases returns the expected number of transactions in the next t days for a
// customer with the given history.
func (m *BetaGeo) ExpectedPurchases(t float64, frequency int, recency, T float64) (float64, error) {
	if t < 0 || frequency < 0 || recency < 0 || recency > T {
		return 0, fmt.Errorf("%w: t=%v frequency=%d recency=%v T=%v", models.ErrInvalidInput, t, frequency, recency, T)
	}
	if t == 0 {
		return 0, nil
	}
	r, alpha, a, b := m.R, m.Alpha, m.A, m.B
	x := float64(frequency)

	ha := r + x
	hb := b + x
	hc := a + b + x - 1
	z := t / (alpha + T + t)

	lnHyp := logHyp2f1(ha, hb, hc, z)

	first := (a + b + x - 1) / (a - 1)
	second := 1 - math.Exp(lnHyp+(r+x)*math.Log((alpha+T)/(alpha+t+T)))
	denom := 1.0
	if frequency > 0 {
		denom += a / (b + x - 1) * math.Pow((alpha+T)/(alpha+recency), r+x)
	}

	v := first * second / denom
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: expected purchases not finite for frequency=%d recency=%v T=%v",
			models.ErrInvalidParameters, frequency, recency, T)
	}
	return v, nil
}
