package clv

import (
	"fmt"
	"math"

	"clv-segments/pkg/models"
)

// MinValueCustomers is the smallest population the monetary-value model is fit on.
const MinValueCustomers = 3

// GammaGamma is a fitted monetary-value model. Per-transaction spend is Gamma(P, ν) for a
// customer-specific ν, and ν is Gamma(Q, V) across customers.
type GammaGamma struct {
	P, Q, V float64

	Customers        int
	NegLogLikelihood float64
}

// ValueEligible reports whether a summary can inform the monetary-value model.
func ValueEligible(s Summary) bool {
	return s.Frequency > 0 && s.MonetaryValue > 0
}

// FitGammaGamma fits P, Q and V on the customers with at least one repeat purchase and a
// strictly positive mean value. Other customers are skipped.
func FitGammaGamma(summaries []Summary, opts FitOptions) (*GammaGamma, error) {
	eligible := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if ValueEligible(s) {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) < MinValueCustomers {
		return nil, fmt.Errorf("monetary-value model: %w: %d of %d customers have repeat purchases with positive value, need %d",
			models.ErrInsufficientData, len(eligible), len(summaries), MinValueCustomers)
	}

	nll := func(p []float64) float64 {
		pp, q, v := p[0], p[1], p[2]
		total := 0.0
		for _, s := range eligible {
			x, m := float64(s.Frequency), s.MonetaryValue
			total += lgamma(pp*x+q) - lgamma(pp*x) - lgamma(q) +
				q*math.Log(v) +
				(pp*x-1)*math.Log(m) +
				pp*x*math.Log(x) -
				(pp*x+q)*math.Log(x*m+v)
		}
		return -total / float64(len(eligible))
	}

	params, f, err := minimizeLog("monetary-value model", 3, nll, opts)
	if err != nil {
		return nil, fmt.Errorf("%w (%d customers)", err, len(eligible))
	}
	m := &GammaGamma{P: params[0], Q: params[1], V: params[2], Customers: len(eligible), NegLogLikelihood: f}
	if m.Q <= 1 {
		return nil, fmt.Errorf("monetary-value model: %w: q=%.4f has no finite population mean (%d customers)",
			models.ErrInvalidParameters, m.Q, len(eligible))
	}
	return m, nil
}

// PopulationMean is the expected spend per transaction across the population.
func (m *GammaGamma) PopulationMean() float64 {
	return m.V * m.P / (m.Q - 1)
}

// ExpectedAverageValue returns the shrinkage estimate of a customer's long-run mean spend
// per transaction.
func (m *GammaGamma) ExpectedAverageValue(frequency int, monetaryValue float64) (float64, error) {
	if frequency <= 0 {
		return 0, models.ErrNoRepeatTransactions
	}
	if monetaryValue <= 0 {
		return 0, fmt.Errorf("%w: mean value %v must be positive", models.ErrInvalidInput, monetaryValue)
	}
	px := m.P * float64(frequency)
	w := px / (px + m.Q - 1)
	return (1-w)*m.PopulationMean() + w*monetaryValue, nil
}
