package clv

import (
	"errors"
	"fmt"

	"clv-segments/pkg/models"
)

// DaysPerMonth converts a horizon in months to days.
const DaysPerMonth = 30

// Result is the outcome of one value estimation: the fitted model pair and a value per
// customer that could be estimated. Customers absent from Values have a null value.
type Result struct {
	HorizonMonths int
	Timing        *BetaGeo
	Value         *GammaGamma
	Values        map[string]float64
	Skipped       int
}

// Estimate fits both models on summaries and computes
// value = expected purchases over the horizon × expected average transaction value.
func Estimate(summaries []Summary, horizonMonths int, opts FitOptions) (*Result, error) {
	if horizonMonths <= 0 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d months", models.ErrInvalidInput, horizonMonths)
	}
	if len(summaries) == 0 {
		return nil, models.ErrEmptyInput
	}

	timing, err := FitBetaGeo(summaries, opts)
	if err != nil {
		return nil, err
	}
	value, err := FitGammaGamma(summaries, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{
		HorizonMonths: horizonMonths,
		Timing:        timing,
		Value:         value,
		Values:        make(map[string]float64, len(summaries)),
	}
	for _, s := range summaries {
		v, err := CustomerValue(timing, value, s, horizonMonths)
		if errors.Is(err, models.ErrNoRepeatTransactions) || errors.Is(err, models.ErrInvalidInput) {
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("customer %s: %w", s.CustomerID, err)
		}
		res.Values[s.CustomerID] = v
	}
	return res, nil
}

// CustomerValue is the expected value of one customer over horizonMonths.
func CustomerValue(timing *BetaGeo, value *GammaGamma, s Summary, horizonMonths int) (float64, error) {
	avg, err := value.ExpectedAverageValue(s.Frequency, s.MonetaryValue)
	if err != nil {
		return 0, err
	}
	n, err := timing.ExpectedPurchases(float64(horizonMonths*DaysPerMonth), s.Frequency, s.Recency, s.T)
	if err != nil {
		return 0, err
	}
	return n * avg, nil
}
