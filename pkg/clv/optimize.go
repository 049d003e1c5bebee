package clv

import (
	"fmt"
	"math"

	"clv-segments/pkg/models"

	"gonum.org/v1/gonum/optimize"
)

// FitOptions tunes the maximum-likelihood fits.
type FitOptions struct {
	// Penalizer adds Penalizer * sum(params^2) to the mean negative log-likelihood.
	Penalizer float64
	// MaxEvaluations bounds objective evaluations; 0 uses defaultMaxEvaluations.
	MaxEvaluations int
}

const defaultMaxEvaluations = 20000

// minimizeLog minimizes nll over strictly positive parameters by searching in log space,
// starting from all parameters equal to one.
func minimizeLog(stage string, nParams int, nll func(params []float64) float64, opts FitOptions) ([]float64, float64, error) {
	evals := opts.MaxEvaluations
	if evals <= 0 {
		evals = defaultMaxEvaluations
	}

	params := make([]float64, nParams)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			for i, v := range x {
				params[i] = math.Exp(v)
			}
			f := nll(params)
			if opts.Penalizer > 0 {
				for _, p := range params {
					f += opts.Penalizer * p * p
				}
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return math.Inf(1)
			}
			return f
		},
	}

	settings := &optimize.Settings{FuncEvaluations: evals}
	res, err := optimize.Minimize(problem, make([]float64, nParams), settings, &optimize.NelderMead{})
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w: %v", stage, models.ErrNotConverged, err)
	}
	if !converged(res.Status) {
		return nil, 0, fmt.Errorf("%s: %w: status %v after %d evaluations",
			stage, models.ErrNotConverged, res.Status, res.Stats.FuncEvaluations)
	}
	if math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		return nil, 0, fmt.Errorf("%s: %w: non-finite likelihood", stage, models.ErrNotConverged)
	}

	out := make([]float64, nParams)
	for i, v := range res.X {
		out[i] = math.Exp(v)
	}
	return out, res.F, nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.MethodConverge, optimize.FunctionConvergence,
		optimize.FunctionThreshold, optimize.GradientThreshold, optimize.StepConvergence:
		return true
	}
	return false
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}
