package segment

import (
	"fmt"
	"math"

	"clv-segments/pkg/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// RegCovar is added to every covariance diagonal to keep components positive definite.
const RegCovar = 1e-6

// MixtureModel is a fitted full-covariance Gaussian mixture.
type MixtureModel struct {
	Weights     []float64
	Means       [][]float64
	Covariances []*mat.SymDense
	Labels      []int
	LowerBound  float64 // mean log-likelihood per row at the last iteration
	Iterations  int
	Converged   bool
}

// FitGaussianMixture runs EM from responsibilities given by a single seeded k-means fit and
// labels each row with its most probable component. A fit that hits MaxIter is returned with
// Converged=false.
func FitGaussianMixture(X [][]float64, k int, opts Options) (*MixtureModel, error) {
	if err := checkK(X, k); err != nil {
		return nil, err
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}
	tol := opts.Tol
	if tol <= 0 {
		tol = 1e-3
	}

	init, err := FitKMeans(X, k, Options{Seed: opts.Seed, NInit: 1})
	if err != nil {
		return nil, err
	}
	n := len(X)
	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, k)
		resp[i][init.Labels[i]] = 1
	}

	m := &MixtureModel{}
	prev := math.Inf(-1)
	logp := make([]float64, k)
	for m.Iterations < maxIter {
		m.Iterations++
		m.maximize(X, resp)

		comps := make([]*distmv.Normal, k)
		for c := 0; c < k; c++ {
			normal, ok := distmv.NewNormal(m.Means[c], m.Covariances[c], nil)
			if !ok {
				return nil, fmt.Errorf("gaussian mixture component %d: %w", c, models.ErrSingularCovariance)
			}
			comps[c] = normal
		}

		// E-step.
		total := 0.0
		for i, x := range X {
			for c := 0; c < k; c++ {
				logp[c] = math.Log(m.Weights[c]) + comps[c].LogProb(x)
			}
			norm := floats.LogSumExp(logp)
			total += norm
			for c := 0; c < k; c++ {
				resp[i][c] = math.Exp(logp[c] - norm)
			}
		}
		m.LowerBound = total / float64(n)
		if math.Abs(m.LowerBound-prev) < tol {
			m.Converged = true
			break
		}
		prev = m.LowerBound
	}

	m.Labels = make([]int, n)
	for i := range resp {
		m.Labels[i] = floats.MaxIdx(resp[i])
	}
	return m, nil
}

// maximize re-estimates weights, means and covariances from responsibilities.
func (m *MixtureModel) maximize(X [][]float64, resp [][]float64) {
	n, d, k := len(X), len(X[0]), len(resp[0])
	const eps = 10 * 2.220446049250313e-16 // keeps empty components from dividing by zero

	m.Weights = make([]float64, k)
	m.Means = make([][]float64, k)
	m.Covariances = make([]*mat.SymDense, k)
	diff := make([]float64, d)
	for c := 0; c < k; c++ {
		nk := eps
		mean := make([]float64, d)
		for i, x := range X {
			nk += resp[i][c]
			floats.AddScaled(mean, resp[i][c], x)
		}
		floats.Scale(1/nk, mean)

		cov := mat.NewSymDense(d, nil)
		for i, x := range X {
			if resp[i][c] == 0 {
				continue
			}
			floats.SubTo(diff, x, mean)
			cov.SymRankOne(cov, resp[i][c]/nk, mat.NewVecDense(d, diff))
		}
		for j := 0; j < d; j++ {
			cov.SetSym(j, j, cov.At(j, j)+RegCovar)
		}

		m.Weights[c] = nk / float64(n)
		m.Means[c] = mean
		m.Covariances[c] = cov
	}
}
