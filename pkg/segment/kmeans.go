package segment

import (
	"fmt"
	"math"
	"math/rand/v2"

	"clv-segments/pkg/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Options carries the fit parameters shared by every algorithm. Seed drives all stochastic
// initialization, so equal input, k and Seed give equal labels.
type Options struct {
	Seed    uint64
	NInit   int     // k-means restarts; default 10
	MaxIter int     // per-fit iteration cap; default 300 (k-means) and 100 (mixture)
	Tol     float64 // convergence tolerance; default 1e-4 (k-means) and 1e-3 (mixture)
}

func (o Options) rng() *rand.Rand {
	return rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15))
}

// KMeansModel is a fitted centroid partition.
type KMeansModel struct {
	Centroids  [][]float64
	Labels     []int
	Inertia    float64 // sum of squared distances to the assigned centroid
	Iterations int
}

// FitKMeans runs Lloyd's algorithm from k-means++ seeds NInit times and keeps the run with
// the lowest inertia.
func FitKMeans(X [][]float64, k int, opts Options) (*KMeansModel, error) {
	if err := checkK(X, k); err != nil {
		return nil, err
	}
	nInit := opts.NInit
	if nInit <= 0 {
		nInit = 10
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = 300
	}
	tol := opts.Tol
	if tol <= 0 {
		tol = 1e-4
	}
	tol *= meanVariance(X)

	rng := opts.rng()
	var best *KMeansModel
	for run := 0; run < nInit; run++ {
		m := lloyd(X, seedCentroids(X, k, rng), maxIter, tol)
		if best == nil || m.Inertia < best.Inertia {
			best = m
		}
	}
	return best, nil
}

// Predict assigns each row to its nearest centroid.
func (m *KMeansModel) Predict(X [][]float64) ([]int, error) {
	if len(X) > 0 && len(X[0]) != len(m.Centroids[0]) {
		return nil, fmt.Errorf("%w: rows have %d columns, centroids have %d",
			models.ErrInvalidInput, len(X[0]), len(m.Centroids[0]))
	}
	labels := make([]int, len(X))
	for i, x := range X {
		labels[i], _ = nearest(x, m.Centroids)
	}
	return labels, nil
}

// seedCentroids picks k initial centroids with k-means++ sampling.
func seedCentroids(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(X[rng.IntN(n)]))

	d2 := make([]float64, n)
	for i, x := range X {
		d2[i] = sqDist(x, centroids[0])
	}
	for len(centroids) < k {
		total := floats.Sum(d2)
		next := -1
		if total > 0 {
			target := rng.Float64() * total
			acc := 0.0
			for i, w := range d2 {
				acc += w
				if acc >= target && w > 0 {
					next = i
					break
				}
			}
		}
		if next < 0 {
			// Fewer distinct points than k: any point will do.
			next = rng.IntN(n)
		}
		c := clone(X[next])
		centroids = append(centroids, c)
		for i, x := range X {
			if d := sqDist(x, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centroids
}

func lloyd(X [][]float64, centroids [][]float64, maxIter int, tol float64) *KMeansModel {
	n, k, d := len(X), len(centroids), len(X[0])
	labels := make([]int, n)
	counts := make([]int, k)
	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, d)
	}

	iter := 0
	for iter < maxIter {
		iter++
		for i, x := range X {
			labels[i], _ = nearest(x, centroids)
		}

		for c := 0; c < k; c++ {
			counts[c] = 0
			for j := range sums[c] {
				sums[c][j] = 0
			}
		}
		for i, x := range X {
			counts[labels[i]]++
			floats.Add(sums[labels[i]], x)
		}

		shift := 0.0
		for c := 0; c < k; c++ {
			next := make([]float64, d)
			if counts[c] == 0 {
				// Empty cluster: move it onto the point farthest from its centroid.
				copy(next, X[farthest(X, labels, centroids)])
			} else {
				floats.ScaleTo(next, 1/float64(counts[c]), sums[c])
			}
			shift += sqDist(next, centroids[c])
			centroids[c] = next
		}
		if shift <= tol {
			break
		}
	}

	inertia := 0.0
	for i, x := range X {
		var dist float64
		labels[i], dist = nearest(x, centroids)
		inertia += dist
	}
	return &KMeansModel{Centroids: centroids, Labels: labels, Inertia: inertia, Iterations: iter}
}

func nearest(x []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, mu := range centroids {
		if d := sqDist(x, mu); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func farthest(X [][]float64, labels []int, centroids [][]float64) int {
	idx, far := 0, -1.0
	for i, x := range X {
		if d := sqDist(x, centroids[labels[i]]); d > far {
			idx, far = i, d
		}
	}
	return idx
}

func meanVariance(X [][]float64) float64 {
	d := len(X[0])
	col := make([]float64, len(X))
	total := 0.0
	for j := 0; j < d; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		_, v := stat.PopMeanVariance(col, nil)
		total += v
	}
	return total / float64(d)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	return out
}

func checkK(X [][]float64, k int) error {
	if _, err := dims(X); err != nil {
		return err
	}
	if k < 1 {
		return fmt.Errorf("%w: k must be at least 1, got %d", models.ErrInvalidInput, k)
	}
	if k > len(X) {
		return fmt.Errorf("%w: k=%d exceeds %d customers", models.ErrInvalidInput, k, len(X))
	}
	return nil
}
