package segment

import (
	"fmt"
	"math"

	"clv-segments/pkg/models"

	"gonum.org/v1/gonum/floats"
)

// Evaluation holds the advisory diagnostics of one candidate cluster count.
// Nothing in this package picks k from them.
type Evaluation struct {
	K          int
	Silhouette float64
	Inertia    float64
}

// Evaluate fits k-means for each candidate k and reports cohesion and silhouette.
// onEach, if set, is called after every candidate.
func Evaluate(X [][]float64, ks []int, opts Options, onEach func(Evaluation)) ([]Evaluation, error) {
	if len(ks) == 0 {
		return nil, fmt.Errorf("%w: no candidate cluster counts", models.ErrInvalidInput)
	}
	out := make([]Evaluation, 0, len(ks))
	for _, k := range ks {
		if k < 2 {
			return nil, fmt.Errorf("%w: silhouette needs k >= 2, got %d", models.ErrInvalidInput, k)
		}
		m, err := FitKMeans(X, k, opts)
		if err != nil {
			return nil, fmt.Errorf("k=%d: %w", k, err)
		}
		sil, err := Silhouette(X, m.Labels)
		if err != nil {
			return nil, fmt.Errorf("k=%d: %w", k, err)
		}
		ev := Evaluation{K: k, Silhouette: sil, Inertia: m.Inertia}
		out = append(out, ev)
		if onEach != nil {
			onEach(ev)
		}
	}
	return out, nil
}

// Silhouette is the mean over rows of (b-a)/max(a,b), where a is the mean distance to the
// row's own cluster and b the smallest mean distance to another cluster. Rows alone in
// their cluster score 0.
func Silhouette(X [][]float64, labels []int) (float64, error) {
	if len(X) != len(labels) {
		return 0, fmt.Errorf("%w: %d rows but %d labels", models.ErrInvalidInput, len(X), len(labels))
	}
	k := 0
	for _, l := range labels {
		if l+1 > k {
			k = l + 1
		}
	}
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	used := 0
	for _, c := range counts {
		if c > 0 {
			used++
		}
	}
	if used < 2 || used > len(X)-1 {
		return 0, fmt.Errorf("%w: silhouette needs 2..%d clusters, got %d", models.ErrInvalidInput, len(X)-1, used)
	}

	sums := make([]float64, k)
	total := 0.0
	for i, x := range X {
		for c := range sums {
			sums[c] = 0
		}
		for j, y := range X {
			if i != j {
				sums[labels[j]] += floats.Distance(x, y, 2)
			}
		}
		own := labels[i]
		if counts[own] == 1 {
			continue
		}
		a := sums[own] / float64(counts[own]-1)
		b := math.Inf(1)
		for c, s := range sums {
			if c != own && counts[c] > 0 {
				b = math.Min(b, s/float64(counts[c]))
			}
		}
		if m := math.Max(a, b); m > 0 {
			total += (b - a) / m
		}
	}
	return total / float64(len(X)), nil
}

// Algorithm names, used as the Cluster_<name> column suffix.
const (
	AlgorithmKMeans       = "KMeans"
	AlgorithmHierarchical = "Hierarchical"
	AlgorithmGMM          = "GMM"
)

// Assignment is one algorithm's labelling of the rows. Label values are only meaningful
// within the same Assignment: label 2 of one algorithm has no relation to label 2 of another.
type Assignment struct {
	Algorithm string
	Labels    []int
	Converged bool
}

// Column returns the output column name for the assignment.
func (a Assignment) Column() string {
	return models.ClusterPrefix + a.Algorithm
}

// FitAll fits the centroid, Ward agglomerative and Gaussian-mixture algorithms on the same
// matrix and k, in that order.
func FitAll(X [][]float64, k int, opts Options) ([]Assignment, error) {
	km, err := FitKMeans(X, k, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AlgorithmKMeans, err)
	}
	hl, err := FitHierarchical(X, k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AlgorithmHierarchical, err)
	}
	gm, err := FitGaussianMixture(X, k, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", AlgorithmGMM, err)
	}
	return []Assignment{
		{Algorithm: AlgorithmKMeans, Labels: km.Labels, Converged: true},
		{Algorithm: AlgorithmHierarchical, Labels: hl, Converged: true},
		{Algorithm: AlgorithmGMM, Labels: gm.Labels, Converged: gm.Converged},
	}, nil
}
