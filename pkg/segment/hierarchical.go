package segment

import (
	"math"
	"sort"
)

// Merge is one step of the agglomerative tree. A and B are representative row indices of
// the two clusters joined at Height (Ward dissimilarity).
type Merge struct {
	A, B   int
	Height float64
}

// FitHierarchical builds the Ward linkage tree of X and cuts it into k clusters. Labels are
// numbered by first appearance in X.
func FitHierarchical(X [][]float64, k int) ([]int, error) {
	if err := checkK(X, k); err != nil {
		return nil, err
	}
	merges := WardLinkage(X)
	return CutTree(len(X), merges, k), nil
}

// WardLinkage returns the n-1 merges of the Ward tree in ascending height order. It runs the
// nearest-neighbour chain algorithm over a condensed squared-distance matrix with
// Lance-Williams updates.
func WardLinkage(X [][]float64) []Merge {
	n := len(X)
	if n < 2 {
		return nil
	}
	dist := make([]float64, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist[condensed(n, i, j)] = sqDist(X[i], X[j])
		}
	}
	size := make([]float64, n)
	active := make([]bool, n)
	for i := range size {
		size[i] = 1
		active[i] = true
	}

	merges := make([]Merge, 0, n-1)
	chain := make([]int, 0, n)
	for len(merges) < n-1 {
		if len(chain) == 0 {
			for i := 0; i < n; i++ {
				if active[i] {
					chain = append(chain, i)
					break
				}
			}
		}

		a := chain[len(chain)-1]
		b, bestDist := -1, math.Inf(1)
		if len(chain) > 1 {
			// Prefer the previous chain element on ties so the chain terminates.
			b = chain[len(chain)-2]
			bestDist = dist[condensed(n, a, b)]
		}
		for j := 0; j < n; j++ {
			if j == a || !active[j] {
				continue
			}
			if d := dist[condensed(n, a, j)]; d < bestDist {
				b, bestDist = j, d
			}
		}

		if len(chain) > 1 && b == chain[len(chain)-2] {
			chain = chain[:len(chain)-2]
			merges = append(merges, Merge{A: a, B: b, Height: bestDist})

			// The merged cluster keeps the lower slot.
			keep, drop := a, b
			if drop < keep {
				keep, drop = drop, keep
			}
			na, nb := size[a], size[b]
			for j := 0; j < n; j++ {
				if !active[j] || j == a || j == b {
					continue
				}
				nj := size[j]
				dja, djb := dist[condensed(n, j, a)], dist[condensed(n, j, b)]
				dist[condensed(n, j, keep)] = ((na+nj)*dja + (nb+nj)*djb - nj*bestDist) / (na + nb + nj)
			}
			size[keep] = na + nb
			active[drop] = false
			continue
		}
		chain = append(chain, b)
	}

	sort.SliceStable(merges, func(i, j int) bool { return merges[i].Height < merges[j].Height })
	return merges
}

// CutTree applies the lowest n-k merges and labels the resulting k clusters.
func CutTree(n int, merges []Merge, k int) []int {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, m := range merges[:n-k] {
		ra, rb := find(m.A), find(m.B)
		if ra != rb {
			parent[rb] = ra
		}
	}

	labels := make([]int, n)
	ids := make(map[int]int, k)
	for i := 0; i < n; i++ {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		labels[i] = id
	}
	return labels
}

// condensed indexes the upper triangle of an n×n symmetric matrix without its diagonal.
func condensed(n, i, j int) int {
	if i > j {
		i, j = j, i
	}
	return n*i - i*(i+1)/2 + j - i - 1
}
