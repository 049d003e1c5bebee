package calculator

import (
	"fmt"
	"sort"

	"clv-segments/pkg/models"
	"clv-segments/pkg/segment"
)

// SegmentSummary describes one label of one algorithm.
type SegmentSummary struct {
	Algorithm    string
	Label        int
	Customers    int
	TotalRevenue float64
	MeanRecency  float64
	MeanFreq     float64
	MeanCLV      *float64 // mean over customers with a value; nil if none has one
}

// Summarize groups rows by each assignment's labels, ordered by algorithm then label.
func Summarize(rows []models.CustomerFeatures, assignments []segment.Assignment) ([]SegmentSummary, error) {
	var out []SegmentSummary
	for _, a := range assignments {
		if len(a.Labels) != len(rows) {
			return nil, fmt.Errorf("%w: %s has %d labels for %d customers",
				models.ErrInvalidInput, a.Algorithm, len(a.Labels), len(rows))
		}
		byLabel := map[int]*SegmentSummary{}
		clvCount := map[int]int{}
		clvSum := map[int]float64{}
		for i, l := range a.Labels {
			s, ok := byLabel[l]
			if !ok {
				s = &SegmentSummary{Algorithm: a.Algorithm, Label: l}
				byLabel[l] = s
			}
			r := rows[i]
			s.Customers++
			s.TotalRevenue += r.Monetary
			s.MeanRecency += float64(r.Recency)
			s.MeanFreq += float64(r.Frequency)
			if r.CLV != nil {
				clvCount[l]++
				clvSum[l] += *r.CLV
			}
		}

		labels := make([]int, 0, len(byLabel))
		for l := range byLabel {
			labels = append(labels, l)
		}
		sort.Ints(labels)
		for _, l := range labels {
			s := byLabel[l]
			s.MeanRecency /= float64(s.Customers)
			s.MeanFreq /= float64(s.Customers)
			if n := clvCount[l]; n > 0 {
				m := clvSum[l] / float64(n)
				s.MeanCLV = &m
			}
			out = append(out, *s)
		}
	}
	return out, nil
}
