package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"clv-segments/pkg/calculator"
	"clv-segments/pkg/models"
	"clv-segments/pkg/segment"
)

// ============================================================================
// OUTPUT TABLE: one row per customer, columns selected downstream by header name.
// ============================================================================
// CustomerID, Recency, Frequency, Monetary, PrimaryCountry, IsReferenceCountry,
// CatShare_*, [CLV_<h>m], Cluster_<Algorithm>...
// The CLV column exists only when the estimator ran; a customer without a value
// gets an empty cell.
// ============================================================================

// SegmentHeader returns the column names written by WriteSegments.
func SegmentHeader(res *calculator.Result) []string {
	header := []string{
		models.ColCustomerID, models.ColRecency, models.ColFrequency, models.ColMonetary,
		models.ColPrimaryCountry, models.ColIsReferenceCountry,
	}
	header = append(header, models.CategoryShareColumns()...)
	if res.CLVColumn != "" {
		header = append(header, res.CLVColumn)
	}
	for _, a := range res.Assignments {
		header = append(header, a.Column())
	}
	return header
}

// WriteSegments writes the per-customer table.
func WriteSegments(w io.Writer, res *calculator.Result) error {
	if res == nil {
		return fmt.Errorf("%w: nil result", models.ErrInvalidInput)
	}
	for _, a := range res.Assignments {
		if len(a.Labels) != len(res.Rows) {
			return fmt.Errorf("%w: %s has %d labels for %d customers",
				models.ErrInvalidInput, a.Algorithm, len(a.Labels), len(res.Rows))
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(SegmentHeader(res)); err != nil {
		return err
	}
	for i, r := range res.Rows {
		rec := []string{
			r.CustomerID,
			strconv.Itoa(r.Recency),
			strconv.Itoa(r.Frequency),
			formatFloat(r.Monetary),
			r.PrimaryCountry,
			formatBool(r.IsReferenceCountry),
		}
		for _, c := range models.CategoryLabels {
			rec = append(rec, formatFloat(r.CategoryShares[c]))
		}
		if res.CLVColumn != "" {
			if r.CLV != nil {
				rec = append(rec, formatFloat(*r.CLV))
			} else {
				rec = append(rec, "")
			}
		}
		for _, a := range res.Assignments {
			rec = append(rec, strconv.Itoa(a.Labels[i]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEvaluations writes the k-candidate diagnostics.
func WriteEvaluations(w io.Writer, evals []segment.Evaluation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"k", "silhouette", "inertia"}); err != nil {
		return err
	}
	for _, ev := range evals {
		if err := cw.Write([]string{strconv.Itoa(ev.K), formatFloat(ev.Silhouette), formatFloat(ev.Inertia)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
