package output

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"clv-segments/pkg/calculator"
	"clv-segments/pkg/models"
	"clv-segments/pkg/segment"
)

func sampleResult(withCLV bool) *calculator.Result {
	v := 12.5
	res := &calculator.Result{
		Rows: []models.CustomerFeatures{
			{
				CustomerID: "17850", Recency: 3, Frequency: 2, Monetary: 40.5,
				PrimaryCountry: "United Kingdom", IsReferenceCountry: true,
				CategoryShares: map[string]float64{models.CategoryBags: 0.25, models.CategoryOther: 0.75},
				CLV:            &v,
			},
			{
				CustomerID: "12583", Recency: 30, Frequency: 1, Monetary: 90,
				PrimaryCountry: "France",
				CategoryShares: map[string]float64{models.CategoryToys: 1},
			},
		},
		Assignments: []segment.Assignment{
			{Algorithm: segment.AlgorithmKMeans, Labels: []int{0, 1}},
			{Algorithm: segment.AlgorithmGMM, Labels: []int{1, 0}},
		},
	}
	if withCLV {
		res.CLVColumn = models.CLVColumn(6)
	}
	return res
}

func readAll(t *testing.T, s string) [][]string {
	t.Helper()
	recs, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	return recs
}

func TestWriteSegments_WithValue(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSegments(&buf, sampleResult(true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs := readAll(t, buf.String())
	if len(recs) != 3 {
		t.Fatalf("got %d records, want header + 2", len(recs))
	}
	wantHeader := "CustomerID,Recency,Frequency,Monetary,PrimaryCountry,IsReferenceCountry," +
		"CatShare_Bags,CatShare_Kitchen,CatShare_HomeDecor,CatShare_Toys,CatShare_Other," +
		"CLV_6m,Cluster_KMeans,Cluster_GMM"
	if got := strings.Join(recs[0], ","); got != wantHeader {
		t.Fatalf("got header %q, want %q", got, wantHeader)
	}
	if got := strings.Join(recs[1], ","); got != "17850,3,2,40.5,United Kingdom,1,0.25,0,0,0,0.75,12.5,0,1" {
		t.Fatalf("unexpected first row %q", got)
	}
	if recs[2][11] != "" {
		t.Fatalf("missing value should be an empty cell, got %q", recs[2][11])
	}
}

func TestWriteSegments_WithoutValue(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSegments(&buf, sampleResult(false)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	recs := readAll(t, buf.String())
	for _, col := range recs[0] {
		if models.IsCLVColumn(col) {
			t.Fatalf("header should not carry %s when the estimator did not run", col)
		}
	}
	if len(recs[1]) != len(recs[0]) {
		t.Fatalf("row has %d cells, header %d", len(recs[1]), len(recs[0]))
	}
}

func TestWriteSegments_LabelMismatch(t *testing.T) {
	res := sampleResult(false)
	res.Assignments[0].Labels = []int{0}
	if err := WriteSegments(&bytes.Buffer{}, res); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestWriteEvaluations(t *testing.T) {
	var buf bytes.Buffer
	evals := []segment.Evaluation{{K: 2, Silhouette: 0.5, Inertia: 120}, {K: 3, Silhouette: 0.25, Inertia: 80.5}}
	if err := WriteEvaluations(&buf, evals); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "k,silhouette,inertia\n2,0.5,120\n3,0.25,80.5\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
