package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

/*
LOAD → transaction records as produced by the source (CSV file or database table).
*/

// Transaction is one cleaned invoice line. Revenue is derived once from Quantity × UnitPrice.
type Transaction struct {
	InvoiceNo   string
	StockCode   string
	Description string
	Quantity    int
	InvoiceDate time.Time
	UnitPrice   float64
	CustomerID  string
	Country     string
}

// Revenue returns the line revenue.
func (t Transaction) Revenue() float64 {
	return float64(t.Quantity) * t.UnitPrice
}

/*
COMPUTE → one row per customer, carried through every stage of the pipeline.
*/

// Category labels, in keyword priority order. CategoryOther is the fallback.
const (
	CategoryBags      = "Bags"
	CategoryKitchen   = "Kitchen"
	CategoryHomeDecor = "HomeDecor"
	CategoryToys      = "Toys"
	CategoryOther     = "Other"
)

// CategoryLabels lists every category in output column order.
var CategoryLabels = []string{CategoryBags, CategoryKitchen, CategoryHomeDecor, CategoryToys, CategoryOther}

// Standard feature column names.
const (
	ColCustomerID         = "CustomerID"
	ColRecency            = "Recency"
	ColFrequency          = "Frequency"
	ColMonetary           = "Monetary"
	ColPrimaryCountry     = "PrimaryCountry"
	ColIsReferenceCountry = "IsReferenceCountry"
	CatSharePrefix        = "CatShare_"
	ClusterPrefix         = "Cluster_"
)

// CustomerFeatures is the per-customer feature row.
type CustomerFeatures struct {
	CustomerID         string
	Recency            int     // days between last purchase and the reference date
	Frequency          int     // distinct invoices
	Monetary           float64 // total revenue
	FirstPurchase      time.Time
	PrimaryCountry     string
	IsReferenceCountry bool
	CategoryShares     map[string]float64 // keyed by category label; all zero if no revenue
	CLV                *float64           // nil when the value estimator did not produce a value
}

// Value returns the named numeric feature. ok is false when the column is unknown or the
// value is missing (e.g. a nil CLV).
func (c CustomerFeatures) Value(col string) (v float64, ok bool) {
	switch col {
	case ColRecency:
		return float64(c.Recency), true
	case ColFrequency:
		return float64(c.Frequency), true
	case ColMonetary:
		return c.Monetary, true
	case ColIsReferenceCountry:
		if c.IsReferenceCountry {
			return 1, true
		}
		return 0, true
	}
	if label, found := strings.CutPrefix(col, CatSharePrefix); found {
		if !isCategory(label) {
			return 0, false
		}
		return c.CategoryShares[label], true
	}
	if IsCLVColumn(col) {
		if c.CLV == nil {
			return 0, false
		}
		return *c.CLV, true
	}
	return 0, false
}

func isCategory(label string) bool {
	for _, c := range CategoryLabels {
		if c == label {
			return true
		}
	}
	return false
}

// CLVColumn names the value column for a horizon, e.g. "CLV_6m".
func CLVColumn(horizonMonths int) string {
	return fmt.Sprintf("CLV_%dm", horizonMonths)
}

// IsCLVColumn reports whether col has the CLV_<n>m shape.
func IsCLVColumn(col string) bool {
	n, ok := strings.CutPrefix(col, "CLV_")
	if !ok {
		return false
	}
	n, ok = strings.CutSuffix(n, "m")
	if !ok {
		return false
	}
	_, err := strconv.Atoi(n)
	return err == nil
}

// CategoryShareColumns returns the CatShare_* column names in output order.
func CategoryShareColumns() []string {
	cols := make([]string, len(CategoryLabels))
	for i, c := range CategoryLabels {
		cols[i] = CatSharePrefix + c
	}
	return cols
}

/*
CONFIG → global parameters
*/

// Config holds the parameters of one pipeline run.
type Config struct {
	ReferenceDate    *time.Time // nil → last transaction + 1 day
	ReferenceCountry string
	Workers          int

	EnableCLV     bool
	HorizonMonths int

	ClusterColumns []string
	K              int
	KCandidates    []int
	Seed           uint64

	Verbose bool
}
