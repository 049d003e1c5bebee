package features

import (
	"context"
	"fmt"
	"time"

	"clv-segments/pkg/models"

	"golang.org/x/sync/errgroup"
)

const day = 24 * time.Hour

// Options controls aggregation.
type Options struct {
	ReferenceDate    *time.Time // nil → last transaction + 1 day
	ReferenceCountry string
	Workers          int // customer partitions aggregated concurrently; <1 means 1
}

// Aggregate turns transaction lines into one feature row per distinct customer id,
// ordered by first appearance in txs. CLV is left nil.
func Aggregate(ctx context.Context, txs []models.Transaction, opts Options) ([]models.CustomerFeatures, error) {
	if err := Validate(txs); err != nil {
		return nil, err
	}

	ref := ReferenceDate(txs)
	if opts.ReferenceDate != nil {
		ref = *opts.ReferenceDate
	}

	// Group line indices per customer, keeping first-seen order.
	order := make([]string, 0)
	byCustomer := make(map[string][]int)
	for i, tx := range txs {
		if _, exists := byCustomer[tx.CustomerID]; !exists {
			order = append(order, tx.CustomerID)
		}
		byCustomer[tx.CustomerID] = append(byCustomer[tx.CustomerID], i)
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(order) {
		workers = len(order)
	}

	out := make([]models.CustomerFeatures, len(order))
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			// Each worker owns the customers at positions w, w+workers, ...
			for i := w; i < len(order); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				row, err := summarizeCustomer(order[i], txs, byCustomer[order[i]], ref, opts.ReferenceCountry)
				if err != nil {
					return err
				}
				out[i] = row
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks that every line carries the fields aggregation depends on.
func Validate(txs []models.Transaction) error {
	if len(txs) == 0 {
		return models.ErrEmptyInput
	}
	for i, tx := range txs {
		switch {
		case tx.CustomerID == "":
			return fmt.Errorf("row %d: %w: %s", i, models.ErrMissingColumn, models.ColCustomerID)
		case tx.InvoiceNo == "":
			return fmt.Errorf("row %d: %w: InvoiceNo", i, models.ErrMissingColumn)
		case tx.InvoiceDate.IsZero():
			return fmt.Errorf("row %d: %w: InvoiceDate", i, models.ErrMissingColumn)
		}
	}
	return nil
}

// ReferenceDate is the default reference: the latest transaction timestamp plus one day.
func ReferenceDate(txs []models.Transaction) time.Time {
	var last time.Time
	for _, tx := range txs {
		if tx.InvoiceDate.After(last) {
			last = tx.InvoiceDate
		}
	}
	return last.Add(day)
}

func summarizeCustomer(id string, txs []models.Transaction, idx []int, ref time.Time, refCountry string) (models.CustomerFeatures, error) {
	row := models.CustomerFeatures{
		CustomerID:     id,
		CategoryShares: make(map[string]float64, len(models.CategoryLabels)),
	}

	var last time.Time
	invoices := make(map[string]struct{})
	catRevenue := make(map[string]float64)
	countryRevenue := make(map[string]float64)
	countryOrder := make([]string, 0, 1)

	for n, i := range idx {
		tx := txs[i]
		rev := tx.Revenue()
		if n == 0 || tx.InvoiceDate.Before(row.FirstPurchase) {
			row.FirstPurchase = tx.InvoiceDate
		}
		if tx.InvoiceDate.After(last) {
			last = tx.InvoiceDate
		}
		invoices[tx.InvoiceNo] = struct{}{}
		row.Monetary += rev
		catRevenue[Categorize(tx.Description)] += rev
		if _, seen := countryRevenue[tx.Country]; !seen {
			countryOrder = append(countryOrder, tx.Country)
		}
		countryRevenue[tx.Country] += rev
	}

	if ref.Before(last) {
		return row, fmt.Errorf("customer %s: %w: reference date %s precedes last transaction %s",
			id, models.ErrInvalidInput, ref.Format(time.DateOnly), last.Format(time.DateOnly))
	}
	row.Recency = int(ref.Sub(last) / day)
	row.Frequency = len(invoices)

	for _, label := range models.CategoryLabels {
		share := 0.0
		if row.Monetary > 0 {
			share = catRevenue[label] / row.Monetary
		}
		row.CategoryShares[label] = share
	}

	best := 0
	for i, c := range countryOrder {
		if countryRevenue[c] > countryRevenue[countryOrder[best]] {
			best = i
		}
	}
	row.PrimaryCountry = countryOrder[best]
	row.IsReferenceCountry = row.PrimaryCountry == refCountry

	return row, nil
}
