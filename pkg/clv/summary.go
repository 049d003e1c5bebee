package clv

import (
	"fmt"
	"time"

	"clv-segments/pkg/models"
)

// Summary is the per-customer input of the value models, at daily granularity.
type Summary struct {
	CustomerID    string
	Frequency     int     // repeat purchase days (distinct purchase days - 1)
	Recency       float64 // days between first and last purchase day
	T             float64 // days between first purchase day and the end of observation
	MonetaryValue float64 // mean revenue of the repeat purchase days, 0 without repeats
}

// Summarize builds one Summary per customer, ordered by first appearance.
// observationEnd defaults to the day of the latest transaction.
func Summarize(txs []models.Transaction, observationEnd *time.Time) ([]Summary, error) {
	if len(txs) == 0 {
		return nil, models.ErrEmptyInput
	}

	type purchaseDays struct {
		order   []time.Time
		revenue map[time.Time]float64
	}

	order := make([]string, 0)
	byCustomer := make(map[string]*purchaseDays)
	var last time.Time
	for i, tx := range txs {
		if tx.CustomerID == "" {
			return nil, fmt.Errorf("row %d: %w: %s", i, models.ErrMissingColumn, models.ColCustomerID)
		}
		if tx.InvoiceDate.IsZero() {
			return nil, fmt.Errorf("row %d: %w: InvoiceDate", i, models.ErrMissingColumn)
		}
		d := truncateDay(tx.InvoiceDate)
		if d.After(last) {
			last = d
		}
		pd, ok := byCustomer[tx.CustomerID]
		if !ok {
			pd = &purchaseDays{revenue: make(map[time.Time]float64)}
			byCustomer[tx.CustomerID] = pd
			order = append(order, tx.CustomerID)
		}
		if _, seen := pd.revenue[d]; !seen {
			pd.order = append(pd.order, d)
		}
		pd.revenue[d] += tx.Revenue()
	}

	end := last
	if observationEnd != nil {
		end = truncateDay(*observationEnd)
		if end.Before(last) {
			return nil, fmt.Errorf("%w: observation end %s precedes last transaction day %s",
				models.ErrInvalidInput, end.Format(time.DateOnly), last.Format(time.DateOnly))
		}
	}

	out := make([]Summary, 0, len(order))
	for _, id := range order {
		pd := byCustomer[id]
		first, lastDay := pd.order[0], pd.order[0]
		for _, d := range pd.order {
			if d.Before(first) {
				first = d
			}
			if d.After(lastDay) {
				lastDay = d
			}
		}

		s := Summary{
			CustomerID: id,
			Frequency:  len(pd.order) - 1,
			Recency:    days(lastDay.Sub(first)),
			T:          days(end.Sub(first)),
		}
		if s.Frequency > 0 {
			total := 0.0
			for d, rev := range pd.revenue {
				if !d.Equal(first) {
					total += rev
				}
			}
			s.MonetaryValue = total / float64(s.Frequency)
		}
		out = append(out, s)
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func days(d time.Duration) float64 {
	return float64(d / (24 * time.Hour))
}
