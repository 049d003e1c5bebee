package ingest

import (
	"clv-segments/pkg/models"
)

// CleanStats counts what Clean removed.
type CleanStats struct {
	Read            int
	MissingCustomer int
	NonPositive     int // quantity or unit price <= 0 (returns, adjustments)
	Duplicates      int
	Kept            int
}

// Clean drops lines without a customer, returns and zero-priced lines, and exact
// duplicates, keeping the first occurrence.
func Clean(txs []models.Transaction) ([]models.Transaction, CleanStats) {
	stats := CleanStats{Read: len(txs)}
	seen := make(map[models.Transaction]struct{}, len(txs))
	out := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		switch {
		case tx.CustomerID == "":
			stats.MissingCustomer++
			continue
		case tx.Quantity <= 0 || tx.UnitPrice <= 0:
			stats.NonPositive++
			continue
		}
		key := tx
		key.InvoiceDate = tx.InvoiceDate.UTC()
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tx)
	}
	stats.Kept = len(out)
	return out, stats
}
