package features

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strconv"
	"testing"
	"time"

	"clv-segments/pkg/models"
)

var day0 = time.Date(2011, 1, 1, 9, 0, 0, 0, time.UTC)

func tx(customer, invoice string, offsetDays int, qty int, price float64, desc, country string) models.Transaction {
	return models.Transaction{
		InvoiceNo:   invoice,
		Description: desc,
		Quantity:    qty,
		InvoiceDate: day0.AddDate(0, 0, offsetDays),
		UnitPrice:   price,
		CustomerID:  customer,
		Country:     country,
	}
}

func TestAggregate_ThreeCustomerScenario(t *testing.T) {
	txs := []models.Transaction{
		tx("A", "1001", 0, 1, 10, "RED MUG", "United Kingdom"),
		tx("A", "1002", 10, 1, 10, "RED MUG", "United Kingdom"),
		tx("B", "1003", 5, 1, 100, "PARTY BAG", "France"),
	}
	rows, err := Aggregate(context.Background(), txs, Options{ReferenceCountry: "United Kingdom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	a, b := rows[0], rows[1]
	if a.CustomerID != "A" || b.CustomerID != "B" {
		t.Fatalf("unexpected order: %s, %s", a.CustomerID, b.CustomerID)
	}
	if a.Frequency != 2 || a.Monetary != 20 {
		t.Fatalf("A: got freq=%d monetary=%v, want 2 and 20", a.Frequency, a.Monetary)
	}
	if b.Frequency != 1 || b.Monetary != 100 {
		t.Fatalf("B: got freq=%d monetary=%v, want 1 and 100", b.Frequency, b.Monetary)
	}
	// Reference = day10 + 1 day.
	if a.Recency != 1 || b.Recency != 6 {
		t.Fatalf("got recency A=%d B=%d, want 1 and 6", a.Recency, b.Recency)
	}
	if !a.IsReferenceCountry || b.IsReferenceCountry {
		t.Fatalf("reference country flags wrong: A=%v B=%v", a.IsReferenceCountry, b.IsReferenceCountry)
	}
	if a.CategoryShares[models.CategoryKitchen] != 1 {
		t.Fatalf("A kitchen share = %v, want 1", a.CategoryShares[models.CategoryKitchen])
	}
	// "PARTY BAG" matches Bags before Toys.
	if b.CategoryShares[models.CategoryBags] != 1 {
		t.Fatalf("B bags share = %v, want 1", b.CategoryShares[models.CategoryBags])
	}
}

func TestAggregate_ReferenceDateOverride(t *testing.T) {
	txs := []models.Transaction{tx("A", "1", 0, 1, 5, "x", "Spain")}
	ref := day0.AddDate(0, 0, 30)
	rows, err := Aggregate(context.Background(), txs, Options{ReferenceDate: &ref})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].Recency != 30 {
		t.Fatalf("got recency %d, want 30", rows[0].Recency)
	}

	early := day0.AddDate(0, 0, -1)
	if _, err := Aggregate(context.Background(), txs, Options{ReferenceDate: &early}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestAggregate_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	descs := []string{"LUNCH BAG", "TEA CUP", "CANDLE HOLDER", "TOY CAR", "DOORMAT", "GLASS LANTERN"}
	countries := []string{"United Kingdom", "Germany", "France"}
	var txs []models.Transaction
	for i := 0; i < 600; i++ {
		c := "C" + strconv.Itoa(rng.IntN(80))
		txs = append(txs, tx(c, strconv.Itoa(rng.IntN(300)), rng.IntN(365), 1+rng.IntN(12),
			0.5+rng.Float64()*20, descs[rng.IntN(len(descs))], countries[rng.IntN(len(countries))]))
	}

	rows, err := Aggregate(context.Background(), txs, Options{Workers: 4, ReferenceCountry: "United Kingdom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	distinct := map[string]bool{}
	for _, tx := range txs {
		distinct[tx.CustomerID] = true
	}
	if len(rows) != len(distinct) {
		t.Fatalf("got %d rows, want %d", len(rows), len(distinct))
	}

	ref := ReferenceDate(txs)
	seen := map[string]bool{}
	for _, r := range rows {
		if seen[r.CustomerID] {
			t.Fatalf("duplicate customer %s", r.CustomerID)
		}
		seen[r.CustomerID] = true

		maxRecency := int(ref.Sub(r.FirstPurchase) / day)
		if r.Recency < 0 || r.Recency > maxRecency {
			t.Fatalf("customer %s recency %d outside [0, %d]", r.CustomerID, r.Recency, maxRecency)
		}
		sum := 0.0
		for _, label := range models.CategoryLabels {
			sum += r.CategoryShares[label]
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("customer %s shares sum to %v", r.CustomerID, sum)
		}
	}

	// Worker count must not change the result.
	serial, err := Aggregate(context.Background(), txs, Options{Workers: 1, ReferenceCountry: "United Kingdom"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range rows {
		if rows[i].CustomerID != serial[i].CustomerID || rows[i].Monetary != serial[i].Monetary {
			t.Fatalf("row %d differs between worker counts", i)
		}
	}
}

func TestAggregate_ZeroRevenueShares(t *testing.T) {
	txs := []models.Transaction{tx("Z", "1", 0, 1, 0, "RED MUG", "Italy")}
	rows, err := Aggregate(context.Background(), txs, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for label, share := range rows[0].CategoryShares {
		if share != 0 {
			t.Fatalf("share %s = %v, want 0", label, share)
		}
	}
}

func TestAggregate_DominantCountryTie(t *testing.T) {
	txs := []models.Transaction{
		tx("A", "1", 0, 1, 50, "x", "Norway"),
		tx("A", "2", 1, 1, 50, "x", "Sweden"),
		tx("A", "3", 2, 1, 10, "x", "Denmark"),
	}
	rows, err := Aggregate(context.Background(), txs, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].PrimaryCountry != "Norway" {
		t.Fatalf("got %q, want first-seen Norway", rows[0].PrimaryCountry)
	}
}

func TestAggregate_InputErrors(t *testing.T) {
	if _, err := Aggregate(context.Background(), nil, Options{}); !errors.Is(err, models.ErrEmptyInput) {
		t.Fatalf("got %v, want ErrEmptyInput", err)
	}
	missing := []models.Transaction{tx("", "1", 0, 1, 1, "x", "UK")}
	if _, err := Aggregate(context.Background(), missing, Options{}); !errors.Is(err, models.ErrMissingColumn) {
		t.Fatalf("got %v, want ErrMissingColumn", err)
	}
	noDate := []models.Transaction{{InvoiceNo: "1", CustomerID: "A", Quantity: 1, UnitPrice: 1}}
	if _, err := Aggregate(context.Background(), noDate, Options{}); !errors.Is(err, models.ErrMissingColumn) {
		t.Fatalf("got %v, want ErrMissingColumn", err)
	}
}

func TestCategorize(t *testing.T) {
	cases := map[string]string{
		"JUMBO BAG RED RETROSPOT":            models.CategoryBags,
		"WHITE HANGING HEART T-LIGHT HOLDER": models.CategoryHomeDecor,
		"SET OF 3 CAKE TINS":                 models.CategoryOther,
		"PARTY BUNTING":                      models.CategoryToys,
		"Mug Cosy":                           models.CategoryKitchen,
		"CUP LAMP":                           models.CategoryKitchen,
	}
	for desc, want := range cases {
		if got := Categorize(desc); got != want {
			t.Fatalf("Categorize(%q) = %q, want %q", desc, got, want)
		}
	}
}
