package ingest

import (
	"errors"
	"strings"
	"testing"
	"time"

	"clv-segments/pkg/models"
)

const sampleCSV = `InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country
536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,2010-12-01 08:26:00,2.55,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26:00,3.39,17850,United Kingdom
536365,71053,WHITE METAL LANTERN,6,2010-12-01 08:26:00,3.39,17850,United Kingdom
C536379,D,Discount,-1,2010-12-01 09:41:00,27.50,14527,United Kingdom
536414,22139,,56,12/1/2010 11:52,0,,United Kingdom
536370,22728,ALARM CLOCK BAKELIKE PINK,24,2010-12-01T08:45:00,3.75,12583,France
`

func TestReadCSV(t *testing.T) {
	txs, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 6 {
		t.Fatalf("got %d lines, want 6", len(txs))
	}
	first := txs[0]
	if first.CustomerID != "17850" || first.Quantity != 6 || first.UnitPrice != 2.55 {
		t.Fatalf("unexpected first line: %+v", first)
	}
	want := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	if !first.InvoiceDate.Equal(want) {
		t.Fatalf("got %v, want %v", first.InvoiceDate, want)
	}
	if got := txs[4].InvoiceDate; !got.Equal(time.Date(2010, 12, 1, 11, 52, 0, 0, time.UTC)) {
		t.Fatalf("slash layout parsed as %v", got)
	}
}

func TestReadCSV_MissingColumn(t *testing.T) {
	in := "InvoiceNo,Description,Quantity,InvoiceDate,UnitPrice,Country\n1,x,1,2011-01-01,1,UK\n"
	_, err := ReadCSV(strings.NewReader(in))
	if !errors.Is(err, models.ErrMissingColumn) {
		t.Fatalf("got %v, want ErrMissingColumn", err)
	}
	if !strings.Contains(err.Error(), "CustomerID") {
		t.Fatalf("error should name the column: %v", err)
	}
}

func TestReadCSV_BadValue(t *testing.T) {
	in := "InvoiceNo,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n1,x,many,2011-01-01,1,7,UK\n"
	if _, err := ReadCSV(strings.NewReader(in)); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestReadCSV_Empty(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, models.ErrEmptyInput) {
		t.Fatalf("got %v, want ErrEmptyInput", err)
	}
}

func TestClean(t *testing.T) {
	txs, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kept, stats := Clean(txs)
	if stats.Duplicates != 1 || stats.NonPositive != 1 || stats.MissingCustomer != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(kept) != 3 || stats.Kept != 3 {
		t.Fatalf("kept %d lines, want 3", len(kept))
	}
	for _, tx := range kept {
		if tx.Revenue() <= 0 {
			t.Fatalf("kept non-positive line %+v", tx)
		}
	}
}
