package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"clv-segments/pkg/models"
)

// ============================================================================
// CSV SOURCE: invoice lines → []models.Transaction
// ============================================================================
// Columns are located by header name, so column order in the file does not matter.
// StockCode is optional; every other column below is required.
// ============================================================================

const (
	colInvoiceNo   = "InvoiceNo"
	colStockCode   = "StockCode"
	colDescription = "Description"
	colQuantity    = "Quantity"
	colInvoiceDate = "InvoiceDate"
	colUnitPrice   = "UnitPrice"
	colCustomerID  = "CustomerID"
	colCountry     = "Country"
)

var requiredColumns = []string{colInvoiceNo, colDescription, colQuantity, colInvoiceDate, colUnitPrice, colCustomerID, colCountry}

// DateLayouts are tried in order when parsing InvoiceDate.
var DateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006 15:04",
	"2006-01-02",
}

// ReadCSV parses invoice lines. A missing required header is ErrMissingColumn; a value
// that cannot be parsed is ErrInvalidInput naming the line.
func ReadCSV(r io.Reader) ([]models.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, models.ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrMissingColumn, c)
		}
	}
	field := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var txs []models.Transaction
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", line, models.ErrInvalidInput, err)
		}

		qty, err := strconv.Atoi(field(row, colQuantity))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: Quantity %q", line, models.ErrInvalidInput, field(row, colQuantity))
		}
		price, err := strconv.ParseFloat(field(row, colUnitPrice), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: UnitPrice %q", line, models.ErrInvalidInput, field(row, colUnitPrice))
		}
		date, err := ParseDate(field(row, colInvoiceDate))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		txs = append(txs, models.Transaction{
			InvoiceNo:   field(row, colInvoiceNo),
			StockCode:   field(row, colStockCode),
			Description: field(row, colDescription),
			Quantity:    qty,
			InvoiceDate: date,
			UnitPrice:   price,
			CustomerID:  field(row, colCustomerID),
			Country:     field(row, colCountry),
		})
	}
	if len(txs) == 0 {
		return nil, models.ErrEmptyInput
	}
	return txs, nil
}

// ParseDate parses an InvoiceDate with the first matching layout, in UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: InvoiceDate %q", models.ErrInvalidInput, s)
}
