// Package export writes a transaction history as a downloadable file.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/xuri/excelize/v2"
	"io"
	"strings"
	"time"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat defaults to CSV when s is empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) FileName(prefix string) string {
	return prefix + "." + string(f)
}

// Source streams the rows to export in listing order.
type Source func(ctx context.Context, fn func(models.Transaction) error) error

var header = []string{"id", "created_at", "type", "balance_type", "direction", "amount", "status", "description", "reference_id"}

func row(t models.Transaction) []string {
	return []string{
		t.ID.String(),
		t.CreatedAt.UTC().Format(time.RFC3339),
		string(t.Type),
		string(t.BalanceType),
		string(t.Direction),
		t.Amount.StringFixed(models.MoneyScale),
		string(t.Status),
		t.Description,
		t.ReferenceID,
	}
}

// Write renders every row from src into w and returns the number of rows written.
func Write(ctx context.Context, w io.Writer, f Format, src Source) (int, error) {
	switch f {
	case FormatXLSX:
		return writeXLSX(ctx, w, src)
	case FormatCSV:
		return writeCSV(ctx, w, src)
	}
	return 0, fmt.Errorf("unsupported export format %q", f)
}

func writeCSV(ctx context.Context, w io.Writer, src Source) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, err
	}
	n := 0
	err := src(ctx, func(t models.Transaction) error {
		n++
		return cw.Write(row(t))
	})
	if err != nil {
		return n, err
	}
	cw.Flush()
	return n, cw.Error()
}

const sheetName = "Transactions"

func writeXLSX(ctx context.Context, w io.Writer, src Source) (int, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return 0, err
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return 0, err
	}
	if err := sw.SetRow("A1", toCells(header)); err != nil {
		return 0, err
	}

	n := 0
	err = src(ctx, func(t models.Transaction) error {
		n++
		cell, err := excelize.CoordinatesToCellName(1, n+1)
		if err != nil {
			return err
		}
		values := toCells(row(t))
		// amount as a number so spreadsheets can sum it
		values[5] = t.Amount.InexactFloat64()
		return sw.SetRow(cell, values)
	})
	if err != nil {
		return n, err
	}
	if err := sw.Flush(); err != nil {
		return n, err
	}
	if _, err := f.WriteTo(w); err != nil {
		return n, err
	}
	return n, nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
