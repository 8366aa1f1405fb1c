// ABOUTME: Order exports: CSV rows, an XLSX workbook and the JSON PDF stand-in
// ABOUTME: All exporters take already-loaded lines and write to an io.Writer

package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// Export formats accepted by the export endpoint.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

var exportHeaders = []string{"Date", "Agent", "Product", "Store", "Quantity", "Unit Price", "Revenue"}

const exportDateLayout = "2006-01-02 15:04"

// WriteCSV writes one row per order after a header row.
func WriteCSV(w io.Writer, lines []*Line, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, l := range lines {
		record := []string{
			l.CreatedAt.In(loc).Format(exportDateLayout),
			l.AgentName,
			l.ProductName,
			l.StoreName,
			strconv.Itoa(l.Quantity),
			l.UnitPrice.StringFixed(2),
			l.Revenue().StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

const (
	ordersSheet  = "Orders"
	summarySheet = "Summary"
)

// WriteXLSX writes a workbook with an Orders sheet (one row per order) and a
// Summary sheet (totals and monthly rollup).
func WriteXLSX(w io.Writer, lines []*Line, summary Summary, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default sheet becomes Orders and stays active.
	if err := f.SetSheetName(f.GetSheetName(0), ordersSheet); err != nil {
		return fmt.Errorf("creating orders sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := writeRow(f, ordersSheet, 1, header); err != nil {
		return err
	}
	if err := f.SetRowStyle(ordersSheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, l := range lines {
		row := []any{
			l.CreatedAt.In(loc).Format(exportDateLayout),
			l.AgentName,
			l.ProductName,
			l.StoreName,
			l.Quantity,
			l.UnitPrice.InexactFloat64(),
			l.Revenue().InexactFloat64(),
		}
		if err := writeRow(f, ordersSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(ordersSheet, "A", "D", 20); err != nil {
		return fmt.Errorf("setting column width: %w", err)
	}

	summaryRows := [][]any{
		{"Orders", summary.Totals.OrderCount},
		{"Total Quantity", summary.Totals.TotalQuantity},
		{"Total Revenue", summary.Totals.TotalRevenue.InexactFloat64()},
		{},
		{"Month", "Quantity", "Revenue"},
	}
	for _, m := range summary.Monthly {
		summaryRows = append(summaryRows, []any{m.Month, m.TotalQuantity, m.TotalRevenue.InexactFloat64()})
	}
	for i, row := range summaryRows {
		if len(row) == 0 {
			continue
		}
		if err := writeRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(summarySheet, 5, 5, headerStyle); err != nil {
		return fmt.Errorf("styling summary header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("converting coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

// PDFReport is returned in place of a rendered PDF.
type PDFReport struct {
	Format      string    `json:"format"`
	GeneratedAt time.Time `json:"generatedAt"`
	Totals      Totals    `json:"totals"`
	Monthly     []Month   `json:"monthly"`
}

// NewPDFReport builds the PDF stand-in payload from a summary.
func NewPDFReport(summary Summary, now time.Time) PDFReport {
	return PDFReport{
		Format:      FormatPDF,
		GeneratedAt: now.UTC(),
		Totals:      summary.Totals,
		Monthly:     summary.Monthly,
	}
}
