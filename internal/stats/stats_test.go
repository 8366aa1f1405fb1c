// ABOUTME: Tests for revenue aggregation, recent orders and exports
// ABOUTME: Lines are built in memory; no store is involved

package stats

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/picco-crm/picco/internal/store"
)

func line(agentID, agentName, productID, productName string, qty int, price int64, at time.Time) *Line {
	return &Line{
		Order: store.Order{
			ID:        agentID + productID + at.Format(time.RFC3339Nano),
			AgentID:   agentID,
			ProductID: productID,
			StoreID:   "s1",
			Quantity:  qty,
			UnitPrice: decimal.NewFromInt(price),
			CreatedAt: at,
		},
		AgentName:   agentName,
		ProductName: productName,
		StoreName:   "Corner",
	}
}

func TestAggregate_Totals(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	lines := []*Line{
		line("a1", "Ali", "p1", "Cola", 2, 100, at),
		line("a1", "Ali", "p2", "Bread", 1, 50, at.Add(time.Hour)),
	}

	s := Aggregate(lines, time.UTC)

	assert.Equal(t, 3, s.Totals.TotalQuantity)
	assert.True(t, s.Totals.TotalRevenue.Equal(decimal.NewFromInt(250)), "revenue %s", s.Totals.TotalRevenue)
	assert.Equal(t, 2, s.Totals.OrderCount)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil, time.UTC)
	assert.Zero(t, s.Totals.OrderCount)
	assert.True(t, s.Totals.TotalRevenue.IsZero())
	assert.NotNil(t, s.Monthly)
	assert.Empty(t, s.Monthly)
	assert.Empty(t, s.PerAgent)
}

func TestAggregate_MonthlyBucketsAscending(t *testing.T) {
	lines := []*Line{
		line("a1", "Ali", "p1", "Cola", 1, 10, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)),
		line("a1", "Ali", "p1", "Cola", 2, 10, time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)),
		line("a1", "Ali", "p1", "Cola", 3, 10, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
	}

	s := Aggregate(lines, time.UTC)

	require.Len(t, s.Monthly, 2)
	assert.Equal(t, "2024-03", s.Monthly[0].Month)
	assert.Equal(t, 5, s.Monthly[0].TotalQuantity)
	assert.True(t, s.Monthly[0].TotalRevenue.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "2024-05", s.Monthly[1].Month)
}

func TestAggregate_MonthUsesLocation(t *testing.T) {
	tashkent := time.FixedZone("UTC+5", 5*60*60)
	// 21:00 UTC on March 31 is already April in UTC+5.
	lines := []*Line{line("a1", "Ali", "p1", "Cola", 1, 10, time.Date(2024, 3, 31, 21, 0, 0, 0, time.UTC))}

	assert.Equal(t, "2024-03", Aggregate(lines, time.UTC).Monthly[0].Month)
	assert.Equal(t, "2024-04", Aggregate(lines, tashkent).Monthly[0].Month)
}

func TestAggregate_PerAgentAndProductOrdering(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lines := []*Line{
		line("a1", "Zed", "p1", "Cola", 1, 100, at),
		line("a2", "Ali", "p2", "Bread", 1, 100, at),
		line("a3", "Bob", "p1", "Cola", 3, 100, at),
	}

	s := Aggregate(lines, time.UTC)

	require.Len(t, s.PerAgent, 3)
	assert.Equal(t, "Bob", s.PerAgent[0].AgentName)
	assert.Equal(t, "Ali", s.PerAgent[1].AgentName, "ties broken by name")
	assert.Equal(t, "Zed", s.PerAgent[2].AgentName)

	require.Len(t, s.PerProduct, 2)
	assert.Equal(t, "Cola", s.PerProduct[0].ProductName)
	assert.Equal(t, 4, s.PerProduct[0].TotalQuantity)
	assert.True(t, s.PerProduct[0].TotalRevenue.Equal(decimal.NewFromInt(400)))
}

func TestRecent(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var lines []*Line
	for i := range 15 {
		lines = append(lines, line("a1", "Ali", "p1", "Cola", i+1, 1, base.Add(time.Duration(i)*time.Hour)))
	}

	recent := Recent(lines, 10)
	require.Len(t, recent, 10)
	assert.Equal(t, 15, recent[0].Quantity)
	assert.Equal(t, 6, recent[9].Quantity)
	assert.Equal(t, 1, lines[0].Quantity, "input order preserved")

	assert.Len(t, Recent(lines[:3], 10), 3)
}

func TestTotalsFor(t *testing.T) {
	at := time.Now()
	lines := []*Line{
		line("a1", "Ali", "p1", "Cola", 2, 100, at),
		line("a2", "Vali", "p1", "Cola", 5, 100, at),
		line("a1", "Ali", "p2", "Bread", 1, 50, at),
	}

	got := TotalsFor(lines, "a1")
	assert.Equal(t, 3, got.TotalQuantity)
	assert.True(t, got.TotalRevenue.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, 2, got.OrderCount)
}

func TestWriteCSV(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	lines := []*Line{line("a1", "Ali, Jr.", "p1", "Cola", 2, 100, at)}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, lines, time.UTC))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeaders, records[0])
	assert.Equal(t, []string{"2024-03-10 12:30", "Ali, Jr.", "Cola", "Corner", "2", "100.00", "200.00"}, records[1])
}

func TestWriteXLSX(t *testing.T) {
	at := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	lines := []*Line{
		line("a1", "Ali", "p1", "Cola", 2, 100, at),
		line("a1", "Ali", "p2", "Bread", 1, 50, at.AddDate(0, 1, 0)),
	}
	summary := Aggregate(lines, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, lines, summary, time.UTC))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ordersSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Agent", rows[0][1])
	assert.Equal(t, "Cola", rows[1][2])

	summaryRows, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, "Total Revenue", summaryRows[2][0])
	assert.Equal(t, "250", summaryRows[2][1])
	assert.Equal(t, "2024-04", summaryRows[6][0])
}

func TestNewPDFReport(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.FixedZone("X", 3600))
	s := Aggregate([]*Line{line("a1", "Ali", "p1", "Cola", 1, 10, now)}, time.UTC)

	r := NewPDFReport(s, now)
	assert.Equal(t, FormatPDF, r.Format)
	assert.Equal(t, time.UTC, r.GeneratedAt.Location())
	assert.Equal(t, 1, r.Totals.OrderCount)
	assert.Len(t, r.Monthly, 1)
}
