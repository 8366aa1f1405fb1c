// ABOUTME: Revenue rollups derived from order lines
// ABOUTME: Pure functions; every call recomputes from the lines it is given

package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/picco-crm/picco/internal/store"
)

// Line is an order joined with the names of what it references.
type Line = store.OrderLine

// Totals sums quantity and revenue over a set of orders.
type Totals struct {
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	OrderCount    int             `json:"orderCount"`
}

func (t *Totals) add(l *Line) {
	t.TotalQuantity += l.Quantity
	t.TotalRevenue = t.TotalRevenue.Add(l.Revenue())
	t.OrderCount++
}

// Month is the rollup for one calendar month, keyed "YYYY-MM".
type Month struct {
	Month         string          `json:"month"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

// AgentTotals is the rollup for one agent.
type AgentTotals struct {
	AgentID       string          `json:"agentId"`
	AgentName     string          `json:"agentName"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

// ProductTotals is the rollup for one product.
type ProductTotals struct {
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName"`
	TotalQuantity int             `json:"totalQuantity"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
}

// Summary is the full aggregation result.
type Summary struct {
	Totals     Totals          `json:"totals"`
	Monthly    []Month         `json:"monthly"`
	PerAgent   []AgentTotals   `json:"perAgent"`
	PerProduct []ProductTotals `json:"perProduct"`
}

// Aggregate rolls lines up into totals, months (in loc, ascending) and
// per-agent and per-product rows (revenue descending, then name).
// A nil loc means time.Local.
func Aggregate(lines []*Line, loc *time.Location) Summary {
	if loc == nil {
		loc = time.Local
	}

	var totals Totals
	months := map[string]*Month{}
	agents := map[string]*AgentTotals{}
	products := map[string]*ProductTotals{}

	for _, l := range lines {
		totals.add(l)
		revenue := l.Revenue()

		key := l.CreatedAt.In(loc).Format("2006-01")
		m, ok := months[key]
		if !ok {
			m = &Month{Month: key}
			months[key] = m
		}
		m.TotalQuantity += l.Quantity
		m.TotalRevenue = m.TotalRevenue.Add(revenue)

		a, ok := agents[l.AgentID]
		if !ok {
			a = &AgentTotals{AgentID: l.AgentID, AgentName: l.AgentName}
			agents[l.AgentID] = a
		}
		a.TotalQuantity += l.Quantity
		a.TotalRevenue = a.TotalRevenue.Add(revenue)

		p, ok := products[l.ProductID]
		if !ok {
			p = &ProductTotals{ProductID: l.ProductID, ProductName: l.ProductName}
			products[l.ProductID] = p
		}
		p.TotalQuantity += l.Quantity
		p.TotalRevenue = p.TotalRevenue.Add(revenue)
	}

	summary := Summary{
		Totals:     totals,
		Monthly:    make([]Month, 0, len(months)),
		PerAgent:   make([]AgentTotals, 0, len(agents)),
		PerProduct: make([]ProductTotals, 0, len(products)),
	}
	for _, m := range months {
		summary.Monthly = append(summary.Monthly, *m)
	}
	sort.Slice(summary.Monthly, func(i, j int) bool {
		return summary.Monthly[i].Month < summary.Monthly[j].Month
	})

	for _, a := range agents {
		summary.PerAgent = append(summary.PerAgent, *a)
	}
	sort.Slice(summary.PerAgent, func(i, j int) bool {
		return byRevenueThenName(summary.PerAgent[i].TotalRevenue, summary.PerAgent[j].TotalRevenue,
			summary.PerAgent[i].AgentName, summary.PerAgent[j].AgentName)
	})

	for _, p := range products {
		summary.PerProduct = append(summary.PerProduct, *p)
	}
	sort.Slice(summary.PerProduct, func(i, j int) bool {
		return byRevenueThenName(summary.PerProduct[i].TotalRevenue, summary.PerProduct[j].TotalRevenue,
			summary.PerProduct[i].ProductName, summary.PerProduct[j].ProductName)
	})

	return summary
}

func byRevenueThenName(ri, rj decimal.Decimal, ni, nj string) bool {
	if c := ri.Cmp(rj); c != 0 {
		return c > 0
	}
	return ni < nj
}

// Recent returns up to n lines, newest first. The input is not modified.
func Recent(lines []*Line, n int) []*Line {
	sorted := make([]*Line, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// TotalsFor sums the lines belonging to one agent.
func TotalsFor(lines []*Line, agentID string) Totals {
	var t Totals
	for _, l := range lines {
		if l.AgentID == agentID {
			t.add(l)
		}
	}
	return t
}
