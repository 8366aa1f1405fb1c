// ABOUTME: Handlers for the admin dashboard summary and order exports
// ABOUTME: Exports stream CSV or XLSX attachments; pdf returns a JSON stand-in

package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/picco-crm/picco/internal/apperr"
	"github.com/picco-crm/picco/internal/stats"
	"github.com/picco-crm/picco/internal/store"
)

// Counts is the size of each directory table.
type Counts struct {
	Agents   int `json:"agents"`
	Products int `json:"products"`
	Stores   int `json:"stores"`
}

type adminStatsResponse struct {
	Summary      stats.Summary `json:"summary"`
	RecentOrders []*stats.Line `json:"recentOrders"`
	Counts       Counts        `json:"counts"`
}

// handleAdminStats handles GET /api/stats/admin.
func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lines, err := s.store.ListOrderLines(ctx, store.OrderFilter{})
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing orders", err))
		return
	}

	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing agents", err))
		return
	}
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing products", err))
		return
	}
	outlets, err := s.store.ListOutlets(ctx, store.OutletFilter{})
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing stores", err))
		return
	}

	writeJSON(w, http.StatusOK, adminStatsResponse{
		Summary:      stats.Aggregate(lines, s.loc),
		RecentOrders: nonNil(stats.Recent(lines, recentOrders)),
		Counts:       Counts{Agents: len(agents), Products: len(products), Stores: len(outlets)},
	})
}

// handleExport handles GET /api/stats/export?format=csv|xlsx|pdf.
// The format defaults to csv.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = stats.FormatCSV
	}
	switch format {
	case stats.FormatCSV, stats.FormatXLSX, stats.FormatPDF:
	default:
		s.writeError(w, r, apperr.Validation("unsupported format").WithDetails(map[string]any{
			"supported": []string{stats.FormatCSV, stats.FormatXLSX, stats.FormatPDF},
		}))
		return
	}

	lines, err := s.store.ListOrderLines(r.Context(), store.OrderFilter{})
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing orders", err))
		return
	}
	now := s.now()

	if format == stats.FormatPDF {
		writeJSON(w, http.StatusOK, stats.NewPDFReport(stats.Aggregate(lines, s.loc), now))
		return
	}

	// Render fully before writing headers so a failure can still become a 500.
	var buf bytes.Buffer
	var contentType string
	switch format {
	case stats.FormatCSV:
		contentType = "text/csv; charset=utf-8"
		err = stats.WriteCSV(&buf, lines, s.loc)
	case stats.FormatXLSX:
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = stats.WriteXLSX(&buf, lines, stats.Aggregate(lines, s.loc), s.loc)
	}
	if err != nil {
		s.writeError(w, r, apperr.Upstream("rendering export", err))
		return
	}

	filename := fmt.Sprintf("picco-orders-%s.%s", now.In(s.loc).Format("20060102"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
