// ABOUTME: Handlers for the agent panel: orders, stores, products and personal stats
// ABOUTME: Agents are identified by ID in the request; these routes carry no bearer token

package httpapi

import (
	"net/http"

	"github.com/picco-crm/picco/internal/apperr"
	"github.com/picco-crm/picco/internal/orders"
	"github.com/picco-crm/picco/internal/stats"
	"github.com/picco-crm/picco/internal/store"
)

const recentOrders = 10

// handleCreateOrder handles POST /api/agent/orders.
func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	qty, err := req.quantity()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.orders.Create(r.Context(), orders.CreateRequest{
		AgentID:   req.UserID,
		ProductID: req.ProductID,
		StoreID:   req.StoreID,
		Quantity:  qty,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"order": order})
}

// handleAgentOrders handles GET /api/agent/orders/{userId}, newest first.
func (s *Server) handleAgentOrders(w http.ResponseWriter, r *http.Request) {
	lines, err := s.orders.ListForAgent(r.Context(), r.PathValue("userId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": nonNil(lines)})
}

// handleAgentStores handles GET /api/agent/stores/{agentId}. The result
// includes unassigned stores, which any agent may sell to.
func (s *Server) handleAgentStores(w http.ResponseWriter, r *http.Request) {
	outlets, err := s.store.ListOutlets(r.Context(), store.OutletFilter{
		AgentID:           r.PathValue("agentId"),
		IncludeUnassigned: true,
	})
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing stores", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": nonNil(outlets)})
}

// handleAgentCreateStore handles POST /api/agent/stores. The new store is
// assigned to the submitting agent.
func (s *Server) handleAgentCreateStore(w http.ResponseWriter, r *http.Request) {
	var req agentStoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.check(req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := checkLocation(req.Location); err != nil {
		s.writeError(w, r, err)
		return
	}

	agentID := req.AgentID
	outlet := &store.Outlet{
		Name:     req.Name,
		Phone:    req.Phone,
		Address:  req.Address,
		Location: normalizeLocation(req.Location),
		AgentID:  &agentID,
	}
	if err := s.store.CreateOutlet(r.Context(), outlet); err != nil {
		s.writeError(w, r, storeError(err, "agent"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"store": outlet})
}

// handleListProducts serves both GET /api/agent/products and the admin list.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing products", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": nonNil(products)})
}

// agentStatsResponse is the personal dashboard of one agent.
type agentStatsResponse struct {
	Agent        *store.Agent  `json:"agent"`
	Summary      stats.Summary `json:"summary"`
	RecentOrders []*stats.Line `json:"recentOrders"`
}

// handleAgentStats serves GET /api/agent/stats/{userId} and the public
// GET /api/stats/agent/{userId}.
func (s *Server) handleAgentStats(w http.ResponseWriter, r *http.Request) {
	agentID := r.PathValue("userId")
	agent, err := s.store.GetAgent(r.Context(), agentID)
	if err != nil {
		s.writeError(w, r, storeError(err, "agent"))
		return
	}

	lines, err := s.orders.ListForAgent(r.Context(), agentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agentStatsResponse{
		Agent:        agent,
		Summary:      stats.Aggregate(lines, s.loc),
		RecentOrders: nonNil(stats.Recent(lines, recentOrders)),
	})
}

// nonNil makes empty results encode as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
