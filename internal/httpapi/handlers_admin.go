// ABOUTME: Handlers for the admin panel: catalog CRUD, agents, admin accounts and reset
// ABOUTME: All routes here require a bearer token; some require the super-admin role

package httpapi

import (
	"net/http"

	"github.com/picco-crm/picco/internal/apperr"
	"github.com/picco-crm/picco/internal/auth"
	"github.com/picco-crm/picco/internal/stats"
	"github.com/picco-crm/picco/internal/store"
)

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.check(req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := checkPrice(req.Price); err != nil {
		s.writeError(w, r, err)
		return
	}

	p := &store.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       req.Stock,
	}
	if err := s.store.CreateProduct(r.Context(), p); err != nil {
		s.writeError(w, r, apperr.Upstream("creating product", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": p})
}

// handleUpdateProduct handles PUT /api/admin/products/{id}. Only fields
// present in the body change; "stock": null stops tracking inventory.
func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.check(req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := checkPrice(req.Price); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := checkStock(req.Stock.Value); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.store.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, storeError(err, "product"))
		return
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Stock.Set {
		p.Stock = req.Stock.Value
	}

	if err := s.store.UpdateProduct(r.Context(), p); err != nil {
		s.writeError(w, r, storeError(err, "product"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

// handleDeleteProduct handles DELETE /api/admin/products/{id}.
// Products referenced by orders cannot be deleted.
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, storeError(err, "product"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	outlets, err := s.store.ListOutlets(r.Context(), store.OutletFilter{})
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing stores", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": nonNil(outlets)})
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.AgentID != nil && *req.AgentID == "" {
		req.AgentID = nil
	}
	if err := s.check(req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := checkLocation(req.Location); err != nil {
		s.writeError(w, r, err)
		return
	}

	outlet := &store.Outlet{
		Name:     req.Name,
		Phone:    req.Phone,
		Address:  req.Address,
		Location: normalizeLocation(req.Location),
		AgentID:  req.AgentID,
	}
	if err := s.store.CreateOutlet(r.Context(), outlet); err != nil {
		s.writeError(w, r, storeError(err, "agent"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"store": outlet})
}

// handleUpdateStore handles PUT /api/admin/stores/{id}. "agentId": null or
// "" unassigns the store.
func (s *Server) handleUpdateStore(w http.ResponseWriter, r *http.Request) {
	var req storeUpdate
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

	outlet, err := s.store.GetOutlet(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, storeError(err, "store"))
		return
	}
	if req.Name != nil {
		outlet.Name = *req.Name
	}
	if req.Phone != nil {
		outlet.Phone = *req.Phone
	}
	if req.Address != nil {
		outlet.Address = *req.Address
	}
	if len(req.Location) > 0 {
		outlet.Location = normalizeLocation(req.Location)
	}
	if req.AgentID.Set {
		outlet.AgentID = req.AgentID.Value
		if outlet.AgentID != nil && *outlet.AgentID == "" {
			outlet.AgentID = nil
		}
	}

	// The store row was just read, so not-found here is the agent reference.
	if err := s.store.UpdateOutlet(r.Context(), outlet); err != nil {
		s.writeError(w, r, storeError(err, "agent"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"store": outlet})
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteOutlet(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, storeError(err, "store"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// agentWithTotals is an agent row in the admin list.
type agentWithTotals struct {
	*store.Agent
	stats.Totals
}

// handleListAgents handles GET /api/admin/agents.
func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListAgents(r.Context())
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing agents", err))
		return
	}
	lines, err := s.store.ListOrderLines(r.Context(), store.OrderFilter{})
	if err != nil {
		s.writeError(w, r, apperr.Upstream("listing orders", err))
		return
	}

	rows := make([]agentWithTotals, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, agentWithTotals{Agent: a, Totals: stats.TotalsFor(lines, a.ID)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": rows})
}

// handleAddAdmin handles POST /api/admin/admins/add. Super-admin only.
func (s *Server) handleAddAdmin(w http.ResponseWriter, r *http.Request) {
	var req addAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	admin, err := s.admins.AddAdmin(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"admin": admin})
}

// handleChangePassword handles PUT /api/admin/admins/change-password for the
// calling admin.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	caller := auth.MustFromContext(r.Context())
	if err := s.admins.ChangePassword(r.Context(), caller.AdminID, req.OldPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// handleReset handles DELETE /api/admin/reset. Super-admin only.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	caller := auth.MustFromContext(r.Context())
	s.logger.Info("reset requested", "admin", caller.Username)
	if err := s.admins.Reset(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "all data reset"})
}
