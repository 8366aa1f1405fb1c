// ABOUTME: Handlers for agent registration, admin login and agent lookup
// ABOUTME: Registration shares the same idempotent commit as the Telegram bot

package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/picco-crm/picco/internal/apperr"
	"github.com/picco-crm/picco/internal/registration"
	"github.com/picco-crm/picco/internal/store"
)

// handleRegister handles POST /api/auth/register.
// Returns 201 for a new agent and 200 when the Telegram ID is already known.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	tgID := req.telegramID()
	if tgID == "" {
		s.writeError(w, r, apperr.Validation("missing fields"))
		return
	}

	result, err := s.registrar.Register(r.Context(), tgID, req.Name, req.Phone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome == registration.AlreadyRegistered {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"status": result.Outcome.String(),
		"user":   result.Agent,
	})
}

// handleLogin handles POST /api/auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.admins.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAgentLookup handles GET /api/auth/agent/{telegramId}.
func (s *Server) handleAgentLookup(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(r.PathValue("telegramId"), 10, 64)
	if err != nil {
		s.writeError(w, r, apperr.Validation("telegram id must be numeric"))
		return
	}

	agent, err := s.store.GetAgentByTelegramID(r.Context(), tgID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, r, apperr.NotFound("agent not found"))
		return
	}
	if err != nil {
		s.writeError(w, r, apperr.Upstream("looking up agent", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": agent})
}
