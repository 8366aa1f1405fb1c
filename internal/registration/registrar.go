// ABOUTME: Registration commit: idempotent creation of an agent by Telegram ID
// ABOUTME: Shared by the bot conversation and the REST register endpoint

package registration

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/picco-crm/picco/internal/apperr"
	"github.com/picco-crm/picco/internal/store"
)

// Outcome is the result of a successful commit.
type Outcome int

const (
	Created Outcome = iota + 1
	AlreadyRegistered
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyRegistered:
		return "already_registered"
	default:
		return "unknown"
	}
}

// Result carries the outcome and the agent it refers to.
type Result struct {
	Outcome Outcome
	Agent   *store.Agent
}

// Registrar commits registrations against the agent store.
type Registrar struct {
	agents store.AgentStore
	logger *slog.Logger
}

// NewRegistrar creates a Registrar.
func NewRegistrar(agents store.AgentStore, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{
		agents: agents,
		logger: logger.With("component", "registration"),
	}
}

// Register creates the agent for telegramID unless one already exists.
// A racing insert that loses on the unique index is reported as AlreadyRegistered.
func (r *Registrar) Register(ctx context.Context, telegramID, name, phone string) (*Result, error) {
	tgID, err := strconv.ParseInt(strings.TrimSpace(telegramID), 10, 64)
	if err != nil {
		return nil, apperr.Validation("telegram id must be numeric")
	}
	name = strings.TrimSpace(name)
	phone = NormalizePhone(phone)
	if name == "" || phone == "" {
		return nil, apperr.Validation("missing fields")
	}

	existing, err := r.agents.GetAgentByTelegramID(ctx, tgID)
	if err == nil {
		r.logger.Debug("agent already registered", "telegram_id", tgID)
		return &Result{Outcome: AlreadyRegistered, Agent: existing}, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Upstream("looking up agent", err)
	}

	agent := &store.Agent{
		TelegramID: tgID,
		Name:       name,
		Phone:      phone,
		Role:       store.RoleAgent,
	}
	err = r.agents.CreateAgent(ctx, agent)
	if errors.Is(err, store.ErrAgentExists) {
		existing, err := r.agents.GetAgentByTelegramID(ctx, tgID)
		if err != nil {
			return nil, apperr.Upstream("re-reading agent after conflict", err)
		}
		return &Result{Outcome: AlreadyRegistered, Agent: existing}, nil
	}
	if err != nil {
		return nil, apperr.Upstream("creating agent", err)
	}

	r.logger.Info("agent registered", "agent_id", agent.ID, "telegram_id", tgID)
	return &Result{Outcome: Created, Agent: agent}, nil
}

// NormalizePhone trims the number, drops spaces and dashes and ensures a
// leading plus sign. An empty input stays empty.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.NewReplacer(" ", "", "-", "").Replace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+" + phone
}
