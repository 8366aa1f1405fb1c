// ABOUTME: Agent persistence for the users table
// ABOUTME: Telegram ID uniqueness is enforced by the schema and reported as ErrAgentExists

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const agentColumns = `id, telegram_id, name, phone, role, created_at`

// CreateAgent inserts a new agent. ID and CreatedAt are filled in when empty.
func (s *SQLStore) CreateAgent(ctx context.Context, agent *Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now().UTC()
	}
	if agent.Role == "" {
		agent.Role = RoleAgent
	}

	_, err := s.exec(ctx, `
		INSERT INTO users (id, telegram_id, name, phone, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		agent.ID,
		agent.TelegramID,
		agent.Name,
		agent.Phone,
		agent.Role,
		formatTime(agent.CreatedAt),
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return ErrAgentExists
		}
		return fmt.Errorf("inserting agent: %w", err)
	}

	s.logger.Info("created agent", "id", agent.ID, "telegram_id", agent.TelegramID)
	return nil
}

// GetAgent retrieves an agent by ID.
func (s *SQLStore) GetAgent(ctx context.Context, id string) (*Agent, error) {
	row := s.queryRow(ctx, `SELECT `+agentColumns+` FROM users WHERE id = ?`, id)
	return scanAgent(row)
}

// GetAgentByTelegramID retrieves an agent by its Telegram user ID.
func (s *SQLStore) GetAgentByTelegramID(ctx context.Context, telegramID int64) (*Agent, error) {
	row := s.queryRow(ctx, `SELECT `+agentColumns+` FROM users WHERE telegram_id = ?`, telegramID)
	return scanAgent(row)
}

// ListAgents returns all agents, newest first.
func (s *SQLStore) ListAgents(ctx context.Context) ([]*Agent, error) {
	rows, err := s.query(ctx, `SELECT `+agentColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying agents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	agents := []*Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agents: %w", err)
	}
	return agents, nil
}

func scanAgent(row rowScanner) (*Agent, error) {
	var a Agent
	err := row.Scan(&a.ID, &a.TelegramID, &a.Name, &a.Phone, &a.Role, scanTime(&a.CreatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning agent: %w", err)
	}
	return &a, nil
}
