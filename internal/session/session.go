// ABOUTME: Per-chat registration sessions and the Store interface that holds them
// ABOUTME: Backends: in-process TTL map (Memory) and Redis (Redis)

package session

import (
	"context"
	"errors"
	"strconv"
)

// ErrNotFound is returned by Get when no live session exists for the key.
var ErrNotFound = errors.New("session not found")

// State is a step in the registration conversation.
type State string

const (
	StateAwaitingName    State = "awaiting_name"
	StateAwaitingContact State = "awaiting_contact"
)

// Session is the in-progress registration for one chat.
type Session struct {
	State      State  `json:"state"`
	TelegramID int64  `json:"telegramId"`
	Name       string `json:"name,omitempty"`
}

// Store holds sessions keyed by chat.
type Store interface {
	Get(ctx context.Context, key string) (*Session, error)
	Set(ctx context.Context, key string, s *Session) error
	Delete(ctx context.Context, key string) error
}

// ChatKey returns the session key for a chat ID.
func ChatKey(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}
