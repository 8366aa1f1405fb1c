// ABOUTME: Transport-agnostic registration conversation driven by chat updates
// ABOUTME: Moves a chat through awaiting_name and awaiting_contact, then commits

package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/picco-crm/picco/internal/session"
)

// Contact is a phone number shared through the platform's contact button.
type Contact struct {
	PhoneNumber string
	// UserID is the platform user the contact belongs to; zero when unknown.
	UserID int64
}

// Update is one incoming chat event.
type Update struct {
	ChatID int64
	FromID int64
	// Command is the bot command without its slash, empty for plain text.
	Command string
	Text    string
	Contact *Contact
}

// Link is a labelled URL button.
type Link struct {
	Label string
	URL   string
}

// Reply is one outgoing chat message.
type Reply struct {
	ChatID         int64
	Text           string
	RequestContact bool
	RemoveKeyboard bool
	Links          []Link
}

// Panels builds the deep links to the agent and admin web apps.
type Panels struct {
	BaseURL   string
	AgentPath string
	AdminPath string
}

// Links returns both panel URLs carrying the Telegram ID as tg_id.
func (p Panels) Links(telegramID int64) []Link {
	base := strings.TrimRight(p.BaseURL, "/")
	query := "?tg_id=" + strconv.FormatInt(telegramID, 10)
	return []Link{
		{Label: "Agent panel", URL: base + p.AgentPath + query},
		{Label: "Admin panel", URL: base + p.AdminPath + query},
	}
}

const (
	msgWelcome        = "Welcome to PICCO! Please enter your full name."
	msgEmptyName      = "Name cannot be empty. Please enter your full name."
	msgShareContact   = "Please share your phone number using the button below."
	msgOwnContact     = "Please share your own contact."
	msgRegistered     = "✅ Registration complete, %s!"
	msgAlreadyDone    = "ℹ️ You are already registered."
	msgPanels         = "Open your panel:"
	msgFailed         = "❌ Registration failed. Please try again later with /start."
	msgHelp           = "Send /start to register as a sales agent."
	msgNameAccepted   = "Thanks, %s! " + msgShareContact
	msgInternalFailed = "❌ Something went wrong. Please try again later."
)

// Machine runs the registration conversation.
type Machine struct {
	sessions  session.Store
	registrar *Registrar
	panels    Panels
	logger    *slog.Logger
}

// NewMachine creates a Machine.
func NewMachine(sessions session.Store, registrar *Registrar, panels Panels, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		sessions:  sessions,
		registrar: registrar,
		panels:    panels,
		logger:    logger.With("component", "registration.machine"),
	}
}

// FailureReply is sent when Handle returns an error.
func FailureReply(chatID int64) Reply {
	return Reply{ChatID: chatID, Text: msgInternalFailed}
}

// Handle applies one update and returns the replies to send. An empty result
// means the update was ignored.
func (m *Machine) Handle(ctx context.Context, u Update) ([]Reply, error) {
	key := session.ChatKey(u.ChatID)

	switch u.Command {
	case "start":
		s := &session.Session{State: session.StateAwaitingName, TelegramID: u.FromID}
		if err := m.sessions.Set(ctx, key, s); err != nil {
			return nil, fmt.Errorf("starting session: %w", err)
		}
		return m.reply(u, msgWelcome), nil
	case "help":
		return m.reply(u, msgHelp), nil
	case "":
	default:
		return nil, nil
	}

	s, err := m.sessions.Get(ctx, key)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	switch s.State {
	case session.StateAwaitingName:
		return m.handleName(ctx, key, s, u)
	case session.StateAwaitingContact:
		return m.handleContact(ctx, key, s, u)
	default:
		return nil, nil
	}
}

func (m *Machine) handleName(ctx context.Context, key string, s *session.Session, u Update) ([]Reply, error) {
	if u.Contact != nil {
		return nil, nil
	}
	name := strings.TrimSpace(u.Text)
	if name == "" {
		return m.reply(u, msgEmptyName), nil
	}

	s.Name = name
	s.State = session.StateAwaitingContact
	if err := m.sessions.Set(ctx, key, s); err != nil {
		return nil, fmt.Errorf("saving name: %w", err)
	}
	return []Reply{{ChatID: u.ChatID, Text: fmt.Sprintf(msgNameAccepted, name), RequestContact: true}}, nil
}

func (m *Machine) handleContact(ctx context.Context, key string, s *session.Session, u Update) ([]Reply, error) {
	if u.Contact == nil {
		return []Reply{{ChatID: u.ChatID, Text: msgShareContact, RequestContact: true}}, nil
	}
	if u.Contact.UserID != 0 && u.Contact.UserID != s.TelegramID {
		return []Reply{{ChatID: u.ChatID, Text: msgOwnContact, RequestContact: true}}, nil
	}

	// Single-shot: the session ends whatever the commit returns.
	if err := m.sessions.Delete(ctx, key); err != nil {
		m.logger.Warn("failed to delete session", "key", key, "error", err)
	}

	tgID := strconv.FormatInt(s.TelegramID, 10)
	result, err := m.registrar.Register(ctx, tgID, s.Name, u.Contact.PhoneNumber)
	if err != nil {
		m.logger.Error("registration failed", "telegram_id", tgID, "error", err)
		return []Reply{{ChatID: u.ChatID, Text: msgFailed, RemoveKeyboard: true}}, nil
	}

	text := fmt.Sprintf(msgRegistered, result.Agent.Name)
	if result.Outcome == AlreadyRegistered {
		text = msgAlreadyDone
	}
	// A message carries one keyboard, so the contact keyboard is removed
	// before the link buttons are sent.
	return []Reply{
		{ChatID: u.ChatID, Text: text, RemoveKeyboard: true},
		{ChatID: u.ChatID, Text: msgPanels, Links: m.panels.Links(s.TelegramID)},
	}, nil
}

func (m *Machine) reply(u Update, text string) []Reply {
	return []Reply{{ChatID: u.ChatID, Text: text}}
}
