// ABOUTME: Telegram adapter for the registration conversation
// ABOUTME: Converts Bot API updates to machine updates and replies to Bot API messages

package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/picco-crm/picco/internal/registration"
)

const shareContactLabel = "📱 Share contact"

// Sender delivers one outgoing message. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Conversation handles one transport-agnostic update.
type Conversation interface {
	Handle(ctx context.Context, u registration.Update) ([]registration.Reply, error)
}

// Bot feeds Telegram updates through a Conversation and sends the replies.
type Bot struct {
	sender Sender
	conv   Conversation
	logger *slog.Logger
}

// NewBot creates a Bot.
func NewBot(sender Sender, conv Conversation, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		sender: sender,
		conv:   conv,
		logger: logger.With("component", "telegram"),
	}
}

// HandleUpdate processes one update in isolation. Conversation failures are
// answered with a generic failure message; send failures are logged and
// dropped.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	update, ok := ToUpdate(u)
	if !ok {
		return
	}

	replies, err := b.conv.Handle(ctx, update)
	if err != nil {
		b.logger.Error("failed to handle update",
			"update_id", u.UpdateID,
			"chat_id", update.ChatID,
			"error", err,
		)
		replies = []registration.Reply{registration.FailureReply(update.ChatID)}
	}

	for _, r := range replies {
		if _, err := b.sender.Send(ToMessage(r)); err != nil {
			b.logger.Warn("failed to send reply", "chat_id", r.ChatID, "error", err)
		}
	}
}

// ToUpdate extracts the fields the conversation needs. Updates without a
// message or sender, such as edits and channel posts, are skipped.
func ToUpdate(u tgbotapi.Update) (registration.Update, bool) {
	msg := u.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return registration.Update{}, false
	}

	update := registration.Update{
		ChatID:  msg.Chat.ID,
		FromID:  msg.From.ID,
		Command: msg.Command(),
		Text:    msg.Text,
	}
	if msg.Contact != nil {
		update.Contact = &registration.Contact{
			PhoneNumber: msg.Contact.PhoneNumber,
			UserID:      msg.Contact.UserID,
		}
	}
	return update, true
}

// ToMessage renders a reply, attaching at most one keyboard.
func ToMessage(r registration.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(r.ChatID, r.Text)

	switch {
	case r.RequestContact:
		keyboard := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(shareContactLabel)),
		)
		keyboard.OneTimeKeyboard = true
		keyboard.ResizeKeyboard = true
		msg.ReplyMarkup = keyboard
	case r.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	case len(r.Links) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(r.Links))
		for _, l := range r.Links {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(l.Label, l.URL)))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	return msg
}
