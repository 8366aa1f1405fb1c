// ABOUTME: Tests for the Telegram adapter with a recording sender
// ABOUTME: Runs the full registration flow through Bot API update values

package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picco-crm/picco/internal/registration"
	"github.com/picco-crm/picco/internal/session"
	"github.com/picco-crm/picco/internal/store"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, s.err
}

func (s *recordingSender) messages() []tgbotapi.MessageConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tgbotapi.MessageConfig, len(s.sent))
	copy(out, s.sent)
	return out
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
}

func newTestBot(t *testing.T, ms *store.MockStore) (*Bot, *recordingSender) {
	t.Helper()
	sessions := session.NewMemory(time.Minute)
	t.Cleanup(func() { _ = sessions.Close() })

	panels := registration.Panels{BaseURL: "https://picco.example.com", AgentPath: "/agent", AdminPath: "/admin"}
	machine := registration.NewMachine(sessions, registration.NewRegistrar(ms, nil), panels, nil)
	sender := &recordingSender{}
	return NewBot(sender, machine, nil), sender
}

func commandUpdate(chatID int64, command string) tgbotapi.Update {
	text := "/" + command
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: chatID},
		Chat:     &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: chatID},
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text: text,
	}}
}

func contactUpdate(chatID, ownerID int64, phone string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:    &tgbotapi.User{ID: chatID},
		Chat:    &tgbotapi.Chat{ID: chatID, Type: "private"},
		Contact: &tgbotapi.Contact{PhoneNumber: phone, UserID: ownerID},
	}}
}

func TestBot_RegistrationFlow(t *testing.T) {
	ms := store.NewMockStore()
	bot, sender := newTestBot(t, ms)
	ctx := context.Background()

	bot.HandleUpdate(ctx, commandUpdate(555, "start"))
	bot.HandleUpdate(ctx, textUpdate(555, "Ali"))

	sent := sender.messages()
	require.Len(t, sent, 2)
	keyboard, ok := sent[1].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok, "name reply carries the contact keyboard")
	assert.True(t, keyboard.Keyboard[0][0].RequestContact)

	sender.reset()
	bot.HandleUpdate(ctx, contactUpdate(555, 555, "901234567"))

	sent = sender.messages()
	require.Len(t, sent, 2)
	assert.True(t, strings.HasPrefix(sent[0].Text, "✅"))
	_, ok = sent[0].ReplyMarkup.(tgbotapi.ReplyKeyboardRemove)
	assert.True(t, ok)

	links, ok := sent[1].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, links.InlineKeyboard, 2)
	require.NotNil(t, links.InlineKeyboard[0][0].URL)
	assert.Equal(t, "https://picco.example.com/agent?tg_id=555", *links.InlineKeyboard[0][0].URL)

	agent, err := ms.GetAgentByTelegramID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, "+901234567", agent.Phone)
}

func TestBot_SkipsUpdatesWithoutMessage(t *testing.T) {
	bot, sender := newTestBot(t, store.NewMockStore())

	bot.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 1})
	bot.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}})
	assert.Empty(t, sender.messages())
}

type failingConversation struct{}

func (failingConversation) Handle(ctx context.Context, u registration.Update) ([]registration.Reply, error) {
	return nil, errors.New("session backend down")
}

func TestBot_ConversationFailureSendsFailureReply(t *testing.T) {
	sender := &recordingSender{}
	bot := NewBot(sender, failingConversation{}, nil)

	bot.HandleUpdate(context.Background(), commandUpdate(9, "start"))

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(9), sent[0].ChatID)
	assert.True(t, strings.HasPrefix(sent[0].Text, "❌"))
}

func TestBot_SendFailureIsNotFatal(t *testing.T) {
	bot, sender := newTestBot(t, store.NewMockStore())
	sender.err = errors.New("blocked by user")

	assert.NotPanics(t, func() {
		bot.HandleUpdate(context.Background(), commandUpdate(1, "start"))
	})
	assert.Len(t, sender.messages(), 1)
}

func TestToUpdate(t *testing.T) {
	u, ok := ToUpdate(commandUpdate(42, "help"))
	require.True(t, ok)
	assert.Equal(t, "help", u.Command)
	assert.Equal(t, int64(42), u.ChatID)

	u, ok = ToUpdate(contactUpdate(42, 43, "+1"))
	require.True(t, ok)
	require.NotNil(t, u.Contact)
	assert.Equal(t, int64(43), u.Contact.UserID)
	assert.Empty(t, u.Command)
}

func TestToMessage_PlainReply(t *testing.T) {
	msg := ToMessage(registration.Reply{ChatID: 1, Text: "hi"})
	assert.Nil(t, msg.ReplyMarkup)
	assert.Equal(t, "hi", msg.Text)
}

type fakeSource struct {
	updates chan tgbotapi.Update
	config  tgbotapi.UpdateConfig
	stopped bool
}

func (f *fakeSource) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.config = cfg
	return f.updates
}

func (f *fakeSource) StopReceivingUpdates() { f.stopped = true }

func TestPoll_HandlesUntilChannelCloses(t *testing.T) {
	bot, sender := newTestBot(t, store.NewMockStore())
	src := &fakeSource{updates: make(chan tgbotapi.Update, 2)}
	src.updates <- commandUpdate(1, "start")
	src.updates <- commandUpdate(2, "help")
	close(src.updates)

	require.NoError(t, bot.Poll(context.Background(), src, 60*time.Second))
	assert.Equal(t, 60, src.config.Timeout)
	assert.True(t, src.stopped)
	assert.Len(t, sender.messages(), 2)
}

func TestPoll_StopsOnCancel(t *testing.T) {
	bot, _ := newTestBot(t, store.NewMockStore())
	src := &fakeSource{updates: make(chan tgbotapi.Update)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Poll(ctx, src, time.Second) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Poll did not return after cancel")
	}
}

type fakeRequester struct {
	got tgbotapi.Chattable
	err error
}

func (f *fakeRequester) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.got = c
	return &tgbotapi.APIResponse{Ok: f.err == nil}, f.err
}

func TestRegisterWebhook(t *testing.T) {
	req := &fakeRequester{}
	require.NoError(t, RegisterWebhook(req, "https://picco.example.com/telegram/webhook"))

	wh, ok := req.got.(tgbotapi.WebhookConfig)
	require.True(t, ok)
	assert.Equal(t, "/telegram/webhook", wh.URL.Path)

	req.err = errors.New("unauthorized")
	assert.Error(t, RegisterWebhook(req, "https://picco.example.com/hook"))
	assert.Error(t, DeleteWebhook(req))
}

func TestWebhookHandler(t *testing.T) {
	bot, sender := newTestBot(t, store.NewMockStore())
	handler := bot.WebhookHandler(&tgbotapi.BotAPI{})

	body := `{"update_id": 1, "message": {"message_id": 1, "date": 0,
		"from": {"id": 555, "is_bot": false, "first_name": "Ali"},
		"chat": {"id": 555, "type": "private"},
		"text": "/start", "entities": [{"type": "bot_command", "offset": 0, "length": 6}]}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(555), sent[0].ChatID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
