// ABOUTME: Update delivery for the Telegram bot: long polling or an HTTP webhook
// ABOUTME: Polling stops with its context; the webhook is a plain http.Handler

package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource delivers long-polled updates. *tgbotapi.BotAPI satisfies it.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// WebhookDecoder parses a webhook request. *tgbotapi.BotAPI satisfies it.
type WebhookDecoder interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// Requester performs a raw Bot API call. *tgbotapi.BotAPI satisfies it.
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// NewAPI connects to the Bot API and checks the token.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	return api, nil
}

// Poll handles updates one at a time until ctx is cancelled or the source
// closes its channel.
func (b *Bot) Poll(ctx context.Context, src UpdateSource, timeout time.Duration) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(timeout / time.Second)

	updates := src.GetUpdatesChan(cfg)
	defer src.StopReceivingUpdates()

	b.logger.Info("polling for updates", "timeout", timeout)
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, u)
		}
	}
}

// RegisterWebhook points Telegram at url. Any previous webhook is replaced.
func RegisterWebhook(api Requester, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("building webhook config: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("registering webhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes the webhook so that polling works again.
func DeleteWebhook(api Requester) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}
	return nil
}

// WebhookHandler serves webhook deliveries. Telegram only needs a 200; a
// body that cannot be decoded gets a 400 so it is not redelivered forever.
func (b *Bot) WebhookHandler(dec WebhookDecoder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := dec.HandleUpdate(r)
		if err != nil {
			b.logger.Warn("invalid webhook request", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b.HandleUpdate(r.Context(), *u)
		w.WriteHeader(http.StatusOK)
	})
}
