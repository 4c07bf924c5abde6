// Package notifier delivers admin-facing alerts over Telegram. It sits on
// the collaborator side of the system: the storage layer never calls it.
package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Telegram struct {
	api         *tgbotapi.BotAPI
	adminChatID int64
	logger      *zap.Logger
}

// NewTelegram builds a notifier for the admin chat. An empty token yields
// a disabled notifier whose sends log a warning and succeed, matching the
// original deployment's unconfigured behavior.
func NewTelegram(token string, adminChatID int64, logger *zap.Logger) (*Telegram, error) {
	t := &Telegram{adminChatID: adminChatID, logger: logger}
	if token == "" {
		logger.Warn("Telegram token not set, notifications disabled")
		return t, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	t.api = api
	return t, nil
}

// Configured reports whether sends will actually reach Telegram.
func (t *Telegram) Configured() bool {
	return t.api != nil && t.adminChatID != 0
}

// SendAdminCode delivers a freshly issued authentication code.
func (t *Telegram) SendAdminCode(code string, ttlMinutes int) error {
	text := fmt.Sprintf("🔐 Admin Giriş Kodu\n\nKodunuz: %s\n\n⏱ Bu kod %d dakika geçerlidir.",
		code, ttlMinutes)
	return t.send(text)
}

// NotifyNewCustomer alerts the admin that a first-time user started a
// conversation. Long first messages are truncated.
func (t *Telegram) NotifyNewCustomer(userID, message string) error {
	if len(message) > 100 {
		message = message[:100] + "..."
	}
	text := fmt.Sprintf("🆕 Yeni Müşteri!\n\n👤 Kullanıcı: %s\n💬 İlk Mesaj: %s", userID, message)
	return t.send(text)
}

func (t *Telegram) send(text string) error {
	if !t.Configured() {
		t.logger.Warn("Telegram notifier not configured, dropping notification")
		return nil
	}

	msg := tgbotapi.NewMessage(t.adminChatID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}
