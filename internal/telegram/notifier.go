package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"studymate-bot/internal/models"
	"studymate-bot/internal/services"
)

// AdminNotifier delivers alerts as a chat message to the administrator.
type AdminNotifier struct {
	api    API
	chatID int64
}

func NewAdminNotifier(api API, chatID int64) *AdminNotifier {
	return &AdminNotifier{api: api, chatID: chatID}
}

func (n *AdminNotifier) Notify(_ context.Context, alert models.Alert) error {
	if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, services.FormatAlert(alert))); err != nil {
		return fmt.Errorf("%w: telegram: %w", services.ErrNotificationDeliveryFailed, err)
	}
	return nil
}
