package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"studymate-bot/internal/models"
)

// AlertChannel is the redis pub/sub channel the admin feed subscribes to.
const AlertChannel = "admin_alerts"

var ErrNotificationDeliveryFailed = errors.New("admin notification delivery failed")

// AlertNotifier relays an alert to administrators.
type AlertNotifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// MultiNotifier fans an alert out to every notifier. Each failure is
// collected; one failing sink does not stop the others.
type MultiNotifier []AlertNotifier

func (m MultiNotifier) Notify(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNotificationDeliveryFailed, errors.Join(errs...))
	}
	return nil
}

// RedisAlertPublisher publishes alerts for the admin websocket feed.
type RedisAlertPublisher struct {
	redis *redis.Client
}

func NewRedisAlertPublisher(client *redis.Client) *RedisAlertPublisher {
	return &RedisAlertPublisher{redis: client}
}

func (p *RedisAlertPublisher) Notify(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return p.redis.Publish(ctx, AlertChannel, string(data)).Err()
}

// FormatAlert renders an alert as a single admin chat message.
func FormatAlert(alert models.Alert) string {
	switch alert.Kind {
	case models.AlertBlocked:
		return fmt.Sprintf("User %d sent a prohibited message (trigger: '%s'): %s", alert.UserID, alert.Trigger, alert.Message)
	default:
		return fmt.Sprintf("Alert from user %d: %s", alert.UserID, alert.Message)
	}
}
