package services

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studymate-bot/internal/models"
)

func TestEmailAlertNotifier_Sends(t *testing.T) {
	n := NewEmailAlertNotifier("smtp.example.com", "587", "bot", "pw", "bot@example.com", "admin@example.com", zap.NewNop())

	var gotAddr string
	var gotTo []string
	var gotMsg string
	n.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	alert := models.Alert{Kind: models.AlertUser, UserID: 9, Message: "alert please"}
	require.NoError(t, n.Notify(context.Background(), alert))

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"admin@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: [studymate] user_alert from user 9\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\n"+FormatAlert(alert))
}

func TestEmailAlertNotifier_Failure(t *testing.T) {
	n := NewEmailAlertNotifier("smtp.example.com", "587", "bot", "pw", "bot@example.com", "admin@example.com", zap.NewNop())
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421") }

	err := n.Notify(context.Background(), models.Alert{Kind: models.AlertBlocked, UserID: 1})
	assert.ErrorIs(t, err, ErrNotificationDeliveryFailed)
}

func TestEmailAlertNotifier_DevModeOnlyLogs(t *testing.T) {
	n := NewEmailAlertNotifier("", "", "", "", "", "admin@example.com", zap.NewNop())
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("dev mode must not send")
		return nil
	}
	assert.NoError(t, n.Notify(context.Background(), models.Alert{Kind: models.AlertUser, UserID: 1}))
}
