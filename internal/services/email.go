package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"studymate-bot/internal/models"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailAlertNotifier mails admin alerts over SMTP. Without SMTP credentials
// it runs in dev mode and only logs the message.
type EmailAlertNotifier struct {
	host     string
	port     string
	user     string
	pass     string
	from     string
	to       string
	devMode  bool
	sendMail sendMailFunc
	log      *zap.Logger
}

func NewEmailAlertNotifier(host, port, user, pass, from, to string, log *zap.Logger) *EmailAlertNotifier {
	n := &EmailAlertNotifier{
		host:     host,
		port:     port,
		user:     user,
		pass:     pass,
		from:     from,
		to:       to,
		devMode:  host == "" || user == "",
		sendMail: smtp.SendMail,
		log:      log.Named("email"),
	}
	if n.devMode {
		n.log.Warn("email alerts running in dev mode, messages are only logged")
	}
	return n
}

func (n *EmailAlertNotifier) Notify(_ context.Context, alert models.Alert) error {
	subject := fmt.Sprintf("[studymate] %s from user %d", alert.Kind, alert.UserID)
	return n.sendText(subject, FormatAlert(alert))
}

func (n *EmailAlertNotifier) sendText(subject, body string) error {
	if n.devMode {
		n.log.Info("dev email", zap.String("to", n.to), zap.String("subject", subject), zap.String("body", body))
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", n.from),
		fmt.Sprintf("To: %s", n.to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}
	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	auth := smtp.PlainAuth("", n.user, n.pass, n.host)
	addr := fmt.Sprintf("%s:%s", n.host, n.port)

	if err := n.sendMail(addr, auth, n.from, []string{n.to}, []byte(message)); err != nil {
		return fmt.Errorf("%w: email to %s: %w", ErrNotificationDeliveryFailed, n.to, err)
	}

	n.log.Info("alert email sent", zap.String("to", n.to), zap.String("subject", subject))
	return nil
}
