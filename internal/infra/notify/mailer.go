package notify

import (
	"context"
	"log/slog"

	gomail "gopkg.in/gomail.v2"

	"stayledger/internal/app/policies"
)

// Mailer delivers notifications over SMTP. Errors are returned so the
// caller can log them, but notification failure never aborts a command.
type Mailer struct {
	host     string
	port     int
	from     string
	password string
}

func NewMailer(host string, port int, from, password string) *Mailer {
	return &Mailer{host: host, port: port, from: from, password: password}
}

func (m *Mailer) Notify(ctx context.Context, msg policies.Message) error {
	mail := gomail.NewMessage()
	mail.SetHeader("From", m.from)
	mail.SetHeader("To", msg.To)
	mail.SetHeader("Subject", msg.Subject)
	mail.SetBody("text/plain", msg.Body)
	dialer := gomail.NewDialer(m.host, m.port, m.from, m.password)
	return dialer.DialAndSend(mail)
}

// LogNotifier writes notifications to the log. It stands in for SMTP in
// dev mode and tests.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, msg policies.Message) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "to", msg.To, "subject", msg.Subject)
	return nil
}
