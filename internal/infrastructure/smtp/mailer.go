package smtp

import (
	"context"
	"fmt"

	"github.com/otp-store/internal/config"
	mail "gopkg.in/mail.v2"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type mailer struct {
	from string
	send func(*mail.Message) error
}

// NewMailer builds an SMTP mailer. Authentication is used only when a username is configured,
// and the dialer's network timeout follows cfg.MailTimeout.
func NewMailer(cfg *config.Config) Mailer {
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	if cfg.MailTimeout > 0 {
		d.Timeout = cfg.MailTimeout
	}
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	return &mailer{
		from: cfg.SMTPFrom,
		send: func(msg *mail.Message) error { return d.DialAndSend(msg) },
	}
}

// SendEmail returns once the message is handed to the server or ctx is done, whichever is first.
// An abandoned send keeps running in the background until the dialer timeout fires.
func (m *mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	errc := make(chan error, 1)
	go func() { errc <- m.send(msg) }()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("send email to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email to %s: %w", to, ctx.Err())
	}
}
