// Package alerting evaluates price alert subscriptions and delivers
// notifications.
package alerting

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Notifier delivers one notification to one recipient. Any error means the
// delivery failed; callers do not inspect failure subtypes.
type Notifier interface {
	Notify(ctx context.Context, email, subject, body string) error
}

// SMTPOptions parameterise the email notifier.
type SMTPOptions struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// SMTPNotifier sends plain-text email over SMTP.
type SMTPNotifier struct {
	addr   string
	from   string
	auth   smtp.Auth
	logger zerolog.Logger

	// send is swapped in tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier constructs an email notifier.
func NewSMTPNotifier(opts SMTPOptions, logger zerolog.Logger) *SMTPNotifier {
	var auth smtp.Auth
	if opts.Username != "" {
		auth = smtp.PlainAuth("", opts.Username, opts.Password, opts.Host)
	}
	return &SMTPNotifier{
		addr:   fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		from:   opts.From,
		auth:   auth,
		logger: logger.With().Str("component", "alert_email").Logger(),
		send:   smtp.SendMail,
	}
}

// Notify sends a single email. The context is consulted before dialing; the
// SMTP exchange itself is bounded by the server-side session limits.
func (n *SMTPNotifier) Notify(ctx context.Context, email, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := formatMessage(n.from, email, subject, body)
	if err := n.send(n.addr, n.auth, n.from, []string{email}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	n.logger.Info().Str("to", email).Str("subject", subject).Msg("notification delivered")
	return nil
}

func formatMessage(from, to, subject, body string) []byte {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("From: %s\r\n", from))
	builder.WriteString(fmt.Sprintf("To: %s\r\n", to))
	builder.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	builder.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	builder.WriteString("\r\n")
	builder.WriteString(body)
	return []byte(builder.String())
}

// renderAlertEmail builds the subject and body for a triggered price alert.
func renderAlertEmail(productTitle string, current, threshold decimal.Decimal, shopTitle, shopURL string) (subject, body string) {
	subject = fmt.Sprintf("Price Drop Alert: %s", productTitle)

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Good news! The price for %q has dropped to %s.\n", productTitle, current.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Your threshold price was: %s.\n\n", threshold.StringFixed(2)))
	builder.WriteString(fmt.Sprintf("Shop: %s\n", shopTitle))
	builder.WriteString(fmt.Sprintf("Link: %s\n", shopURL))
	return subject, builder.String()
}

var _ Notifier = (*SMTPNotifier)(nil)
