package mailer

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/go-mail/mail/v2"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
)

const passwordResetSubject = "Reset your password"

type Mailer interface {
	SendPasswordReset(ctx context.Context, recipient, link string) error
}

type Dialer interface {
	DialAndSend(m ...*mail.Message) error
}

var _ Mailer = (*SMTPMailer)(nil)

type SMTPMailer struct {
	mu     sync.Mutex
	dialer Dialer
	sender string
}

func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second

	return &SMTPMailer{
		dialer: dialer,
		sender: sender,
	}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, recipient, link string) error {
	_, span := tracing.GlobalTracer.Start(ctx, "smtpMailer.SendPasswordReset")
	defer span.End()

	msg := mail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", passwordResetSubject)
	msg.SetBody("text/plain", passwordResetPlain(link))
	msg.AddAlternative("text/html", passwordResetHTML(link))

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}

	log.Debugf("password reset mail sent to %s", recipient)
	return nil
}

func passwordResetPlain(link string) string {
	return "Someone asked to reset the admin password.\n\n" +
		"Open the link below to choose a new one. It expires in one hour.\n\n" +
		link + "\n\n" +
		"If that was not you, ignore this message.\n"
}

func passwordResetHTML(link string) string {
	escaped := html.EscapeString(link)
	return `<p>Someone asked to reset the admin password.</p>` +
		`<p><a href="` + escaped + `">Choose a new password</a>. The link expires in one hour.</p>` +
		`<p>If that was not you, ignore this message.</p>`
}

// LogMailer writes reset links to the log. Used when no SMTP host is configured.
type LogMailer struct{}

var _ Mailer = LogMailer{}

func (LogMailer) SendPasswordReset(_ context.Context, recipient, link string) error {
	log.Warnf("smtp not configured, password reset link for %s: %s", recipient, link)
	return nil
}
