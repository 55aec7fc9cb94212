// Package mail sends the two transactional emails AuthBridge needs:
// account confirmation and password reset links.
package mail

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"socialcore/internal/config"
)

type Sender interface {
	SendConfirmation(ctx context.Context, to, name, token string) error
	SendPasswordReset(ctx context.Context, to, name, token string) error
}

// SMTPSender delivers via a direct SMTP connection, generalized from
// a portal-invite/quote-notification sender shape down to
// this domain's two transactional flows.
type SMTPSender struct {
	host, user, password string
	port                 int
	from                 string
	baseURL              string
}

func NewSMTPSender(cfg *config.Config, baseURL string) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
		baseURL:  baseURL,
	}
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.user),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) SendConfirmation(ctx context.Context, to, name, token string) error {
	body := fmt.Sprintf("Hi %s,\n\nConfirm your account: %s/confirm?token=%s\n", name, s.baseURL, token)
	return s.send(ctx, to, "Confirm your account", body)
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, name, token string) error {
	body := fmt.Sprintf("Hi %s,\n\nReset your password: %s/reset-password?token=%s\n", name, s.baseURL, token)
	return s.send(ctx, to, "Reset your password", body)
}
