package notify

import (
	"context"

	"gopkg.in/gomail.v2"
)

// EmailNotifier sends scan reports over SMTP. The recipient is an email
// address.
type EmailNotifier struct {
	From   string
	dialer *gomail.Dialer
}

// NewEmailNotifier returns an EmailNotifier using the given SMTP server.
func NewEmailNotifier(host string, port int, from, password string) *EmailNotifier {
	return &EmailNotifier{
		From:   from,
		dialer: gomail.NewDialer(host, port, from, password),
	}
}

// Notify sends one report email. gomail has no context support, so the ctx
// deadline is only checked before dialing.
func (n *EmailNotifier) Notify(ctx context.Context, recipient string, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.From)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", p.Subject())
	m.SetBody("text/plain", p.Body())

	return n.dialer.DialAndSend(m)
}
