// Package mail sends transactional mail: new-quote notifications to the
// entreprise and password resets. Sends are single-attempt; a failure is
// logged by the caller and never fails the request that triggered it.
package mail

import (
	"context"
	"errors"

	gomail "github.com/wneessen/go-mail"

	"github.com/demenago/devis-saas/internal/config"
	"github.com/demenago/devis-saas/internal/models"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers a message for a given entreprise. A nil entreprise uses
// the platform credentials.
type Mailer interface {
	Send(ctx context.Context, e *models.Entreprise, msg Message) error
}

var ErrNoSMTP = errors.New("smtp non configuré")

// SMTPMailer sends through the entreprise's own SMTP credentials when
// configured, platform defaults otherwise.
type SMTPMailer struct {
	cfg config.Config
}

func NewSMTPMailer(cfg config.Config) *SMTPMailer { return &SMTPMailer{cfg: cfg} }

func (m *SMTPMailer) Send(ctx context.Context, e *models.Entreprise, msg Message) error {
	host, port, user, pass, from := m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.MailFrom
	if e != nil && e.SMTPConfigured() {
		host, user, pass = e.SMTPHost, e.SMTPUser, e.SMTPPass
		if e.SMTPPort != 0 {
			port = e.SMTPPort
		}
		if e.Email != "" {
			from = e.Email
		}
	}
	if host == "" {
		return ErrNoSMTP
	}

	mm := gomail.NewMsg()
	if err := mm.From(from); err != nil {
		return err
	}
	if err := mm.To(msg.To); err != nil {
		return err
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(gomail.TypeTextPlain, msg.Body)

	client, err := gomail.NewClient(host,
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(user),
		gomail.WithPassword(pass),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, mm)
}

// NopMailer is used in tests and when no platform SMTP is configured.
type NopMailer struct{ Sent []Message }

func (n *NopMailer) Send(_ context.Context, _ *models.Entreprise, msg Message) error {
	n.Sent = append(n.Sent, msg)
	return nil
}
