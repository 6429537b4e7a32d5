package infra

import (
	"fmt"
	"net/smtp"

	"elixir/internal/config"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"
)

// Mail is a rendered message ready to be delivered.
type Mail struct {
	To          []string `json:"to"`
	Subject     string   `json:"subject"`
	HTML        string   `json:"html"`
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"` // file paths
	Tipo        string   `json:"tipo"`                  // bienvenida, confirmacion_pedido...
}

// SMTPMailer delivers mail through the configured SMTP relay.
type SMTPMailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.DefaultFromEmail,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

func (m *SMTPMailer) Deliver(mail Mail) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = mail.To
	e.Subject = mail.Subject
	e.HTML = []byte(mail.HTML)
	if mail.Text != "" {
		e.Text = []byte(mail.Text)
	}

	for _, path := range mail.Attachments {
		if _, err := e.AttachFile(path); err != nil {
			return fmt.Errorf("mailer: attach %s: %w", path, err)
		}
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return e.Send(m.addr, auth)
}

// LogMailer only logs messages. It is used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Deliver(mail Mail) error {
	log.Info().
		Strs("to", mail.To).
		Str("subject", mail.Subject).
		Str("tipo", mail.Tipo).
		Int("attachments", len(mail.Attachments)).
		Msg("email (console backend)")
	return nil
}
