package infra

import (
	"bytes"
	"fmt"
	"net/smtp"

	"lasmarias/internal/config"

	"github.com/jordan-wright/email"
)

// Adjunto is an in-memory file attached to an e-mail.
type Adjunto struct {
	Nombre      string
	ContentType string
	Datos       []byte
}

// Mailer sends notices through SMTP. Sends go through a circuit breaker so a
// dead SMTP server does not stall the worker pool.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	cb       *CircuitBreaker
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		cb:       NewCircuitBreaker(DefaultCBConfig("smtp")),
	}
}

// Configurado reports whether an SMTP host was provided.
func (m *Mailer) Configurado() bool { return m != nil && m.host != "" }

func (m *Mailer) Enviar(to, subject, body string, adjuntos ...Adjunto) error {
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	for _, a := range adjuntos {
		if _, err := e.Attach(bytes.NewReader(a.Datos), a.Nombre, a.ContentType); err != nil {
			return fmt.Errorf("mailer: adjuntar %s: %w", a.Nombre, err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return m.cb.Execute(func() error { return e.Send(m.addr, auth) })
}

// Estado exposes the breaker so background jobs can hold off while SMTP is down.
func (m *Mailer) Estado() CBState { return m.cb.State() }
