// Package mail delivers HTML email over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/park-passes/internal/config"
)

// Message is one HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// New returns the SMTP mailer for cfg, or a LogMailer when no host is
// configured.
func New(cfg config.SMTPConfig, defaultFrom string) Mailer {
	if cfg.Host == "" {
		log.Warn("mail: SMTP_HOST not set, emails are only logged")
		return LogMailer{}
	}
	from := cfg.From
	if from == "" {
		from = defaultFrom
	}
	return &SMTPMailer{cfg: cfg, from: from}
}

// SMTPMailer delivers through an SMTP relay with optional PLAIN auth.
type SMTPMailer struct {
	cfg  config.SMTPConfig
	from string
}

var errNoRecipients = errors.New("mail: no recipients")

// Send delivers m.  The context bounds the whole SMTP exchange.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	if len(m.To) == 0 {
		return errNoRecipients
	}
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	var auth smtp.Auth
	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- smtp.SendMail(addr, auth, s.from, m.To, render(s.from, m)) }()
	select {
	case err := <-done:
		if err != nil {
			log.WithError(err).WithField("to", m.To).Error("mail: send failed")
			return err
		}
		log.WithFields(log.Fields{"to": m.To, "subject": m.Subject}).Info("mail: sent")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func render(from string, m Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, strings.Join(m.To, ", "), m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(m.HTML)
	return []byte(b.String())
}

// LogMailer only logs messages.  Used in development.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Message) error {
	if len(m.To) == 0 {
		return errNoRecipients
	}
	log.WithFields(log.Fields{"to": m.To, "subject": m.Subject}).Info("mail: not sent (no SMTP host)")
	return nil
}
