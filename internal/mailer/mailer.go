// Package mailer delivers sign-in links by email.
package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Mailer sends a sign-in link to an address.
type Mailer interface {
	SendSignInLink(ctx context.Context, to, link string) error
}

// SMTPConfig configures the outbound SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) SendSignInLink(ctx context.Context, to, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{to}, SignInMessage(m.cfg.From, to, link)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// SignInMessage renders the RFC 5322 message for a sign-in link.
func SignInMessage(from, to, link string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Sign in to Campus Market\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Sign in to Campus Market\r\n")
	b.WriteString(link + "\r\n\r\n")
	b.WriteString("This link will expire in 24 hours.\r\n")
	return []byte(b.String())
}

// LogMailer writes links to the log instead of sending them. Used in
// development when no SMTP host is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendSignInLink(_ context.Context, to, link string) error {
	m.log.Info("sign-in link", zap.String("to", to), zap.String("link", link))
	return nil
}
