package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	gomail "github.com/go-mail/mail"
	"go.uber.org/zap"
)

// SMTPSender delivers messages over SMTP.
type SMTPSender struct {
	Host    string
	Port    int
	From    string
	User    string
	Pass    string
	TLSMode string // "auto" | "starttls" | "ssl" | "none"
	Timeout time.Duration
	log     *zap.Logger
}

func NewSMTPSender(host string, port int, from, user, pass, tlsMode string, timeout time.Duration, log *zap.Logger) *SMTPSender {
	if tlsMode == "" {
		tlsMode = "auto"
	}
	return &SMTPSender{
		Host:    host,
		Port:    port,
		From:    from,
		User:    user,
		Pass:    pass,
		TLSMode: tlsMode,
		Timeout: timeout,
		log:     log,
	}
}

// Send builds a multipart/alternative message and dials the server.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
	}
	if msg.HTML != "" {
		if msg.Text == "" {
			m.SetBody("text/html", msg.HTML)
		} else {
			m.AddAlternative("text/html", msg.HTML)
		}
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}
	if s.Timeout > 0 {
		d.Timeout = s.Timeout
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = gomail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	}

	if err := d.DialAndSend(m); err != nil {
		s.log.Error("smtp send failed", zap.String("host", s.Host), zap.Int("port", s.Port), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender only records that a message would have been sent. Bodies are never
// logged because they carry single-use tokens.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info("mail suppressed (MAIL_DRIVER=log)", zap.String("subject", msg.Subject))
	return nil
}
