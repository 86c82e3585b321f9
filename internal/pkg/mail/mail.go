// Package mail renders transactional messages and hands them to a transport.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Kind string

const (
	KindVerifyEmail   Kind = "verify_email"
	KindResetPassword Kind = "reset_password"
	KindContact       Kind = "contact"
)

// Params carries template values, e.g. "name", "token".
type Params map[string]string

// Message is a rendered email ready for a transport.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender is a mail transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ErrTimeout is returned when the transport did not finish within the notifier timeout.
var ErrTimeout = errors.New("mail send timed out")

// Notifier renders a template kind and sends it with a bounded timeout.
type Notifier struct {
	sender  Sender
	siteURL string
	timeout time.Duration
	log     *zap.Logger
}

func NewNotifier(sender Sender, siteURL string, timeout time.Duration, log *zap.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{sender: sender, siteURL: siteURL, timeout: timeout, log: log}
}

// Send renders kind with params and delivers it to to.
func (n *Notifier) Send(ctx context.Context, to string, kind Kind, params Params) error {
	msg, err := n.render(ctx, to, kind, params)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.sender.Send(ctx, msg) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send %s: %w", kind, err)
		}
		n.log.Debug("mail sent", zap.String("kind", string(kind)))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send %s: %w", kind, ErrTimeout)
	}
}

func (n *Notifier) render(ctx context.Context, to string, kind Kind, params Params) (Message, error) {
	var (
		subject string
		text    string
		html    bytes.Buffer
	)

	switch kind {
	case KindVerifyEmail:
		link := n.siteURL + "/verify-email?token=" + params["token"]
		subject = "Verify your email - YOLO Trainer"
		text = fmt.Sprintf("Hi %s,\n\nConfirm your email address by opening this link within 24 hours:\n%s\n", displayName(params), link)
		if err := verifyEmailBody(displayName(params), link).Render(ctx, &html); err != nil {
			return Message{}, err
		}
	case KindResetPassword:
		link := n.siteURL + "/reset-password?token=" + params["token"]
		subject = "Reset your password - YOLO Trainer"
		text = fmt.Sprintf("Hi %s,\n\nReset your password with this link within 1 hour:\n%s\n\nIf you did not ask for this, ignore this email.\n", displayName(params), link)
		if err := resetPasswordBody(displayName(params), link).Render(ctx, &html); err != nil {
			return Message{}, err
		}
	case KindContact:
		subject = "[Contact] " + params["subject"]
		text = fmt.Sprintf("From: %s <%s>\n\n%s\n", params["name"], params["email"], params["message"])
		if err := contactBody(params["name"], params["email"], params["message"]).Render(ctx, &html); err != nil {
			return Message{}, err
		}
	default:
		return Message{}, fmt.Errorf("unknown mail kind %q", kind)
	}

	return Message{To: to, Subject: subject, HTML: html.String(), Text: text}, nil
}

func displayName(p Params) string {
	if p["name"] != "" {
		return p["name"]
	}
	return "there"
}
