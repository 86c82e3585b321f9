// Package mailtest captures outgoing mail in tests.
package mailtest

import (
	"context"
	"sync"

	"github.com/yolotrainer/portal/internal/pkg/mail"
)

// Recorder is a mail.Sender that keeps every message in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []mail.Message
	Err  error
	// Hold, when set, makes Send wait until it is closed or ctx ends.
	Hold chan struct{}
}

func (r *Recorder) Send(ctx context.Context, msg mail.Message) error {
	if r.Hold != nil {
		select {
		case <-r.Hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return nil
}

func (r *Recorder) Messages() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mail.Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// To returns the messages addressed to addr.
func (r *Recorder) To(addr string) []mail.Message {
	var out []mail.Message
	for _, m := range r.Messages() {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}
