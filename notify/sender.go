package notify

import (
	"context"

	auth "github.com/goliatone/go-service-auth"
)

// Message is a rendered email
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// LogSender writes messages to the logger instead of delivering them. It
// is the default for local development.
type LogSender struct {
	Logger auth.Logger
}

func (s LogSender) Send(_ context.Context, msg Message) error {
	if s.Logger == nil {
		return nil
	}
	s.Logger.Info("email to=%s subject=%q\n%s", msg.To, msg.Subject, msg.HTML)
	return nil
}
