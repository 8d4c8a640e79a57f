package auth

import (
	"context"
	"sync"
	"time"
)

const defaultNotificationTimeout = 15 * time.Second

// Notifier delivers account emails. Calls are fire and forget: a failure
// is logged and never rolls back the change that triggered it.
type Notifier interface {
	SendVerification(ctx context.Context, email, secret string) error
	SendWelcome(ctx context.Context, email, name string) error
	SendPasswordReset(ctx context.Context, email, secret string) error
	SendResetConfirmation(ctx context.Context, email string) error
}

// NoopNotifier drops every notification
type NoopNotifier struct{}

func (NoopNotifier) SendVerification(context.Context, string, string) error  { return nil }
func (NoopNotifier) SendWelcome(context.Context, string, string) error       { return nil }
func (NoopNotifier) SendPasswordReset(context.Context, string, string) error { return nil }
func (NoopNotifier) SendResetConfirmation(context.Context, string) error     { return nil }

// notificationDispatcher runs notifier calls after commit on their own
// goroutine, detached from the request's cancellation.
type notificationDispatcher struct {
	notifier Notifier
	logger   Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func newNotificationDispatcher(n Notifier, logger Logger, timeout time.Duration) *notificationDispatcher {
	if n == nil {
		n = NoopNotifier{}
	}
	if timeout <= 0 {
		timeout = defaultNotificationTimeout
	}
	return &notificationDispatcher{
		notifier: n,
		logger:   logger,
		timeout:  timeout,
	}
}

func (d *notificationDispatcher) dispatch(ctx context.Context, kind, email string, send func(ctx context.Context, n Notifier) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := send(ctx, d.notifier); err != nil {
			d.logger.Error("notification %s to %s failed: %v", kind, email, err)
			return
		}
		d.logger.Debug("notification %s sent to %s", kind, email)
	}()
}

func (d *notificationDispatcher) wait() {
	d.wg.Wait()
}
