package main

import (
	"context"
	"fmt"

	"github.com/goliatone/go-logger/glog"

	auth "github.com/goliatone/go-service-auth"
	"github.com/goliatone/go-service-auth/activitymap"
	"github.com/goliatone/go-service-auth/records"
)

// authLogger adapts a structured glog.Logger to the format style
// auth.Logger used by the identity core.
type authLogger struct {
	logger glog.Logger
}

var _ auth.Logger = authLogger{}

func newAuthLogger(logger glog.Logger) auth.Logger {
	return authLogger{logger: logger}
}

func (l authLogger) Debug(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l authLogger) Info(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l authLogger) Warn(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l authLogger) Error(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

const anonymousActor = "anonymous"

// activityLogger records account and service record activity as
// structured log entries
func activityLogger(logger glog.Logger) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		// failed logins carry no user id
		opts := []activitymap.Option{activitymap.WithActorFallback(anonymousActor)}
		if records.IsRecordEvent(event) {
			opts = records.NormalizeOptions()
		}
		logger.Info("activity", activitymap.Normalize(event, opts...).Fields()...)
		return nil
	})
}
