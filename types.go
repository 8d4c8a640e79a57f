package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Clock returns the current time. A nil Clock reads the wall clock.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

// PasswordHasher hashes and compares passwords
type PasswordHasher interface {
	HashPassword(ctx context.Context, password string) (string, error)
	ComparePasswordAndHash(ctx context.Context, password, hash string) error
}

// timingEqualizer is implemented by hashers that can burn a comparison
// against a throwaway hash when the account does not exist.
type timingEqualizer interface {
	CompareDummy(ctx context.Context, password string)
}

// SessionValidator validates raw session credentials
type SessionValidator interface {
	Validate(raw string) (*SessionClaims, error)
}

// IdentityLookup loads the user behind a session
type IdentityLookup interface {
	FindByID(ctx context.Context, id string) (*User, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
