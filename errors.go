package auth

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	TextCodeValidationFailed      = "VALIDATION_FAILED"
	TextCodeDuplicateIdentity     = "DUPLICATE_IDENTITY"
	TextCodeAuthenticationFailed  = "AUTHENTICATION_FAILED"
	TextCodeUnauthenticated       = "UNAUTHENTICATED"
	TextCodeForbidden             = "FORBIDDEN"
	TextCodeExpiredSecret         = "EXPIRED_SECRET"
	TextCodeUnknownSecret         = "UNKNOWN_SECRET"
	TextCodeNotFound              = "NOT_FOUND"
	TextCodeTemporaryFailure      = "TEMPORARY_FAILURE"
	TextCodeInvalidSession        = "INVALID_SESSION"
	TextCodeExpiredSession        = "EXPIRED_SESSION"
	TextCodeSignupDisabled        = "SIGNUP_DISABLED"
	TextCodePasswordResetDisabled = "PASSWORD_RESET_DISABLED"
	TextCodeInternal              = "INTERNAL_ERROR"
)

// ErrValidationFailed is returned for missing or malformed input
var ErrValidationFailed = errors.New("invalid input", errors.CategoryValidation).
	WithTextCode(TextCodeValidationFailed).
	WithCode(errors.CodeBadRequest)

// ErrDuplicateIdentity is returned when the email is already registered
var ErrDuplicateIdentity = errors.New("an account with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(errors.CodeConflict)

// ErrAuthenticationFailed is the single error for a wrong email or password.
var ErrAuthenticationFailed = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationFailed).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is returned when a protected operation has no session
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden is returned when the identity is not allowed to perform the operation
var ErrForbidden = errors.New("access denied", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

var ErrExpiredSecret = errors.New("the link has expired", errors.CategoryBadInput).
	WithTextCode(TextCodeExpiredSecret).
	WithCode(errors.CodeBadRequest)

var ErrUnknownSecret = errors.New("the link is invalid or was already used", errors.CategoryBadInput).
	WithTextCode(TextCodeUnknownSecret).
	WithCode(errors.CodeBadRequest)

var ErrNotFound = errors.New("resource not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrTemporaryFailure is retryable: a collaborator timed out or is unavailable
var ErrTemporaryFailure = errors.New("service temporarily unavailable, try again", errors.CategoryOperation).
	WithTextCode(TextCodeTemporaryFailure).
	WithCode(http.StatusServiceUnavailable)

var ErrInvalidSession = errors.New("invalid session", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidSession).
	WithCode(errors.CodeUnauthorized)

var ErrExpiredSession = errors.New("session expired", errors.CategoryAuth).
	WithTextCode(TextCodeExpiredSession).
	WithCode(errors.CodeUnauthorized)

var ErrSignupDisabled = errors.New("signup is disabled", errors.CategoryAuthz).
	WithTextCode(TextCodeSignupDisabled).
	WithCode(errors.CodeForbidden)

var ErrPasswordResetDisabled = errors.New("password reset is disabled", errors.CategoryAuthz).
	WithTextCode(TextCodePasswordResetDisabled).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = WrapAs(ErrValidationFailed, "password must not be empty")

// ErrMismatchedHashAndPassword is the low level bcrypt mismatch. It never
// leaves the credential store: callers see ErrAuthenticationFailed.
var ErrMismatchedHashAndPassword = errors.New("password does not match hash", errors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationFailed).
	WithCode(errors.CodeUnauthorized)

// WrapAs returns an error matching sentinel under errors.Is that carries a
// more specific message. An empty message keeps the sentinel's.
func WrapAs(sentinel *errors.Error, message string) *errors.Error {
	if message == "" {
		message = sentinel.Message
	}
	// errors.Wrap clones rich errors instead of chaining them, so the
	// sentinel is linked as the source by hand.
	err := errors.New(message, sentinel.Category).
		WithTextCode(sentinel.TextCode).
		WithCode(sentinel.Code)
	err.Source = sentinel
	return err
}

// ToTemporaryFailure maps timeouts, cancellations and dropped connections
// to ErrTemporaryFailure. Other errors are returned unchanged.
func ToTemporaryFailure(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrTemporaryFailure) {
		return err
	}

	if isTransient(err) {
		return WrapAs(ErrTemporaryFailure, "").
			WithMetadata(map[string]any{"cause": err.Error()})
	}

	return err
}

func isTransient(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		isSQLiteBusy(err)
}

// isSQLiteBusy matches SQLITE_BUSY and SQLITE_LOCKED by message, the
// cgo and pure Go drivers share no error type.
func isSQLiteBusy(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "table is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "sqlite_locked")
}

// ClassifyError is classifyError for packages that build on the identity
// core.
func ClassifyError(ctx context.Context, err error, message string) error {
	return classifyError(ctx, err, message)
}

// classifyError keeps taxonomy errors intact and folds everything else into
// either a temporary failure or an internal error with the given message.
func classifyError(ctx context.Context, err error, message string) error {
	if err == nil {
		return nil
	}

	if isTaxonomyError(err) {
		return err
	}

	if isTransient(err) || (ctx != nil && ctx.Err() != nil) {
		return WrapAs(ErrTemporaryFailure, "").
			WithMetadata(map[string]any{"cause": err.Error()})
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Code != 0 {
		return richErr
	}

	return errors.Wrap(err, errors.CategoryInternal, message).
		WithTextCode(TextCodeInternal).
		WithCode(errors.CodeInternal)
}

var taxonomy = []*errors.Error{
	ErrValidationFailed,
	ErrDuplicateIdentity,
	ErrAuthenticationFailed,
	ErrUnauthenticated,
	ErrForbidden,
	ErrExpiredSecret,
	ErrUnknownSecret,
	ErrNotFound,
	ErrTemporaryFailure,
	ErrInvalidSession,
	ErrExpiredSession,
	ErrSignupDisabled,
	ErrPasswordResetDisabled,
}

func isTaxonomyError(err error) bool {
	for _, sentinel := range taxonomy {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// IsUniqueViolation reports whether err is a unique constraint failure
// from postgres or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "sqlstate 23505")
}
