package auth_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-service-auth"
)

func TestWrapAsMatchesSentinel(t *testing.T) {
	err := auth.WrapAs(auth.ErrValidationFailed, "name: cannot be blank")

	require.ErrorIs(t, err, auth.ErrValidationFailed)
	assert.NotErrorIs(t, err, auth.ErrNotFound)
	assert.Equal(t, "name: cannot be blank", err.Message)
	assert.Equal(t, auth.TextCodeValidationFailed, err.TextCode)
	assert.Equal(t, auth.ErrValidationFailed.Code, err.Code)

	keep := auth.WrapAs(auth.ErrForbidden, "")
	assert.Equal(t, auth.ErrForbidden.Message, keep.Message)

	wrapped := fmt.Errorf("handler: %w", err)
	require.ErrorIs(t, wrapped, auth.ErrValidationFailed)
}

func TestToTemporaryFailure(t *testing.T) {
	transient := []error{
		context.DeadlineExceeded,
		context.Canceled,
		driver.ErrBadConn,
		sql.ErrConnDone,
		fmt.Errorf("query: %w", context.DeadlineExceeded),
		errors.New("database is locked"),
		errors.New("database table is locked: users"),
		errors.New("database is locked (5) (SQLITE_BUSY)"),
	}
	for _, err := range transient {
		t.Run(err.Error(), func(t *testing.T) {
			require.ErrorIs(t, auth.ToTemporaryFailure(err), auth.ErrTemporaryFailure)
		})
	}

	plain := errors.New("syntax error")
	assert.Same(t, plain, auth.ToTemporaryFailure(plain))
	assert.NoError(t, auth.ToTemporaryFailure(nil))

	already := auth.WrapAs(auth.ErrTemporaryFailure, "")
	assert.Equal(t, error(already), auth.ToTemporaryFailure(already))
}

func TestClassifyError(t *testing.T) {
	ctx := context.Background()

	t.Run("taxonomy errors pass through", func(t *testing.T) {
		err := auth.ClassifyError(ctx, auth.ErrForbidden, "ignored")
		require.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("cancelled context is temporary", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := auth.ClassifyError(cancelled, errors.New("interrupted"), "failed")
		require.ErrorIs(t, err, auth.ErrTemporaryFailure)
	})

	t.Run("locked sqlite table is temporary", func(t *testing.T) {
		err := auth.ClassifyError(ctx, errors.New("database table is locked: users"), "failed to create account")
		require.ErrorIs(t, err, auth.ErrTemporaryFailure)

		code, body := auth.ToErrorBody(err)
		assert.Equal(t, 503, code)
		assert.Equal(t, auth.TextCodeTemporaryFailure, body.Error.TextCode)
	})

	t.Run("unknown errors become internal", func(t *testing.T) {
		err := auth.ClassifyError(ctx, errors.New("boom"), "failed to load")
		var richErr *goerrors.Error
		require.True(t, errors.As(err, &richErr))
		assert.Equal(t, auth.TextCodeInternal, richErr.TextCode)
		assert.Equal(t, goerrors.CodeInternal, richErr.Code)
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, auth.ClassifyError(ctx, nil, "x"))
	})
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres code", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other code", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite message", errors.New("UNIQUE constraint failed: users.email"), true},
		{"wrapped postgres", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"unrelated", errors.New("no such table: users"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.IsUniqueViolation(tt.err))
		})
	}
}

func TestNoEmptyStringIsValidation(t *testing.T) {
	assert.ErrorIs(t, auth.ErrNoEmptyString, auth.ErrValidationFailed)
}
