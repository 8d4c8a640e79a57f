package auth

import (
	"context"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RequestVerificationMessage asks for a fresh verification secret for the
// signed in account
type RequestVerificationMessage struct {
	Principal Principal `json:"-"`
}

func (RequestVerificationMessage) Type() string { return "account.verification.request" }

// RequestVerificationHandler reissues the email verification secret. The
// previous secret stops working. Verified accounts are left alone.
type RequestVerificationHandler struct {
	accounts *Accounts
}

var _ command.Commander[RequestVerificationMessage] = (*RequestVerificationHandler)(nil)

func (h *RequestVerificationHandler) Execute(ctx context.Context, msg RequestVerificationMessage) error {
	if err := guardContext(ctx); err != nil {
		return err
	}
	return h.execute(ctx, msg)
}

func (h *RequestVerificationHandler) execute(ctx context.Context, msg RequestVerificationMessage) error {
	a := h.accounts

	identity, ok := AsIdentity(msg.Principal)
	if !ok {
		return ErrUnauthenticated
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	var user *User
	var secret string
	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = a.repo.Users().FindByIDTx(ctx, tx, identity.ID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrNotFound
			}
			return err
		}

		if user.IsVerified {
			return nil
		}

		secret, _, err = a.secrets.IssueTx(ctx, tx, user.ID, PurposeVerify)
		return err
	})
	if err != nil {
		return classifyError(ctx, err, "failed to request verification")
	}

	if secret == "" {
		a.logger.Debug("verification requested for verified account %s", user.Email)
		return nil
	}

	email := user.Email
	a.notify.dispatch(ctx, "verification", email, func(ctx context.Context, n Notifier) error {
		return n.SendVerification(ctx, email, secret)
	})

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventVerificationRequested,
		UserID:    user.ID.String(),
		Email:     user.Email,
	})

	return nil
}
