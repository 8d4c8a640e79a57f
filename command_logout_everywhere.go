package auth

import (
	"context"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type LogoutEverywhereMessage struct {
	Principal Principal `json:"-"`
}

func (LogoutEverywhereMessage) Type() string { return "account.logout_everywhere" }

// LogoutEverywhereHandler bumps the session epoch of the principal's
// account. Tokens carry the epoch they were minted with, so every session
// issued before the bump stops resolving.
type LogoutEverywhereHandler struct {
	accounts *Accounts
}

var _ command.Commander[LogoutEverywhereMessage] = (*LogoutEverywhereHandler)(nil)

func (h *LogoutEverywhereHandler) Execute(ctx context.Context, msg LogoutEverywhereMessage) error {
	if err := guardContext(ctx); err != nil {
		return err
	}
	return h.execute(ctx, msg)
}

func (h *LogoutEverywhereHandler) execute(ctx context.Context, msg LogoutEverywhereMessage) error {
	a := h.accounts

	identity, ok := AsIdentity(msg.Principal)
	if !ok {
		return ErrUnauthenticated
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := a.repo.Users().BumpSessionEpochTx(ctx, tx, identity.ID); err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return classifyError(ctx, err, "failed to revoke sessions")
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventLogoutEverywhere,
		UserID:    identity.ID.String(),
		Email:     identity.Email,
	})

	return nil
}
