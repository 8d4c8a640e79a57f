package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Secrets persists pending single use secrets
type Secrets interface {
	UpsertTx(ctx context.Context, tx bun.IDB, secret *UserSecret) error
	FindByValueTx(ctx context.Context, tx bun.IDB, value string, purpose SecretPurpose) (*UserSecret, error)
	FindForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose SecretPurpose) (*UserSecret, error)
	// DeleteByValueTx reports false when no row matched, which means another
	// request consumed the secret first.
	DeleteByValueTx(ctx context.Context, tx bun.IDB, value string, purpose SecretPurpose) (bool, error)
}

type secrets struct {
	db *bun.DB
}

var _ Secrets = (*secrets)(nil)

func NewSecretsRepository(db *bun.DB) Secrets {
	return &secrets{db: db}
}

func (s *secrets) UpsertTx(ctx context.Context, tx bun.IDB, secret *UserSecret) error {
	_, err := tx.NewInsert().
		Model(secret).
		On("CONFLICT (user_id, purpose) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("expires_at = EXCLUDED.expires_at").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	return err
}

func (s *secrets) FindByValueTx(ctx context.Context, tx bun.IDB, value string, purpose SecretPurpose) (*UserSecret, error) {
	record := &UserSecret{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.value = ?", value).
		Where("?TableAlias.purpose = ?", purpose).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"purpose": string(purpose),
				})
		}
		return nil, err
	}
	return record, nil
}

func (s *secrets) FindForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose SecretPurpose) (*UserSecret, error) {
	record := &UserSecret{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.purpose = ?", purpose).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id": userID.String(),
					"purpose": string(purpose),
				})
		}
		return nil, err
	}
	return record, nil
}

func (s *secrets) DeleteByValueTx(ctx context.Context, tx bun.IDB, value string, purpose SecretPurpose) (bool, error) {
	res, err := tx.NewDelete().
		Model((*UserSecret)(nil)).
		Where("value = ?", value).
		Where("purpose = ?", purpose).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
