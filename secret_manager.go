package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	DefaultVerifyTTL = 24 * time.Hour
	DefaultResetTTL  = time.Hour

	// secretBytes gives 256 bits of entropy per secret
	secretBytes = 32
)

// SecretTTLs sets how long each kind of secret stays valid
type SecretTTLs struct {
	Verify time.Duration
	Reset  time.Duration
}

func (t SecretTTLs) withDefaults() SecretTTLs {
	if t.Verify <= 0 {
		t.Verify = DefaultVerifyTTL
	}
	if t.Reset <= 0 {
		t.Reset = DefaultResetTTL
	}
	return t
}

// SecretManager issues and consumes single use, time limited secrets for
// email verification and password reset.
type SecretManager struct {
	repo   RepositoryManager
	ttls   SecretTTLs
	clock  Clock
	random io.Reader
	logger Logger
}

func NewSecretManager(repo RepositoryManager, ttls SecretTTLs) *SecretManager {
	return &SecretManager{
		repo:   repo,
		ttls:   ttls.withDefaults(),
		random: rand.Reader,
		logger: defLogger{},
	}
}

func (m *SecretManager) WithClock(clock Clock) *SecretManager {
	m.clock = clock
	return m
}

func (m *SecretManager) WithLogger(logger Logger) *SecretManager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// TTL returns the lifetime of secrets for purpose
func (m *SecretManager) TTL(purpose SecretPurpose) time.Duration {
	if purpose == PurposeReset {
		return m.ttls.Reset
	}
	return m.ttls.Verify
}

// Issue stores a fresh secret for userID, replacing any pending secret with
// the same purpose.
func (m *SecretManager) Issue(ctx context.Context, userID uuid.UUID, purpose SecretPurpose) (string, time.Time, error) {
	var value string
	var expiresAt time.Time

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		value, expiresAt, err = m.IssueTx(ctx, tx, userID, purpose)
		return err
	})
	if err != nil {
		return "", time.Time{}, classifyError(ctx, err, "failed to issue secret")
	}
	return value, expiresAt, nil
}

func (m *SecretManager) IssueTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose SecretPurpose) (string, time.Time, error) {
	if !purpose.Valid() {
		return "", time.Time{}, WrapAs(ErrValidationFailed, "unknown secret purpose")
	}

	value, err := m.newValue()
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to generate secret").
			WithTextCode(TextCodeInternal).
			WithCode(errors.CodeInternal)
	}

	now := m.clock.now()
	expiresAt := now.Add(m.TTL(purpose))

	err = m.repo.Secrets().UpsertTx(ctx, tx, &UserSecret{
		UserID:    userID,
		Purpose:   purpose,
		Value:     value,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	return value, expiresAt, nil
}

// Consume validates and clears a secret, returning the owning user id. An
// expired secret fails with ErrExpiredSecret, an unknown or already used
// one with ErrUnknownSecret.
func (m *SecretManager) Consume(ctx context.Context, value string, purpose SecretPurpose) (uuid.UUID, error) {
	var userID uuid.UUID
	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		userID, err = m.ConsumeTx(ctx, tx, value, purpose)
		return err
	})
	if err != nil {
		return uuid.Nil, classifyError(ctx, err, "failed to consume secret")
	}
	return userID, nil
}

// ConsumeTx runs the read and the clear inside tx. The delete is
// conditional on the value, so of two concurrent consumers only one sees
// an affected row.
func (m *SecretManager) ConsumeTx(ctx context.Context, tx bun.IDB, value string, purpose SecretPurpose) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return uuid.Nil, ErrUnknownSecret
	}
	if !purpose.Valid() {
		return uuid.Nil, WrapAs(ErrValidationFailed, "unknown secret purpose")
	}

	record, err := m.repo.Secrets().FindByValueTx(ctx, tx, value, purpose)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return uuid.Nil, ErrUnknownSecret
		}
		return uuid.Nil, err
	}

	pending := &PendingSecret{Value: record.Value, ExpiresAt: record.ExpiresAt}
	if pending.Expired(m.clock.now()) {
		return uuid.Nil, ErrExpiredSecret
	}

	deleted, err := m.repo.Secrets().DeleteByValueTx(ctx, tx, value, purpose)
	if err != nil {
		return uuid.Nil, err
	}
	if !deleted {
		return uuid.Nil, ErrUnknownSecret
	}

	return record.UserID, nil
}

// Check reports whether value is a live secret for purpose without
// consuming it. It fails like Consume would, but a later Consume can still
// lose to a concurrent request.
func (m *SecretManager) Check(ctx context.Context, value string, purpose SecretPurpose) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrUnknownSecret
	}
	if !purpose.Valid() {
		return WrapAs(ErrValidationFailed, "unknown secret purpose")
	}

	record, err := m.repo.Secrets().FindByValueTx(ctx, m.repo.DB(), value, purpose)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrUnknownSecret
		}
		return classifyError(ctx, err, "failed to load secret")
	}

	pending := &PendingSecret{Value: record.Value, ExpiresAt: record.ExpiresAt}
	if pending.Expired(m.clock.now()) {
		return ErrExpiredSecret
	}
	return nil
}

// Pending returns the live secret for userID and purpose, or nil
func (m *SecretManager) Pending(ctx context.Context, userID uuid.UUID, purpose SecretPurpose) (*PendingSecret, error) {
	record, err := m.repo.Secrets().FindForUserTx(ctx, m.repo.DB(), userID, purpose)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, classifyError(ctx, err, "failed to load secret")
	}
	return &PendingSecret{Value: record.Value, ExpiresAt: record.ExpiresAt}, nil
}

func (m *SecretManager) newValue() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(m.random, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
