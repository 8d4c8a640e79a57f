package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72
	maxNameLength     = 120
)

type CredentialStoreConfig struct {
	// AdminEmail is compared with the signup email to assign RoleAdmin
	AdminEmail string
	// DeterministicIDs derives user ids from the normalized email
	DeterministicIDs bool
}

// CredentialStore owns user records and password verification
type CredentialStore struct {
	repo             RepositoryManager
	hasher           PasswordHasher
	adminEmail       string
	deterministicIDs bool
	logger           Logger
}

var _ IdentityLookup = (*CredentialStore)(nil)

func NewCredentialStore(repo RepositoryManager, hasher PasswordHasher, cfg CredentialStoreConfig) *CredentialStore {
	if hasher == nil {
		hasher = NewHasher(HasherConfig{})
	}
	return &CredentialStore{
		repo:             repo,
		hasher:           hasher,
		adminEmail:       NormalizeEmail(cfg.AdminEmail),
		deterministicIDs: cfg.DeterministicIDs,
		logger:           defLogger{},
	}
}

func (s *CredentialStore) WithLogger(logger Logger) *CredentialStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// RoleFor derives the role for a signup email
func (s *CredentialStore) RoleFor(email string) Role {
	if s.adminEmail != "" && NormalizeEmail(email) == s.adminEmail {
		return RoleAdmin
	}
	return RoleCustomer
}

// CreateAccount validates, hashes and persists a new unverified account.
func (s *CredentialStore) CreateAccount(ctx context.Context, email, password, name string) (*User, error) {
	user, err := s.PrepareAccount(ctx, email, password, name)
	if err != nil {
		return nil, err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.InsertAccountTx(ctx, tx, user)
	})
	if err != nil {
		return nil, classifyError(ctx, err, "failed to create account")
	}
	return user, nil
}

// PrepareAccount validates input and hashes the password without touching
// the store, so the hash is never computed while a transaction is open.
func (s *CredentialStore) PrepareAccount(ctx context.Context, email, password, name string) (*User, error) {
	if err := validateAccountInput(email, password, name); err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(ctx, password)
	if err != nil {
		return nil, classifyError(ctx, err, "failed to hash password")
	}

	normalized := NormalizeEmail(email)
	user := &User{
		Email:        normalized,
		Name:         name,
		PasswordHash: hash,
		Role:         s.RoleFor(normalized),
		IsVerified:   false,
	}

	if s.deterministicIDs {
		if id, err := hashid.NewUUID(normalized); err == nil {
			user.ID = id
		}
	}

	return user, nil
}

// InsertAccountTx persists a prepared account. The lookup only produces a
// friendly error, the unique constraint is what guards concurrent signups.
func (s *CredentialStore) InsertAccountTx(ctx context.Context, tx bun.IDB, user *User) error {
	_, err := s.repo.Users().FindByEmailTx(ctx, tx, user.Email)
	if err == nil {
		return ErrDuplicateIdentity
	}
	if !repository.IsRecordNotFound(err) {
		return err
	}

	if _, err := s.repo.Users().InsertTx(ctx, tx, user); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return err
	}
	return nil
}

// VerifyCredentials returns the user when email and password match. Unknown
// accounts and wrong passwords fail with the same ErrAuthenticationFailed.
func (s *CredentialStore) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	if err := validation.Validate(email, validation.Required); err != nil {
		return nil, WrapAs(ErrValidationFailed, "email: "+err.Error())
	}
	if err := validation.Validate(password, validation.Required); err != nil {
		return nil, WrapAs(ErrValidationFailed, "password: "+err.Error())
	}

	user, err := s.repo.Users().FindByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			if eq, ok := s.hasher.(timingEqualizer); ok {
				eq.CompareDummy(ctx, password)
			}
			return nil, ErrAuthenticationFailed
		}
		return nil, classifyError(ctx, err, "failed to look up account")
	}

	if err := s.hasher.ComparePasswordAndHash(ctx, password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, ErrAuthenticationFailed
		}
		if errors.Is(err, ErrTemporaryFailure) {
			return nil, err
		}
		s.logger.Error("password comparison failed for user %s: %v", user.ID, err)
		return nil, ErrAuthenticationFailed
	}

	return user, nil
}

// SetPassword replaces the password and clears any pending reset secret in
// one transaction.
func (s *CredentialStore) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := s.HashNewPassword(ctx, password)
	if err != nil {
		return err
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.ApplyPasswordHashTx(ctx, tx, userID, hash)
	})
	return classifyError(ctx, err, "failed to set password")
}

// SetPasswordTx is SetPassword inside an existing transaction
func (s *CredentialStore) SetPasswordTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, password string) error {
	hash, err := s.HashNewPassword(ctx, password)
	if err != nil {
		return err
	}
	return s.ApplyPasswordHashTx(ctx, tx, userID, hash)
}

// ValidateNewPassword checks a replacement password without hashing it
func (s *CredentialStore) ValidateNewPassword(password string) error {
	if err := validation.Validate(password,
		validation.Required,
		validation.Length(minPasswordLength, maxPasswordLength),
	); err != nil {
		return WrapAs(ErrValidationFailed, "password: "+err.Error())
	}
	return nil
}

// HashNewPassword validates and hashes a replacement password
func (s *CredentialStore) HashNewPassword(ctx context.Context, password string) (string, error) {
	if err := s.ValidateNewPassword(password); err != nil {
		return "", err
	}

	hash, err := s.hasher.HashPassword(ctx, password)
	if err != nil {
		return "", classifyError(ctx, err, "failed to hash password")
	}
	return hash, nil
}

func (s *CredentialStore) ApplyPasswordHashTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, hash string) error {
	if err := s.repo.Users().SetPasswordHashTx(ctx, tx, userID, hash); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// FindByID loads a user by its string id
func (s *CredentialStore) FindByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	user, err := s.repo.Users().FindByID(ctx, uid)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, classifyError(ctx, err, "failed to load account")
	}
	return user, nil
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.Users().FindByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, classifyError(ctx, err, "failed to load account")
	}
	return user, nil
}

func validateAccountInput(email, password, name string) error {
	err := validation.Errors{
		"email": validation.Validate(NormalizeEmail(email), validation.Required, is.Email),
		"password": validation.Validate(password,
			validation.Required,
			validation.Length(minPasswordLength, maxPasswordLength),
		),
		"name": validation.Validate(name, validation.Required, validation.Length(1, maxNameLength)),
	}.Filter()

	if err != nil {
		return WrapAs(ErrValidationFailed, err.Error())
	}
	return nil
}
