package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is the user's role. It is set once at signup.
type Role string

const (
	// RoleAdmin manages every service record
	RoleAdmin Role = "admin"
	// RoleCustomer sees only the records they own
	RoleCustomer Role = "customer"
)

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// SecretPurpose scopes a single use secret
type SecretPurpose string

const (
	PurposeVerify SecretPurpose = "verify"
	PurposeReset  SecretPurpose = "reset"
)

func (p SecretPurpose) Valid() bool {
	return p == PurposeVerify || p == PurposeReset
}

// PendingSecret is a live single use secret. A nil *PendingSecret means
// nothing is pending for that purpose.
type PendingSecret struct {
	Value     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the secret is no longer valid at now. The expiry
// instant itself is already invalid.
func (s *PendingSecret) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	Email         string        `bun:"email,notnull,unique" json:"email"`
	Name          string        `bun:"name,notnull" json:"name"`
	PasswordHash  string        `bun:"password_hash,notnull" json:"-"`
	Role          Role          `bun:"role,notnull" json:"role"`
	IsVerified    bool          `bun:"is_verified,notnull" json:"is_verified"`
	SessionEpoch  int           `bun:"session_epoch,notnull" json:"-"`
	LastLoginAt   *time.Time    `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     time.Time     `bun:"created_at,nullzero,notnull" json:"created_at"`
	UpdatedAt     time.Time     `bun:"updated_at,nullzero,notnull" json:"updated_at"`
	Secrets       []*UserSecret `bun:"rel:has-many,join:id=user_id" json:"-"`
}

// VerificationSecret returns the pending email verification secret, if any.
// Secrets are only populated when loaded with WithSecrets.
func (u *User) VerificationSecret() *PendingSecret {
	return u.PendingSecret(PurposeVerify)
}

// ResetSecret returns the pending password reset secret, if any.
func (u *User) ResetSecret() *PendingSecret {
	return u.PendingSecret(PurposeReset)
}

func (u *User) PendingSecret(purpose SecretPurpose) *PendingSecret {
	for _, s := range u.Secrets {
		if s != nil && s.Purpose == purpose {
			return &PendingSecret{Value: s.Value, ExpiresAt: s.ExpiresAt}
		}
	}
	return nil
}

// UserSecret stores one pending secret. The (user_id, purpose) primary key
// keeps a single live secret per purpose.
type UserSecret struct {
	bun.BaseModel `bun:"table:user_secrets,alias:usec"`
	UserID        uuid.UUID     `bun:"user_id,pk,type:uuid"`
	Purpose       SecretPurpose `bun:"purpose,pk"`
	Value         string        `bun:"value,notnull,unique"`
	ExpiresAt     time.Time     `bun:"expires_at,notnull"`
	CreatedAt     time.Time     `bun:"created_at,notnull"`
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
