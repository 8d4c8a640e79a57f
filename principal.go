package auth

import "github.com/google/uuid"

// Principal is who is making a request: an AuthenticatedIdentity or
// Anonymous. The interface is sealed.
type Principal interface {
	IsAuthenticated() bool
	principal()
}

// AuthenticatedIdentity is a caller with a valid session
type AuthenticatedIdentity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

func (AuthenticatedIdentity) IsAuthenticated() bool { return true }
func (AuthenticatedIdentity) principal()            {}

func (i AuthenticatedIdentity) IsAdmin() bool {
	return i.Role.IsAdmin()
}

// Anonymous is a caller without a usable session. Reason records why
// resolution failed and is only meant for logs.
type Anonymous struct {
	Reason error
}

func (Anonymous) IsAuthenticated() bool { return false }
func (Anonymous) principal()            {}

// IdentityFromUser builds the identity carried through a request
func IdentityFromUser(user *User) AuthenticatedIdentity {
	return AuthenticatedIdentity{
		ID:    user.ID,
		Email: NormalizeEmail(user.Email),
		Role:  user.Role,
	}
}

// AsIdentity returns the authenticated identity behind p, if any
func AsIdentity(p Principal) (AuthenticatedIdentity, bool) {
	switch v := p.(type) {
	case AuthenticatedIdentity:
		return v, true
	case *AuthenticatedIdentity:
		if v != nil {
			return *v, true
		}
	}
	return AuthenticatedIdentity{}, false
}
