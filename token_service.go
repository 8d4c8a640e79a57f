package auth

import (
	"time"

	"github.com/MicahParks/keyfunc/v2"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	DefaultSessionDuration = 24 * time.Hour
	DefaultSigningKeyID    = "primary"

	minSigningKeyLength = 32
)

// TokenConfig configures session token signing
type TokenConfig struct {
	SigningKey string
	// KeyID is written to the kid header of every issued token
	KeyID string
	// RetiredKeys are still accepted for validation, keyed by kid
	RetiredKeys map[string]string
	Expiration  time.Duration
	Issuer      string
	Audience    []string
}

func (c TokenConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(minSigningKeyLength, 0)),
	)
}

// TokenService issues and validates HS256 session tokens
type TokenService struct {
	signingKey []byte
	keyID      string
	keyfunc    jwt.Keyfunc
	expiration time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	clock      Clock
	logger     Logger
}

var _ SessionValidator = (*TokenService)(nil)

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid token configuration")
	}

	keyID := cfg.KeyID
	if keyID == "" {
		keyID = DefaultSigningKeyID
	}

	expiration := cfg.Expiration
	if expiration <= 0 {
		expiration = DefaultSessionDuration
	}

	alg := jwt.SigningMethodHS256.Alg()
	givenKeys := make(map[string]keyfunc.GivenKey, len(cfg.RetiredKeys)+1)
	for kid, key := range cfg.RetiredKeys {
		givenKeys[kid] = keyfunc.NewGivenCustom([]byte(key), keyfunc.GivenKeyOptions{
			Algorithm: alg,
		})
	}
	givenKeys[keyID] = keyfunc.NewGivenCustom([]byte(cfg.SigningKey), keyfunc.GivenKeyOptions{
		Algorithm: alg,
	})

	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		keyID:      keyID,
		keyfunc:    keyfunc.NewGiven(givenKeys).Keyfunc,
		expiration: expiration,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		logger:     defLogger{},
	}, nil
}

func (ts *TokenService) WithClock(clock Clock) *TokenService {
	ts.clock = clock
	return ts
}

func (ts *TokenService) WithLogger(logger Logger) *TokenService {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// Expiration returns how long issued sessions last
func (ts *TokenService) Expiration() time.Duration {
	return ts.expiration
}

// Issue signs a session token bound to the user
func (ts *TokenService) Issue(user *User) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, errors.New("user must not be nil", errors.CategoryInternal).
			WithCode(errors.CodeInternal)
	}

	now := ts.clock.now()
	expiresAt := now.Add(ts.expiration)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   user.ID.String(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:      user.ID.String(),
		Email:    user.Email,
		UserRole: user.Role,
		Epoch:    user.SessionEpoch,
	}

	ensureTokenID(&claims.RegisteredClaims)

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.Expires(), nil
}

// SignClaims signs arbitrary session claims with the active key
func (ts *TokenService) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.keyID

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT").
			WithCode(errors.CodeInternal)
	}

	return signedString, nil
}

// Validate parses and verifies a session token. Expired tokens fail with
// ErrExpiredSession, everything else with ErrInvalidSession.
func (ts *TokenService) Validate(raw string) (*SessionClaims, error) {
	if raw == "" {
		return nil, ErrInvalidSession
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.clock.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, ts.keyfunc, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		ts.logger.Debug("session token rejected: %v", err)
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.UserID() == "" {
		return nil, ErrInvalidSession
	}

	return claims, nil
}
