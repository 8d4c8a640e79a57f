package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-service-auth/middleware/jwtware"
)

const (
	DefaultSessionCookie = "session"
	DefaultTokenLookup   = "cookie:" + DefaultSessionCookie + ",header:" + router.HeaderAuthorization
	DefaultAuthScheme    = "Bearer"
)

// HTTPConfig configures the session transport
type HTTPConfig struct {
	CookieName  string
	TokenLookup string
	AuthScheme  string
	// InsecureCookie drops the Secure flag, for local http development only
	InsecureCookie bool
}

func (c HTTPConfig) withDefaults() HTTPConfig {
	if c.CookieName == "" {
		c.CookieName = DefaultSessionCookie
	}
	if c.TokenLookup == "" {
		c.TokenLookup = "cookie:" + c.CookieName + ",header:" + router.HeaderAuthorization
	}
	if c.AuthScheme == "" {
		c.AuthScheme = DefaultAuthScheme
	}
	return c
}

// RouteAuthenticator moves session credentials between HTTP requests and
// the identity core.
type RouteAuthenticator struct {
	resolver *SessionResolver
	cfg      HTTPConfig
	clock    Clock
	Logger   Logger
	// ErrorHandler renders every error returned by auth handlers and middleware
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(resolver *SessionResolver, cfg HTTPConfig) *RouteAuthenticator {
	a := &RouteAuthenticator{
		resolver: resolver,
		cfg:      cfg.withDefaults(),
		Logger:   defLogger{},
	}
	a.ErrorHandler = a.defaultErrHandler
	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

func (a *RouteAuthenticator) WithClock(clock Clock) *RouteAuthenticator {
	a.clock = clock
	return a
}

// ProtectedRoute requires an authenticated principal
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return a.Middleware(false)
}

// OptionalRoute resolves the principal but lets anonymous callers through
func (a *RouteAuthenticator) OptionalRoute() router.MiddlewareFunc {
	return a.Middleware(true)
}

// Middleware resolves the session credential into a Principal stored in the
// request context. With optional unset, anonymous requests are rejected.
func (a *RouteAuthenticator) Middleware(optional bool) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		TokenLookup:  a.cfg.TokenLookup,
		AuthScheme:   a.cfg.AuthScheme,
		Optional:     optional,
		ErrorHandler: a.ErrorHandler,
		Resolver:     a.resolve,
	})
}

func (a *RouteAuthenticator) resolve(ctx context.Context, raw string) (context.Context, error) {
	p, claims := a.resolver.ResolveClaims(ctx, raw)
	ctx = WithPrincipal(ctx, p)
	if claims != nil {
		ctx = WithClaimsContext(ctx, claims)
	}

	if anon, ok := p.(Anonymous); ok {
		reason := anon.Reason
		if reason == nil {
			reason = ErrUnauthenticated
		}
		return ctx, reason
	}
	return ctx, nil
}

// ResolveRequest extracts the raw credential using the configured lookup
// order and resolves it.
func (a *RouteAuthenticator) ResolveRequest(c router.Context) Principal {
	raw, _ := jwtware.ExtractRawTokenFromContext(c, jwtware.GetExtractors(a.cfg.TokenLookup, a.cfg.AuthScheme))
	return a.resolver.Resolve(c.Context(), raw)
}

// SetSession writes the session cookie
func (a *RouteAuthenticator) SetSession(c router.Context, token string, expiresAt time.Time) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.CookieName,
		Value:    token,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   !a.cfg.InsecureCookie,
		SameSite: "Lax",
	})
}

// ClearSession expires the session cookie. It is safe to call without a
// session.
func (a *RouteAuthenticator) ClearSession(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Expires:  a.clock.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   !a.cfg.InsecureCookie,
		SameSite: "Lax",
	})
}

// HandleError renders err through the configured ErrorHandler
func (a *RouteAuthenticator) HandleError(c router.Context, err error) error {
	return a.ErrorHandler(c, err)
}

// ErrorBody is the JSON error envelope
type ErrorBody struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	TextCode string `json:"text_code"`
	Message  string `json:"message"`
}

// ToErrorBody maps err to a status code and a client safe body. Errors
// that are neither in the taxonomy nor a coded client error are reported
// as internal without details.
func ToErrorBody(err error) (int, ErrorBody) {
	for _, sentinel := range taxonomy {
		if errors.Is(err, sentinel) {
			return sentinel.Code, ErrorBody{
				Error: ErrorDetail{
					TextCode: sentinel.TextCode,
					Message:  clientMessage(err, sentinel),
				},
			}
		}
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		if richErr.Category == errors.CategoryValidation {
			return errors.CodeBadRequest, ErrorBody{
				Error: ErrorDetail{
					TextCode: TextCodeValidationFailed,
					Message:  richErr.Message,
				},
			}
		}
		// client errors declared outside this package, e.g. by records
		if richErr.Code >= 400 && richErr.Code < 500 && richErr.TextCode != "" {
			return richErr.Code, ErrorBody{
				Error: ErrorDetail{
					TextCode: richErr.TextCode,
					Message:  richErr.Message,
				},
			}
		}
	}

	return errors.CodeInternal, ErrorBody{
		Error: ErrorDetail{
			TextCode: TextCodeInternal,
			Message:  "an unexpected error occurred",
		},
	}
}

// clientMessage keeps the specific message of validation errors, which
// name the offending fields. Every other sentinel answers with its own
// message so internal causes never leak.
func clientMessage(err error, sentinel *errors.Error) string {
	if sentinel != ErrValidationFailed {
		return sentinel.Message
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Message != "" {
		return richErr.Message
	}
	return sentinel.Message
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	code, body := ToErrorBody(err)

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		a.Logger.Debug("request failed: status=%d category=%s text_code=%s message=%s details=%s",
			code, richErr.Category, richErr.TextCode, richErr.Message, print.MaybePrettyJSON(richErr.Metadata))
	}

	if code >= errors.CodeInternal {
		a.Logger.Error("request failed: %v", err)
	}

	return c.JSON(code, body)
}
