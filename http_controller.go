package auth

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the account endpoints on app
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController) {
	r := controller.Routes
	protected := controller.Auther.ProtectedRoute()

	app.Post(r.Signup, controller.Signup).SetName("auth.signup")
	app.Post(r.VerifyEmail, controller.VerifyEmail).SetName("auth.verify-email")
	app.Post(r.ResendVerification, controller.ResendVerification, protected).SetName("auth.verify-email.resend")
	app.Post(r.Login, controller.Login).SetName("auth.login")
	app.Post(r.Logout, controller.Logout).SetName("auth.logout")
	app.Post(r.LogoutEverywhere, controller.LogoutEverywhere, protected).SetName("auth.logout-everywhere")
	app.Post(r.ForgotPassword, controller.ForgotPassword).SetName("auth.forgot-password")
	app.Post(r.ResetPassword+"/:secret", controller.ResetPassword).SetName("auth.reset-password")
	app.Get(r.CheckAuth, controller.CheckAuth, protected).SetName("auth.check")
}

type AuthControllerRoutes struct {
	Signup             string
	VerifyEmail        string
	ResendVerification string
	Login              string
	Logout             string
	LogoutEverywhere   string
	ForgotPassword     string
	ResetPassword      string
	CheckAuth          string
}

type AuthController struct {
	Logger   Logger
	Accounts *Accounts
	Auther   *RouteAuthenticator
	Routes   *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func NewAuthController(accounts *Accounts, auther *RouteAuthenticator, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   defLogger{},
		Accounts: accounts,
		Auther:   auther,
		Routes: &AuthControllerRoutes{
			Signup:             "/signup",
			VerifyEmail:        "/verify-email",
			ResendVerification: "/verify-email/resend",
			Login:              "/login",
			Logout:             "/logout",
			LogoutEverywhere:   "/logout-everywhere",
			ForgotPassword:     "/forgot-password",
			ResetPassword:      "/reset-password",
			CheckAuth:          "/check-auth",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Accounts == nil {
		panic("Missing Accounts in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	return c
}

// SignupPayload is the signup request body
type SignupPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Name     string `form:"name" json:"name"`
}

func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, maxNameLength)),
	)
}

func (a *AuthController) Signup(ctx router.Context) error {
	payload := new(SignupPayload)
	if err := a.bind(ctx, payload); err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	res, err := a.Accounts.Signup(ctx.Context(), SignupMessage{
		Email:    payload.Email,
		Password: payload.Password,
		Name:     payload.Name,
	})
	if err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	a.Auther.SetSession(ctx, res.Token, res.ExpiresAt)

	return ctx.JSON(http.StatusCreated, router.ViewContext{
		"success": true,
		"message": "User created successfully",
		"user":    res.User,
	})
}

type VerifyEmailPayload struct {
	Code string `form:"code" json:"code"`
}

func (r VerifyEmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required),
	)
}

func (a *AuthController) VerifyEmail(ctx router.Context) error {
	payload := new(VerifyEmailPayload)
	if err := a.bind(ctx, payload); err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	user, err := a.Accounts.VerifyEmail(ctx.Context(), payload.Code)
	if err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Email verified successfully",
		"user":    user,
	})
}

func (a *AuthController) ResendVerification(ctx router.Context) error {
	if err := a.Accounts.ResendVerification(ctx.Context(), PrincipalFromRouter(ctx)); err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Verification email sent",
	})
}

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginPayload)
	if err := a.bind(ctx, payload); err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	res, err := a.Accounts.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	a.Auther.SetSession(ctx, res.Token, res.ExpiresAt)

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Logged in successfully",
		"user":    res.User,
	})
}

// Logout clears the session cookie. It succeeds with or without a session.
func (a *AuthController) Logout(ctx router.Context) error {
	a.Accounts.Logout(ctx.Context(), a.Auther.ResolveRequest(ctx))
	a.Auther.ClearSession(ctx)

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (a *AuthController) LogoutEverywhere(ctx router.Context) error {
	if err := a.Accounts.LogoutEverywhere(ctx.Context(), PrincipalFromRouter(ctx)); err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	a.Auther.ClearSession(ctx)

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Logged out of every session",
	})
}

type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)
	if err := a.bind(ctx, payload); err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	if err := a.Accounts.ForgotPassword(ctx.Context(), payload.Email); err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "If the account exists, a password reset link was sent",
	})
}

type ResetPasswordPayload struct {
	Password string `form:"password" json:"password"`
}

func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
	)
}

func (a *AuthController) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordPayload)
	if err := a.bind(ctx, payload); err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	if err := a.Accounts.ResetPassword(ctx.Context(), ctx.Param("secret"), payload.Password); err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"message": "Password reset successful",
	})
}

// CheckAuth returns the current user
func (a *AuthController) CheckAuth(ctx router.Context) error {
	user, err := a.Accounts.CurrentUser(ctx.Context(), PrincipalFromRouter(ctx))
	if err != nil {
		return a.Auther.HandleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"success": true,
		"user":    user,
	})
}

type validatable interface {
	Validate() error
}

func (a *AuthController) bind(ctx router.Context, payload validatable) error {
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("failed to parse payload: %v", err)
		return WrapAs(ErrValidationFailed, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return WrapAs(ErrValidationFailed, err.Error())
	}
	return nil
}
