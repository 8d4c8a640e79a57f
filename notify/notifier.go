package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/gofiber/template/django/v3"

	auth "github.com/goliatone/go-service-auth"
)

//go:embed templates
var templatesFS embed.FS

const (
	templateVerification      = "verification"
	templatePasswordReset     = "password_reset"
	templateWelcome           = "welcome"
	templateResetConfirmation = "reset_confirmation"
)

// Config for TemplateNotifier
type Config struct {
	AppName string
	// BaseURL is the client origin used to build reset links,
	// <BaseURL>/reset-password/<secret>
	BaseURL   string
	VerifyTTL time.Duration
	ResetTTL  time.Duration
}

// TemplateNotifier renders account emails from django templates and hands
// them to a Sender.
type TemplateNotifier struct {
	engine *django.Engine
	sender Sender
	cfg    Config
}

var _ auth.Notifier = (*TemplateNotifier)(nil)

// New loads the embedded templates. A nil sender drops every message.
func New(cfg Config, sender Sender) (*TemplateNotifier, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	return NewWithTemplates(cfg, sender, sub)
}

// NewWithTemplates uses templates from fsys instead of the embedded set.
// fsys must hold the four templates at its root.
func NewWithTemplates(cfg Config, sender Sender, fsys fs.FS) (*TemplateNotifier, error) {
	engine := django.NewFileSystem(http.FS(fsys), ".html")
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load email templates")
	}

	if sender == nil {
		sender = SenderFunc(func(context.Context, Message) error { return nil })
	}

	if cfg.AppName == "" {
		cfg.AppName = "Watch Service"
	}
	if cfg.VerifyTTL <= 0 {
		cfg.VerifyTTL = auth.DefaultVerifyTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = auth.DefaultResetTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &TemplateNotifier{
		engine: engine,
		sender: sender,
		cfg:    cfg,
	}, nil
}

func (n *TemplateNotifier) SendVerification(ctx context.Context, email, secret string) error {
	return n.send(ctx, email, "Verify your email", templateVerification, map[string]any{
		"code": secret,
		"ttl":  humanDuration(n.cfg.VerifyTTL),
	})
}

func (n *TemplateNotifier) SendWelcome(ctx context.Context, email, name string) error {
	return n.send(ctx, email, "Welcome to "+n.cfg.AppName, templateWelcome, map[string]any{
		"name": name,
	})
}

func (n *TemplateNotifier) SendPasswordReset(ctx context.Context, email, secret string) error {
	return n.send(ctx, email, "Reset your password", templatePasswordReset, map[string]any{
		"reset_url": n.ResetURL(secret),
		"ttl":       humanDuration(n.cfg.ResetTTL),
	})
}

func (n *TemplateNotifier) SendResetConfirmation(ctx context.Context, email string) error {
	return n.send(ctx, email, "Your password was reset", templateResetConfirmation, nil)
}

// ResetURL is the client link carrying a reset secret
func (n *TemplateNotifier) ResetURL(secret string) string {
	return n.cfg.BaseURL + "/reset-password/" + secret
}

func (n *TemplateNotifier) send(ctx context.Context, to, subject, name string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	binding := map[string]any{
		"app_name": n.cfg.AppName,
		"email":    to,
	}
	for k, v := range data {
		binding[k] = v
	}

	var buf bytes.Buffer
	if err := n.engine.Render(&buf, name, binding); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, fmt.Sprintf("failed to render %s email", name))
	}

	return n.sender.Send(ctx, Message{
		To:      to,
		Subject: subject,
		HTML:    buf.String(),
	})
}

func humanDuration(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(d / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
