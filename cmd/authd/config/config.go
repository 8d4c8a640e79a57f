package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

type BaseConfig struct {
	App         App             `koanf:"app" json:"app"`
	Auth        Auth            `koanf:"auth" json:"auth"`
	Persistence Persistence     `koanf:"persistence" json:"persistence"`
	Mail        Mail            `koanf:"mail" json:"mail"`
	Features    map[string]bool `koanf:"features" json:"features"`
}

type App struct {
	Name    string `koanf:"name" json:"name"`
	Address string `koanf:"address" json:"address"`
	// ClientURL is the front end origin used in email links
	ClientURL   string `koanf:"client_url" json:"client_url"`
	PhoneRegion string `koanf:"phone_region" json:"phone_region"`
}

type Auth struct {
	AdminEmail         string            `koanf:"admin_email" json:"admin_email"`
	SigningKey         string            `koanf:"signing_key" json:"-"`
	KeyID              string            `koanf:"key_id" json:"key_id"`
	RetiredKeys        map[string]string `koanf:"retired_keys" json:"-"`
	Issuer             string            `koanf:"issuer" json:"issuer"`
	Audience           []string          `koanf:"audience" json:"audience"`
	SessionTTLExpr     string            `koanf:"session_ttl" json:"session_ttl"`
	VerifyTTLExpr      string            `koanf:"verify_ttl" json:"verify_ttl"`
	ResetTTLExpr       string            `koanf:"reset_ttl" json:"reset_ttl"`
	CommandTimeoutExpr string            `koanf:"command_timeout" json:"command_timeout"`
	BcryptCost         int               `koanf:"bcrypt_cost" json:"bcrypt_cost"`
	HashConcurrency    int               `koanf:"hash_concurrency" json:"hash_concurrency"`
	CookieName         string            `koanf:"cookie_name" json:"cookie_name"`
	InsecureCookie     bool              `koanf:"insecure_cookie" json:"insecure_cookie"`
	DeterministicIDs   bool              `koanf:"deterministic_ids" json:"deterministic_ids"`
}

type Persistence struct {
	Debug                 bool   `koanf:"debug" json:"debug"`
	Driver                string `koanf:"driver" json:"driver"`
	Server                string `koanf:"server" json:"server"`
	DSN                   string `koanf:"dsn" json:"-"`
	PingTimeoutExpression string `koanf:"ping_timeout" json:"ping_timeout"`
	OtelIdentifier        string `koanf:"otel_identifier" json:"otel_identifier"`
}

type Mail struct {
	NotificationTimeoutExpr string `koanf:"notification_timeout" json:"notification_timeout"`
}

func (a BaseConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Auth),
		validation.Field(&a.Persistence),
	)
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.AdminEmail, validation.Required, is.Email),
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&a.SessionTTLExpr, validation.By(durationRule)),
		validation.Field(&a.VerifyTTLExpr, validation.By(durationRule)),
		validation.Field(&a.ResetTTLExpr, validation.By(durationRule)),
		validation.Field(&a.CommandTimeoutExpr, validation.By(durationRule)),
	)
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&p.DSN, validation.Required),
		validation.Field(&p.PingTimeoutExpression, validation.By(durationRule)),
	)
}

func durationRule(value any) error {
	expr, _ := value.(string)
	if expr == "" {
		return nil
	}
	if _, err := time.ParseDuration(expr); err != nil {
		return fmt.Errorf("must be a duration like 1h or 30m")
	}
	return nil
}

// duration parses expr. Empty or invalid expressions return zero so the
// component default applies; Validate reports invalid ones first.
func duration(expr string) time.Duration {
	dur, err := time.ParseDuration(expr)
	if err != nil {
		return 0
	}
	return dur
}

func (a BaseConfig) GetApp() App                 { return a.App }
func (a BaseConfig) GetAuth() Auth               { return a.Auth }
func (a BaseConfig) GetPersistence() Persistence { return a.Persistence }
func (a BaseConfig) GetMail() Mail               { return a.Mail }

// GetFeatures returns the feature gate overrides keyed by feature name
func (a BaseConfig) GetFeatures() map[string]bool {
	if a.Features == nil {
		return map[string]bool{}
	}
	return a.Features
}

func (a Auth) GetSessionTTL() time.Duration     { return duration(a.SessionTTLExpr) }
func (a Auth) GetVerifyTTL() time.Duration      { return duration(a.VerifyTTLExpr) }
func (a Auth) GetResetTTL() time.Duration       { return duration(a.ResetTTLExpr) }
func (a Auth) GetCommandTimeout() time.Duration { return duration(a.CommandTimeoutExpr) }

func (m Mail) GetNotificationTimeout() time.Duration {
	return duration(m.NotificationTimeoutExpr)
}

func (p Persistence) GetDebug() bool            { return p.Debug }
func (p Persistence) GetDriver() string         { return p.Driver }
func (p Persistence) GetServer() string         { return p.Server }
func (p Persistence) GetDSN() string            { return p.DSN }
func (p Persistence) GetOtelIdentifier() string { return p.OtelIdentifier }

func (p Persistence) GetPingTimeout() time.Duration {
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}
