package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"

	auth "github.com/goliatone/go-service-auth"
	"github.com/goliatone/go-service-auth/cmd/authd/config"
	"github.com/goliatone/go-service-auth/notify"
	"github.com/goliatone/go-service-auth/records"
)

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	bunDB    *bun.DB
	accounts *auth.Accounts
	auther   *auth.RouteAuthenticator
	records  *records.Service
	srv      router.Server[*fiber.App]
	logger   *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("authd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	applyEnvOverrides(cfg.Raw())
	if err := cfg.Raw().Validate(); err != nil {
		panic(err)
	}

	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAccounts(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	Routes(app)

	app.srv.Serve(app.Config().GetApp().Address)

	WaitExitSignal()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		app.GetLogger("app").Error("server shutdown failed", "error", err)
	}

	// let pending notifications finish
	app.accounts.Wait()
}

// applyEnvOverrides lets deployment secrets live outside app.json
func applyEnvOverrides(cfg *config.BaseConfig) {
	if v := os.Getenv("AUTH_SIGNING_KEY"); v != "" {
		cfg.Auth.SigningKey = v
	}
	if v := os.Getenv("AUTH_ADMIN_EMAIL"); v != "" {
		cfg.Auth.AdminEmail = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Persistence.DSN = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Persistence.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("CLIENT_URL"); v != "" {
		cfg.App.ClientURL = v
	}
}

func openDB(cfg config.Persistence) (*sql.DB, schema.Dialect, error) {
	switch cfg.GetDriver() {
	case "postgres":
		db, err := sql.Open("pgx", cfg.GetDSN())
		return db, pgdialect.New(), err
	case "sqlite", "":
		db, err := sql.Open(sqliteshim.ShimName, sqliteDSN(cfg.GetDSN()))
		return db, sqlitedialect.New(), err
	default:
		return nil, nil, fmt.Errorf("unsupported persistence driver %q", cfg.GetDriver())
	}
}

// sqliteDSN gives a bare file path the writer settings, explicit DSNs are
// kept as configured
func sqliteDSN(dsn string) string {
	if dsn == "" || strings.Contains(dsn, "?") || strings.Contains(dsn, ":memory:") {
		return dsn
	}
	return auth.SQLiteDSN(dsn)
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.Config().GetPersistence()

	db, dialect, err := openDB(cfg)
	if err != nil {
		return err
	}

	persistence.RegisterModel((*auth.User)(nil))
	persistence.RegisterModel((*auth.UserSecret)(nil))
	persistence.RegisterModel((*records.ServiceRecord)(nil))

	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(auth.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()

	return nil
}

func WithAccounts(ctx context.Context, app *App) error {
	cfg := app.Config()
	acfg := cfg.GetAuth()

	notifier, err := notify.New(notify.Config{
		AppName:   cfg.GetApp().Name,
		BaseURL:   cfg.GetApp().ClientURL,
		VerifyTTL: acfg.GetVerifyTTL(),
		ResetTTL:  acfg.GetResetTTL(),
	}, notify.LogSender{Logger: newAuthLogger(app.GetLogger("mail"))})
	if err != nil {
		return err
	}

	activity := activityLogger(app.GetLogger("activity"))

	accounts, err := auth.NewAccounts(app.bunDB, auth.AccountsConfig{
		AdminEmail: acfg.AdminEmail,
		SecretTTLs: auth.SecretTTLs{
			Verify: acfg.GetVerifyTTL(),
			Reset:  acfg.GetResetTTL(),
		},
		Hasher: auth.HasherConfig{
			Cost:        acfg.BcryptCost,
			Concurrency: acfg.HashConcurrency,
		},
		Token: auth.TokenConfig{
			SigningKey:  acfg.SigningKey,
			KeyID:       acfg.KeyID,
			RetiredKeys: acfg.RetiredKeys,
			Expiration:  acfg.GetSessionTTL(),
			Issuer:      acfg.Issuer,
			Audience:    acfg.Audience,
		},
		CommandTimeout:      acfg.GetCommandTimeout(),
		NotificationTimeout: cfg.GetMail().GetNotificationTimeout(),
		DeterministicIDs:    acfg.DeterministicIDs,
	},
		auth.WithLogger(newAuthLogger(app.GetLogger("auth"))),
		auth.WithNotifier(notifier),
		auth.WithActivitySink(activity),
		auth.WithFeatureGate(newConfigGate(cfg.GetFeatures())),
	)
	if err != nil {
		return err
	}

	if err := accounts.Repository().Validate(); err != nil {
		return err
	}

	app.accounts = accounts
	app.auther = auth.NewHTTPAuthenticator(accounts.Resolver(), auth.HTTPConfig{
		CookieName:     acfg.CookieName,
		InsecureCookie: acfg.InsecureCookie,
	}).WithLogger(newAuthLogger(app.GetLogger("auth:http")))

	app.records = records.NewService(
		records.NewRepository(app.bunDB),
		records.WithLogger(newAuthLogger(app.GetLogger("records"))),
		records.WithPhoneRegion(cfg.GetApp().PhoneRegion),
		records.WithTimeout(acfg.GetCommandTimeout()),
		records.WithActivitySink(activity),
	)

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	app.srv = srv

	return nil
}

func Routes(app *App) {
	r := app.srv.Router()

	authGroup := r.Group("/api/auth")
	auth.RegisterAuthRoutes(authGroup, auth.NewAuthController(app.accounts, app.auther,
		auth.WithControllerLogger(newAuthLogger(app.GetLogger("auth:controller"))),
	))

	recordsGroup := r.Group("/api/records")
	records.RegisterRoutes(recordsGroup, records.NewController(
		app.records,
		app.auther,
		newAuthLogger(app.GetLogger("records:controller")),
	))
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
