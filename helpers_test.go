package auth_test

import (
	"context"
	"database/sql"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"

	auth "github.com/goliatone/go-service-auth"
)

const (
	testSigningKey = "0123456789abcdef0123456789abcdef"
	testAdminEmail = "admin@shop.test"
	testPassword   = "correct-horse-battery"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	migrateTestDB(t, bunDB)
	return bunDB
}

// setupFileTestDB opens a database file with the deployment DSN and a pool
// of connections, so transactions really run side by side.
func setupFileTestDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", auth.SQLiteDSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	db.SetMaxOpenConns(8)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	migrateTestDB(t, bunDB)
	return bunDB
}

// setupMockDB returns a bun database backed by sqlmock
func setupMockDB(t *testing.T) (*bun.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return bun.NewDB(sqlDB, sqlitedialect.New()), dbMock
}

func migrateTestDB(t *testing.T, bunDB *bun.DB) {
	t.Helper()

	migrations, err := auth.MigrationsFor("sqlite")
	require.NoError(t, err)

	names, err := fs.Glob(migrations, "*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	sort.Strings(names)

	for _, name := range names {
		body, err := fs.ReadFile(migrations, name)
		require.NoError(t, err)
		for _, stmt := range strings.Split(string(body), "--bun:split") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			_, err = bunDB.Exec(stmt)
			require.NoError(t, err, name)
		}
	}
}

// testClock is a settable clock
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Clock() auth.Clock {
	return c.Now
}

// mockNotifier records calls and lets tests read the secrets that were sent
type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendVerification(ctx context.Context, email, secret string) error {
	return m.Called(email, secret).Error(0)
}

func (m *mockNotifier) SendWelcome(ctx context.Context, email, name string) error {
	return m.Called(email, name).Error(0)
}

func (m *mockNotifier) SendPasswordReset(ctx context.Context, email, secret string) error {
	return m.Called(email, secret).Error(0)
}

func (m *mockNotifier) SendResetConfirmation(ctx context.Context, email string) error {
	return m.Called(email).Error(0)
}

// lastSecret returns the secret argument of the most recent call to method
func (m *mockNotifier) lastSecret(t *testing.T, method string) string {
	t.Helper()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			return m.Calls[i].Arguments.String(1)
		}
	}
	t.Fatalf("%s was not called", method)
	return ""
}

func newPermissiveNotifier() *mockNotifier {
	n := &mockNotifier{}
	n.On("SendVerification", mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("SendWelcome", mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("SendPasswordReset", mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("SendResetConfirmation", mock.Anything).Return(nil).Maybe()
	return n
}

type stubFeatureGate struct {
	mu      sync.Mutex
	enabled map[string]bool
	calls   []string
	err     error
}

var _ gate.FeatureGate = (*stubFeatureGate)(nil)

func (s *stubFeatureGate) Enabled(ctx context.Context, key string, opts ...gate.ResolveOption) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, key)
	if s.err != nil {
		return false, s.err
	}
	if s.enabled == nil {
		return true, nil
	}
	enabled, ok := s.enabled[key]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

// activityRecorder collects activity events
type activityRecorder struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *activityRecorder) types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type testEnv struct {
	db       *bun.DB
	accounts *auth.Accounts
	notifier *mockNotifier
	clock    *testClock
	activity *activityRecorder
}

func newTestEnv(t *testing.T, opts ...auth.AccountsOption) *testEnv {
	t.Helper()

	env := &testEnv{
		db:       setupTestDB(t),
		notifier: newPermissiveNotifier(),
		clock:    newTestClock(),
		activity: &activityRecorder{},
	}

	base := []auth.AccountsOption{
		auth.WithNotifier(env.notifier),
		auth.WithClock(env.clock.Clock()),
		auth.WithActivitySink(env.activity),
	}

	accounts, err := auth.NewAccounts(env.db, auth.AccountsConfig{
		AdminEmail: testAdminEmail,
		Hasher:     auth.HasherConfig{Cost: auth.MinPasswordHashCost},
		Token:      auth.TokenConfig{SigningKey: testSigningKey},
	}, append(base, opts...)...)
	require.NoError(t, err)

	env.accounts = accounts
	return env
}

// signup creates an account and waits for its notifications
func (e *testEnv) signup(t *testing.T, email string) *auth.SignupResult {
	t.Helper()
	res, err := e.accounts.Signup(context.Background(), auth.SignupMessage{
		Email:    email,
		Password: testPassword,
		Name:     "Test User",
	})
	require.NoError(t, err)
	e.accounts.Wait()
	return res
}
