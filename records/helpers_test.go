package records

import (
	"database/sql"
	"io/fs"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"

	auth "github.com/goliatone/go-service-auth"
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

	migrations, err := auth.MigrationsFor("sqlite")
	require.NoError(t, err)

	names, err := fs.Glob(migrations, "*.up.sql")
	require.NoError(t, err)
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

	return bunDB
}

var (
	admin = auth.AuthenticatedIdentity{ID: uuid.New(), Email: "admin@shop.test", Role: auth.RoleAdmin}
	alice = auth.AuthenticatedIdentity{ID: uuid.New(), Email: "alice@example.com", Role: auth.RoleCustomer}
	bob   = auth.AuthenticatedIdentity{ID: uuid.New(), Email: "bob@example.com", Role: auth.RoleCustomer}
	anon  = auth.Anonymous{}
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewService(NewRepository(setupTestDB(t)), WithClock(clock.Now))
}

func day(n int) *time.Time {
	d := time.Date(2025, 3, n, 0, 0, 0, 0, time.UTC)
	return &d
}
