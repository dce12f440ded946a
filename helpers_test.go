package accounts_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/mattn/go-sqlite3"
)

var t0 = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

func setupRepo(t *testing.T) (*repository.Manager, func()) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repository.Migrate(ctx, bunDB))
	require.NoError(t, repository.SeedRoles(ctx, bunDB))

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return repository.NewRepositoryManager(bunDB), cleanup
}

func testHasher() *accounts.BcryptHasher {
	return accounts.NewBcryptHasher(bcrypt.MinCost)
}

type fixture struct {
	repo       *repository.Manager
	clock      *fakeClock
	notifier   *captureNotifier
	events     *eventLog
	hasher     accounts.Hasher
	activation *accounts.ActivationManager
	resets     *accounts.PasswordResetManager
}

func newFixture(t *testing.T) (*fixture, func()) {
	t.Helper()

	repo, cleanup := setupRepo(t)
	f := &fixture{
		repo:     repo,
		clock:    newFakeClock(t0),
		notifier: newCaptureNotifier(),
		events:   &eventLog{},
		hasher:   testHasher(),
	}

	f.activation = accounts.NewActivationManager(repo, f.hasher).
		WithNotifier(f.notifier).
		WithClock(f.clock.Now).
		WithActivitySink(f.events).
		WithLogger(newTestLogger())

	f.resets = accounts.NewPasswordResetManager(repo, f.hasher).
		WithNotifier(f.notifier).
		WithClock(f.clock.Now).
		WithActivitySink(f.events).
		WithLogger(newTestLogger())

	return f, cleanup
}

// registerActive registers and activates an account.
func (f *fixture) registerActive(t *testing.T, username, email, password string) *accounts.Account {
	t.Helper()

	ctx := context.Background()
	_, err := f.activation.Register(ctx, accounts.RegistrationRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	require.NoError(t, f.activation.Activate(ctx, f.notifier.activationKey(username)))

	account, err := f.repo.Users().FindByUsername(ctx, username)
	require.NoError(t, err)
	return account
}
