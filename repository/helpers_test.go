package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

func setupDB(t *testing.T) (*bun.DB, func()) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, Migrate(context.Background(), bunDB))

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return bunDB, cleanup
}

var baseTime = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func newAccount(username, email string, created time.Time) *accounts.Account {
	return &accounts.Account{
		ID:             uuid.New(),
		Username:       username,
		Email:          email,
		PasswordHash:   "digest",
		Roles:          []accounts.Role{accounts.RoleCustomer},
		CreatedAt:      created,
		CreatedBy:      accounts.ActorAnonymous,
		LastModifiedAt: created,
		LastModifiedBy: accounts.ActorAnonymous,
	}
}
