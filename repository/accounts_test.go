package repository

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountStoreCreateAndFind(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAccountStore(db)

	account := newAccount("alice", "alice@example.com", baseTime)
	require.NoError(t, store.Create(ctx, account))

	byName, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byName.ID)
	assert.Equal(t, "alice@example.com", byName.Email)
	assert.Equal(t, "digest", byName.PasswordHash)
	assert.False(t, byName.Activated)
	assert.Equal(t, []accounts.Role{accounts.RoleCustomer}, byName.Roles)
	assert.WithinDuration(t, baseTime, byName.CreatedAt, time.Second)
	assert.Equal(t, accounts.ActorAnonymous, byName.CreatedBy)

	byEmail, err := store.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byEmail.ID)

	byID, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	exists, err := store.ExistsByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.ExistsByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAccountStoreFindMissing(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAccountStore(db)

	_, err := store.FindByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)

	_, err = store.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

func TestAccountStoreCreateUniqueViolations(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAccountStore(db)

	require.NoError(t, store.Create(ctx, newAccount("alice", "alice@example.com", baseTime)))

	err := store.Create(ctx, newAccount("alice", "other@example.com", baseTime))
	assert.ErrorIs(t, err, accounts.ErrUsernameTaken)

	err = store.Create(ctx, newAccount("bob", "alice@example.com", baseTime))
	assert.ErrorIs(t, err, accounts.ErrEmailTaken)
}

func TestAccountStoreUpdate(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAccountStore(db)

	account := newAccount("alice", "alice@example.com", baseTime)
	require.NoError(t, store.Create(ctx, account))

	account.Activated = true
	account.LastModifiedBy = "alice"
	account.LastModifiedAt = baseTime.Add(time.Minute)
	require.NoError(t, store.Update(ctx, account))

	found, err := store.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, found.Activated)
	assert.Equal(t, "alice", found.LastModifiedBy)

	require.NoError(t, store.Delete(ctx, account.ID))

	err = store.Update(ctx, account)
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)

	_, err = store.FindByID(ctx, account.ID)
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound, "update must not resurrect a deleted account")
}

func TestAccountStoreDeletePendingSkipsActivated(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAccountStore(db)

	pending := newAccount("pending", "pending@example.com", baseTime)
	active := newAccount("active", "active@example.com", baseTime)
	active.Activated = true
	require.NoError(t, store.Create(ctx, pending))
	require.NoError(t, store.Create(ctx, active))

	deleted, err := store.DeletePending(ctx, active.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = store.DeletePending(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.FindByID(ctx, active.ID)
	assert.NoError(t, err)
}

func TestAccountStoreFindAbandonedPending(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	users := NewAccountStore(db)
	artifacts := NewArtifactStore(db)

	now := baseTime
	cutoff := now.Add(-72 * time.Hour)

	// expired 80h ago
	stale := newAccount("stale", "stale@example.com", now.Add(-80*time.Hour-10*time.Minute))
	// expired 10h ago
	recent := newAccount("recent", "recent@example.com", now.Add(-10*time.Hour-10*time.Minute))
	// lost its key, created long ago
	orphan := newAccount("orphan", "orphan@example.com", now.Add(-100*time.Hour))
	// activated long ago
	active := newAccount("active", "active@example.com", now.Add(-200*time.Hour))
	active.Activated = true

	for _, a := range []*accounts.Account{stale, recent, orphan, active} {
		require.NoError(t, users.Create(ctx, a))
	}

	require.NoError(t, artifacts.SaveActivation(ctx, &accounts.ActivationKey{
		ID: uuid.New(), AccountID: stale.ID, Key: "111111",
		ExpiresAt: stale.CreatedAt.Add(10 * time.Minute), CreatedAt: stale.CreatedAt,
	}))
	require.NoError(t, artifacts.SaveActivation(ctx, &accounts.ActivationKey{
		ID: uuid.New(), AccountID: recent.ID, Key: "222222",
		ExpiresAt: recent.CreatedAt.Add(10 * time.Minute), CreatedAt: recent.CreatedAt,
	}))

	found, err := users.FindAbandonedPending(ctx, cutoff)
	require.NoError(t, err)

	names := make([]string, 0, len(found))
	for _, a := range found {
		names = append(names, a.Username)
	}
	assert.ElementsMatch(t, []string{"stale", "orphan"}, names)
}

func TestAccountStoreList(t *testing.T) {
	db, cleanup := setupDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewAccountStore(db)

	for i, name := range []string{"carol", "alice", "bob"} {
		created := baseTime.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Create(ctx, newAccount(name, name+"@example.com", created)))
	}

	all, err := store.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "carol", all[0].Username)
	assert.Equal(t, "bob", all[2].Username)

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "alice", page[0].Username)

	empty, err := store.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
