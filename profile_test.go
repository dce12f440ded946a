package accounts_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileManager(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	ctx := context.Background()
	alice := f.registerActive(t, "alice", "alice@example.com", "secret1")
	f.registerActive(t, "bob", "bob@example.com", "secret1")

	profiles := accounts.NewProfileManager(f.repo.Users()).
		WithClock(f.clock.Now).
		WithActivitySink(f.events)

	current, err := profiles.Current(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", current.Username)

	_, err = profiles.Current(ctx, uuid.New())
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)

	list, err := profiles.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].Username)

	t.Run("taken username", func(t *testing.T) {
		_, err := profiles.UpdateProfile(ctx, alice.ID, accounts.ProfileUpdate{Username: "bob"})
		assert.ErrorIs(t, err, accounts.ErrUsernameTaken)
	})

	t.Run("taken email", func(t *testing.T) {
		_, err := profiles.UpdateProfile(ctx, alice.ID, accounts.ProfileUpdate{Email: "bob@example.com"})
		assert.ErrorIs(t, err, accounts.ErrEmailTaken)
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := profiles.UpdateProfile(ctx, alice.ID, accounts.ProfileUpdate{Email: "nope"})
		assert.ErrorIs(t, err, accounts.ErrInvalidEmail)
	})

	t.Run("no changes", func(t *testing.T) {
		updated, err := profiles.UpdateProfile(ctx, alice.ID, accounts.ProfileUpdate{Username: "alice"})
		require.NoError(t, err)
		assert.Equal(t, "alice", updated.Username)
	})

	t.Run("update", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		actorCtx := accounts.WithActor(ctx, "alice")

		updated, err := profiles.UpdateProfile(actorCtx, alice.ID, accounts.ProfileUpdate{
			Username: "alicia",
			Email:    "alicia@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "alicia", updated.Username)

		stored, err := f.repo.Users().FindByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alicia@example.com", stored.Email)
		assert.Equal(t, "alice", stored.LastModifiedBy)
		assert.WithinDuration(t, t0.Add(time.Hour), stored.LastModifiedAt, time.Second)
	})

	assert.Contains(t, f.events.types(), accounts.ActivityEventProfileUpdated)
}
