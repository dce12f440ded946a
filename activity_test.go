package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiActivitySink(t *testing.T) {
	var calls []string
	first := accounts.ActivitySinkFunc(func(context.Context, accounts.ActivityEvent) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	second := accounts.ActivitySinkFunc(func(context.Context, accounts.ActivityEvent) error {
		calls = append(calls, "second")
		return nil
	})

	sink := accounts.MultiActivitySink{first, nil, second}
	err := sink.Record(context.Background(), accounts.ActivityEvent{EventType: accounts.ActivityEventLoginSuccess})

	assert.EqualError(t, err, "first failed")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestActivitySinkFailureDoesNotFailOperation(t *testing.T) {
	f, cleanup := newFixture(t)
	defer cleanup()

	logger := newTestLogger()
	f.activation.
		WithActivitySink(accounts.ActivitySinkFunc(func(context.Context, accounts.ActivityEvent) error {
			return errors.New("sink offline")
		})).
		WithLogger(logger)

	_, err := f.activation.Register(context.Background(), accounts.RegistrationRequest{
		Username: "alice", Email: "alice@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"activity sink error"}, logger.get("warn"))
}
