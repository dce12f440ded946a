package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProfileUpdate carries the editable account fields. Empty fields are left
// unchanged.
type ProfileUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ProfileManager reads and edits the profile of an existing account.
type ProfileManager struct {
	users UserStore
	now   func() time.Time
	recorder
}

// NewProfileManager creates a manager
func NewProfileManager(users UserStore) *ProfileManager {
	return &ProfileManager{
		users:    users,
		now:      time.Now,
		recorder: recorder{activity: noopActivitySink{}, logger: defLogger{}},
	}
}

func (m *ProfileManager) WithClock(now func() time.Time) *ProfileManager {
	if now != nil {
		m.now = now
	}
	return m
}

func (m *ProfileManager) WithActivitySink(sink ActivitySink) *ProfileManager {
	m.activity = normalizeActivitySink(sink)
	return m
}

func (m *ProfileManager) WithLogger(logger Logger) *ProfileManager {
	m.logger = normalizeLogger(logger)
	return m
}

// Current returns the account behind id.
func (m *ProfileManager) Current(ctx context.Context, id uuid.UUID) (*Account, error) {
	account, err := m.users.FindByID(ctx, id)
	if err != nil {
		return nil, passthrough(err, "failed to load account")
	}
	return account, nil
}

// List returns a page of accounts for administrators.
func (m *ProfileManager) List(ctx context.Context, limit, offset int) ([]*Account, error) {
	list, err := m.users.List(ctx, limit, offset)
	if err != nil {
		return nil, passthrough(err, "failed to list accounts")
	}
	return list, nil
}

// UpdateProfile changes the username and/or email of the account behind id.
func (m *ProfileManager) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*Account, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during profile update")
	default:
	}

	tctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	account, err := m.users.FindByID(tctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, passthrough(err, "failed to load account")
	}

	changed := map[string]any{}

	if username := strings.TrimSpace(update.Username); username != "" && username != account.Username {
		if err := ValidateUsername(username); err != nil {
			return nil, err
		}
		taken, err := m.users.ExistsByUsername(tctx, username)
		if err != nil {
			return nil, passthrough(err, "failed to check username")
		}
		if taken {
			return nil, ErrUsernameTaken
		}
		changed["username"] = username
		account.Username = username
	}

	if email := strings.TrimSpace(update.Email); email != "" && email != account.Email {
		if err := ValidateEmail(email); err != nil {
			return nil, err
		}
		taken, err := m.users.ExistsByEmail(tctx, email)
		if err != nil {
			return nil, passthrough(err, "failed to check email")
		}
		if taken {
			return nil, ErrEmailTaken
		}
		changed["email"] = email
		account.Email = email
	}

	if len(changed) == 0 {
		return account, nil
	}

	now := m.now().UTC()
	account.touch(ActorFromContext(ctx), now)

	if err := m.users.Update(tctx, account); err != nil {
		return nil, passthrough(err, "failed to update profile")
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventProfileUpdated,
		Actor:      accountActor(account),
		AccountID:  account.ID.String(),
		Metadata:   changed,
		OccurredAt: now,
	})

	return account, nil
}
