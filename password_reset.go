package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// PasswordResetManager issues reset keys and changes passwords.
type PasswordResetManager struct {
	repo     RepositoryManager
	hasher   Hasher
	notifier Notifier
	now      func() time.Time
	keyTTL   time.Duration
	newKey   func() string
	recorder
}

// NewPasswordResetManager creates a manager with sane defaults.
func NewPasswordResetManager(repo RepositoryManager, hasher Hasher) *PasswordResetManager {
	return &PasswordResetManager{
		repo:     repo,
		hasher:   hasher,
		notifier: noopNotifier{},
		now:      time.Now,
		keyTTL:   DefaultResetKeyTTL,
		newKey:   uuid.NewString,
		recorder: recorder{activity: noopActivitySink{}, logger: defLogger{}},
	}
}

// WithNotifier sets the notifier used to deliver reset keys.
func (m *PasswordResetManager) WithNotifier(n Notifier) *PasswordResetManager {
	m.notifier = normalizeNotifier(n)
	return m
}

// WithClock overrides the time source.
func (m *PasswordResetManager) WithClock(now func() time.Time) *PasswordResetManager {
	if now != nil {
		m.now = now
	}
	return m
}

// WithKeyTTL overrides the reset key lifetime.
func (m *PasswordResetManager) WithKeyTTL(ttl time.Duration) *PasswordResetManager {
	if ttl > 0 {
		m.keyTTL = ttl
	}
	return m
}

// WithKeyGenerator overrides how reset keys are drawn.
func (m *PasswordResetManager) WithKeyGenerator(fn func() string) *PasswordResetManager {
	if fn != nil {
		m.newKey = fn
	}
	return m
}

// WithActivitySink sets the sink used to emit password events.
func (m *PasswordResetManager) WithActivitySink(sink ActivitySink) *PasswordResetManager {
	m.activity = normalizeActivitySink(sink)
	return m
}

// WithLogger overrides the logger used by the manager.
func (m *PasswordResetManager) WithLogger(logger Logger) *PasswordResetManager {
	m.logger = normalizeLogger(logger)
	return m
}

// RequestReset issues a reset key for the account registered with email,
// replacing any previous key, and sends it to the owner.
func (m *PasswordResetManager) RequestReset(ctx context.Context, email string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset request")
	default:
		return m.requestReset(ctx, email)
	}
}

func (m *PasswordResetManager) requestReset(ctx context.Context, email string) error {
	tctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	account, err := m.repo.Users().FindByEmail(tctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrEmailNotFound
		}
		return passthrough(err, "failed to look up account")
	}

	now := m.now().UTC()
	artifact := &PasswordResetKey{
		ID:        uuid.New(),
		AccountID: account.ID,
		Key:       m.newKey(),
		ExpiresAt: now.Add(m.keyTTL),
		CreatedAt: now,
	}

	if err := m.repo.Artifacts().SaveReset(tctx, artifact); err != nil {
		return passthrough(err, "failed to store password reset key")
	}

	m.notify(ctx, "password_reset", func(ctx context.Context) error {
		return m.notifier.SendPasswordReset(ctx, account, artifact.Key, artifact.ExpiresAt)
	})

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordResetIssued,
		Actor:      accountActor(account),
		AccountID:  account.ID.String(),
		OccurredAt: now,
	})

	return nil
}

// ResetPassword sets a new password using a reset key. The key is consumed
// on success.
func (m *PasswordResetManager) ResetPassword(ctx context.Context, key, password, confirm string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password reset finalization")
	default:
		return m.resetPassword(ctx, key, password, confirm)
	}
}

func (m *PasswordResetManager) resetPassword(ctx context.Context, key, password, confirm string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidOrExpiredResetKey
	}

	tctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	now := m.now().UTC()
	actor := ActorFromContext(ctx)

	var account *Account
	err := m.repo.RunInTx(tctx, nil, func(ctx context.Context, tx Stores) error {
		artifact, err := tx.Artifacts().FindResetByKey(ctx, key)
		if err != nil {
			if errors.Is(err, ErrArtifactNotFound) {
				return ErrInvalidOrExpiredResetKey
			}
			return err
		}

		if artifact.Expired(now) {
			return ErrInvalidOrExpiredResetKey
		}

		if password != confirm {
			return ErrPasswordMismatch
		}

		if err := ValidatePassword(password); err != nil {
			return err
		}

		account, err = tx.Users().FindByID(ctx, artifact.AccountID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return ErrInvalidOrExpiredResetKey
			}
			return err
		}

		digest, err := m.hasher.Hash(password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = digest
		account.touch(actor, now)
		if err := tx.Users().Update(ctx, account); err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return ErrInvalidOrExpiredResetKey
			}
			return err
		}

		return tx.Artifacts().DeleteReset(ctx, artifact.ID)
	})
	if err != nil {
		return passthrough(err, "failed to finalize password reset")
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordReset,
		Actor:      accountActor(account),
		AccountID:  account.ID.String(),
		OccurredAt: now,
	})

	return nil
}

// ChangePassword replaces the password of an authenticated account after
// checking the current one.
func (m *PasswordResetManager) ChangePassword(ctx context.Context, username, current, password string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during password change")
	default:
		return m.changePassword(ctx, username, current, password)
	}
}

func (m *PasswordResetManager) changePassword(ctx context.Context, username, current, password string) error {
	tctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	users := m.repo.Users()

	account, err := users.FindByUsername(tctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return passthrough(err, "failed to look up account")
	}

	if !m.hasher.Verify(current, account.PasswordHash) {
		return ErrIncorrectCurrentPassword
	}

	if err := ValidatePassword(password); err != nil {
		return err
	}

	digest, err := m.hasher.Hash(password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	now := m.now().UTC()
	account.PasswordHash = digest
	account.touch(ActorFromContext(ctx), now)

	if err := users.Update(tctx, account); err != nil {
		return passthrough(err, "failed to update password")
	}

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordChanged,
		Actor:      accountActor(account),
		AccountID:  account.ID.String(),
		OccurredAt: now,
	})

	return nil
}
