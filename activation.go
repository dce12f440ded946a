package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const (
	operationTimeout    = 10 * time.Second
	notificationTimeout = 30 * time.Second
	maxKeyAttempts      = 5
)

// RegistrationRequest is the payload for ActivationManager.Register.
type RegistrationRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ActivationManager registers pending accounts and moves them to activated.
type ActivationManager struct {
	repo        RepositoryManager
	hasher      Hasher
	notifier    Notifier
	random      RandomSource
	now         func() time.Time
	keyTTL      time.Duration
	defaultRole Role
	useHashid   bool
	recorder
}

// NewActivationManager creates a manager with sane defaults.
func NewActivationManager(repo RepositoryManager, hasher Hasher) *ActivationManager {
	return &ActivationManager{
		repo:        repo,
		hasher:      hasher,
		notifier:    noopNotifier{},
		random:      newLockedSource(nil),
		now:         time.Now,
		keyTTL:      DefaultActivationKeyTTL,
		defaultRole: DefaultRole,
		recorder:    recorder{activity: noopActivitySink{}, logger: defLogger{}},
	}
}

// WithNotifier sets the notifier used for welcome and activation messages.
func (m *ActivationManager) WithNotifier(n Notifier) *ActivationManager {
	m.notifier = normalizeNotifier(n)
	return m
}

// WithRandomSource sets the source activation keys are drawn from.
func (m *ActivationManager) WithRandomSource(src RandomSource) *ActivationManager {
	m.random = newLockedSource(src)
	return m
}

// WithClock overrides the time source.
func (m *ActivationManager) WithClock(now func() time.Time) *ActivationManager {
	if now != nil {
		m.now = now
	}
	return m
}

// WithKeyTTL overrides the activation key lifetime.
func (m *ActivationManager) WithKeyTTL(ttl time.Duration) *ActivationManager {
	if ttl > 0 {
		m.keyTTL = ttl
	}
	return m
}

// WithDefaultRole sets the role assigned to new accounts. Unknown roles are
// ignored.
func (m *ActivationManager) WithDefaultRole(role Role) *ActivationManager {
	if role.IsValid() {
		m.defaultRole = role
	}
	return m
}

// WithHashidIDs derives account IDs from the email address instead of random
// UUIDs.
func (m *ActivationManager) WithHashidIDs(enabled bool) *ActivationManager {
	m.useHashid = enabled
	return m
}

// WithActivitySink sets the sink used to emit lifecycle events.
func (m *ActivationManager) WithActivitySink(sink ActivitySink) *ActivationManager {
	m.activity = normalizeActivitySink(sink)
	return m
}

// WithLogger overrides the logger used by the manager.
func (m *ActivationManager) WithLogger(logger Logger) *ActivationManager {
	m.logger = normalizeLogger(logger)
	return m
}

// GenerateKey draws a fresh activation key and its expiry.
func (m *ActivationManager) GenerateKey() (string, time.Time) {
	return generateKey(m.random, m.now(), m.keyTTL)
}

// Register creates a pending account with an activation key and notifies the
// owner. Checks run in order: password length, username and email
// availability, email syntax, username length. Notification failures are
// logged and do not undo the registration.
func (m *ActivationManager) Register(ctx context.Context, req RegistrationRequest) (uuid.UUID, error) {
	select {
	case <-ctx.Done():
		return uuid.Nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during registration")
	default:
		return m.register(ctx, req)
	}
}

func (m *ActivationManager) register(ctx context.Context, req RegistrationRequest) (uuid.UUID, error) {
	tctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := ValidatePassword(req.Password); err != nil {
		return uuid.Nil, err
	}

	users := m.repo.Users()

	taken, err := users.ExistsByUsername(tctx, req.Username)
	if err != nil {
		return uuid.Nil, passthrough(err, "failed to check username")
	}
	if taken {
		return uuid.Nil, ErrUsernameTaken
	}

	taken, err = users.ExistsByEmail(tctx, req.Email)
	if err != nil {
		return uuid.Nil, passthrough(err, "failed to check email")
	}
	if taken {
		return uuid.Nil, ErrEmailTaken
	}

	if err := ValidateEmail(req.Email); err != nil {
		return uuid.Nil, err
	}

	if err := ValidateUsername(req.Username); err != nil {
		return uuid.Nil, err
	}

	digest, err := m.hasher.Hash(req.Password)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	now := m.now().UTC()
	actor := ActorFromContext(ctx)
	account := &Account{
		ID:             m.newAccountID(req.Email),
		Username:       req.Username,
		Email:          req.Email,
		PasswordHash:   digest,
		Roles:          []Role{m.defaultRole},
		CreatedAt:      now,
		CreatedBy:      actor,
		LastModifiedAt: now,
		LastModifiedBy: actor,
	}

	var artifact *ActivationKey
	err = m.repo.RunInTx(tctx, nil, func(ctx context.Context, tx Stores) error {
		if err := tx.Users().Create(ctx, account); err != nil {
			return err
		}
		artifact, err = m.issueKey(ctx, tx, account, now)
		return err
	})
	if err != nil {
		return uuid.Nil, passthrough(err, "account registration transaction failed")
	}

	m.logger.Info("account registered", "account_id", account.ID, "username", account.Username)

	m.notify(ctx, "welcome", func(ctx context.Context) error {
		return m.notifier.SendWelcome(ctx, account)
	})
	m.notify(ctx, "activation_key", func(ctx context.Context) error {
		return m.notifier.SendActivationKey(ctx, account, artifact.Key, artifact.ExpiresAt)
	})

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventRegistered,
		Actor:      ActorRef{ID: actor, Type: "user"},
		AccountID:  account.ID.String(),
		Metadata:   map[string]any{"username": account.Username},
		OccurredAt: now,
	})

	return account.ID, nil
}

// Activate flips the account owning key to activated and consumes the key.
// A key is accepted up to and including its expiry instant.
func (m *ActivationManager) Activate(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during activation")
	default:
		return m.activate(ctx, key)
	}
}

func (m *ActivationManager) activate(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrActivationKeyNotFound
	}

	tctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	now := m.now().UTC()
	actor := ActorFromContext(ctx)

	var account *Account
	err := m.repo.RunInTx(tctx, nil, func(ctx context.Context, tx Stores) error {
		artifact, err := tx.Artifacts().FindActivationByKey(ctx, key)
		if err != nil {
			if errors.Is(err, ErrArtifactNotFound) {
				return ErrActivationKeyNotFound
			}
			return err
		}

		if artifact.Expired(now) {
			return ErrActivationKeyExpired
		}

		account, err = tx.Users().FindByID(ctx, artifact.AccountID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return ErrActivationKeyNotFound
			}
			return err
		}

		account.Activated = true
		account.touch(actor, now)
		if err := tx.Users().Update(ctx, account); err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return ErrActivationKeyNotFound
			}
			return err
		}

		return tx.Artifacts().DeleteActivation(ctx, artifact.ID)
	})
	if err != nil {
		return passthrough(err, "account activation transaction failed")
	}

	m.logger.Info("account activated", "account_id", account.ID)
	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventActivated,
		Actor:      accountActor(account),
		AccountID:  account.ID.String(),
		OccurredAt: now,
	})

	return nil
}

// Reissue replaces the activation key of a pending account. It is refused
// while the current key is still live. An account without a key can always
// get a new one.
func (m *ActivationManager) Reissue(ctx context.Context, username string) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during activation key reissue")
	default:
		return m.reissue(ctx, username)
	}
}

func (m *ActivationManager) reissue(ctx context.Context, username string) error {
	tctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	account, err := m.repo.Users().FindByUsername(tctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrUsernameNotFound
		}
		return passthrough(err, "failed to look up account")
	}

	if account.Activated {
		return ErrAlreadyActivated
	}

	now := m.now().UTC()

	var artifact *ActivationKey
	err = m.repo.RunInTx(tctx, nil, func(ctx context.Context, tx Stores) error {
		current, err := tx.Artifacts().FindActivationByAccountID(ctx, account.ID)
		switch {
		case errors.Is(err, ErrArtifactNotFound):
		case err != nil:
			return err
		case now.Before(current.ExpiresAt):
			return ErrActivationKeyNotExpired
		}

		artifact, err = m.issueKey(ctx, tx, account, now)
		return err
	})
	if err != nil {
		return passthrough(err, "activation key reissue transaction failed")
	}

	m.notify(ctx, "activation_key", func(ctx context.Context) error {
		return m.notifier.SendActivationKey(ctx, account, artifact.Key, artifact.ExpiresAt)
	})

	m.record(ctx, ActivityEvent{
		EventType:  ActivityEventActivationReissued,
		Actor:      accountActor(account),
		AccountID:  account.ID.String(),
		OccurredAt: now,
	})

	return nil
}

// issueKey stores a fresh key for account, replacing any previous one. Keys
// held by another account are redrawn, expired or not, so a key always
// resolves to the account it was sent to.
func (m *ActivationManager) issueKey(ctx context.Context, tx Stores, account *Account, now time.Time) (*ActivationKey, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, expiresAt := generateKey(m.random, now, m.keyTTL)

		existing, err := tx.Artifacts().FindActivationByKey(ctx, key)
		switch {
		case errors.Is(err, ErrArtifactNotFound):
		case err != nil:
			return nil, err
		case existing.AccountID != account.ID:
			m.logger.Debug("activation key collision, redrawing", "attempt", attempt)
			continue
		}

		artifact := &ActivationKey{
			ID:        uuid.New(),
			AccountID: account.ID,
			Key:       key,
			ExpiresAt: expiresAt.UTC(),
			CreatedAt: now,
		}
		if err := tx.Artifacts().SaveActivation(ctx, artifact); err != nil {
			return nil, err
		}
		return artifact, nil
	}

	return nil, goerrors.New("could not allocate an activation key", goerrors.CategoryInternal)
}

func (m *ActivationManager) newAccountID(email string) uuid.UUID {
	if m.useHashid {
		if id, err := hashid.NewUUID(strings.ToLower(email)); err == nil {
			return id
		}
	}
	return uuid.New()
}

// notify runs fn detached from the caller's cancellation: the write it
// reports on has already committed.
func (r recorder) notify(ctx context.Context, kind string, fn func(ctx context.Context) error) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationTimeout)
	defer cancel()

	if err := fn(nctx); err != nil {
		normalizeLogger(r.logger).Error("notification failed", "kind", kind, "error", err)
	}
}
