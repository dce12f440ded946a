package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logger is the logging contract used across the package. Args are key/value
// pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Hasher turns plaintext passwords into digests and checks them back.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// Notifier delivers account messages to the account owner. Errors are
// reported to the caller but never undo the operation that triggered them.
type Notifier interface {
	SendWelcome(ctx context.Context, account *Account) error
	SendActivationKey(ctx context.Context, account *Account, key string, expiresAt time.Time) error
	SendPasswordReset(ctx context.Context, account *Account, key string, expiresAt time.Time) error
}

// UserStore persists accounts. Username and email uniqueness is enforced by
// the store: Create fails with ErrUsernameTaken or ErrEmailTaken when a
// concurrent writer got there first.
type UserStore interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// List returns accounts ordered by creation time. limit <= 0 means no
	// limit.
	List(ctx context.Context, limit, offset int) ([]*Account, error)
	Create(ctx context.Context, account *Account) error
	// Update writes an existing account. It fails with ErrAccountNotFound
	// when the row is gone and never re-creates it.
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeletePending removes the account only while it is still not
	// activated. It reports whether a row was removed.
	DeletePending(ctx context.Context, id uuid.UUID) (bool, error)
	// FindAbandonedPending lists pending accounts whose activation key
	// expired before olderThan. Accounts without a key are judged by their
	// creation time.
	FindAbandonedPending(ctx context.Context, olderThan time.Time) ([]*Account, error)
}

// ArtifactStore persists activation and password reset keys. There is at most
// one key of each kind per account: saving replaces the previous one.
type ArtifactStore interface {
	FindActivationByKey(ctx context.Context, key string) (*ActivationKey, error)
	FindActivationByAccountID(ctx context.Context, accountID uuid.UUID) (*ActivationKey, error)
	SaveActivation(ctx context.Context, artifact *ActivationKey) error
	DeleteActivation(ctx context.Context, id uuid.UUID) error
	DeleteActivationByAccountID(ctx context.Context, accountID uuid.UUID) error

	FindResetByKey(ctx context.Context, key string) (*PasswordResetKey, error)
	FindResetByAccountID(ctx context.Context, accountID uuid.UUID) (*PasswordResetKey, error)
	SaveReset(ctx context.Context, artifact *PasswordResetKey) error
	DeleteReset(ctx context.Context, id uuid.UUID) error
	DeleteResetByAccountID(ctx context.Context, accountID uuid.UUID) error
}

// Stores groups the stores bound to a single connection or transaction.
type Stores interface {
	Users() UserStore
	Artifacts() ArtifactStore
}

// RepositoryManager exposes all stores
type RepositoryManager interface {
	Stores
	Validate() error
	MustValidate()
	// RunInTx runs f inside a transaction. The Stores handed to f are bound
	// to that transaction.
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx Stores) error) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] ACCOUNTS " + line(msg, args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] ACCOUNTS " + line(msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] ACCOUNTS " + line(msg, args))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] ACCOUNTS " + line(msg, args))
}

func line(msg string, args []any) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(msg, "\n"))
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteString("\n")
	return b.String()
}

type nopLogger struct{}

func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

type noopNotifier struct{}

func (noopNotifier) SendWelcome(context.Context, *Account) error { return nil }

func (noopNotifier) SendActivationKey(context.Context, *Account, string, time.Time) error {
	return nil
}

func (noopNotifier) SendPasswordReset(context.Context, *Account, string, time.Time) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
