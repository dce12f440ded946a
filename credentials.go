package accounts

import (
	"context"
	"errors"
	"sync"
)

// CredentialVerifier checks a username and password against the UserStore.
type CredentialVerifier struct {
	users  UserStore
	hasher Hasher
	logger Logger

	dummyOnce   sync.Once
	dummyDigest string
}

// NewCredentialVerifier creates a verifier
func NewCredentialVerifier(users UserStore, hasher Hasher) *CredentialVerifier {
	return &CredentialVerifier{
		users:  users,
		hasher: hasher,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger
func (v *CredentialVerifier) WithLogger(logger Logger) *CredentialVerifier {
	v.logger = normalizeLogger(logger)
	return v
}

// Verify returns the account when password matches its digest. Unknown
// usernames and wrong passwords both fail with ErrInvalidCredentials, and
// both pay for one digest comparison.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*Account, error) {
	account, err := v.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			v.hasher.Verify(password, v.dummy())
			return nil, ErrInvalidCredentials
		}
		return nil, passthrough(err, "failed to look up account")
	}

	if !v.hasher.Verify(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

func (v *CredentialVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		d, err := v.hasher.Hash("dummy-password-for-timing")
		if err != nil {
			v.logger.Error("failed to prepare dummy digest", "error", err)
			return
		}
		v.dummyDigest = d
	})
	return v.dummyDigest
}
