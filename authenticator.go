package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// AuthScheme is the Authorization header scheme for bearer tokens.
const AuthScheme = "Bearer"

// Authenticator logs accounts in and resolves bearer tokens back to
// accounts.
type Authenticator struct {
	users    UserStore
	verifier *CredentialVerifier
	codec    TokenCodec
	logger   Logger
	activity ActivitySink
	now      func() time.Time
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users UserStore, hasher Hasher, codec TokenCodec) *Authenticator {
	return &Authenticator{
		users:    users,
		verifier: NewCredentialVerifier(users, hasher),
		codec:    codec,
		logger:   defLogger{},
		activity: noopActivitySink{},
		now:      time.Now,
	}
}

func (s *Authenticator) WithLogger(logger Logger) *Authenticator {
	s.logger = normalizeLogger(logger)
	s.verifier.WithLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Authenticator) WithActivitySink(sink ActivitySink) *Authenticator {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithClock overrides the time source used for event timestamps.
func (s *Authenticator) WithClock(now func() time.Time) *Authenticator {
	if now != nil {
		s.now = now
	}
	return s
}

// Login verifies credentials and issues a token for an activated account.
// The activation check runs after the password comparison so a pending
// account is only revealed to callers holding its password.
func (s *Authenticator) Login(ctx context.Context, username, password string) (string, error) {
	select {
	case <-ctx.Done():
		return "", goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during login")
	default:
	}

	account, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		s.logger.Warn("login failed", "username", username, "error", err)
		s.emit(ctx, ActivityEventLoginFailure, nil, map[string]any{
			"username": username,
			"error":    err.Error(),
		})
		return "", err
	}

	if !account.Activated {
		s.emit(ctx, ActivityEventLoginFailure, account, map[string]any{
			"username": username,
			"error":    ErrAccountNotActivated.Error(),
		})
		return "", ErrAccountNotActivated
	}

	token, err := s.codec.Issue(account.Username, account.Roles)
	if err != nil {
		s.logger.Error("login failed to issue token", "username", username, "error", err)
		s.emit(ctx, ActivityEventLoginFailure, account, map[string]any{
			"username": username,
			"error":    err.Error(),
		})
		return "", err
	}

	s.emit(ctx, ActivityEventLoginSuccess, account, map[string]any{
		"username": username,
	})

	return token, nil
}

// Authenticate resolves an Authorization header value to a Principal.
func (s *Authenticator) Authenticate(ctx context.Context, header string) (*Principal, error) {
	token, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	return s.AuthenticateToken(ctx, token)
}

// AuthenticateToken verifies token and re-loads its account, so accounts
// deleted or deactivated after issue are rejected before the token expires.
// Roles come from the store, not from the token.
func (s *Authenticator) AuthenticateToken(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	account, err := s.users.FindByUsername(ctx, claims.Username())
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, passthrough(err, "failed to resolve token account")
	}

	if !account.Activated {
		return nil, ErrAccountNotActivated
	}

	return &Principal{
		AccountID: account.ID,
		Username:  account.Username,
		Roles:     account.Roles,
		Claims:    claims,
	}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	l := len(AuthScheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], AuthScheme) && header[l] == ' ' {
		if token := strings.TrimSpace(header[l:]); token != "" {
			return token, nil
		}
	}
	return "", ErrTokenMalformed
}

func (s *Authenticator) emit(ctx context.Context, eventType ActivityEventType, account *Account, meta map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      accountActor(account),
		Metadata:   meta,
		OccurredAt: s.now(),
	}
	if account != nil {
		event.AccountID = account.ID.String()
	}
	recorder{activity: s.activity, logger: s.logger}.record(ctx, event)
}
