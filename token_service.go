package accounts

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of an issued token.
const DefaultTokenTTL = 30 * time.Minute

// TokenCodec issues and verifies bearer tokens.
type TokenCodec interface {
	Issue(subject string, roles []Role) (string, error)
	Verify(token string) (*TokenClaims, error)
}

// JWTCodec implements TokenCodec with HMAC signed JWTs. Verification is self
// contained and never consults a store.
type JWTCodec struct {
	signingKey []byte
	method     jwt.SigningMethod
	ttl        time.Duration
	issuer     string
	now        func() time.Time
	logger     Logger
}

var _ TokenCodec = (*JWTCodec)(nil)

// NewJWTCodec creates a codec signing with HS512.
func NewJWTCodec(signingKey []byte) *JWTCodec {
	return &JWTCodec{
		signingKey: signingKey,
		method:     jwt.SigningMethodHS512,
		ttl:        DefaultTokenTTL,
		now:        time.Now,
		logger:     defLogger{},
	}
}

// DecodeSigningKey decodes a base64 encoded secret.
func DecodeSigningKey(secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "signing key must be base64 encoded")
	}
	return key, nil
}

// WithSigningMethod selects HS256, HS384 or HS512. Other names are ignored.
func (c *JWTCodec) WithSigningMethod(name string) *JWTCodec {
	if m, ok := jwt.GetSigningMethod(strings.ToUpper(name)).(*jwt.SigningMethodHMAC); ok {
		c.method = m
	}
	return c
}

// WithTTL overrides the token lifetime.
func (c *JWTCodec) WithTTL(ttl time.Duration) *JWTCodec {
	if ttl > 0 {
		c.ttl = ttl
	}
	return c
}

// WithIssuer sets the iss claim and requires it on verification.
func (c *JWTCodec) WithIssuer(issuer string) *JWTCodec {
	c.issuer = issuer
	return c
}

// WithClock overrides the time source.
func (c *JWTCodec) WithClock(now func() time.Time) *JWTCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// WithLogger overrides the logger.
func (c *JWTCodec) WithLogger(logger Logger) *JWTCodec {
	c.logger = normalizeLogger(logger)
	return c
}

// TTL returns the configured token lifetime.
func (c *JWTCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject carrying roles.
func (c *JWTCodec) Issue(subject string, roles []Role) (string, error) {
	if len(c.signingKey) == 0 {
		return "", goerrors.New("token signing key is not configured", goerrors.CategoryInternal)
	}

	now := c.now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Roles: RoleNames(roles),
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

// Verify parses token and returns its claims. A token is expired once its exp
// is at or before now.
func (c *JWTCodec) Verify(token string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.signingKey, nil
	}, opts...)

	if err != nil {
		mapped := mapJWTError(err)
		c.logger.Debug("token verification failed", "reason", mapped.Error(), "error", err)
		return nil, mapped
	}

	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
