// Package jwtware is a fiber middleware that resolves bearer tokens to an
// authenticated accounts.Principal.
package jwtware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
)

var defaultTokenLookup = "header:" + fiber.HeaderAuthorization

var ErrJWTMissingOrMalformed = goerrors.New("missing or malformed JWT", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MISSING").
	WithCode(goerrors.CodeUnauthorized)

var ErrForbidden = forbidden("access denied")

var errUnknownAccount = goerrors.New("token account no longer exists", goerrors.CategoryAuth).
	WithTextCode("TOKEN_INVALID").
	WithCode(goerrors.CodeUnauthorized)

func forbidden(msg string) *goerrors.Error {
	return goerrors.New(msg, goerrors.CategoryAuthz).
		WithTextCode("FORBIDDEN").
		WithCode(goerrors.CodeForbidden)
}

// TokenAuthenticator resolves a raw token to the principal behind it.
type TokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, token string) (*accounts.Principal, error)
}

// ValidationListener is invoked after a token has been validated but before
// authorization checks.
type ValidationListener func(c *fiber.Ctx, principal *accounts.Principal) error

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	// Authenticator is required
	Authenticator TokenAuthenticator
	// ContextKey is the fiber Locals key the principal is stored under
	ContextKey  string
	TokenLookup string
	AuthScheme  string

	// RequiredRole must be held exactly
	RequiredRole accounts.Role
	// MinimumRole must be matched or exceeded by one of the held roles
	MinimumRole accounts.Role
	RoleChecker func(*accounts.Principal, accounts.Role) bool

	// ContextEnricher propagates the principal to c.UserContext(). Defaults
	// to accounts.WithPrincipal.
	ContextEnricher func(ctx context.Context, principal *accounts.Principal) context.Context

	ValidationListeners []ValidationListener
}

func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := ExtractRawToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		principal, err := cfg.Authenticator.AuthenticateToken(c.UserContext(), raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if err := cfg.runValidationListeners(c, principal); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if err := performAuthorizationChecks(principal, cfg); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, principal)
		c.SetUserContext(cfg.ContextEnricher(c.UserContext(), principal))

		return cfg.SuccessHandler(c)
	}
}

// PrincipalFrom returns the principal stored by the middleware under key.
func PrincipalFrom(c *fiber.Ctx, key ...string) (*accounts.Principal, bool) {
	k := "user"
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	p, ok := c.Locals(k).(*accounts.Principal)
	return p, ok && p != nil
}

func performAuthorizationChecks(p *accounts.Principal, cfg Config) error {
	if cfg.RequiredRole == "" && cfg.MinimumRole == "" && cfg.RoleChecker == nil {
		return nil
	}

	if cfg.RequiredRole != "" && !p.HasRole(cfg.RequiredRole) {
		return forbidden("access denied: required role " + cfg.RequiredRole.String() + " not found")
	}

	if cfg.MinimumRole != "" && !atLeast(p.Roles, cfg.MinimumRole) {
		return forbidden("access denied: minimum role " + cfg.MinimumRole.String() + " required")
	}

	if cfg.RoleChecker != nil {
		role := cfg.RequiredRole
		if role == "" {
			role = cfg.MinimumRole
		}
		if !cfg.RoleChecker(p, role) {
			return ErrForbidden
		}
	}

	return nil
}

func atLeast(roles []accounts.Role, min accounts.Role) bool {
	for _, r := range roles {
		if r.IsAtLeast(min) {
			return true
		}
	}
	return false
}

// ExtractRawToken tries extractors in order and returns the first token found.
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	var err error = ErrJWTMissingOrMalformed
	for _, extractor := range extractors {
		raw, e := extractor(c)
		if raw != "" && e == nil {
			return raw, nil
		}
		if e != nil {
			err = e
		}
	}
	return "", err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Authenticator == nil {
		panic("ACCOUNTS: JWT middleware configuration: Authenticator is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.ContextEnricher == nil {
		cfg.ContextEnricher = accounts.WithPrincipal
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = accounts.AuthScheme
	}

	return cfg
}

// DefaultErrorHandler answers with the status carried by rich errors.
// Accounts that vanished after the token was issued are reported as 401.
func DefaultErrorHandler(c *fiber.Ctx, err error) error {
	if errors.Is(err, accounts.ErrAccountNotFound) {
		err = errUnknownAccount
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryAuth, "invalid or expired token").
			WithTextCode("TOKEN_INVALID").
			WithCode(goerrors.CodeUnauthorized)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusUnauthorized
	}

	return c.Status(status).JSON(fiber.Map{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(c *fiber.Ctx, p *accounts.Principal) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, p); err != nil {
			return err
		}
	}
	return nil
}

// GetExtractors parses a lookup expression such as
// "header:Authorization,cookie:jwt,query:auth_token,param:token".
func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := accounts.AuthScheme
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}
		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		switch source {
		case "header":
			extractors = append(extractors, jwtFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(name))
		case "param":
			extractors = append(extractors, jwtFromParam(name))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(name))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader extracts "<scheme> <token>" from the named header.
func jwtFromHeader(header, authScheme string) JWTExtractor {
	l := len(authScheme)
	return func(c *fiber.Ctx) (string, error) {
		a := strings.TrimSpace(c.Get(header))
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrJWTMissingOrMalformed
	}
}

func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		if token := c.Query(param); token != "" {
			return token, nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

func jwtFromParam(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		if token := c.Params(param); token != "" {
			return token, nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}

func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		if token := c.Cookies(name); token != "" {
			return token, nil
		}
		return "", ErrJWTMissingOrMalformed
	}
}
