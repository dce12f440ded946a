package jwtware_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/jwtware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) AuthenticateToken(ctx context.Context, token string) (*accounts.Principal, error) {
	args := m.Called(ctx, token)
	if p := args.Get(0); p != nil {
		return p.(*accounts.Principal), args.Error(1)
	}
	return nil, args.Error(1)
}

func alice(roles ...accounts.Role) *accounts.Principal {
	if len(roles) == 0 {
		roles = []accounts.Role{accounts.RoleCustomer}
	}
	return &accounts.Principal{AccountID: uuid.New(), Username: "alice", Roles: roles}
}

func newApp(cfg jwtware.Config) *fiber.App {
	app := fiber.New()
	app.Use(jwtware.New(cfg))
	app.Get("/me", func(c *fiber.Ctx) error {
		p, ok := jwtware.PrincipalFrom(c, cfg.ContextKey)
		if !ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		fromCtx, _ := accounts.PrincipalFromContext(c.UserContext())
		return c.JSON(fiber.Map{
			"username": p.Username,
			"same":     fromCtx == p,
			"actor":    accounts.ActorFromContext(c.UserContext()),
		})
	})
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &out))
	}
	return resp.StatusCode, out
}

func TestJWTWare_HeaderExtraction(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("AuthenticateToken", mock.Anything, "good-token").Return(alice(), nil)

	app := newApp(jwtware.Config{Authenticator: auth})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	status, body := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, true, body["same"])
	assert.Equal(t, "alice", body["actor"])
	auth.AssertExpectations(t)
}

func TestJWTWare_MissingOrMalformedHeader(t *testing.T) {
	auth := new(MockAuthenticator)
	app := newApp(jwtware.Config{Authenticator: auth})

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", "Bearerabc"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		status, body := do(t, app, req)
		assert.Equal(t, http.StatusUnauthorized, status, header)
		assert.Equal(t, "TOKEN_MISSING", body["code"], header)
	}

	auth.AssertNotCalled(t, "AuthenticateToken", mock.Anything, mock.Anything)
}

func TestJWTWare_TokenErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"expired", accounts.ErrTokenExpired, accounts.TextCodeTokenExpired},
		{"bad signature", accounts.ErrTokenInvalidSignature, accounts.TextCodeTokenInvalidSignature},
		{"malformed", accounts.ErrTokenMalformed, accounts.TextCodeTokenMalformed},
		{"account gone", accounts.ErrAccountNotFound, "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := new(MockAuthenticator)
			auth.On("AuthenticateToken", mock.Anything, "tok").Return(nil, tt.err)

			app := newApp(jwtware.Config{Authenticator: auth})
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer tok")

			status, body := do(t, app, req)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestJWTWare_NotActivatedIsForbidden(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("AuthenticateToken", mock.Anything, "tok").Return(nil, accounts.ErrAccountNotActivated)

	app := newApp(jwtware.Config{Authenticator: auth})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")

	status, body := do(t, app, req)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, accounts.TextCodeAccountNotActivated, body["code"])
}

func TestJWTWare_AlternativeLookups(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("AuthenticateToken", mock.Anything, "from-cookie").Return(alice(), nil)
	auth.On("AuthenticateToken", mock.Anything, "from-query").Return(alice(), nil)

	app := newApp(jwtware.Config{
		Authenticator: auth,
		TokenLookup:   "header:Authorization,cookie:jwt,query:auth_token",
		ContextKey:    "principal",
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "from-cookie"})
	status, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)

	req = httptest.NewRequest(http.MethodGet, "/me?auth_token=from-query", nil)
	status, _ = do(t, app, req)
	assert.Equal(t, http.StatusOK, status)

	auth.AssertExpectations(t)
}

func TestJWTWare_RoleChecks(t *testing.T) {
	tests := []struct {
		name   string
		roles  []accounts.Role
		cfg    jwtware.Config
		status int
	}{
		{"required role held", []accounts.Role{accounts.RoleAdmin}, jwtware.Config{RequiredRole: accounts.RoleAdmin}, http.StatusOK},
		{"required role missing", []accounts.Role{accounts.RoleCustomer}, jwtware.Config{RequiredRole: accounts.RoleAdmin}, http.StatusForbidden},
		{"minimum met by higher role", []accounts.Role{accounts.RoleAdmin}, jwtware.Config{MinimumRole: accounts.RoleEditor}, http.StatusOK},
		{"minimum not met", []accounts.Role{accounts.RoleCustomer}, jwtware.Config{MinimumRole: accounts.RoleEditor}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := new(MockAuthenticator)
			auth.On("AuthenticateToken", mock.Anything, "tok").Return(alice(tt.roles...), nil)

			cfg := tt.cfg
			cfg.Authenticator = auth
			app := newApp(cfg)

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer tok")
			status, body := do(t, app, req)
			assert.Equal(t, tt.status, status)
			if tt.status == http.StatusForbidden {
				assert.Equal(t, "FORBIDDEN", body["code"])
			}
		})
	}
}

func TestJWTWare_ValidationListenersAndFilter(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("AuthenticateToken", mock.Anything, "tok").Return(alice(), nil)

	var seen []string
	app := newApp(jwtware.Config{
		Authenticator: auth,
		Filter: func(c *fiber.Ctx) bool {
			return c.Query("skip") == "1"
		},
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(c *fiber.Ctx, p *accounts.Principal) error {
				seen = append(seen, p.Username)
				return nil
			},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	status, _ := do(t, app, req)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"alice"}, seen)

	// filtered requests skip authentication entirely
	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/me?skip=1", nil))
	assert.Equal(t, http.StatusInternalServerError, status)
	auth.AssertNumberOfCalls(t, "AuthenticateToken", 1)
}

func TestJWTWare_ListenerErrorStopsRequest(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("AuthenticateToken", mock.Anything, "tok").Return(alice(), nil)

	app := newApp(jwtware.Config{
		Authenticator: auth,
		ValidationListeners: []jwtware.ValidationListener{
			func(*fiber.Ctx, *accounts.Principal) error { return jwtware.ErrForbidden },
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer tok")
	status, _ := do(t, app, req)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestJWTWare_RequiresAuthenticator(t *testing.T) {
	assert.Panics(t, func() { jwtware.New(jwtware.Config{}) })
}
