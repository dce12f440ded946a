package httpapi_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/httpapi"
	"github.com/goliatone/go-accounts/repository"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/mattn/go-sqlite3"
)

type inbox struct {
	mu          sync.Mutex
	activations map[string]string
	resets      map[string]string
}

func (i *inbox) SendWelcome(context.Context, *accounts.Account) error { return nil }

func (i *inbox) SendActivationKey(_ context.Context, a *accounts.Account, key string, _ time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.activations[a.Username] = key
	return nil
}

func (i *inbox) SendPasswordReset(_ context.Context, a *accounts.Account, key string, _ time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.resets[a.Email] = key
	return nil
}

func (i *inbox) activation(username string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.activations[username]
}

func (i *inbox) reset(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.resets[email]
}

type server struct {
	app   *fiber.App
	repo  *repository.Manager
	inbox *inbox
}

func newServer(t *testing.T) *server {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repository.Migrate(ctx, db))
	require.NoError(t, repository.SeedRoles(ctx, db))
	t.Cleanup(func() { _ = db.Close() })

	repo := repository.NewRepositoryManager(db)
	hasher := accounts.NewBcryptHasher(bcrypt.MinCost)
	box := &inbox{activations: map[string]string{}, resets: map[string]string{}}
	logger := accounts.NopLogger()

	codec := accounts.NewJWTCodec([]byte("0123456789abcdef0123456789abcdef"))

	ctl := httpapi.NewController(
		httpapi.WithRegistrar(accounts.NewActivationManager(repo, hasher).WithNotifier(box).WithLogger(logger)),
		httpapi.WithPasswords(accounts.NewPasswordResetManager(repo, hasher).WithNotifier(box).WithLogger(logger)),
		httpapi.WithProfiles(accounts.NewProfileManager(repo.Users()).WithLogger(logger)),
		httpapi.WithAuth(accounts.NewAuthenticator(repo.Users(), hasher, codec).WithLogger(logger)),
		httpapi.WithReaper(accounts.NewReaper(repo).WithLogger(logger)),
		httpapi.WithLogger(logger),
	)

	app := fiber.New()
	ctl.Register(app)

	return &server{app: app, repo: repo, inbox: box}
}

type response struct {
	status int
	body   map[string]any
	raw    []byte
}

func (s *server) do(t *testing.T, method, target string, payload any, token string) response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, raw: raw, body: map[string]any{}}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.body))
	}
	return out
}

// signup registers and activates an account and returns a bearer token.
func (s *server) signup(t *testing.T, username, email, password string) string {
	t.Helper()

	res := s.do(t, http.MethodPost, "/user/createAccount", map[string]string{
		"username": username, "email": email, "password": password,
	}, "")
	require.Equal(t, http.StatusCreated, res.status, string(res.raw))

	res = s.do(t, http.MethodPost, "/user/activateAccount", map[string]string{
		"activationKey": s.inbox.activation(username),
	}, "")
	require.Equal(t, http.StatusOK, res.status, string(res.raw))

	return s.login(t, username, password)
}

func (s *server) login(t *testing.T, username, password string) string {
	t.Helper()
	res := s.do(t, http.MethodPost, "/user/authenticate", map[string]string{
		"username": username, "password": password,
	}, "")
	require.Equal(t, http.StatusOK, res.status, string(res.raw))
	token, _ := res.body["bearer"].(string)
	require.NotEmpty(t, token)
	return token
}

func (s *server) promote(t *testing.T, username string, role accounts.Role) {
	t.Helper()
	ctx := context.Background()
	account, err := s.repo.Users().FindByUsername(ctx, username)
	require.NoError(t, err)
	account.Roles = []accounts.Role{role}
	require.NoError(t, s.repo.Users().Update(ctx, account))
}
