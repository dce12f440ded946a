package accounts_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/mock"
)

// MockNotifier implements accounts.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendWelcome(ctx context.Context, account *accounts.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockNotifier) SendActivationKey(ctx context.Context, account *accounts.Account, key string, expiresAt time.Time) error {
	args := m.Called(ctx, account, key, expiresAt)
	return args.Error(0)
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, account *accounts.Account, key string, expiresAt time.Time) error {
	args := m.Called(ctx, account, key, expiresAt)
	return args.Error(0)
}

// MockHasher implements accounts.Hasher
type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) Hash(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) Verify(plain, digest string) bool {
	args := m.Called(plain, digest)
	return args.Bool(0)
}

// captureNotifier records the last key sent per account.
type captureNotifier struct {
	mu          sync.Mutex
	welcomes    []string
	activations map[string]string
	resets      map[string]string
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{
		activations: map[string]string{},
		resets:      map[string]string{},
	}
}

func (c *captureNotifier) SendWelcome(_ context.Context, account *accounts.Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.welcomes = append(c.welcomes, account.Username)
	return nil
}

func (c *captureNotifier) SendActivationKey(_ context.Context, account *accounts.Account, key string, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activations[account.Username] = key
	return nil
}

func (c *captureNotifier) SendPasswordReset(_ context.Context, account *accounts.Account, key string, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets[account.Email] = key
	return nil
}

func (c *captureNotifier) activationKey(username string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activations[username]
}

func (c *captureNotifier) resetKey(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets[email]
}

// eventLog collects activity events.
type eventLog struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (l *eventLog) Record(_ context.Context, event accounts.ActivityEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) types() []accounts.ActivityEventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.EventType)
	}
	return out
}

// testLogger records log lines by level.
type testLogger struct {
	mu    sync.Mutex
	lines map[string][]string
}

func newTestLogger() *testLogger {
	return &testLogger{lines: map[string][]string{}}
}

func (l *testLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[level] = append(l.lines[level], msg)
}

func (l *testLogger) Debug(msg string, args ...any) { l.add("debug", msg) }
func (l *testLogger) Info(msg string, args ...any)  { l.add("info", msg) }
func (l *testLogger) Warn(msg string, args ...any)  { l.add("warn", msg) }
func (l *testLogger) Error(msg string, args ...any) { l.add("error", msg) }

func (l *testLogger) get(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines[level]...)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequenceSource returns the queued values in order, then repeats the last.
type sequenceSource struct {
	mu     sync.Mutex
	values []int
}

func (s *sequenceSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[0]
	if len(s.values) > 1 {
		s.values = s.values[1:]
	}
	return v % n
}
