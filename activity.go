package accounts

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistered          ActivityEventType = "account.registered"
	ActivityEventActivated           ActivityEventType = "account.activated"
	ActivityEventActivationReissued  ActivityEventType = "account.activation.reissued"
	ActivityEventProfileUpdated      ActivityEventType = "account.profile.updated"
	ActivityEventReaped              ActivityEventType = "account.reaped"
	ActivityEventLoginSuccess        ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure        ActivityEventType = "auth.login.failure"
	ActivityEventPasswordResetIssued ActivityEventType = "auth.password.reset.requested"
	ActivityEventPasswordReset       ActivityEventType = "auth.password.reset"
	ActivityEventPasswordChanged     ActivityEventType = "auth.password.changed"
)

// ActorRef identifies who triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	AccountID  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// MultiActivitySink fans an event out to every sink. All sinks are called;
// the first error is returned.
type MultiActivitySink []ActivitySink

// Record implements ActivitySink.
func (m MultiActivitySink) Record(ctx context.Context, event ActivityEvent) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// recorder is embedded by the managers to emit events best-effort.
type recorder struct {
	activity ActivitySink
	logger   Logger
}

func (r recorder) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := normalizeActivitySink(r.activity).Record(ctx, event); err != nil {
		normalizeLogger(r.logger).Warn("activity sink error", "event", event.EventType, "error", err)
	}
}

func accountActor(a *Account) ActorRef {
	if a == nil {
		return ActorRef{Type: "unknown"}
	}
	return ActorRef{ID: a.ID.String(), Type: "account"}
}
