// Package activitymap flattens account activity events into audit records
// and writes them to a logger.
package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-accounts"
)

// MetadataKeyActorType stores ActorRef.Type when the event metadata does not
// already carry it.
const MetadataKeyActorType = "actor_type"

const (
	defaultChannel    = "accounts"
	defaultObjectType = "account"
	defaultActorID    = accounts.ActorSystem
)

// Record is the flat audit shape of an activity event.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Option func(*options)

type options struct {
	channel    string
	objectType string
	now        func() time.Time
}

// WithChannel overrides the "accounts" channel.
func WithChannel(channel string) Option {
	return func(o *options) {
		if c := strings.TrimSpace(channel); c != "" {
			o.channel = c
		}
	}
}

func WithObjectType(objectType string) Option {
	return func(o *options) {
		if t := strings.TrimSpace(objectType); t != "" {
			o.objectType = t
		}
	}
}

// WithClock sets the time used for events without OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		channel:    defaultChannel,
		objectType: defaultObjectType,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Normalize converts event into a Record. The actor falls back to the
// account and then to "system".
func Normalize(event accounts.ActivityEvent, opts ...Option) Record {
	return normalize(event, buildOptions(opts))
}

func normalize(event accounts.ActivityEvent, o options) Record {
	accountID := strings.TrimSpace(event.AccountID)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now()
	}

	return Record{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.Actor.ID), accountID, defaultActorID),
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   accountID,
		Channel:    o.channel,
		Metadata:   metadata(event),
		OccurredAt: occurredAt.UTC(),
	}
}

// NewLogSink returns a sink writing one info line per event.
func NewLogSink(logger accounts.Logger, opts ...Option) accounts.ActivitySink {
	if logger == nil {
		logger = accounts.NopLogger()
	}
	o := buildOptions(opts)

	return accounts.ActivitySinkFunc(func(_ context.Context, event accounts.ActivityEvent) error {
		rec := normalize(event, o)
		logger.Info("activity",
			"verb", rec.Verb,
			"actor_id", rec.ActorID,
			"object_type", rec.ObjectType,
			"object_id", rec.ObjectID,
			"channel", rec.Channel,
			"metadata", rec.Metadata,
			"occurred_at", rec.OccurredAt,
		)
		return nil
	})
}

func metadata(event accounts.ActivityEvent) map[string]any {
	var out map[string]any
	if len(event.Metadata) > 0 {
		out = make(map[string]any, len(event.Metadata)+1)
		for k, v := range event.Metadata {
			out[k] = v
		}
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if out == nil {
			out = map[string]any{}
		}
		if _, exists := out[MetadataKeyActorType]; !exists {
			out[MetadataKeyActorType] = actorType
		}
	}

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
