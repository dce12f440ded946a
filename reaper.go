package accounts

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultGracePeriod is how long a pending account survives after its
// activation key expired.
const DefaultGracePeriod = 72 * time.Hour

var errReapSkipped = errors.New("account no longer eligible for reaping")

// Reaper deletes pending accounts that were never activated.
type Reaper struct {
	repo     RepositoryManager
	now      func() time.Time
	after    func(d time.Duration) <-chan time.Time
	grace    time.Duration
	schedule DailySchedule
	recorder
}

// NewReaper creates a reaper sweeping daily at 01:00 local time with a 72h
// grace period.
func NewReaper(repo RepositoryManager) *Reaper {
	return &Reaper{
		repo:     repo,
		now:      time.Now,
		after:    time.After,
		grace:    DefaultGracePeriod,
		schedule: DefaultSchedule,
		recorder: recorder{activity: noopActivitySink{}, logger: defLogger{}},
	}
}

func (r *Reaper) WithGracePeriod(grace time.Duration) *Reaper {
	if grace > 0 {
		r.grace = grace
	}
	return r
}

func (r *Reaper) WithSchedule(s DailySchedule) *Reaper {
	r.schedule = s.normalize()
	return r
}

func (r *Reaper) WithClock(now func() time.Time) *Reaper {
	if now != nil {
		r.now = now
	}
	return r
}

// WithTimer overrides how Run waits for the next trigger.
func (r *Reaper) WithTimer(after func(d time.Duration) <-chan time.Time) *Reaper {
	if after != nil {
		r.after = after
	}
	return r
}

func (r *Reaper) WithActivitySink(sink ActivitySink) *Reaper {
	r.activity = normalizeActivitySink(sink)
	return r
}

func (r *Reaper) WithLogger(logger Logger) *Reaper {
	r.logger = normalizeLogger(logger)
	return r
}

// Sweep deletes pending accounts whose activation key expired more than
// grace ago, together with their keys. Each account is removed in its own
// transaction; an account activated concurrently survives. Failures are
// logged and the sweep moves on; the first one is returned.
func (r *Reaper) Sweep(ctx context.Context, grace time.Duration) (int, error) {
	if grace <= 0 {
		grace = r.grace
	}

	ctx = WithActor(ctx, ActorSystem)
	now := r.now().UTC()
	cutoff := now.Add(-grace)

	candidates, err := r.repo.Users().FindAbandonedPending(ctx, cutoff)
	if err != nil {
		return 0, passthrough(err, "failed to list abandoned accounts")
	}

	removed := 0
	var first error

	for _, account := range candidates {
		if err := ctx.Err(); err != nil {
			return removed, goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled during sweep")
		}

		err := r.repo.RunInTx(ctx, nil, func(ctx context.Context, tx Stores) error {
			current, err := tx.Artifacts().FindActivationByAccountID(ctx, account.ID)
			switch {
			case errors.Is(err, ErrArtifactNotFound):
			case err != nil:
				return err
			case !current.ExpiresAt.Before(cutoff):
				return errReapSkipped
			}

			if err := tx.Artifacts().DeleteActivationByAccountID(ctx, account.ID); err != nil {
				return err
			}
			if err := tx.Artifacts().DeleteResetByAccountID(ctx, account.ID); err != nil {
				return err
			}

			deleted, err := tx.Users().DeletePending(ctx, account.ID)
			if err != nil {
				return err
			}
			if !deleted {
				return errReapSkipped
			}
			return nil
		})

		switch {
		case errors.Is(err, errReapSkipped):
			r.logger.Debug("reaper skipped account", "account_id", account.ID)
			continue
		case err != nil:
			r.logger.Error("reaper failed to delete account", "account_id", account.ID, "error", err)
			if first == nil {
				first = passthrough(err, "failed to delete abandoned account")
			}
			continue
		}

		removed++
		r.record(ctx, ActivityEvent{
			EventType:  ActivityEventReaped,
			Actor:      ActorRef{ID: ActorSystem, Type: "system"},
			AccountID:  account.ID.String(),
			Metadata:   map[string]any{"username": account.Username},
			OccurredAt: now,
		})
	}

	r.logger.Info("reaper sweep finished", "candidates", len(candidates), "removed", removed)

	return removed, first
}

// Run sweeps once per day at the configured time until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	for {
		now := r.now()
		next := r.schedule.Next(now)
		r.logger.Debug("reaper sleeping", "next_run", next)

		select {
		case <-ctx.Done():
			return nil
		case <-r.after(next.Sub(now)):
		}

		if _, err := r.Sweep(ctx, r.grace); err != nil {
			r.logger.Error("reaper sweep failed", "error", err)
		}
	}
}
