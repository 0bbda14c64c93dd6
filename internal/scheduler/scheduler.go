package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/docwatch/docwatch/internal/dispatch"
	"github.com/docwatch/docwatch/internal/metrics"
	"github.com/docwatch/docwatch/internal/models"
	"github.com/docwatch/docwatch/internal/recurrence"
)

// Store is the slice of the schedule store the loop polls and updates.
type Store interface {
	ListDue(ctx context.Context, now time.Time) ([]models.Schedule, error)
	Claim(ctx context.Context, id uuid.UUID, readNextRun time.Time) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, status, lastErr string, firedAt, nextRun time.Time) error
	ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Dispatcher runs one firing.
type Dispatcher interface {
	Fire(ctx context.Context, s models.Schedule) dispatch.FireResult
}

// Loop polls the store on a fixed tick and fires due schedules. The tick
// interval is a polling resolution, independent of any schedule's frequency.
type Loop struct {
	store      Store
	dispatcher Dispatcher
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	wg      sync.WaitGroup
}

// New returns a stopped Loop. staleAfter bounds how long a claim marker may
// survive a crashed firing before being released; <= 0 picks ten intervals.
func New(store Store, dispatcher Dispatcher, interval, staleAfter time.Duration) *Loop {
	if staleAfter <= 0 {
		staleAfter = 10 * interval
	}
	return &Loop{
		store:      store,
		dispatcher: dispatcher,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Start begins ticking. Calling Start on a running loop is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.cron = cron.New()
	l.cron.Schedule(cron.Every(l.interval), cron.FuncJob(l.tick))
	l.cron.Start()
	l.running = true
	slog.Info("scheduler started", "interval", l.interval.String())
}

// Stop cancels the tick source and waits for in-flight firings to finish.
// It does not cancel them; hard deadlines belong to the dispatcher.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	c := l.cron
	l.mu.Unlock()

	<-c.Stop().Done()
	l.wg.Wait()
	slog.Info("scheduler stopped")
}

// tick is one poll: release stale claims, load due schedules, claim each and
// hand claimed ones to the dispatcher without blocking the next tick.
func (l *Loop) tick() {
	ctx := context.Background()
	now := l.now()

	if n, err := l.store.ReleaseStale(ctx, now.Add(-l.staleAfter)); err != nil {
		slog.Error("scheduler: release stale claims", "err", err)
	} else if n > 0 {
		slog.Warn("scheduler: released stale claims", "count", n)
	}

	due, err := l.store.ListDue(ctx, now)
	if err != nil {
		// Store outage: log and retry on the next tick.
		slog.Error("scheduler: list due schedules", "err", err)
		return
	}
	metrics.DueSchedules.Set(float64(len(due)))

	for _, s := range due {
		if s.NextRunAt == nil {
			continue
		}
		claimed, err := l.store.Claim(ctx, s.ID, *s.NextRunAt)
		if err != nil {
			slog.Error("scheduler: claim", "schedule_id", s.ID, "err", err)
			continue
		}
		if !claimed {
			// Lost to a concurrent poller. Expected, not a fault.
			metrics.ClaimConflictsTotal.Inc()
			continue
		}
		l.wg.Add(1)
		go l.fire(s)
	}
}

// fire runs one claimed firing and always advances the schedule, success or
// not: a failed notification retries at the next natural period, never on the
// next tick.
func (l *Loop) fire(s models.Schedule) {
	defer l.wg.Done()
	metrics.FiringsInFlight.Inc()
	defer metrics.FiringsInFlight.Dec()

	start := l.now()
	res := l.dispatcher.Fire(context.Background(), s)
	firedAt := l.now()
	metrics.RecordFiring(res.Status(), firedAt.Sub(start).Seconds())

	if err := res.Err(); err != nil {
		slog.Error("scheduler: firing failed",
			"schedule_id", s.ID,
			"subject", s.SubjectID,
			"status", res.Status(),
			"err", err)
	} else {
		slog.Info("scheduler: fired",
			"schedule_id", s.ID,
			"subject", s.SubjectID,
			"items", res.Summary.ItemsScanned,
			"violations", res.Summary.Violations)
	}

	next := recurrence.NextRun(firedAt, s.RunAt, s.Frequency)
	var lastErr string
	if err := res.Err(); err != nil {
		lastErr = err.Error()
	}
	if err := l.store.Complete(context.Background(), s.ID, res.Status(), lastErr, firedAt, next); err != nil {
		// The claim stays set until ReleaseStale clears it on a later tick.
		slog.Error("scheduler: record completion", "schedule_id", s.ID, "err", err)
	}
}
