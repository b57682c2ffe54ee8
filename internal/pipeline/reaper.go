package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reaper marks tasks stuck in processing as failed so a crashed consumer
// does not leave them pending forever. It never requeues.
type Reaper struct {
	tasks      StaleFailer
	staleAfter time.Duration
	interval   time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

func NewReaper(tasks StaleFailer, staleAfter, interval time.Duration, log zerolog.Logger) *Reaper {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	if interval <= 0 {
		interval = defaultReapInterval
	}
	return &Reaper{tasks: tasks, staleAfter: staleAfter, interval: interval, log: log, now: time.Now}
}

func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	n, err := r.tasks.FailStale(ctx, r.now().Add(-r.staleAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Warn().Int64("tasks", n).Dur("stale_after", r.staleAfter).Msg(msgReapedTasks)
	}
	return n, nil
}

// Run reaps immediately and then on every interval until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Error().Err(err).Msg(msgReaperFailed)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
