package retention

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adhocore/gronx"
	"github.com/juju/clock"
)

const retryDelay = 30 * time.Second

// Purger deletes read notifications older than age.
type Purger interface {
	PurgeRead(ctx context.Context, age time.Duration) (int64, error)
}

// Scheduler runs the notification purge on a cron schedule.
type Scheduler struct {
	cron   string
	period time.Duration
	purger Purger
	clock  clock.Clock
}

// New validates cronExpr. clk may be nil for the wall clock.
func New(cronExpr string, period time.Duration, purger Purger, clk clock.Clock) (*Scheduler, error) {
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid retention cron expression: %q", cronExpr)
	}
	if period <= 0 {
		return nil, fmt.Errorf("retention period must be positive")
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Scheduler{cron: cronExpr, period: period, purger: purger, clock: clk}, nil
}

// Run blocks until ctx is done, purging at every cron tick.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("retention: scheduler started cron=%q period=%s", s.cron, s.period)
	for {
		now := s.clock.Now().UTC()
		wait := retryDelay
		next, err := gronx.NextTickAfter(s.cron, now, false)
		if err != nil {
			log.Printf("retention: next tick failed cron=%q: %v", s.cron, err)
		} else {
			wait = next.Sub(now)
		}

		select {
		case <-ctx.Done():
			log.Printf("retention: scheduler stopping")
			return
		case <-s.clock.After(wait):
		}
		if err == nil {
			s.RunOnce(ctx)
		}
	}
}

// RunOnce purges immediately.
func (s *Scheduler) RunOnce(ctx context.Context) {
	n, err := s.purger.PurgeRead(ctx, s.period)
	if err != nil {
		log.Printf("retention: purge failed: %v", err)
		return
	}
	log.Printf("retention: purged read notifications count=%d older_than=%s", n, s.period)
}
