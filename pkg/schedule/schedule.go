// Package schedule computes capture instants from cron expressions.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Cron yields the fire times of a standard 5-field cron expression.
// Descriptors such as "@hourly" and "@every 30s" are also accepted.
// All computation is done in UTC.
type Cron struct {
	expr  string
	sched cron.Schedule
}

// Parse validates and compiles a cron expression.
func Parse(expr string) (*Cron, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	return &Cron{expr: expr, sched: sched}, nil
}

// String returns the original expression.
func (c *Cron) String() string { return c.expr }

// Next returns the first fire time after now.
func (c *Cron) Next(now time.Time) time.Time {
	return c.sched.Next(now.UTC())
}

// Wait blocks until the next fire time after now, or until ctx is
// canceled, in which case it returns the context error.
func (c *Cron) Wait(ctx context.Context, now time.Time) error {
	d := c.Next(now).Sub(now.UTC())
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
