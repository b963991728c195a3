// Package scheduler drives recurring jobs on fixed intervals.
package scheduler

import (
	"context"
	"time"

	"NewsRadio/internal/ports"
)

// IntervalDriver runs a job immediately and then on a fixed period until
// stopped. Stopping prevents further runs; it never interrupts a job already
// in flight.
type IntervalDriver struct {
	period time.Duration
	stop   chan struct{}
}

var _ ports.IntervalDriver = (*IntervalDriver)(nil)

// NewIntervalDriver builds a driver with the given period. Non-positive
// periods fall back to one minute.
func NewIntervalDriver(period time.Duration) *IntervalDriver {
	if period <= 0 {
		period = time.Minute
	}
	return &IntervalDriver{period: period}
}

// Start begins ticking. A second Start without a Stop is a no-op.
func (d *IntervalDriver) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	if d.stop != nil {
		return nil
	}

	d.stop = make(chan struct{})
	go func(stop chan struct{}) {
		ticker := time.NewTicker(d.period)
		defer ticker.Stop()
		job(time.Now())
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}(d.stop)

	return nil
}

// Stop halts the ticker goroutine.
func (d *IntervalDriver) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	d.stop = nil
	return nil
}
