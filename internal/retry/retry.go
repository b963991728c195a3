// Package retry holds the single backoff policy applied at every
// external-call boundary.
package retry

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultBaseDelay    = 500 * time.Millisecond
	defaultMaxDelay     = 10 * time.Second
	defaultJitterFactor = 0.2
)

// Config holds retry settings for one call boundary.
type Config struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
	Retryable    func(error) bool
}

// DefaultConfig returns the standard policy: 3 attempts, exponential backoff
// from 500ms capped at 10s, 20% jitter, every error retryable.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  defaultMaxAttempts,
		BaseDelay:    defaultBaseDelay,
		MaxDelay:     defaultMaxDelay,
		JitterFactor: defaultJitterFactor,
	}
}

// Do executes fn until it succeeds, the attempt budget is spent, or the
// context is done. Returns the last error when all attempts fail.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if !cfg.Retryable(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(cfg, attempt)):
		}
	}

	return lastErr
}

// backoffDelay doubles per attempt with a capped shift, then applies jitter.
func backoffDelay(cfg Config, attempt int) time.Duration {
	delay := cfg.BaseDelay << min(attempt-1, 6)
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := float64(delay) * cfg.JitterFactor * (rand.Float64() - 0.5)
	return time.Duration(float64(delay) + jitter)
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.JitterFactor <= 0 {
		c.JitterFactor = defaultJitterFactor
	}
	if c.Retryable == nil {
		c.Retryable = func(error) bool { return true }
	}
	return c
}
