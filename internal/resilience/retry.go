// Package resilience wraps calls to external collaborators with bounded retries and
// circuit breakers.
package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig defines configuration for retries.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Multiplier      float64       `yaml:"multiplier"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time"`
	// RetryIf decides whether an error is worth another attempt; nil retries everything.
	RetryIf func(error) bool `yaml:"-"`
	// OnRetry is called before each wait.
	OnRetry func(err error, wait time.Duration) `yaml:"-"`
}

// DefaultRetryConfig returns three retries starting at 100ms, matching the three attempts
// the AWS clients were configured with.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  10 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.InitialInterval <= 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.Multiplier <= 0 {
		c.Multiplier = d.Multiplier
	}
	if c.MaxElapsedTime <= 0 {
		c.MaxElapsedTime = d.MaxElapsedTime
	}
	return c
}

// Retry runs operation with exponential backoff until it succeeds, the retries are used up,
// RetryIf rejects the error, or ctx is done. The last error is returned.
func Retry(ctx context.Context, config RetryConfig, operation func() error) error {
	config = config.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = config.InitialInterval
	b.MaxInterval = config.MaxInterval
	b.Multiplier = config.Multiplier
	b.MaxElapsedTime = config.MaxElapsedTime

	var bo backoff.BackOff = b
	if config.MaxRetries >= 0 {
		bo = backoff.WithMaxRetries(b, uint64(config.MaxRetries))
	}
	bo = backoff.WithContext(bo, ctx)

	op := func() error {
		err := operation()
		if err != nil && config.RetryIf != nil && !config.RetryIf(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	var notify backoff.Notify
	if config.OnRetry != nil {
		notify = config.OnRetry
	}
	return backoff.RetryNotify(op, bo, notify)
}

// RetryWithResult is Retry for operations that produce a value.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, operation func() (T, error)) (T, error) {
	var result T
	err := Retry(ctx, config, func() error {
		var err error
		result, err = operation()
		return err
	})
	return result, err
}
