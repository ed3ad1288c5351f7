// Package retry retries startup connections to PostgreSQL and Redis with
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // 0.0-1.0
	MaxSameErrorType int     // after N consecutive same-class errors DoIfRetryable gives up (0 = never)
}

// DefaultConfig covers a database or Redis container that is still starting:
// 5 retries from 200ms, doubling, capped at 5s, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       5,
		InitialDelay:     200 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// backoff waits out one delay. It returns the next delay, or ctx.Err() if the
// context ends first.
func (c *Config) backoff(ctx context.Context, delay time.Duration) (time.Duration, error) {
	timer := time.NewTimer(applyJitter(delay, c.JitterFactor))
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return delay, ctx.Err()
	}

	next := time.Duration(float64(delay) * c.Multiplier)
	if next > c.MaxDelay {
		next = c.MaxDelay
	}
	return next, nil
}

// Do calls fn until it succeeds or MaxRetries is exhausted and returns the
// last error. Context cancellation interrupts the wait between attempts.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult is Do for functions returning a value, such as pgxpool.New.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		result  T
		lastErr error
	)
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result, lastErr = r, err

		if attempt < cfg.MaxRetries {
			if delay, err = cfg.backoff(ctx, delay); err != nil {
				return result, err
			}
		}
	}

	return result, lastErr
}

// RetryableError is implemented by errors that declare their own retryability.
// Mapping errors implement it and always answer false.
type RetryableError interface {
	error
	IsRetryable() bool
}

var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"too many clients",
	"the database system is starting up",
	"the database system is shutting down",
	"deadlock",
	"network is unreachable",
	"loading the dataset in memory", // redis LOADING
	"unexpected eof",
}

// IsRetryable reports whether err is transient. Errors implementing
// RetryableError decide for themselves; everything else is matched against
// known transient connection failures.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// classifyErrorType groups errors so repeated failures of one kind can be detected.
func classifyErrorType(err error) string {
	if err == nil {
		return "nil"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"):
		return "connection"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return "timeout"
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "network is unreachable"):
		return "network"
	case strings.Contains(msg, "too many connections"), strings.Contains(msg, "too many clients"):
		return "capacity"
	case strings.Contains(msg, "starting up"), strings.Contains(msg, "shutting down"), strings.Contains(msg, "loading the dataset"):
		return "starting"
	case strings.Contains(msg, "broken pipe"):
		return "broken_pipe"
	}
	return "unknown"
}

// DoIfRetryable retries only transient errors; permanent ones (bad password,
// unknown database) return immediately. After MaxSameErrorType consecutive
// failures of the same class the error is treated as permanent.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		lastErr       error
		lastErrorType string
		sameCount     int
	)
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		errType := classifyErrorType(err)
		if errType == lastErrorType {
			sameCount++
			if cfg.MaxSameErrorType > 0 && sameCount >= cfg.MaxSameErrorType {
				return fmt.Errorf("repeated error (%d times, type=%s): %w", sameCount, errType, err)
			}
		} else {
			sameCount = 1
			lastErrorType = errType
		}

		if attempt < cfg.MaxRetries {
			if delay, err = cfg.backoff(ctx, delay); err != nil {
				return err
			}
		}
	}

	return lastErr
}
