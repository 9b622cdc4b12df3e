// Package retry wraps calls to external collaborators (policy ledger,
// evidence store) with bounded exponential backoff. A turn that exhausts its
// retries surfaces as a system-unavailable condition; no session state is
// committed on a failed external call.
package retry

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config controls retry behavior with exponential backoff.
type Config struct {
	MaxRetries int           // retry attempts after the first try (default: 3)
	BaseDelay  time.Duration // delay before the first retry (default: 250ms)
	MaxDelay   time.Duration // ceiling on the delay between retries (default: 5s)
	Multiplier float64       // backoff multiplier (default: 2.0)
	Jitter     bool          // add up to 10% random jitter
}

// DefaultConfig returns the retry settings used for adapter calls. External
// lookups happen inside a conversational turn, so the budget stays small.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  250 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Do executes op, retrying transient failures per cfg. It returns the last
// error when retries are exhausted or the context is done. Non-retryable
// errors are returned immediately.
func Do(ctx context.Context, cfg Config, name string, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		delay := delayFor(cfg, attempt)
		log.Warn().
			Str("op", name).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(lastErr).
			Msg("transient failure, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	log.Error().Str("op", name).Int("attempts", cfg.MaxRetries+1).Err(lastErr).
		Msg("retries exhausted")
	return lastErr
}

func delayFor(cfg Config, attempt int) time.Duration {
	d := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		jitterRange := d * 0.1
		d += (rand.Float64() - 0.5) * 2 * jitterRange
		if d < 0 {
			d = float64(cfg.BaseDelay)
		}
	}
	return time.Duration(d)
}

// retryableFragments are error-text markers for failures worth retrying.
var retryableFragments = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"429",
	"502",
	"503",
	"504",
	"no such host",
	"network unreachable",
	"broken pipe",
	"context deadline exceeded",
	"evidence not ready",
}

// IsRetryable classifies an error as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range retryableFragments {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}
