package core

import (
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultRetryBase   = 500 * time.Millisecond
	DefaultRetryMax    = 20 * time.Second
	DefaultRetryJitter = 50 * time.Millisecond
)

// RetryPolicy describes an exponential backoff with jitter.
type RetryPolicy struct {
	MaxRetries  uint64
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Jitter      time.Duration
}

// Backoff builds a fresh go-retry backoff. Backoffs are stateful, so callers
// need one per retried operation.
func (p RetryPolicy) Backoff() retry.Backoff {
	base := p.BaseBackoff
	if base <= 0 {
		base = DefaultRetryBase
	}
	ceiling := p.MaxBackoff
	if ceiling < base {
		ceiling = DefaultRetryMax
	}
	backoff := retry.NewExponential(base)
	backoff = retry.WithCappedDuration(ceiling, backoff)
	if p.Jitter > 0 {
		backoff = retry.WithJitter(p.Jitter, backoff)
	}
	return retry.WithMaxRetries(p.MaxRetries, backoff)
}
