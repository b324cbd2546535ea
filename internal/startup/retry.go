package startup

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy is a fixed-delay retry budget. Attempts counts the first try.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Backoff converts the policy into a go-retry backoff. Each call returns a
// fresh backoff since go-retry backoffs are stateful.
func (p RetryPolicy) Backoff() retry.Backoff {
	attempts := max(p.Attempts, 1)
	// go-retry rejects a zero constant delay
	delay := max(p.Delay, time.Nanosecond)
	return retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))
}
