package fetch

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// LinearBackOff waits Step, 2*Step, 3*Step, ... between attempts.
// Combine with backoff.WithMaxRetries to bound the attempts.
type LinearBackOff struct {
	Step time.Duration

	attempt int
}

var _ backoff.BackOff = (*LinearBackOff)(nil)

// NextBackOff returns the wait before the next retry.
func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.Step
}

// Reset restarts the sequence.
func (b *LinearBackOff) Reset() {
	b.attempt = 0
}
