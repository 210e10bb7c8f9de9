package directory

import (
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// transientError marks a response worth retrying.
type transientError struct {
	status string
}

func (e *transientError) Error() string {
	return "transient graph error: " + e.status
}

// graphBackOff wraps an exponential backoff but defers to the server's
// Retry-After hint when the last response carried one.
type graphBackOff struct {
	*backoff.ExponentialBackOff
	lastRetryAfter time.Duration
}

func newGraphBackOff() *graphBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = time.Second
	exp.MaxInterval = 30 * time.Second
	exp.MaxElapsedTime = 2 * time.Minute
	return &graphBackOff{ExponentialBackOff: exp}
}

func (b *graphBackOff) NextBackOff() time.Duration {
	next := b.ExponentialBackOff.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	if b.lastRetryAfter > next {
		next = b.lastRetryAfter
	}
	b.lastRetryAfter = 0
	return next
}

// noteRetryAfter records the server's Retry-After hint for the next
// NextBackOff call. Zero clears any previous hint.
func (b *graphBackOff) noteRetryAfter(d time.Duration) {
	b.lastRetryAfter = d
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
