package chatsync

import "time"

const (
	// DefaultMaxAttempts bounds consecutive reconnect attempts.
	DefaultMaxAttempts = 5

	// delayCap caps the linear backoff multiplier: delay = base * min(attempt, 5).
	delayCap = 5
)

// Policy decides whether and when a dropped connection is retried.
// Deterministic and stateless; the attempt counter lives on the connection.
// The zero value retries up to 5 times at 1s, 2s, 3s, 4s, 5s.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
}

func (p Policy) norm() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Base <= 0 {
		p.Base = time.Second
	}
	return p
}

// ShouldRetry reports whether another attempt is allowed after `attempt`
// attempts have already been made.
func (p Policy) ShouldRetry(attempt int) bool {
	p = p.norm()
	return attempt < p.MaxAttempts
}

// Delay returns the wait before attempt number `attempt` (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.norm()
	if attempt < 1 {
		attempt = 1
	}
	if attempt > delayCap {
		attempt = delayCap
	}
	return time.Duration(attempt) * p.Base
}
