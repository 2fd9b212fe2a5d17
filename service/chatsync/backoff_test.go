package chatsync

import (
	"testing"
	"time"
)

func TestPolicyDelayLinearCapped(t *testing.T) {
	p := Policy{}
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		3 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second, // capped
		5 * time.Second,
	}
	for i, w := range want {
		attempt := i + 1
		if got := p.Delay(attempt); got != w {
			t.Errorf("Delay(%d) = %s, want %s", attempt, got, w)
		}
	}
}

func TestPolicyDelayScalesWithBase(t *testing.T) {
	p := Policy{Base: 10 * time.Millisecond}
	if got := p.Delay(3); got != 30*time.Millisecond {
		t.Errorf("Delay(3) = %s, want 30ms", got)
	}
	if got := p.Delay(9); got != 50*time.Millisecond {
		t.Errorf("Delay(9) = %s, want capped 50ms", got)
	}
}

func TestPolicyShouldRetryBounds(t *testing.T) {
	p := Policy{}
	for attempt := 0; attempt < DefaultMaxAttempts; attempt++ {
		if !p.ShouldRetry(attempt) {
			t.Errorf("ShouldRetry(%d) = false, want true", attempt)
		}
	}
	if p.ShouldRetry(DefaultMaxAttempts) {
		t.Errorf("ShouldRetry(%d) = true, want false", DefaultMaxAttempts)
	}

	p = Policy{MaxAttempts: 2}
	if !p.ShouldRetry(1) {
		t.Error("ShouldRetry(1) with max 2 should be true")
	}
	if p.ShouldRetry(2) {
		t.Error("ShouldRetry(2) with max 2 should be false")
	}
}

func TestPolicyDelayFloorsAttempt(t *testing.T) {
	p := Policy{}
	if got := p.Delay(0); got != time.Second {
		t.Errorf("Delay(0) = %s, want 1s", got)
	}
}
