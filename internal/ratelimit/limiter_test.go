package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New(2, 30*time.Second)

	d := l.Allow("1.2.3.4|/contact")
	if !d.Allowed || d.Remaining != 1 {
		t.Fatalf("first request should be allowed with 1 remaining, got %+v", d)
	}
	d = l.Allow("1.2.3.4|/contact")
	if !d.Allowed || d.Remaining != 0 {
		t.Fatalf("second request should exhaust the window, got %+v", d)
	}
}

func TestBreachReportsRetryAfter(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, 30*time.Second, WithClock(func() time.Time { return now }))

	if d := l.Allow("key"); !d.Allowed {
		t.Fatalf("first request must pass, got %+v", d)
	}

	now = now.Add(12 * time.Second)
	d := l.Allow("key")
	if d.Allowed {
		t.Fatalf("second request in window must be blocked")
	}
	if d.RetryAfter != 18 {
		t.Fatalf("expected RetryAfter 18, got %d", d.RetryAfter)
	}

	// Rounded up, never zero, even millimetres before reset.
	now = now.Add(17*time.Second + 999*time.Millisecond)
	if d := l.Allow("key"); d.Allowed || d.RetryAfter < 1 {
		t.Fatalf("retry hint must stay positive, got %+v", d)
	}
}

func TestWindowRollsOver(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(1, 30*time.Second, WithClock(func() time.Time { return now }))

	if d := l.Allow("key"); !d.Allowed {
		t.Fatalf("first request must pass")
	}
	now = now.Add(30 * time.Second)
	if d := l.Allow("key"); !d.Allowed {
		t.Fatalf("request after window reset must pass, got %+v", d)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(1, 30*time.Second)

	if d := l.Allow("a|/contact"); !d.Allowed {
		t.Fatalf("first key must pass")
	}
	if d := l.Allow("b|/contact"); !d.Allowed {
		t.Fatalf("second key must not share the first key's window")
	}
	if d := l.Allow("a|/booking"); !d.Allowed {
		t.Fatalf("same ip on another path must have its own window")
	}
}
