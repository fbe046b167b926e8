package store

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/models"
)

func TestMemorySetGet(t *testing.T) {
	m := NewMemory(zerolog.Nop())
	ctx := context.Background()

	rec := models.IdempotencyRecord{RequestID: "abc-1", TicketID: "VIP-1234ABCD", CreatedAt: time.Now()}
	if err := m.Set(ctx, rec.RequestID, rec, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := m.Get(ctx, "abc-1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.TicketID != rec.TicketID {
		t.Fatalf("expected ticket %q, got %q", rec.TicketID, got.TicketID)
	}

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestMemoryExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewMemory(zerolog.Nop(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	rec := models.IdempotencyRecord{RequestID: "abc-1", TicketID: "VIP-1234ABCD"}
	if err := m.Set(ctx, "abc-1", rec, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	now = now.Add(59 * time.Second)
	if _, ok, _ := m.Get(ctx, "abc-1"); !ok {
		t.Fatalf("expected hit inside retention window")
	}

	now = now.Add(2 * time.Second)
	if _, ok, _ := m.Get(ctx, "abc-1"); ok {
		t.Fatalf("expected miss after retention window")
	}
}

func TestMemorySweep(t *testing.T) {
	now := time.Unix(1000, 0)
	m := NewMemory(zerolog.Nop(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_ = m.Set(ctx, "old", models.IdempotencyRecord{RequestID: "old"}, time.Second)
	_ = m.Set(ctx, "fresh", models.IdempotencyRecord{RequestID: "fresh"}, time.Hour)

	now = now.Add(10 * time.Second)
	if reaped := m.Sweep(); reaped != 1 {
		t.Fatalf("expected 1 reaped entry, got %d", reaped)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "fresh"); !ok {
		t.Fatalf("sweep must not remove unexpired entries")
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory(zerolog.Nop())
	ctx := context.Background()

	_ = m.Set(ctx, "abc-1", models.IdempotencyRecord{RequestID: "abc-1"}, time.Minute)
	if err := m.Delete(ctx, "abc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "abc-1"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestMemoryZeroTTL(t *testing.T) {
	m := NewMemory(zerolog.Nop())
	ctx := context.Background()

	_ = m.Set(ctx, "abc-1", models.IdempotencyRecord{RequestID: "abc-1"}, 0)
	if _, ok, _ := m.Get(ctx, "abc-1"); ok {
		t.Fatalf("zero ttl must not store anything")
	}
}

func TestMemoryRunStopsOnCancel(t *testing.T) {
	m := NewMemory(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, 5*time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("sweep loop did not stop")
	}
}
