package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSubmitSuccessStartsCooldown(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	var gotRID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRID = r.Header.Get("X-Request-ID")
		if r.URL.Path != "/contact" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["requestId"] != gotRID {
			t.Errorf("body requestId %v must match header %q", req["requestId"], gotRID)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true, "ticketId": "VIP-1234ABCD", "requestId": gotRID,
		})
	}))
	defer srv.Close()

	storage := NewMemoryStorage()
	c := New(srv.URL, storage, WithClock(fixedClock(now)))

	status, err := c.Submit(context.Background(), Form{
		Name: "Jo", Email: "jo@x.com", Message: "Hello there",
		RenderedAt: now.Add(-5 * time.Second),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if status.Kind != StatusOK || status.TicketID != "VIP-1234ABCD" {
		t.Fatalf("unexpected status %+v", status)
	}
	if gotRID == "" {
		t.Fatalf("client must generate a correlation id")
	}

	raw, ok := storage.Get("contact:lastSent")
	if !ok {
		t.Fatalf("success must persist the cooldown timestamp")
	}
	if millis, _ := strconv.ParseInt(raw, 10, 64); millis != now.UnixMilli() {
		t.Fatalf("expected lastSent %d, got %s", now.UnixMilli(), raw)
	}
}

func TestSubmitBlockedByCooldown(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	storage := NewMemoryStorage()
	_ = storage.Set("contact:lastSent", strconv.FormatInt(now.Add(-10*time.Second).UnixMilli(), 10))

	c := New(srv.URL, storage, WithClock(fixedClock(now)))
	status, err := c.Submit(context.Background(), Form{Name: "Jo", Email: "jo@x.com", Message: "hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if called {
		t.Fatalf("cooldown must prevent the network call")
	}
	if status.Kind != StatusError || status.RetryAfter != 20 {
		t.Fatalf("expected 20s cooldown status, got %+v", status)
	}
	if !strings.Contains(status.Message, "wait 20 seconds") {
		t.Fatalf("unexpected message %q", status.Message)
	}
}

func TestSubmitAllowedAfterCooldown(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "ticketId": "VIP-0000AAAA"})
	}))
	defer srv.Close()

	storage := NewMemoryStorage()
	_ = storage.Set("contact:lastSent", strconv.FormatInt(now.Add(-31*time.Second).UnixMilli(), 10))

	c := New(srv.URL, storage, WithClock(fixedClock(now)))
	status, err := c.Submit(context.Background(), Form{Name: "Jo", Email: "jo@x.com", Message: "hi"})
	if err != nil || status.Kind != StatusOK {
		t.Fatalf("expected success after cooldown, got %+v err=%v", status, err)
	}
}

func TestSubmitRateLimitedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "18")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "code": "too_fast", "message": "Too many requests", "retryAfter": 18,
		})
	}))
	defer srv.Close()

	storage := NewMemoryStorage()
	c := New(srv.URL, storage)

	status, err := c.Submit(context.Background(), Form{Name: "Jo", Email: "jo@x.com", Message: "hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if status.Kind != StatusError || status.RetryAfter != 18 {
		t.Fatalf("unexpected status %+v", status)
	}
	if _, ok := storage.Get("contact:lastSent"); ok {
		t.Fatalf("failed submission must not start the cooldown")
	}
}

func TestSubmitBadInputResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": false, "code": "bad_input", "message": "Invalid email",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, NewMemoryStorage())
	status, err := c.Submit(context.Background(), Form{Name: "Jo", Email: "nope", Message: "hi"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if status.Kind != StatusError || status.Message != "Invalid email" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSubmitNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := New(srv.URL, NewMemoryStorage())
	status, err := c.Submit(context.Background(), Form{Name: "Jo", Email: "jo@x.com", Message: "hi"})
	if err != nil {
		t.Fatalf("network failure must map to a status, got %v", err)
	}
	if status.Kind != StatusError || !strings.Contains(status.Message, "Network error") {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSubmitTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	c := New(srv.URL, NewMemoryStorage(), WithTimeout(50*time.Millisecond))
	status, err := c.Submit(context.Background(), Form{Name: "Jo", Email: "jo@x.com", Message: "hi"})
	if err != nil {
		t.Fatalf("timeout must map to a status, got %v", err)
	}
	if status.Kind != StatusError || !strings.Contains(status.Message, "Network error") {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSubmitReusesExplicitRequestID(t *testing.T) {
	var gotRID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRID = r.Header.Get("X-Request-ID")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true, "ticketId": "VIP-1234ABCD", "idempotent": true,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, NewMemoryStorage())
	status, err := c.Submit(context.Background(), Form{
		Name: "Jo", Email: "jo@x.com", Message: "hi", RequestID: "abc-1",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if gotRID != "abc-1" {
		t.Fatalf("explicit correlation id must be reused, got %q", gotRID)
	}
	if !status.Idempotent {
		t.Fatalf("idempotent flag must surface, got %+v", status)
	}
}

func TestCharacterCount(t *testing.T) {
	cases := []struct {
		length   int
		warning  bool
		exceeded bool
	}{
		{0, false, false},
		{3600, false, false},
		{3601, true, false},
		{4000, true, false},
		{4001, true, true},
	}
	for _, tc := range cases {
		counter := CharacterCount(strings.Repeat("a", tc.length))
		if counter.Warning != tc.warning || counter.Exceeded != tc.exceeded {
			t.Fatalf("length %d: got %+v", tc.length, counter)
		}
		want := strconv.Itoa(tc.length) + " / 4000"
		if counter.Label != want {
			t.Fatalf("expected label %q, got %q", want, counter.Label)
		}
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := t.TempDir() + "/state.json"

	s := NewFileStorage(path)
	if err := s.Set("contact:lastSent", "12345"); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A fresh instance must read back the persisted value.
	reloaded := NewFileStorage(path)
	value, ok := reloaded.Get("contact:lastSent")
	if !ok || value != "12345" {
		t.Fatalf("expected persisted value, got %q ok=%v", value, ok)
	}

	if _, ok := reloaded.Get("missing"); ok {
		t.Fatalf("unknown key must miss")
	}
}
