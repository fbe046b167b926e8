package email

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func testPayload(to string) *Payload {
	return &Payload{
		MessageID: "msg-1",
		From:      "relay@vipspot.net",
		To:        to,
		Subject:   "hello",
		Text:      "body",
	}
}

func TestMockProviderSuccessRecordsPayload(t *testing.T) {
	p := NewMockProvider(zerolog.Nop())

	resp, err := p.Send(context.Background(), testPayload("visitor@example.com"))
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if resp.Code != 200 {
		t.Fatalf("expected code 200, got %d", resp.Code)
	}
	if resp.ID == "" {
		t.Fatalf("expected a generated message id")
	}

	sent := p.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 recorded payload, got %d", len(sent))
	}
	if sent[0].To != "visitor@example.com" {
		t.Fatalf("unexpected recipient %q", sent[0].To)
	}
}

func TestMockProviderPermanentScenario(t *testing.T) {
	p := NewMockProvider(zerolog.Nop(), WithDefaultScenario(ScenarioPermanent))

	resp, err := p.Send(context.Background(), testPayload("visitor@example.com"))
	if err == nil {
		t.Fatalf("expected error for permanent scenario")
	}
	if resp == nil || resp.Code != 550 {
		t.Fatalf("expected 550 response, got %+v", resp)
	}
	if len(p.Sent()) != 0 {
		t.Fatalf("failed sends must not be recorded")
	}
}

func TestMockProviderScenarioHeaderOverridesDefault(t *testing.T) {
	p := NewMockProvider(zerolog.Nop())

	payload := testPayload("visitor@example.com")
	payload.Headers = map[string]string{"X-Mock-Provider-Scenario": "timeout"}

	_, err := p.Send(context.Background(), payload)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if len(p.Sent()) != 0 {
		t.Fatalf("timed-out sends must not be recorded")
	}
}

func TestMockProviderRejectsMissingRecipient(t *testing.T) {
	p := NewMockProvider(zerolog.Nop())

	if _, err := p.Send(context.Background(), testPayload("  ")); err == nil {
		t.Fatalf("expected error for missing recipient")
	}
}

func TestMockProviderReset(t *testing.T) {
	p := NewMockProvider(zerolog.Nop())

	if _, err := p.Send(context.Background(), testPayload("a@example.com")); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	p.Reset()
	if len(p.Sent()) != 0 {
		t.Fatalf("expected empty log after Reset")
	}
}
