package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/models"
)

type fakeProducer struct {
	topic   string
	key     []byte
	payload []byte
	err     error
	calls   int
}

func (f *fakeProducer) Publish(topic string, key, payload []byte) error {
	f.calls++
	f.topic = topic
	f.key = key
	f.payload = payload
	return f.err
}

func TestPublishAccepted(t *testing.T) {
	prod := &fakeProducer{}
	pub := NewSubmissionPublisher(prod, "contact.submissions", zerolog.Nop())

	event := models.SubmissionEvent{
		TicketID:   "VIP-1234ABCD",
		RequestID:  "abc-1",
		Email:      "jo@x.com",
		ReceivedAt: time.Unix(1000, 0).UTC(),
	}
	if err := pub.PublishAccepted(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if prod.topic != "contact.submissions" {
		t.Fatalf("unexpected topic %q", prod.topic)
	}
	if string(prod.key) != "abc-1" {
		t.Fatalf("expected event keyed by request id, got %q", prod.key)
	}

	var decoded models.SubmissionEvent
	if err := json.Unmarshal(prod.payload, &decoded); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if decoded.TicketID != event.TicketID {
		t.Fatalf("round-trip lost ticket id: %+v", decoded)
	}
}

func TestPublishAcceptedProducerError(t *testing.T) {
	prod := &fakeProducer{err: errors.New("broker down")}
	pub := NewSubmissionPublisher(prod, "contact.submissions", zerolog.Nop())

	err := pub.PublishAccepted(context.Background(), models.SubmissionEvent{RequestID: "abc-1"})
	if err == nil {
		t.Fatalf("expected error from failing producer")
	}
}

func TestNilPublisherIsSafe(t *testing.T) {
	var pub *SubmissionPublisher
	err := pub.PublishAccepted(context.Background(), models.SubmissionEvent{})
	if !errors.Is(err, errProducerNotInitialised) {
		t.Fatalf("expected errProducerNotInitialised, got %v", err)
	}
}

func TestNewSubmissionPublisherWithoutProducer(t *testing.T) {
	if pub := NewSubmissionPublisher(nil, "topic", zerolog.Nop()); pub != nil {
		t.Fatalf("expected nil publisher without producer")
	}
}
