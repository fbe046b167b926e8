package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/models"
)

var errProducerNotInitialised = errors.New("events publisher: producer not initialised")

// SyncProducer captures the producer behaviour the publisher depends on.
type SyncProducer interface {
	Publish(topic string, key, payload []byte) error
}

// SubmissionPublisher emits accepted-submission events to a Kafka topic. A
// nil publisher is valid and publishes nothing, which is how the relay runs
// when the event stream is disabled.
type SubmissionPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewSubmissionPublisher constructs a SubmissionPublisher. Returns nil when
// no producer is supplied.
func NewSubmissionPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *SubmissionPublisher {
	if prod == nil {
		return nil
	}
	return &SubmissionPublisher{
		producer: prod,
		topic:    topic,
		logger:   logger,
	}
}

// PublishAccepted writes the supplied event keyed by its correlation id.
func (p *SubmissionPublisher) PublishAccepted(_ context.Context, event models.SubmissionEvent) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events publisher: marshal submission event: %w", err)
	}

	if err := p.producer.Publish(p.topic, []byte(event.RequestID), payload); err != nil {
		return fmt.Errorf("events publisher: publish submission event: %w", err)
	}
	return nil
}
