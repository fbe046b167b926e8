// Package events streams accepted-submission notifications to Kafka. The
// stream is optional observability plumbing: when no brokers are configured
// the relay runs without it, and a publish failure never fails a request.
package events

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

const metadataRefreshInterval = 30 * time.Second

// Producer wraps a Sarama sync producer, tracking readiness off periodic
// metadata refreshes so the health log can report broker trouble early.
type Producer struct {
	logger zerolog.Logger

	client   sarama.Client
	producer sarama.SyncProducer

	ready  atomic.Bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewProducer connects to the supplied brokers with acks=all and an
// idempotent producer, matching the delivery guarantees the pipeline wants
// for its audit trail.
func NewProducer(brokers []string, logger zerolog.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("events producer: at least one broker is required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 6
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Metadata.RefreshFrequency = metadataRefreshInterval

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events producer: create client: %w", err)
	}

	syncProd, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("events producer: create sync producer: %w", err)
	}

	p := &Producer{
		logger:   logger,
		client:   client,
		producer: syncProd,
		stopCh:   make(chan struct{}),
	}
	p.ready.Store(true)

	p.wg.Add(1)
	go p.watchMetadata()

	return p, nil
}

// Publish sends one message and waits for broker acknowledgement.
func (p *Producer) Publish(topic string, key, payload []byte) error {
	if topic == "" {
		return errors.New("events producer: topic is required")
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(key)
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		p.ready.Store(false)
		return fmt.Errorf("events producer: send: %w", err)
	}
	p.ready.Store(true)
	return nil
}

// IsReady reports whether the last broker interaction succeeded.
func (p *Producer) IsReady() bool {
	return p.ready.Load()
}

// Close releases the underlying Sarama resources.
func (p *Producer) Close() error {
	close(p.stopCh)
	p.wg.Wait()

	var errs []error
	if err := p.producer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.client.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (p *Producer) watchMetadata() {
	defer p.wg.Done()

	ticker := time.NewTicker(metadataRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.client.RefreshMetadata(); err != nil {
				p.logger.Error().Err(err).Msg("events producer metadata refresh failed")
				p.ready.Store(false)
			} else {
				p.ready.Store(true)
			}
		}
	}
}
