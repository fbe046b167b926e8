package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mailgun "github.com/mailgun/mailgun-go/v5"
	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/config"
)

// MailgunOption customises the Mailgun provider.
type MailgunOption func(*MailgunProvider)

// WithMailgunClient injects a preconfigured client, used by tests.
func WithMailgunClient(mg mailgun.Mailgun) MailgunOption {
	return func(p *MailgunProvider) {
		if mg != nil {
			p.mg = mg
		}
	}
}

// WithMailgunClock replaces the clock used for response timestamps.
func WithMailgunClock(now func() time.Time) MailgunOption {
	return func(p *MailgunProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// MailgunProvider delivers email through the Mailgun HTTP API.
type MailgunProvider struct {
	logger zerolog.Logger
	domain string
	mg     mailgun.Mailgun
	now    func() time.Time
}

// NewMailgunProvider constructs a Provider backed by Mailgun.
func NewMailgunProvider(cfg config.MailgunConfig, logger zerolog.Logger, opts ...MailgunOption) (*MailgunProvider, error) {
	if strings.TrimSpace(cfg.Domain) == "" {
		return nil, errors.New("mailgun provider: domain is required")
	}

	p := &MailgunProvider{
		logger: logger,
		domain: cfg.Domain,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.mg == nil {
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("mailgun provider: api key is required")
		}
		p.mg = mailgun.NewMailgun(cfg.APIKey)
	}
	return p, nil
}

// Send implements Provider.
func (p *MailgunProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("mailgun provider: payload is required")
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("mailgun provider: recipient is required")
	}

	message := mailgun.NewMessage(p.domain, payload.From, payload.Subject, payload.Text)
	if err := message.AddRecipient(payload.To); err != nil {
		return nil, fmt.Errorf("mailgun provider: add recipient: %w", err)
	}
	if payload.HTML != "" {
		message.SetHTML(payload.HTML)
	}
	if payload.ReplyTo != "" {
		message.SetReplyTo(payload.ReplyTo)
	}
	for key, value := range payload.Headers {
		message.AddHeader(key, value)
	}

	resp, err := p.mg.Send(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("mailgun provider: send: %w", err)
	}

	p.logger.Debug().
		Str("provider", "mailgun").
		Str("to", payload.To).
		Str("mailgun_id", resp.ID).
		Msg("mailgun accepted message")

	return &RawResponse{
		ID:        resp.ID,
		Code:      200,
		Body:      resp.Message,
		Timestamp: p.now(),
	}, nil
}
