package email

import (
	"context"
	"time"
)

// Payload is the canonical representation of one outbound email. The contact
// service composes these; providers only deliver them.
type Payload struct {
	MessageID string
	From      string
	To        string
	ReplyTo   string
	Subject   string
	Text      string
	HTML      string
	Headers   map[string]string
}

// RawResponse mirrors the low level provider response kept for logging and
// support lookups.
type RawResponse struct {
	ID        string
	Code      int
	Body      string
	Timestamp time.Time
}

// Provider is the contract exposed by every email backend. The relay treats
// delivery as an opaque accepted-or-error capability.
type Provider interface {
	Send(ctx context.Context, payload *Payload) (*RawResponse, error)
}
