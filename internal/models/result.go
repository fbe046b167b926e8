package models

// Result is the closed set of terminal outcomes for one submission. Exactly
// one variant is produced per request; a variant never carries both a ticket
// id and an error code, which keeps illegal response shapes unrepresentable.
type Result interface {
	isResult()
}

// Accepted is returned when both emails were dispatched and a ticket was
// issued.
type Accepted struct {
	TicketID  string
	RequestID string
}

// Duplicate is returned when the correlation id matched an unexpired
// idempotency record. It carries the ticket issued by the original attempt.
type Duplicate struct {
	TicketID  string
	RequestID string
}

// Suppressed is the honeypot outcome: the request looked automated, nothing
// was sent, and the response deliberately reveals nothing.
type Suppressed struct{}

// RejectedTooFast is returned when the form was submitted too soon after it
// was rendered.
type RejectedTooFast struct {
	RetryAfter int // seconds, always positive
}

// RejectedInvalid is returned for client-correctable input problems.
type RejectedInvalid struct {
	Reason string
}

// RejectedRateLimited is returned when the per-client window is exhausted.
type RejectedRateLimited struct {
	RetryAfter int // seconds, always positive
}

// ServerError is returned when a mail send failed or something unexpected
// broke. It carries the correlation id for support lookup.
type ServerError struct {
	RequestID string
}

func (Accepted) isResult()            {}
func (Duplicate) isResult()           {}
func (Suppressed) isResult()          {}
func (RejectedTooFast) isResult()     {}
func (RejectedInvalid) isResult()     {}
func (RejectedRateLimited) isResult() {}
func (ServerError) isResult()         {}
