package models

import "time"

// SubmissionRequest is one attempt to send a contact message. Instances are
// immutable once decoded; a client retry reuses the same RequestID so the
// server can recognise it as a duplicate.
type SubmissionRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Company   string `json:"company,omitempty"` // honeypot, expected empty
	Timestamp int64  `json:"timestamp,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Source    string `json:"source,omitempty"`
}

// FormAge returns how long ago the form was rendered according to the
// client supplied timestamp. The second return is false when the client did
// not supply a timestamp, in which case the timing guard does not apply.
func (r SubmissionRequest) FormAge(now time.Time) (time.Duration, bool) {
	if r.Timestamp <= 0 {
		return 0, false
	}
	rendered := time.UnixMilli(r.Timestamp)
	return now.Sub(rendered), true
}

// IdempotencyRecord is the server-side memory of a completed submission,
// keyed by the client correlation id. Records expire after the retention
// window via the store sweep.
type IdempotencyRecord struct {
	RequestID string    `json:"request_id"`
	TicketID  string    `json:"ticket_id"`
	CreatedAt time.Time `json:"created_at"`
}
