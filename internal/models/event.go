package models

import "time"

// SubmissionEvent is emitted to the event stream after a submission has been
// accepted and both emails dispatched. Publishing is best effort and never
// affects the HTTP response.
type SubmissionEvent struct {
	TicketID   string    `json:"ticket_id"`
	RequestID  string    `json:"request_id"`
	Email      string    `json:"email"`
	Source     string    `json:"source,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
