// Package validate holds the input rules for contact submissions. The server
// is the authoritative enforcer: the client counter only warns.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/vipspot/contact-relay/internal/models"
)

// Field limits for a submission.
const (
	MaxNameLen    = 120
	MaxMessageLen = 4000
)

// Sentinel validation errors. Reason translates them into the user-facing
// strings the HTTP contract promises.
var (
	ErrMissingFields = errors.New("missing fields")
	ErrTooLong       = errors.New("too long")
	ErrInvalidEmail  = errors.New("invalid email")
)

// EmailPattern is the deliberately loose address check: one @, no
// whitespace, and a dot somewhere in the domain. Deliverability is proven by
// the confirmation email, not by parsing.
var EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Submission checks the user-supplied fields of a request. The honeypot and
// timestamp guards live in the pipeline, not here.
func Submission(req models.SubmissionRequest) error {
	if req.Name == "" || req.Email == "" || req.Message == "" {
		return fmt.Errorf("%w: name, email and message are required", ErrMissingFields)
	}
	if n := utf8.RuneCountInString(req.Name); n > MaxNameLen {
		return fmt.Errorf("%w: name is %d characters, max %d", ErrTooLong, n, MaxNameLen)
	}
	if n := utf8.RuneCountInString(req.Message); n > MaxMessageLen {
		return fmt.Errorf("%w: message is %d characters, max %d", ErrTooLong, n, MaxMessageLen)
	}
	if !EmailPattern.MatchString(req.Email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, req.Email)
	}
	return nil
}

// Reason maps a validation error to the short message returned to clients.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingFields):
		return "Missing fields"
	case errors.Is(err, ErrTooLong):
		return "Too long"
	case errors.Is(err, ErrInvalidEmail):
		return "Invalid email"
	default:
		return "Bad input"
	}
}
