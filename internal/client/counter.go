package client

import (
	"fmt"
	"unicode/utf8"

	"github.com/vipspot/contact-relay/internal/validate"
)

// Counter is the live character-count state for the message field. It warns
// early and flags overflow but never blocks a submission: the server owns
// the real boundary.
type Counter struct {
	Count    int
	Max      int
	Label    string
	Warning  bool // above 90% of the limit
	Exceeded bool // above the limit
}

// CharacterCount recomputes the counter for the current message text.
func CharacterCount(text string) Counter {
	count := utf8.RuneCountInString(text)
	max := validate.MaxMessageLen
	return Counter{
		Count:    count,
		Max:      max,
		Label:    fmt.Sprintf("%d / %d", count, max),
		Warning:  count*10 > max*9,
		Exceeded: count > max,
	}
}
