// Package ticket issues the short human-readable identifiers attached to
// accepted contact submissions. Tickets are inbox labels, not security
// tokens: collisions are harmless, so a small random suffix is enough.
package ticket

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	prefix      = "VIP-"
	base36      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixRunes = 4
	clockDigits = 4
)

// Pattern matches every id this package can produce.
var Pattern = regexp.MustCompile(`^VIP-\d{4}[A-Z0-9]{4}$`)

// Option customises a Source at construction time.
type Option func(*Source)

// WithClock overrides the clock used for the timestamp digits.
func WithClock(now func() time.Time) Option {
	return func(s *Source) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRandomSeed makes ticket suffixes deterministic, useful in tests.
func WithRandomSeed(seed int64) Option {
	return func(s *Source) {
		s.rnd = rand.New(rand.NewSource(seed)) // #nosec G404 -- labels, not secrets.
	}
}

// Source generates ticket ids. Safe for concurrent use.
type Source struct {
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSource constructs a ticket Source with sensible defaults.
func NewSource(opts ...Option) *Source {
	s := &Source{
		now: time.Now,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Next returns a fresh ticket id: the prefix, the four trailing digits of the
// current epoch milliseconds, then four random base36 characters.
func (s *Source) Next() string {
	millis := strconv.FormatInt(s.now().UnixMilli(), 10)
	if len(millis) > clockDigits {
		millis = millis[len(millis)-clockDigits:]
	} else {
		millis = strings.Repeat("0", clockDigits-len(millis)) + millis
	}

	var b strings.Builder
	b.Grow(len(prefix) + clockDigits + suffixRunes)
	b.WriteString(prefix)
	b.WriteString(millis)

	s.mu.Lock()
	for i := 0; i < suffixRunes; i++ {
		b.WriteByte(base36[s.rnd.Intn(len(base36))])
	}
	s.mu.Unlock()

	return b.String()
}

// Valid reports whether value looks like an id issued by this package.
func Valid(value string) bool {
	return Pattern.MatchString(value)
}
