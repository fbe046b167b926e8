// Package client is the submission controller for the contact API: it owns
// the resend cooldown, correlation ids, the bounded network call and the
// translation of every terminal outcome into one human-readable status.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vipspot/contact-relay/internal/models"
)

const (
	// DefaultCooldown matches the reference 30 second resend window. It is
	// a UX nicety: the server-side limiter is the real control.
	DefaultCooldown = 30 * time.Second
	// DefaultTimeout bounds the network call.
	DefaultTimeout = 15 * time.Second

	cooldownKey = "contact:lastSent"
)

// StatusKind classifies a status message for presentation.
type StatusKind string

const (
	StatusInfo  StatusKind = "info"
	StatusOK    StatusKind = "ok"
	StatusError StatusKind = "error"
)

// Status is the single user-visible outcome of one submission attempt.
type Status struct {
	Kind       StatusKind
	Message    string
	TicketID   string
	RequestID  string
	Idempotent bool
	RetryAfter int
}

// Form is a snapshot of the contact form at submit time.
type Form struct {
	Name    string
	Email   string
	Message string
	// RenderedAt is when the form was first shown; it feeds the server's
	// timing guard. Zero means unknown and skips the guard.
	RenderedAt time.Time
	// RequestID, when set, reuses a correlation id so the server can
	// deduplicate a deliberate retry.
	RequestID string
	Source    string
}

// Option customises the Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithClock overrides the clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCooldown overrides the resend cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// WithTimeout overrides the network call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithOrigin sets the X-From-Origin header value.
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = origin
	}
}

// Client posts submissions to the relay API.
type Client struct {
	baseURL  string
	origin   string
	httpc    *http.Client
	storage  Storage
	cooldown time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// New constructs a Client for the API at baseURL.
func New(baseURL string, storage Storage, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		httpc:    &http.Client{},
		storage:  storage,
		cooldown: DefaultCooldown,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// CooldownRemaining reports how long until the next submission is allowed.
func (c *Client) CooldownRemaining() time.Duration {
	raw, ok := c.storage.Get(cooldownKey)
	if !ok {
		return 0
	}
	lastMillis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	remain := c.cooldown - c.now().Sub(time.UnixMilli(lastMillis))
	if remain < 0 {
		return 0
	}
	return remain
}

// Submit turns one form snapshot into at most one network request and
// always returns exactly one status. The returned error is reserved for
// programming mistakes (nil storage, bad base URL); every expected failure
// is a Status.
func (c *Client) Submit(ctx context.Context, form Form) (Status, error) {
	if remain := c.CooldownRemaining(); remain > 0 {
		secs := int(math.Ceil(remain.Seconds()))
		return Status{
			Kind:       StatusError,
			Message:    fmt.Sprintf("You're doing that too fast. Please wait %d seconds and try again.", secs),
			RetryAfter: secs,
		}, nil
	}

	requestID := form.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	payload := models.SubmissionRequest{
		Name:      strings.TrimSpace(form.Name),
		Email:     strings.TrimSpace(form.Email),
		Message:   strings.TrimSpace(form.Message),
		RequestID: requestID,
		Source:    form.Source,
	}
	if !form.RenderedAt.IsZero() {
		payload.Timestamp = form.RenderedAt.UnixMilli()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Status{}, fmt.Errorf("client: marshal submission: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/contact", bytes.NewReader(raw))
	if err != nil {
		return Status{}, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.origin != "" {
		req.Header.Set("X-From-Origin", c.origin)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Status{
			Kind:      StatusError,
			Message:   "Network error. Please check your connection and try again.",
			RequestID: requestID,
		}, nil
	}
	defer resp.Body.Close()

	body := decodeBody(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		retry := retryAfter(resp, body)
		return Status{
			Kind:       StatusError,
			Message:    fmt.Sprintf("You're doing that too fast. Please wait %d seconds and try again.", retry),
			RequestID:  requestID,
			RetryAfter: retry,
		}, nil
	}

	if resp.StatusCode >= 400 || !body.OK {
		message := body.Message
		if message == "" {
			message = fmt.Sprintf("Error: %d", resp.StatusCode)
		}
		return Status{Kind: StatusError, Message: message, RequestID: requestID}, nil
	}

	// Success starts the cooldown; nothing else does.
	if err := c.storage.Set(cooldownKey, strconv.FormatInt(c.now().UnixMilli(), 10)); err != nil {
		return Status{}, fmt.Errorf("client: persist cooldown: %w", err)
	}

	return Status{
		Kind:       StatusOK,
		Message:    "Message sent successfully! I will get back to you shortly.",
		TicketID:   body.TicketID,
		RequestID:  requestID,
		Idempotent: body.Idempotent,
	}, nil
}

// Health probes the relay's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("client: health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: health: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type responseBody struct {
	OK         bool   `json:"ok"`
	TicketID   string `json:"ticketId"`
	RequestID  string `json:"requestId"`
	Idempotent bool   `json:"idempotent"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

func decodeBody(r io.Reader) responseBody {
	var body responseBody
	raw, err := io.ReadAll(io.LimitReader(r, 1<<16))
	if err != nil || len(raw) == 0 {
		return body
	}
	_ = json.Unmarshal(raw, &body)
	return body
}

func retryAfter(resp *http.Response, body responseBody) int {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			return secs
		}
	}
	if body.RetryAfter > 0 {
		return body.RetryAfter
	}
	return 30
}
