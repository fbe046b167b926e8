// Package contact implements the submission pipeline: idempotent retry
// suppression, honeypot and timing guards, validation, and the dual email
// dispatch that turns one form post into an owner notification plus a
// visitor confirmation.
package contact

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/config"
	"github.com/vipspot/contact-relay/internal/events"
	"github.com/vipspot/contact-relay/internal/models"
	emailprovider "github.com/vipspot/contact-relay/internal/providers/email"
	"github.com/vipspot/contact-relay/internal/store"
	"github.com/vipspot/contact-relay/internal/ticket"
	"github.com/vipspot/contact-relay/internal/validate"
)

// Option customises the Service at construction time.
type Option func(*Service)

// WithClock overrides the service clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs the per-request state machine described in the pipeline
// design: idempotency check, guards, validation, dispatch. Each step is
// terminal; a request produces exactly one Result variant.
type Service struct {
	logger    zerolog.Logger
	guards    config.GuardConfig
	composer  *Composer
	sender    emailprovider.Provider
	idem      store.Store
	tickets   *ticket.Source
	publisher *events.SubmissionPublisher
	now       func() time.Time
}

// NewService wires the pipeline together. publisher may be nil when the
// event stream is disabled.
func NewService(
	guards config.GuardConfig,
	composer *Composer,
	sender emailprovider.Provider,
	idem store.Store,
	tickets *ticket.Source,
	publisher *events.SubmissionPublisher,
	logger zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		logger:    logger,
		guards:    guards,
		composer:  composer,
		sender:    sender,
		idem:      idem,
		tickets:   tickets,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handle runs one submission through the pipeline and returns its terminal
// outcome. clientIP is only used for the owner notification and logging.
func (s *Service) Handle(ctx context.Context, req models.SubmissionRequest, clientIP string) models.Result {
	log := s.logger.With().Str("rid", req.RequestID).Logger()

	// A retried correlation id short-circuits before any guard: the first
	// attempt already did the work and its ticket is the answer.
	if req.RequestID != "" {
		rec, ok, err := s.idem.Get(ctx, req.RequestID)
		if err != nil {
			log.Error().Err(err).Msg("idempotency lookup failed, treating as miss")
		} else if ok {
			log.Info().Str("ticket", rec.TicketID).Msg("duplicate submission suppressed")
			return models.Duplicate{TicketID: rec.TicketID, RequestID: req.RequestID}
		}
	}

	// Bots fill the invisible field. Respond as if nothing happened so the
	// contract stays unlearnable.
	if req.Company != "" {
		log.Info().Msg("honeypot tripped, submission suppressed")
		return models.Suppressed{}
	}

	now := s.now()
	if age, ok := req.FormAge(now); ok && age < s.guards.MinFormAge {
		log.Info().Dur("form_age", age).Msg("submission faster than timing guard")
		return models.RejectedTooFast{RetryAfter: s.retryHintSeconds()}
	}

	if err := validate.Submission(req); err != nil {
		log.Info().Err(err).Msg("submission rejected")
		return models.RejectedInvalid{Reason: validate.Reason(err)}
	}

	dispatch := Dispatch{
		Req:        req,
		TicketID:   s.tickets.Next(),
		RequestID:  req.RequestID,
		ClientIP:   clientIP,
		ReceivedAt: now,
	}

	log.Info().
		Str("ticket", dispatch.TicketID).
		Str("name", req.Name).
		Str("email", req.Email).
		Int("bytes", len(req.Message)).
		Msg("dispatching contact submission")

	// Owner first: if only one email survives a crash it must be the one
	// that tells the operator a human is waiting.
	if _, err := s.sender.Send(ctx, s.composer.Owner(dispatch)); err != nil {
		log.Error().Err(err).Msg("owner notification failed")
		return models.ServerError{RequestID: req.RequestID}
	}

	visitor, err := s.composer.Visitor(dispatch)
	if err != nil {
		log.Error().Err(err).Msg("visitor composition failed")
		return models.ServerError{RequestID: req.RequestID}
	}
	if _, err := s.sender.Send(ctx, visitor); err != nil {
		log.Error().Err(err).Msg("visitor confirmation failed")
		return models.ServerError{RequestID: req.RequestID}
	}

	// Record only after both sends succeed: a retry of a half-delivered
	// submission re-attempts both emails, trading a possible duplicate
	// owner notification for never losing the visitor confirmation.
	if req.RequestID != "" {
		rec := models.IdempotencyRecord{
			RequestID: req.RequestID,
			TicketID:  dispatch.TicketID,
			CreatedAt: now,
		}
		if err := s.idem.Set(ctx, req.RequestID, rec, s.guards.IdempotencyTTL); err != nil {
			log.Error().Err(err).Msg("idempotency record write failed")
		}
	}

	if s.publisher != nil {
		event := models.SubmissionEvent{
			TicketID:   dispatch.TicketID,
			RequestID:  req.RequestID,
			Email:      req.Email,
			Source:     req.Source,
			ReceivedAt: now,
		}
		if err := s.publisher.PublishAccepted(ctx, event); err != nil {
			log.Warn().Err(err).Msg("submission event publish failed")
		}
	}

	return models.Accepted{TicketID: dispatch.TicketID, RequestID: req.RequestID}
}

// retryHintSeconds is the hint attached to timing-guard rejections. It
// mirrors the rate window so the client shows one consistent countdown.
func (s *Service) retryHintSeconds() int {
	secs := int(math.Ceil(s.guards.RateWindow.Seconds()))
	if secs < 1 {
		secs = 30
	}
	return secs
}
