package email

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scenario enumerates the supported mock behaviours. The default is success
// unless overridden via options or the scenario header.
type Scenario string

const (
	ScenarioSuccess   Scenario = "success"
	ScenarioPermanent Scenario = "permanent"
	ScenarioTimeout   Scenario = "timeout"

	headerScenario = "X-Mock-Provider-Scenario"
)

// MockOption customises the mock provider at construction time.
type MockOption func(*MockProvider)

// WithDefaultScenario sets the behaviour used when a payload carries no
// explicit scenario header.
func WithDefaultScenario(s Scenario) MockOption {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithMockClock overrides the clock used for response timestamps.
func WithMockClock(now func() time.Time) MockOption {
	return func(p *MockProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// MockProvider is a deterministic in-memory email backend for development
// and tests. It records every payload it accepts so tests can assert on
// dispatch order and content.
type MockProvider struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	now             func() time.Time

	mu   sync.Mutex
	rnd  *rand.Rand
	sent []Payload
}

// NewMockProvider constructs a mock backend that succeeds by default.
func NewMockProvider(logger zerolog.Logger, opts ...MockOption) *MockProvider {
	p := &MockProvider{
		logger:          logger,
		defaultScenario: ScenarioSuccess,
		now:             time.Now,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- mock ids only.
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Send implements Provider. Behaviour is controlled by the default scenario
// or a per-payload X-Mock-Provider-Scenario header.
func (p *MockProvider) Send(ctx context.Context, payload *Payload) (*RawResponse, error) {
	if payload == nil {
		return nil, errors.New("mock provider: payload is required")
	}
	if strings.TrimSpace(payload.To) == "" {
		return nil, errors.New("mock provider: recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scenario := p.scenarioFor(payload)
	p.logger.Debug().
		Str("provider", "mock").
		Str("scenario", string(scenario)).
		Str("to", payload.To).
		Msg("mock email provider invoked")

	switch scenario {
	case ScenarioPermanent:
		return &RawResponse{Code: 550, Body: "mock: mailbox unavailable", Timestamp: p.now()},
			fmt.Errorf("mock provider: permanent failure for %s", payload.To)
	case ScenarioTimeout:
		return nil, context.DeadlineExceeded
	default:
		p.mu.Lock()
		p.sent = append(p.sent, *payload)
		id := fmt.Sprintf("mock-%08x", p.rnd.Uint32())
		p.mu.Unlock()
		return &RawResponse{ID: id, Code: 200, Body: "mock: accepted", Timestamp: p.now()}, nil
	}
}

// Sent returns a copy of every payload delivered so far, in order.
func (p *MockProvider) Sent() []Payload {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Payload, len(p.sent))
	copy(out, p.sent)
	return out
}

// Reset clears the recorded payloads.
func (p *MockProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}

func (p *MockProvider) scenarioFor(payload *Payload) Scenario {
	for key, value := range payload.Headers {
		if !strings.EqualFold(key, headerScenario) {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case string(ScenarioPermanent):
			return ScenarioPermanent
		case string(ScenarioTimeout):
			return ScenarioTimeout
		case string(ScenarioSuccess):
			return ScenarioSuccess
		}
	}
	return p.defaultScenario
}
