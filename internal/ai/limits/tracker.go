package limits

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// MinHeadroom is the remaining/limit ratio below which a model is
	// considered too close to its rate limit to route new work to.
	MinHeadroom = 0.15

	// LimitedCooldown is how long a model stays flagged after the provider
	// returned a rate-limited response.
	LimitedCooldown = 5 * time.Minute
)

// Rate limit headers returned by the inference gateway. The minute-window
// headers follow the OpenAI convention; the day-window variants carry a
// "-day" suffix.
const (
	headerRequestsLimit        = "x-ratelimit-limit-requests"
	headerRequestsRemaining    = "x-ratelimit-remaining-requests"
	headerTokensLimit          = "x-ratelimit-limit-tokens"
	headerTokensRemaining      = "x-ratelimit-remaining-tokens"
	headerRequestsLimitDay     = "x-ratelimit-limit-requests-day"
	headerRequestsRemainingDay = "x-ratelimit-remaining-requests-day"
	headerTokensLimitDay       = "x-ratelimit-limit-tokens-day"
	headerTokensRemainingDay   = "x-ratelimit-remaining-tokens-day"
)

// Observation holds the rate limit values seen in a single response.
// Nil fields were not present in that response.
type Observation struct {
	RequestsLimit        *int64
	RequestsRemaining    *int64
	RequestsLimitDay     *int64
	RequestsRemainingDay *int64
	TokensLimit          *int64
	TokensRemaining      *int64
	TokensLimitDay       *int64
	TokensRemainingDay   *int64
}

// IsZero reports whether the observation carries no values at all.
func (o Observation) IsZero() bool {
	return o.RequestsLimit == nil && o.RequestsRemaining == nil &&
		o.RequestsLimitDay == nil && o.RequestsRemainingDay == nil &&
		o.TokensLimit == nil && o.TokensRemaining == nil &&
		o.TokensLimitDay == nil && o.TokensRemainingDay == nil
}

// ObservationFromHeaders parses rate limit headers from a provider response.
func ObservationFromHeaders(h http.Header) Observation {
	return Observation{
		RequestsLimit:        parseHeader(h, headerRequestsLimit),
		RequestsRemaining:    parseHeader(h, headerRequestsRemaining),
		RequestsLimitDay:     parseHeader(h, headerRequestsLimitDay),
		RequestsRemainingDay: parseHeader(h, headerRequestsRemainingDay),
		TokensLimit:          parseHeader(h, headerTokensLimit),
		TokensRemaining:      parseHeader(h, headerTokensRemaining),
		TokensLimitDay:       parseHeader(h, headerTokensLimitDay),
		TokensRemainingDay:   parseHeader(h, headerTokensRemainingDay),
	}
}

// parseHeader returns the header value as an integer, or nil if absent or malformed.
func parseHeader(h http.Header, name string) *int64 {
	value := h.Get(name)
	if value == "" {
		return nil
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil
	}

	return &parsed
}

// modelState is the merged ledger for one model.
type modelState struct {
	observed    Observation
	lastLimited time.Time
}

// Tracker is an in-memory per-model ledger of rate limit headroom.
// State is best-effort and process-local; it resets on restart, and a model
// with no data is assumed healthy.
type Tracker struct {
	mu     sync.Mutex
	models map[string]*modelState
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker creates an empty rate limit tracker.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		models: make(map[string]*modelState),
		logger: logger.Named("rate_limits"),
		now:    time.Now,
	}
}

// Observe merges newly seen rate limit values into a model's ledger.
// Fields absent from the observation keep their previous values; the ledger
// is never reset back to unknown.
func (t *Tracker) Observe(model string, obs Observation) {
	if obs.IsZero() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.state(model)
	merge(&state.observed.RequestsLimit, obs.RequestsLimit)
	merge(&state.observed.RequestsRemaining, obs.RequestsRemaining)
	merge(&state.observed.RequestsLimitDay, obs.RequestsLimitDay)
	merge(&state.observed.RequestsRemainingDay, obs.RequestsRemainingDay)
	merge(&state.observed.TokensLimit, obs.TokensLimit)
	merge(&state.observed.TokensRemaining, obs.TokensRemaining)
	merge(&state.observed.TokensLimitDay, obs.TokensLimitDay)
	merge(&state.observed.TokensRemainingDay, obs.TokensRemainingDay)
}

// MarkLimited records that the provider rate-limited a request for this model.
func (t *Tracker) MarkLimited(model string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state(model).lastLimited = t.now()

	t.logger.Warn("Model reported rate limited", zap.String("model", model))
}

// ShouldSwitch reports whether new work should be routed away from a model:
// either some tracked window has less than MinHeadroom remaining, or the
// provider rate-limited the model within the cooldown period.
func (t *Tracker) ShouldSwitch(model string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.models[model]
	if !ok {
		return false
	}

	if !state.lastLimited.IsZero() && t.now().Sub(state.lastLimited) < LimitedCooldown {
		return true
	}

	obs := state.observed
	windows := []struct {
		limit     *int64
		remaining *int64
	}{
		{obs.RequestsLimit, obs.RequestsRemaining},
		{obs.RequestsLimitDay, obs.RequestsRemainingDay},
		{obs.TokensLimit, obs.TokensRemaining},
		{obs.TokensLimitDay, obs.TokensRemainingDay},
	}

	for _, w := range windows {
		if w.limit == nil || w.remaining == nil || *w.limit <= 0 {
			continue
		}

		if float64(*w.remaining)/float64(*w.limit) < MinHeadroom {
			return true
		}
	}

	return false
}

// state returns the ledger entry for a model, creating it if needed.
// Callers must hold the mutex.
func (t *Tracker) state(model string) *modelState {
	s, ok := t.models[model]
	if !ok {
		s = &modelState{}
		t.models[model] = s
	}

	return s
}

func merge(dst **int64, src *int64) {
	if src != nil {
		*dst = src
	}
}
