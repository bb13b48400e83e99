package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nourhashem/teddyd/speech/cache"
	"github.com/nourhashem/teddyd/speech/circuitbreaker"
	"github.com/nourhashem/teddyd/types"
)

// ErrNoProviderAvailable is the single opaque failure a caller sees when
// every candidate was exhausted or none was registered. Individual
// provider errors are never propagated past the router.
var ErrNoProviderAvailable = types.NewError(types.ErrProviderUnavailable, "no speech provider available").
	WithHTTPStatus(503).
	WithRetryable(true)

// Metrics is the sink for router and breaker observability events.
type Metrics interface {
	RecordProviderCall(provider, operation, outcome string, duration time.Duration)
	RecordCircuitStateChange(provider, from, to string)
	RecordCacheHit(operation string)
	RecordCacheMiss(operation string)
}

// Sessions is the slice of the session manager the router needs for
// per-interaction accounting.
type Sessions interface {
	Touch(sessionID string) bool
	RecordRecording(sessionID string, duration time.Duration) bool
	ActiveCount() int
}

// RouterOptions tunes the router.
type RouterOptions struct {
	// TranscriptionTTL caches transcripts briefly: byte-identical
	// recordings rarely recur.
	TranscriptionTTL time.Duration

	// SynthesisTTL caches synthesized audio for a long time: the same
	// phrase in the same tone recurs constantly.
	SynthesisTTL time.Duration

	// Breaker is the per-provider circuit breaker configuration.
	// Breakers are created lazily, one per provider name.
	Breaker *circuitbreaker.Config

	// Metrics and Sessions may be nil; no-op implementations are used.
	Metrics  Metrics
	Sessions Sessions
}

// DefaultRouterOptions returns the production defaults.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		TranscriptionTTL: 1 * time.Hour,
		SynthesisTTL:     24 * time.Hour,
		Breaker:          circuitbreaker.DefaultConfig(),
	}
}

// Router walks the registry's available providers in priority order,
// invoking each through its own circuit breaker, until one succeeds or
// all are exhausted. Successful results are cached under the request
// fingerprint.
type Router struct {
	registry *Registry
	cache    *cache.ResponseCache
	opts     RouterOptions
	metrics  Metrics
	sessions Sessions
	logger   *zap.Logger

	group singleflight.Group

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker
}

// NewRouter creates a Router over the given registry and response cache.
func NewRouter(registry *Registry, rc *cache.ResponseCache, opts RouterOptions, logger *zap.Logger) *Router {
	if opts.TranscriptionTTL <= 0 {
		opts.TranscriptionTTL = 1 * time.Hour
	}
	if opts.SynthesisTTL <= 0 {
		opts.SynthesisTTL = 24 * time.Hour
	}
	if opts.Breaker == nil {
		opts.Breaker = circuitbreaker.DefaultConfig()
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = nopSessions{}
	}

	return &Router{
		registry: registry,
		cache:    rc,
		opts:     opts,
		metrics:  metrics,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "speech_router")),
		breakers: make(map[string]circuitbreaker.CircuitBreaker),
	}
}

// Transcribe converts recorded speech to text through the provider chain.
func (r *Router) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Audio) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "audio payload is required").WithHTTPStatus(400)
	}
	req.Operation = OpTranscription
	return r.process(ctx, OpTranscription, req)
}

// Synthesize converts a reply text to spoken audio through the provider
// chain.
func (r *Router) Synthesize(ctx context.Context, req *Request) (*Result, error) {
	if req.Text == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "text is required").WithHTTPStatus(400)
	}
	if req.Tone == "" {
		req.Tone = ToneNeutral
	}
	req.Operation = OpSynthesis
	return r.process(ctx, OpSynthesis, req)
}

func (r *Router) process(ctx context.Context, op Operation, req *Request) (*Result, error) {
	key := req.CacheKey
	if key == "" {
		key = r.fingerprint(op, req)
	}

	// Cache hit short-circuits providers and breakers entirely.
	if raw, found := r.cache.Get(ctx, key); found {
		var res Result
		if err := json.Unmarshal([]byte(raw), &res); err == nil {
			res.Cached = true
			r.metrics.RecordCacheHit(string(op))
			if req.SessionID != "" {
				r.sessions.Touch(req.SessionID)
			}
			return &res, nil
		}
		// unreadable entry: evict and recompute
		r.cache.Delete(ctx, key)
	}
	r.metrics.RecordCacheMiss(string(op))

	// Identical concurrent misses share one provider pass.
	v, err, _ := r.group.Do(key, func() (any, error) {
		return r.tryProviders(ctx, op, req, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// tryProviders walks the priority-ordered candidate snapshot
// sequentially. Providers are never raced in parallel: speculative calls
// waste money and duplicate side effects on external services.
func (r *Router) tryProviders(ctx context.Context, op Operation, req *Request, key string) (*Result, error) {
	candidates := r.registry.AvailableFor(op)
	if len(candidates) == 0 {
		r.logger.Warn("no providers registered for operation",
			zap.String("operation", string(op)),
		)
		return nil, ErrNoProviderAvailable
	}

	for _, cand := range candidates {
		name := cand.Descriptor.Name
		breaker := r.breakerFor(name)

		start := time.Now()
		result, err := circuitbreaker.CallWithResultTyped[*Result](breaker, ctx, func() (*Result, error) {
			return cand.Provider.Execute(ctx, req)
		})
		elapsed := time.Since(start)

		if err != nil {
			outcome := "failure"
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) ||
				errors.Is(err, circuitbreaker.ErrTooManyCallsInHalfOpen) {
				outcome = "rejected"
				r.logger.Debug("provider skipped, circuit refusing traffic",
					zap.String("provider", name),
					zap.String("operation", string(op)),
				)
			} else {
				r.logger.Warn("provider call failed",
					zap.String("provider", name),
					zap.String("operation", string(op)),
					zap.Duration("elapsed", elapsed),
					zap.Error(err),
				)
			}
			r.metrics.RecordProviderCall(name, string(op), outcome, elapsed)
			continue
		}

		r.metrics.RecordProviderCall(name, string(op), "success", elapsed)
		r.finalize(op, name, result)

		if data, marshalErr := json.Marshal(result); marshalErr == nil {
			r.cache.Set(ctx, key, string(data), r.ttlFor(op))
		}
		r.recordSession(op, req, elapsed)

		r.logger.Info("speech request served",
			zap.String("provider", name),
			zap.String("operation", string(op)),
			zap.Duration("elapsed", elapsed),
		)
		return result, nil
	}

	r.logger.Warn("all speech providers exhausted",
		zap.String("operation", string(op)),
		zap.Int("candidates", len(candidates)),
	)
	return nil, ErrNoProviderAvailable
}

func (r *Router) finalize(op Operation, provider string, result *Result) {
	result.Operation = op
	if result.Provider == "" {
		result.Provider = provider
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}
	if op == OpTranscription {
		result.Text = CleanTranscript(result.Text)
	}
}

func (r *Router) fingerprint(op Operation, req *Request) string {
	if op == OpTranscription {
		return cache.TranscriptionKey(req.Audio, req.Language)
	}
	return cache.SynthesisKey(req.Text, string(req.Tone), req.Language)
}

func (r *Router) ttlFor(op Operation) time.Duration {
	if op == OpTranscription {
		return r.opts.TranscriptionTTL
	}
	return r.opts.SynthesisTTL
}

func (r *Router) recordSession(op Operation, req *Request, elapsed time.Duration) {
	if req.SessionID == "" {
		return
	}
	if op == OpTranscription {
		r.sessions.RecordRecording(req.SessionID, elapsed)
	} else {
		r.sessions.Touch(req.SessionID)
	}
}

// breakerFor returns the breaker owned for a provider name, creating it
// lazily. Breakers survive registry availability flips so failure history
// is never lost.
func (r *Router) breakerFor(name string) circuitbreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}

	cfg := *r.opts.Breaker
	cfg.OnStateChange = func(from, to circuitbreaker.State) {
		r.metrics.RecordCircuitStateChange(name, stateLabel(from), stateLabel(to))
		r.logger.Info("circuit state change",
			zap.String("provider", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	b := circuitbreaker.NewCircuitBreaker(&cfg, r.logger.With(zap.String("provider", name)))
	r.breakers[name] = b
	return b
}

// ResetBreaker forces a named provider's breaker back to Closed. Manual
// intervention for the administrative surface.
func (r *Router) ResetBreaker(name string) error {
	r.mu.Lock()
	b, ok := r.breakers[name]
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("no circuit breaker for provider %q", name)
	}
	b.Reset()
	return nil
}

// BreakerState reports the current state of a provider's breaker, if one
// exists yet.
func (r *Router) BreakerState(name string) (circuitbreaker.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[name]
	if !ok {
		return circuitbreaker.StateClosed, false
	}
	return b.State(), true
}

// Status is the administrative view of the routing layer.
type Status struct {
	Providers      []ProviderStatus                   `json:"providers"`
	Breakers       map[string]circuitbreaker.Snapshot `json:"circuit_breakers"`
	ActiveSessions int                                `json:"active_sessions"`
}

// Status snapshots providers, breakers, and the active session count.
func (r *Router) Status() Status {
	r.mu.Lock()
	breakers := make(map[string]circuitbreaker.Snapshot, len(r.breakers))
	for name, b := range r.breakers {
		breakers[name] = b.Snapshot()
	}
	r.mu.Unlock()

	return Status{
		Providers:      r.registry.Snapshot(),
		Breakers:       breakers,
		ActiveSessions: r.sessions.ActiveCount(),
	}
}

// SetAvailability forwards to the registry; exposed so the administrative
// surface needs only the router.
func (r *Router) SetAvailability(name string, available bool) bool {
	return r.registry.SetAvailability(name, available)
}

// stateLabel 把熔断器状态转成 snake_case 的指标标签值
func stateLabel(s circuitbreaker.State) string {
	if s == circuitbreaker.StateHalfOpen {
		return "half_open"
	}
	return strings.ToLower(s.String())
}

type nopMetrics struct{}

func (nopMetrics) RecordProviderCall(string, string, string, time.Duration) {}
func (nopMetrics) RecordCircuitStateChange(string, string, string)          {}
func (nopMetrics) RecordCacheHit(string)                                    {}
func (nopMetrics) RecordCacheMiss(string)                                   {}

type nopSessions struct{}

func (nopSessions) Touch(string) bool                          { return false }
func (nopSessions) RecordRecording(string, time.Duration) bool { return false }
func (nopSessions) ActiveCount() int                           { return 0 }
