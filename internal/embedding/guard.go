package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrProviderUnavailable is returned while the circuit breaker is open.
var ErrProviderUnavailable = errors.New("embedding: provider unavailable (circuit open)")

// GuardOptions configures GuardedEmbedder.
type GuardOptions struct {
	// RateLimit is calls per second; 0 disables limiting.
	RateLimit float64
	Burst     int

	// MaxFailures consecutive failures open the circuit; 0 disables the breaker.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a trial call.
	Timeout time.Duration

	Logger *slog.Logger
}

// GuardedEmbedder protects a provider with a rate limiter and a circuit
// breaker so a slow or failing provider cannot stall every caller.
type GuardedEmbedder struct {
	next    Embedder
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedEmbedder wraps next according to opts.
func NewGuardedEmbedder(next Embedder, opts GuardOptions) *GuardedEmbedder {
	g := &GuardedEmbedder{next: next}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	if opts.MaxFailures > 0 {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		maxFailures := opts.MaxFailures
		g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "embedding",
			MaxRequests: 1,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("embedding circuit breaker state change",
					"breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return g
}

func (g *GuardedEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limit: %w", err)
		}
	}
	if g.breaker == nil {
		return g.next.Embed(ctx, text)
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrProviderUnavailable
		}
		return nil, err
	}
	return out.(Vector), nil
}

func (g *GuardedEmbedder) Dims() int { return g.next.Dims() }

// State reports the breaker state, or "disabled".
func (g *GuardedEmbedder) State() string {
	if g.breaker == nil {
		return "disabled"
	}
	return g.breaker.State().String()
}

// Build creates the configured provider and wraps it with the guard and the
// query cache. It returns nil, nil when embeddings are disabled.
func Build(cfg Config, logger *slog.Logger) (Embedder, error) {
	base, err := NewFromConfig(cfg)
	if err != nil || base == nil {
		return nil, err
	}
	var e Embedder = base
	if cfg.RateLimit > 0 || cfg.BreakerFailures > 0 {
		e = NewGuardedEmbedder(e, GuardOptions{
			RateLimit:   cfg.RateLimit,
			Burst:       cfg.Burst,
			MaxFailures: cfg.BreakerFailures,
			Timeout:     cfg.BreakerTimeout,
			Logger:      logger,
		})
	}
	if cfg.CacheSize > 0 {
		cached, err := NewCachedEmbedder(e, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		e = cached
	}
	return e, nil
}
