package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 8 * time.Second
)

// resilientProvider wraps a Provider with exponential-backoff retries and a
// circuit breaker, so a degraded upstream fails fast instead of exhausting
// every chunk's retry budget individually.
type resilientProvider struct {
	inner      Provider
	limiter    *providerLimiter
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
}

// newResilientProvider wraps inner with a per-provider rate limiter, retry
// policy, and circuit breaker.
func newResilientProvider(inner Provider, ratePerSecond float64, maxRetries int) *resilientProvider {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    inner.Name(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &resilientProvider{
		inner:      inner,
		limiter:    newProviderLimiter(ratePerSecond),
		breaker:    breaker,
		maxRetries: maxRetries,
	}
}

// Resolve runs inner.Resolve under the rate limiter, circuit breaker, and an
// exponential backoff retry policy (base 500ms, cap 8s).
func (p *resilientProvider) Resolve(ctx context.Context, organism string, ids []string) ([]Match, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", p.inner.Name(), err)
	}

	policy := backoff.WithMaxRetries(
		&backoff.ExponentialBackOff{
			InitialInterval:     backoffBase,
			MaxInterval:         backoffCap,
			Multiplier:          2,
			RandomizationFactor: 0.1,
			Clock:               backoff.SystemClock,
		},
		uint64(p.maxRetries),
	)

	var matches []Match

	operation := func() error {
		result, err := p.breaker.Execute(func() (any, error) {
			return p.inner.Resolve(ctx, organism, ids)
		})
		if err != nil {
			return err
		}

		matches = result.([]Match)

		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("%s: %w", p.inner.Name(), err)
	}

	return matches, nil
}
