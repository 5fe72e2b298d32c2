package lookup

import (
	"context"

	"golang.org/x/time/rate"
)

// burstMultiplier sizes a provider's burst capacity as a multiple of its
// sustained rate, the same ratio the rest of the ambient stack uses for
// request throttling.
const burstMultiplier = 2

// providerLimiter is a single provider's token-bucket throttle. It blocks
// the caller until a token is available or ctx is done — the pipeline's
// overall timeout is the backstop, not the limiter itself.
type providerLimiter struct {
	limiter *rate.Limiter
}

// newProviderLimiter builds a limiter admitting ratePerSecond requests per
// second with a burst of ratePerSecond*burstMultiplier.
func newProviderLimiter(ratePerSecond float64) *providerLimiter {
	burst := int(ratePerSecond * burstMultiplier)
	if burst < 1 {
		burst = 1
	}

	return &providerLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Wait blocks until the limiter admits one request or ctx is done.
func (l *providerLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
