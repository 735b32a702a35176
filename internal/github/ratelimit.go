package github

import (
	"net/http"

	"golang.org/x/time/rate"
)

// NewRequestLimiter returns a limiter allowing rps requests per second with a
// burst of the same size. A non-positive rps disables pacing.
func NewRequestLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

type rateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

// NewRateLimitedTransport waits on limiter before every request. A nil
// limiter returns base unchanged.
func NewRateLimitedTransport(base http.RoundTripper, limiter *rate.Limiter) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if limiter == nil {
		return base
	}
	return &rateLimitedTransport{base: base, limiter: limiter}
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}
