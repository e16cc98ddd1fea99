package mail

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled limits the outbound send rate of a transport. Sends over the
// budget fail fast with RATE_LIMIT_ERROR instead of queueing.
type Throttled struct {
	next    Transport
	limiter *rate.Limiter
}

// NewThrottled wraps next with a token bucket of perSecond refill and burst size.
func NewThrottled(next Transport, perSecond float64, burst int) *Throttled {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttled) Name() string { return t.next.Name() }

func (t *Throttled) Send(ctx context.Context, msg Message) (string, error) {
	if !t.limiter.Allow() {
		return "", NewError(KindRateLimit, "outbound email rate limit exceeded", nil)
	}
	return t.next.Send(ctx, msg)
}

func (t *Throttled) Check(ctx context.Context) CheckResult {
	return t.next.Check(ctx)
}
