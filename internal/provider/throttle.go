package provider

import (
	"context"
	"fmt"

	"github.com/dom/gifbox/internal/rpc"
	"golang.org/x/time/rate"
)

// Throttled caps outbound searches for the single provider api key.
type Throttled struct {
	next    Searcher
	limiter *rate.Limiter
}

// Throttle wraps next with a token bucket. A non-positive rate disables it.
func Throttle(next Searcher, perSecond float64, burst int) Searcher {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *Throttled) Search(ctx context.Context, query string, page int) ([]rpc.GifResult, error) {
	if !t.limiter.Allow() {
		return nil, fmt.Errorf("%w: local request budget exhausted", ErrProviderRateLimited)
	}
	return t.next.Search(ctx, query, page)
}
