package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/example/slaengine/internal/ports/secondary"
)

// ThrottledNotifier bounds the send rate and the duration of each send.
// Time spent waiting for a token counts against the timeout, so a saturated
// limiter surfaces as a failed send rather than a stalled worker.
type ThrottledNotifier struct {
	next    secondary.Notifier
	limiter *rate.Limiter
	timeout time.Duration
}

// NewThrottledNotifier wraps next. perSecond <= 0 disables rate limiting;
// timeout <= 0 disables the per-send deadline.
func NewThrottledNotifier(next secondary.Notifier, perSecond float64, burst int, timeout time.Duration) *ThrottledNotifier {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &ThrottledNotifier{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
	}
}

// Send waits for a token and forwards to the wrapped notifier.
func (n *ThrottledNotifier) Send(ctx context.Context, recipients []string, subject, body string, ref secondary.Reference) error {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate limit: %w", err)
	}
	return n.next.Send(ctx, recipients, subject, body, ref)
}

var _ secondary.Notifier = (*ThrottledNotifier)(nil)
