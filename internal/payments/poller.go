package payments

import (
	"context"
	"log/slog"
	"time"

	"github.com/bitbazaar/marketplace-backend/internal/chain"
	"github.com/bitbazaar/marketplace-backend/internal/metrics"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

// RetryPolicy bounds the confirmation poll. With MaxAttempts = N and a
// constant Interval = I the poll returns within (N-1)*I to N*I when no
// receipt ever appears: it sleeps between attempts, never after the last.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
	// Backoff, when set, overrides Interval; attempt is 1-based.
	Backoff func(attempt int) time.Duration
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff != nil {
		return p.Backoff(attempt)
	}
	return p.Interval
}

// Poller resolves a submitted external transaction to a tri-state
// outcome. It blocks only its own task, sleeping cooperatively, and runs
// its full retry budget once started.
type Poller struct {
	chain  chain.Client
	policy RetryPolicy
	log    *slog.Logger
}

func NewPoller(c chain.Client, policy RetryPolicy, log *slog.Logger) *Poller {
	return &Poller{chain: c, policy: policy, log: log}
}

// Await polls for a receipt up to the retry budget. A present receipt is
// definitive either way. When the budget runs out it makes one fallback
// check for the raw transaction: a tx the node still knows about is
// in-flight, not failed, so both fallback branches end Unresolved and
// the order stays pending.
func (p *Poller) Await(ctx context.Context, txRef string) models.Outcome {
	for attempt := 1; attempt <= p.policy.MaxAttempts; attempt++ {
		metrics.PollAttempts.Inc()
		r, err := p.chain.GetReceipt(ctx, txRef)
		if err != nil {
			// Transient RPC trouble counts as "no receipt yet".
			p.log.Warn("receipt lookup failed", "tx", txRef, "attempt", attempt, "err", err)
		} else if r != nil {
			if r.Ok {
				return models.OutcomeConfirmed
			}
			return models.OutcomeFailed
		}
		if attempt < p.policy.MaxAttempts {
			if !sleepCtx(ctx, p.policy.delay(attempt)) {
				break
			}
		}
	}

	metrics.PollUnresolved.Inc()
	raw, err := p.chain.GetRawTransaction(ctx, txRef)
	if err == nil && raw != nil {
		p.log.Info("transaction still in flight after poll budget", "tx", txRef)
	} else {
		p.log.Warn("transaction unknown after poll budget", "tx", txRef)
	}
	return models.OutcomeUnresolved
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
