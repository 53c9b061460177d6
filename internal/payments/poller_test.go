package payments

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitbazaar/marketplace-backend/internal/chain"
	"github.com/bitbazaar/marketplace-backend/internal/models"
)

func TestPollerConfirmedOnSuccessReceipt(t *testing.T) {
	c := chain.NewMemory()
	c.SetReceipt("0xaaa", true)
	p := NewPoller(c, RetryPolicy{MaxAttempts: 5, Interval: time.Second}, slog.Default())

	start := time.Now()
	out := p.Await(context.Background(), "0xaaa")
	require.Equal(t, models.OutcomeConfirmed, out)
	// Receipt on the first attempt: no sleeping at all.
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPollerFailedOnFailureReceipt(t *testing.T) {
	c := chain.NewMemory()
	c.SetReceipt("0xbbb", false)
	p := NewPoller(c, RetryPolicy{MaxAttempts: 5, Interval: time.Second}, slog.Default())

	out := p.Await(context.Background(), "0xbbb")
	require.Equal(t, models.OutcomeFailed, out)
}

func TestPollerUnresolvedWithinBound(t *testing.T) {
	c := chain.NewMemory()
	interval := 20 * time.Millisecond
	p := NewPoller(c, RetryPolicy{MaxAttempts: 3, Interval: interval}, slog.Default())

	start := time.Now()
	out := p.Await(context.Background(), "0xccc")
	elapsed := time.Since(start)

	require.Equal(t, models.OutcomeUnresolved, out)
	// N attempts sleep N-1 times.
	require.GreaterOrEqual(t, elapsed, 2*interval)
	require.Less(t, elapsed, 3*interval+50*time.Millisecond)
}

func TestPollerUnresolvedWhenTxStillInFlight(t *testing.T) {
	c := chain.NewMemory()
	c.SetRawTransaction("0xddd", []byte{0x01, 0x02})
	p := NewPoller(c, RetryPolicy{MaxAttempts: 2, Interval: time.Millisecond}, slog.Default())

	// The raw tx exists but no receipt ever appears: in-flight, not
	// failed.
	out := p.Await(context.Background(), "0xddd")
	require.Equal(t, models.OutcomeUnresolved, out)
}

func TestPollerTreatsRPCErrorsAsAbsentReceipts(t *testing.T) {
	c := chain.NewMemory()
	c.ReceiptErr = errors.New("connection refused")
	p := NewPoller(c, RetryPolicy{MaxAttempts: 2, Interval: time.Millisecond}, slog.Default())

	out := p.Await(context.Background(), "0xeee")
	require.Equal(t, models.OutcomeUnresolved, out)
}

func TestPollerBackoffOverridesInterval(t *testing.T) {
	c := chain.NewMemory()
	var delays []int
	p := NewPoller(c, RetryPolicy{
		MaxAttempts: 3,
		Interval:    time.Hour, // would hang the test if used
		Backoff: func(attempt int) time.Duration {
			delays = append(delays, attempt)
			return time.Millisecond
		},
	}, slog.Default())

	out := p.Await(context.Background(), "0xfff")
	require.Equal(t, models.OutcomeUnresolved, out)
	require.Equal(t, []int{1, 2}, delays)
}

func TestPollerStopsSleepingOnContextCancel(t *testing.T) {
	c := chain.NewMemory()
	p := NewPoller(c, RetryPolicy{MaxAttempts: 10, Interval: time.Hour}, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out := p.Await(ctx, "0x111")
	require.Equal(t, models.OutcomeUnresolved, out)
	require.Less(t, time.Since(start), time.Second)
}
