package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/gauntlet/internal/clock"
	"github.com/mrz1836/gauntlet/internal/ctxutil"
	"github.com/mrz1836/gauntlet/internal/domain"
)

// Gate converts a provider's raw answer into the RateLimitInfo the
// orchestrator acts on. It is consulted exactly once per invocation.
type Gate struct {
	provider StatusProvider
	clk      clock.Clock
	logger   zerolog.Logger
}

// GateOption is a functional option for configuring Gate.
type GateOption func(*Gate)

// WithGateClock sets the clock used to compute reset times.
func WithGateClock(clk clock.Clock) GateOption {
	return func(g *Gate) {
		g.clk = clk
	}
}

// WithGateLogger sets the logger for the Gate.
func WithGateLogger(logger zerolog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate over the given provider. A nil provider means
// no status source is configured and the gate always opens.
func NewGate(provider StatusProvider, opts ...GateOption) *Gate {
	if provider == nil {
		provider = NoopProvider{}
	}
	g := &Gate{
		provider: provider,
		clk:      clock.RealClock{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check queries the provider once and reports whether the batch should
// run. Provider failures fail open: only a positive "limited" answer
// stops the batch, so an unreachable status command logs a warning and
// lets execution proceed. Cancellation still propagates.
func (g *Gate) Check(ctx context.Context) (domain.RateLimitInfo, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.RateLimitInfo{}, err
	}

	status, err := g.provider.Check(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return domain.RateLimitInfo{}, ctx.Err()
		}
		g.logger.Warn().
			Err(err).
			Msg("rate limit status check failed, proceeding as not limited")
		return domain.RateLimitInfo{}, nil
	}

	if !status.Limited {
		g.logger.Debug().Msg("rate limit check passed")
		return domain.RateLimitInfo{}, nil
	}

	info := domain.RateLimitInfo{
		Limited: true,
		Message: status.Message,
	}
	if status.RetryAfterSeconds > 0 {
		resetAt := g.clk.Now().UTC().Add(time.Duration(status.RetryAfterSeconds * float64(time.Second)))
		info.ResetAt = &resetAt
	}

	event := g.logger.Warn().Str("message", info.Message)
	if info.ResetAt != nil {
		event = event.Time("reset_at", *info.ResetAt)
	}
	event.Msg("upstream is rate limited, batch will not start")

	return info, nil
}
