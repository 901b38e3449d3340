package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/kolwatch/kolwatch/internal/store"
)

// CallStore is the slice of the data layer the resolver needs.
type CallStore interface {
	OpenCalls(ctx context.Context) ([]store.TradeCall, error)
	GetCall(ctx context.Context, id int64) (store.TradeCall, error)
	ResolveCall(ctx context.Context, id int64, targetHit, stopHit bool, at time.Time) error
}

// Outcome classifies a call against the current asset price.
type Outcome int

const (
	OutcomeOpen Outcome = iota
	OutcomeTarget
	OutcomeStop
)

// Judge decides whether a call has reached its target or its stop at
// the given price. Sell signals invert the comparison: the target sits
// below the entry and the stop above it.
func Judge(c store.TradeCall, price float64) Outcome {
	if price <= 0 || c.Entry <= 0 {
		return OutcomeOpen
	}
	short := strings.Contains(strings.ToLower(c.Signal), "sell") ||
		strings.Contains(strings.ToLower(c.Signal), "short")
	if short {
		if c.TargetFirst > 0 && price <= c.TargetFirst {
			return OutcomeTarget
		}
		if c.Stop > 0 && price >= c.Stop {
			return OutcomeStop
		}
		return OutcomeOpen
	}
	if c.TargetFirst > 0 && price >= c.TargetFirst {
		return OutcomeTarget
	}
	if c.Stop > 0 && price <= c.Stop {
		return OutcomeStop
	}
	return OutcomeOpen
}

// Resolver sweeps open calls and records outcomes.
type Resolver struct {
	Store CallStore
	Log   zerolog.Logger
	Now   func() time.Time
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// ResolveOne checks a single call and records its outcome if reached.
func (r *Resolver) ResolveOne(ctx context.Context, c store.TradeCall) (bool, error) {
	switch Judge(c, c.AssetPrice) {
	case OutcomeTarget:
		return true, r.Store.ResolveCall(ctx, c.ID, true, false, r.now())
	case OutcomeStop:
		return true, r.Store.ResolveCall(ctx, c.ID, false, true, r.now())
	}
	return false, nil
}

// Sweep resolves every open call (or just one, when the payload names
// it). Returns the number of calls that reached an outcome.
func (r *Resolver) Sweep(ctx context.Context, callID int64) (int, error) {
	var calls []store.TradeCall
	var err error
	if callID != 0 {
		var c store.TradeCall
		c, err = r.Store.GetCall(ctx, callID)
		calls = []store.TradeCall{c}
	} else {
		calls, err = r.Store.OpenCalls(ctx)
	}
	if err != nil {
		return 0, err
	}

	var resolved int
	for _, c := range calls {
		done, err := r.ResolveOne(ctx, c)
		if err != nil {
			return resolved, fmt.Errorf("call %d: %w", c.ID, err)
		}
		if done {
			resolved++
			r.Log.Info().Int64("call", c.ID).Str("asset", c.AssetSymbol).Msg("call resolved")
		}
	}
	return resolved, nil
}

// Handle is the asynq handler for TaskResolveCalls.
func (r *Resolver) Handle(ctx context.Context, t *asynq.Task) error {
	var p ResolveCallsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		r.Log.Error().Err(err).Msg("bad resolve payload, dropping")
		return nil
	}
	start := time.Now()
	n, err := r.Sweep(ctx, p.CallID)
	duration := time.Since(start)
	if err != nil {
		if IsRetryableError(err) {
			r.Log.Warn().Err(err).Dur("duration", duration).Msg("resolve sweep failed, retrying")
			return err
		}
		r.Log.Error().Err(err).Dur("duration", duration).Msg("resolve sweep failed permanently, dropping")
		return nil
	}
	r.Log.Info().Int("resolved", n).Dur("duration", duration).Msg("resolve sweep done")
	return nil
}

// IsRetryableError determines if an error should trigger a job retry.
func IsRetryableError(err error) bool {
	errStr := strings.ToLower(err.Error())

	// Network/connectivity issues - should retry
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "dns") {
		return true
	}

	// Price provider rate limiting - should retry later
	if strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") {
		return true
	}

	// Temporary server errors - should retry
	if strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") {
		return true
	}

	// Everything else (bad data, missing rows) won't fix itself
	return false
}
