package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Classification tells the guard how to treat a failed call. Retryable
// failures are re-attempted (when retries are configured at all); only
// failures with CountsAsFailure contribute to opening the circuit, so client
// errors such as 4xx never trip the breaker.
type Classification struct {
	Retryable       bool
	CountsAsFailure bool
}

type Classifier func(err error) Classification

// Guard wraps upstream calls with a per-operation circuit breaker and an
// optional retry loop. Retries default to a single attempt: the gateway's
// recovery mechanism is the fallback path list, not backoff loops.
type Guard struct {
	cfg Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewGuard(cfg Config) *Guard {
	return &Guard{
		cfg:      cfg.normalize(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (g *Guard) Do(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classify == nil {
		classify = defaultClassifier
	}

	if !g.cfg.BreakerEnabled {
		return g.attempt(ctx, op, fn, classify)
	}

	breaker := g.circuitBreaker(op, classify)
	_, err := breaker.Execute(func() (any, error) {
		return nil, g.attempt(ctx, op, fn, classify)
	})
	return err
}

func (g *Guard) attempt(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	maxAttempts := g.cfg.RetryMaxAttempts

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		class := classify(err)
		if !class.Retryable || attempt >= maxAttempts {
			return err
		}

		slog.Warn("upstream_retry",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)

		if g.cfg.RetryBackoff > 0 {
			timer := time.NewTimer(g.cfg.RetryBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return err
			case <-timer.C:
			}
		}
	}
}

func (g *Guard) circuitBreaker(operation string, classify Classifier) *gobreaker.CircuitBreaker[any] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if breaker, ok := g.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: g.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     g.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < g.cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= g.cfg.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classify(err).CountsAsFailure
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	g.breakers[operation] = breaker
	return breaker
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func defaultClassifier(error) Classification {
	return Classification{
		Retryable:       false,
		CountsAsFailure: true,
	}
}
