package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/avolkov/wabridge/internal/config"
)

// ErrUnavailable is returned while the breaker refuses calls.
var ErrUnavailable = errors.New("provider unavailable: circuit breaker is open")

type circuitBreaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func newCircuitBreaker(cfg *config.CircuitBreakerConfig, logger *zap.Logger) *circuitBreaker {
	settings := gobreaker.Settings{
		Name:        "provider-circuit-breaker",
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.ConsecutiveFails && failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Provider rejections (4xx-style APIErrors) are the
			// caller's problem, not a transport fault; they must not
			// trip the breaker.
			var apiErr *APIError
			return err == nil || errors.As(err, &apiErr)
		},
	}

	return &circuitBreaker{
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

// Execute runs the given function through the circuit breaker.
func (cb *circuitBreaker) Execute(ctx context.Context, fn func() error) error {
	_, err := cb.cb.Execute(func() (interface{}, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			return nil, fn()
		}
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			cb.logger.Warn("Circuit breaker is open, request blocked")
			return ErrUnavailable
		}
		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			cb.logger.Warn("Circuit breaker: too many requests")
			return fmt.Errorf("provider unavailable: too many requests")
		}
		return err
	}

	return nil
}

// State returns the breaker state name and its counts.
func (cb *circuitBreaker) State() (string, uint32, uint32) {
	counts := cb.cb.Counts()
	return cb.cb.State().String(), counts.Requests, counts.TotalFailures
}
