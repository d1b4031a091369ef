package breaker

import (
	"context"
	"errors"
	"time"

	"imagesearch/internal/pkg/metrics"

	"github.com/go-kratos/kratos/v2/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Config tunes when a breaker trips and how long it stays open.
type Config struct {
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	OpenTimeout  time.Duration
	HalfOpenMax  uint32
}

// DefaultConfig opens after 60% failures over at least 10 requests and
// probes again after 30 seconds.
func DefaultConfig() Config {
	return Config{
		MinRequests:  10,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		OpenTimeout:  30 * time.Second,
		HalfOpenMax:  3,
	}
}

// Breaker guards calls to one remote dependency.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
	log  *log.Helper
}

func New(name string, cfg Config, logger log.Logger) *Breaker {
	b := &Breaker{name: name, log: log.NewHelper(logger)}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMax,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// The caller giving up says nothing about the remote side.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})
	return b
}

// Name returns the breaker name used in logs and metrics.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Execute runs fn unless the breaker is open.
func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if IsOpen(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		}
		return zero, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	v, _ := res.(T)
	return v, nil
}

// IsOpen reports whether err is a rejection by an open or saturated breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
