// Package breaker provides a consecutive-failure circuit breaker for synchronous calls
// to other services, built on sony/gobreaker.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
)

// State of a breaker.
type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half-open"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return HalfOpen
	case gobreaker.StateOpen:
		return Open
	default:
		return Closed
	}
}

// Defaults for Config.
const (
	DefaultFailureThreshold = 5
	DefaultOpenTimeout      = 30 * time.Second
)

// Config tunes a breaker.
type Config struct {
	FailureThreshold int           // consecutive failures that open the circuit
	OpenTimeout      time.Duration // time spent open before a trial call is admitted
	// OnStateChange is called after every transition. It must not call back into
	// the breaker.
	OnStateChange func(name string, from, to State)
}

// Breaker is safe for concurrent use. Results of calls admitted before the last
// state change are discarded, so a slow call cannot close or re-arm an open circuit.
type Breaker struct {
	name  string
	cfg   Config
	cb    *gobreaker.CircuitBreaker
	state atomic.Int32 // mirrors cb's state for classifying results
}

// New creates a closed breaker. Non-positive settings fall back to the defaults.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}

	b := &Breaker{name: name, cfg: cfg}
	threshold := uint32(cfg.FailureThreshold)
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // one trial call while half-open
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.state.Store(int32(fromGobreaker(to)))
			b.notify(fromGobreaker(from), fromGobreaker(to))
		},
		IsSuccessful: b.isSuccessful,
	})
	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, moving an expired open circuit to half-open.
func (b *Breaker) State() State {
	return fromGobreaker(b.cb.State())
}

// callerGone marks an error caused by the caller's own context ending.
type callerGone struct{ err error }

func (e *callerGone) Error() string  { return e.err.Error() }
func (e *callerGone) Unwrap() error { return e.err }

// Call runs fn unless the circuit is open, in which case it returns
// apperrors.ErrCircuitOpen without calling fn. Only one trial call runs while half-open.
//
// An error that wraps ctx's own cancellation or deadline does not count towards
// opening the circuit. A trial call that ends that way reopens it.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		err := fn(ctx)
		if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, &callerGone{err: err}
		}
		return nil, err
	})

	var gone *callerGone
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%s: %w", b.name, apperrors.ErrCircuitOpen)
	case errors.As(err, &gone):
		return gone.err
	default:
		slog.Debug("Guarded call failed", "breaker", b.name, "error", err)
		return err
	}
}

func (b *Breaker) isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var gone *callerGone
	if errors.As(err, &gone) {
		return State(b.state.Load()) != HalfOpen
	}
	return false
}

func (b *Breaker) notify(from, to State) {
	level := slog.LevelInfo
	if to == Open {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "Circuit breaker state changed",
		"breaker", b.name,
		"from", from.String(),
		"to", to.String(),
	)
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}
