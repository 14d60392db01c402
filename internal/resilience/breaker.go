// Package resilience guards calls to the remote commerce and SEO services.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the remote service while the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the externally visible breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Breaker counts consecutive failures of a remote dependency. After
// maxFailures it opens and rejects calls for cooldown, then lets a single
// probe through: success closes it, failure reopens it.
type Breaker struct {
	name string

	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	probing     bool

	isFailure func(error) bool
	now       func() time.Time
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithFailurePredicate decides which errors count against the breaker.
// Errors for which fn returns false are passed through without tripping it,
// e.g. a 404 from an otherwise healthy service.
func WithFailurePredicate(fn func(error) bool) BreakerOption {
	return func(b *Breaker) { b.isFailure = fn }
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) { b.now = now }
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, maxFailures int, cooldown time.Duration, opts ...BreakerOption) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	b := &Breaker{
		name:        name,
		state:       StateClosed,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		isFailure:   func(err error) bool { return err != nil },
		now:         time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Name returns the dependency name the breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, reporting an expired open breaker as half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	if err != nil && b.isFailure(err) {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// recordFailure must be called with b.mu held.
func (b *Breaker) recordFailure() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// recordSuccess must be called with b.mu held.
func (b *Breaker) recordSuccess() {
	b.failures = 0
	b.transition(StateClosed)
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	level := slog.LevelInfo
	if to == StateOpen {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "circuit breaker state change",
		"breaker", b.name, "from", string(from), "to", string(to), "failures", b.failures)
}
