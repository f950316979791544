// Package resilience guards the external engines (OCR, speech, capture
// tools) so a broken dependency fails fast instead of stalling every scan.
package resilience

import (
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the breaker's position.
type State uint32

const (
	Closed   State = iota // calls flow through
	Open                  // calls rejected immediately
	HalfOpen              // probing recovery
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// ErrOpen is returned when the breaker rejects a call.
var ErrOpen = errors.New("breaker open")

// Settings tunes a breaker. Zero fields take the defaults, which suit a
// once-per-second scan cadence.
type Settings struct {
	FailureLimit int           // consecutive failures before opening
	CoolDown     time.Duration // open duration before a half-open probe
	ProbeQuota   int           // half-open successes needed to close
}

func (s Settings) normalized() Settings {
	if s.FailureLimit <= 0 {
		s.FailureLimit = 5
	}
	if s.CoolDown <= 0 {
		s.CoolDown = 15 * time.Second
	}
	if s.ProbeQuota <= 0 {
		s.ProbeQuota = 2
	}
	return s
}

// Breaker is a lock-free circuit breaker. All counters are atomics so
// the scan hot path never takes a lock.
type Breaker struct {
	name     string
	settings Settings

	state    atomic.Uint32
	failures atomic.Int32
	probes   atomic.Int32
	openedAt atomic.Int64 // unix nano of last open transition
}

// NewBreaker creates a closed breaker. The name appears in logs.
func NewBreaker(name string, s Settings) *Breaker {
	b := &Breaker{name: name, settings: s.normalized()}
	b.state.Store(uint32(Closed))
	return b
}

// State returns the current position.
func (b *Breaker) State() State {
	return State(b.state.Load())
}

// allow reports whether a call may proceed, moving Open to HalfOpen
// after the cool-down.
func (b *Breaker) allow() bool {
	switch State(b.state.Load()) {
	case Open:
		opened := b.openedAt.Load()
		if time.Since(time.Unix(0, opened)) < b.settings.CoolDown {
			return false
		}
		b.shift(Open, HalfOpen)
		return true
	default:
		return true
	}
}

func (b *Breaker) recordSuccess() {
	switch State(b.state.Load()) {
	case HalfOpen:
		if b.probes.Add(1) >= int32(b.settings.ProbeQuota) {
			b.shift(HalfOpen, Closed)
		}
	case Closed:
		b.failures.Store(0)
	}
}

func (b *Breaker) recordFailure() {
	count := b.failures.Add(1)
	switch State(b.state.Load()) {
	case HalfOpen:
		b.shift(HalfOpen, Open)
	case Closed:
		if count >= int32(b.settings.FailureLimit) {
			b.shift(Closed, Open)
		}
	}
}

// shift performs a guarded state transition. The CAS means concurrent
// callers race at most one transition through.
func (b *Breaker) shift(from, to State) {
	if !b.state.CompareAndSwap(uint32(from), uint32(to)) {
		return
	}
	b.probes.Store(0)
	switch to {
	case Open:
		b.openedAt.Store(time.Now().UnixNano())
		slog.Warn("breaker opened", "name", b.name, "failures", b.failures.Load())
	case Closed:
		b.failures.Store(0)
		slog.Info("breaker closed", "name", b.name)
	case HalfOpen:
		slog.Info("breaker probing", "name", b.name)
	}
}

// Do runs fn under the breaker.
func (b *Breaker) Do(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// Call runs fn under b, returning its value.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, ErrOpen
	}
	v, err := fn()
	if err != nil {
		b.recordFailure()
		return zero, err
	}
	b.recordSuccess()
	return v, nil
}
