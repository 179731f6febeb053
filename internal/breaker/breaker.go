// Package breaker implements a per-source circuit breaker. After a number
// of consecutive hard failures within a window, further calls to that
// source short-circuit instead of burning the cycle deadline on a source
// that has already signaled it is down.
//
// Breaker state is the only state shared across collection cycles: an
// open circuit stays open into following cycles until the failure window
// lapses, at which point the source is tried again. The state is guarded
// by a mutex since region fetches feed it concurrently.
package breaker

import (
	"sync"
	"time"

	"github.com/finopshub/advisor/pkg/recommend"
)

// Breaker tracks consecutive hard failures for one source.
type Breaker struct {
	mu sync.Mutex

	threshold int
	window    time.Duration
	now       func() time.Time

	failures  int
	firstFail time.Time
	open      bool
	openedAt  time.Time
}

// New creates a breaker that opens after threshold consecutive failures
// within window.
func New(threshold int, window time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

// Allow reports whether a call to the source may proceed. An open
// circuit closes again once the failure window has lapsed since it
// opened, so the source gets another chance instead of staying dark forever.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if b.now().Sub(b.openedAt) > b.window {
		b.open = false
		b.failures = 0
		b.firstFail = time.Time{}
		return true
	}
	return false
}

// Success records a successful call and closes the failure streak.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.firstFail = time.Time{}
}

// Failure records a hard failure. Returns true if this failure opened
// the circuit.
func (b *Breaker) Failure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		return false
	}

	now := b.now()
	if b.failures == 0 || now.Sub(b.firstFail) > b.window {
		// Start a new streak; failures outside the window don't count.
		b.failures = 0
		b.firstFail = now
	}
	b.failures++

	if b.failures >= b.threshold {
		b.open = true
		b.openedAt = now
		return true
	}
	return false
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Open reports whether the circuit is open.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Reset closes the circuit and clears the failure streak. Collection
// cycles never reset breakers; this is an operator-level escape hatch.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failures = 0
	b.firstFail = time.Time{}
	b.openedAt = time.Time{}
}

// Set holds one breaker per source.
type Set struct {
	mu       sync.Mutex
	breakers map[recommend.SourceTag]*Breaker

	threshold int
	window    time.Duration
}

// NewSet creates a breaker set with shared threshold and window settings.
func NewSet(threshold int, window time.Duration) *Set {
	return &Set{
		breakers:  make(map[recommend.SourceTag]*Breaker),
		threshold: threshold,
		window:    window,
	}
}

// Get returns the breaker for a source, creating it on first use.
func (s *Set) Get(tag recommend.SourceTag) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[tag]
	if !ok {
		b = New(s.threshold, s.window)
		s.breakers[tag] = b
	}
	return b
}

// ResetAll closes every breaker in the set.
func (s *Set) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.breakers {
		b.Reset()
	}
}
