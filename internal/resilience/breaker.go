// Package resilience guards the monitor's collaborator calls. Circuit
// breakers keep a flapping execution service or exchange from dragging every
// monitoring cycle into its timeout, and the token-bucket limiter keeps
// alert storms from flooding the admin notification channel.
package resilience

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState represents the state of a circuit breaker
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// String returns the string representation of the breaker state
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig holds tunables for a circuit breaker
type BreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	SuccessThreshold uint32        // successes to close from half-open
	OpenTimeout      time.Duration // how long to stay open before probing
}

// Breaker wraps calls to one collaborator. After FailureThreshold
// consecutive failures it rejects calls outright for OpenTimeout, then lets
// probes through until SuccessThreshold successes close it again.
type Breaker struct {
	name   string
	config BreakerConfig

	mu          sync.RWMutex
	state       BreakerState
	failures    uint32
	successes   uint32
	lastFailure time.Time
	nextAttempt time.Time
	onChange    func(name string, from, to BreakerState)
}

// NewBreaker creates a circuit breaker with defaults for any zero tunables
func NewBreaker(name string, config BreakerConfig) *Breaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 2
	}
	if config.OpenTimeout == 0 {
		config.OpenTimeout = 30 * time.Second
	}
	return &Breaker{
		name:   name,
		config: config,
		state:  BreakerClosed,
	}
}

// OnStateChange registers a callback invoked on every state transition.
// The callback runs on its own goroutine so it cannot deadlock the breaker.
func (b *Breaker) OnStateChange(fn func(name string, from, to BreakerState)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Call executes fn under breaker protection
func (b *Breaker) Call(fn func() error) error {
	if !b.allow() {
		return fmt.Errorf("circuit breaker %s is open", b.name)
	}

	if err := fn(); err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if time.Now().After(b.nextAttempt) {
			b.transition(BreakerHalfOpen)
			b.successes = 0
			return true
		}
		return false
	default:
		return false
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == BreakerHalfOpen {
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transition(BreakerClosed)
			b.successes = 0
		}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.config.FailureThreshold {
			b.transition(BreakerOpen)
			b.nextAttempt = time.Now().Add(b.config.OpenTimeout)
		}
	case BreakerHalfOpen:
		// A failed probe reopens immediately
		b.transition(BreakerOpen)
		b.nextAttempt = time.Now().Add(b.config.OpenTimeout)
	case BreakerOpen:
		b.nextAttempt = time.Now().Add(b.config.OpenTimeout)
	}
}

// transition must be called with the mutex held
func (b *Breaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onChange != nil {
		go b.onChange(b.name, from, to)
	}
}

// State returns the current breaker state
func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Reset forces the breaker back to closed
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(BreakerClosed)
	b.failures = 0
	b.successes = 0
}

// BreakerStats is a snapshot of one breaker's counters
type BreakerStats struct {
	Name        string       `json:"name"`
	State       BreakerState `json:"state"`
	Failures    uint32       `json:"failures"`
	LastFailure time.Time    `json:"last_failure"`
	NextAttempt time.Time    `json:"next_attempt"`
}

// Stats returns a snapshot of the breaker's counters
func (b *Breaker) Stats() BreakerStats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return BreakerStats{
		Name:        b.name,
		State:       b.state,
		Failures:    b.failures,
		LastFailure: b.lastFailure,
		NextAttempt: b.nextAttempt,
	}
}

// BreakerSet manages one breaker per collaborator name
type BreakerSet struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	config   BreakerConfig
}

// NewBreakerSet creates a breaker set sharing one config
func NewBreakerSet(config BreakerConfig) *BreakerSet {
	return &BreakerSet{
		breakers: make(map[string]*Breaker),
		config:   config,
	}
}

// GetOrCreate returns the breaker for name, creating it on first use
func (s *BreakerSet) GetOrCreate(name string) *Breaker {
	s.mu.RLock()
	if b, ok := s.breakers[name]; ok {
		s.mu.RUnlock()
		return b
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if b, ok := s.breakers[name]; ok {
		return b
	}
	b := NewBreaker(name, s.config)
	s.breakers[name] = b
	return b
}

// OpenBreakers returns the names of currently open breakers
func (s *BreakerSet) OpenBreakers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var open []string
	for name, b := range s.breakers {
		if b.State() == BreakerOpen {
			open = append(open, name)
		}
	}
	return open
}

// Stats returns snapshots for every breaker in the set
func (s *BreakerSet) Stats() []BreakerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]BreakerStats, 0, len(s.breakers))
	for _, b := range s.breakers {
		stats = append(stats, b.Stats())
	}
	return stats
}
