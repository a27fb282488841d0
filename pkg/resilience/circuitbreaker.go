// Package resilience provides a circuit breaker used to shield the hosted
// model backend from sustained hammering while it is failing.
package resilience

import (
	"sync"
	"time"

	"speech-coach-demo/backend/pkg/logger"
)

// State represents the current state of a circuit breaker.
type State string

const (
	// StateClosed means requests are allowed to pass through.
	StateClosed State = "closed"
	// StateOpen means requests are being short-circuited.
	StateOpen State = "open"
	// StateHalfOpen means a limited number of probe requests are allowed.
	StateHalfOpen State = "half-open"
)

// CircuitBreaker tracks consecutive outcomes of an upstream call and trips
// open once failures cross the configured threshold. Callers ask Allow()
// before the call and report the outcome afterwards; the upstream here
// signals failure by returning no result rather than an error, so the
// breaker cannot wrap the call itself.
type CircuitBreaker struct {
	name             string
	failureThreshold uint
	successThreshold uint
	retryTimeout     time.Duration
	log              *logger.Logger

	mutex           sync.Mutex
	state           State
	failureCount    uint
	successCount    uint
	nextAttemptTime time.Time
}

// Config holds configuration for a circuit breaker.
type Config struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
}

// DefaultConfig returns the configuration used for the model backend.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     30 * time.Second,
	}
}

// New creates a circuit breaker in the closed state.
func New(config Config, log *logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:             config.Name,
		failureThreshold: config.FailureThreshold,
		successThreshold: config.SuccessThreshold,
		retryTimeout:     config.RetryTimeout,
		state:            StateClosed,
		log:              log,
	}
}

// Allow reports whether a request may proceed. When the retry timeout has
// elapsed on an open circuit the breaker moves to half-open and lets a probe
// through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Now().After(cb.nextAttemptTime) {
			cb.toHalfOpen()
			return true
		}
		return false

	case StateHalfOpen:
		return cb.successCount < cb.successThreshold
	}

	return false
}

// RecordSuccess reports a successful upstream call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0

	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.toClosed()
		}
	}
}

// RecordFailure reports a failed upstream call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.toOpen()
		}

	case StateHalfOpen:
		// Any failure during a probe reopens the circuit
		cb.toOpen()
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return cb.state
}

func (cb *CircuitBreaker) toOpen() {
	cb.state = StateOpen
	cb.nextAttemptTime = time.Now().Add(cb.retryTimeout)

	cb.log.Warn("circuit breaker opened",
		"name", cb.name,
		"failures", cb.failureCount,
		"nextAttempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.successCount = 0

	cb.log.Info("circuit breaker half-open", "name", cb.name)
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0

	cb.log.Info("circuit breaker closed", "name", cb.name)
}
