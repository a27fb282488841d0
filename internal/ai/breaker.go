package ai

import (
	"context"

	"speech-coach-demo/backend/pkg/logger"
	"speech-coach-demo/backend/pkg/resilience"
)

// BreakerTranscriber wraps a Transcriber with a circuit breaker so a failing
// model backend is not hammered on every incoming clip. While the circuit is
// open the wrapper returns no result without calling upstream, which the
// pipeline reports to the client the same way as any other failed clip.
type BreakerTranscriber struct {
	inner   Transcriber
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

// NewBreakerTranscriber wraps inner with the given breaker.
func NewBreakerTranscriber(inner Transcriber, breaker *resilience.CircuitBreaker, log *logger.Logger) *BreakerTranscriber {
	return &BreakerTranscriber{
		inner:   inner,
		breaker: breaker,
		log:     log,
	}
}

// Transcribe forwards to the wrapped transcriber when the circuit allows it.
// A nil result counts as a failure; the upstream never surfaces faults as
// errors, so the result is the only outcome signal available.
func (b *BreakerTranscriber) Transcribe(ctx context.Context, audio []byte) (*Result, error) {
	if !b.breaker.Allow() {
		b.log.Warn("transcription short-circuited", "state", string(b.breaker.State()))
		return nil, nil
	}

	result, err := b.inner.Transcribe(ctx, audio)
	if err != nil || result == nil {
		b.breaker.RecordFailure()
		return result, err
	}

	b.breaker.RecordSuccess()
	return result, nil
}
