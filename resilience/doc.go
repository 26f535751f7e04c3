// Package resilience holds the circuit breaker that guards model backends.
//
// A breaker opens after MaxFailures consecutive failures, rejects calls with
// ErrCircuitOpen until Timeout has passed, then lets HalfOpenMaxCalls probe
// calls through before closing again:
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultConfig("whisper"))
//	err := cb.Execute(func() error {
//	    _, err := backend.Transcribe(ctx, req)
//	    return err
//	})
package resilience
