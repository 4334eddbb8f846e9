package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"agentcore.dev/core/internal/model"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// ResilienceConfig tunes the wrapper. Zero values fall back to sane
// defaults in Wrap.
type ResilienceConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxElapsedTime    int // seconds; 0 = backoff.DefaultMaxElapsedTime
	BreakerName       string
}

// Wrap layers a sliding-window rate limiter, bounded exponential backoff,
// and a circuit breaker around backend. The breaker opens after five
// consecutive failed calls, transient or permanent, and fails fast with a permanent LLMError
// until it half-opens and probes again — this is the "lift rate limiting
// into an explicit adapter" redesign: callers never see provider-specific
// retry loops, only Invoke/Structured and a uniform LLMError.
func Wrap(backend LLM, cfg ResilienceConfig) LLM {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 4
	}
	name := cfg.BreakerName
	if name == "" {
		name = "llmclient"
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &resilientLLM{
		backend: backend,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: breaker,
		maxElapsedSeconds: cfg.MaxElapsedTime,
	}
}

type resilientLLM struct {
	backend LLM
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[any]
	maxElapsedSeconds int
}

func (r *resilientLLM) Invoke(ctx context.Context, messages []Message) (string, error) {
	result, err := r.run(ctx, func() (any, error) {
		return r.backend.Invoke(ctx, messages)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (r *resilientLLM) Structured(ctx context.Context, req StructuredRequest) (json.RawMessage, error) {
	result, err := r.run(ctx, func() (any, error) {
		return r.backend.Structured(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(json.RawMessage), nil
}

// run enforces the rate limit, then retries op with exponential backoff
// while the breaker is closed, converting the final outcome into a
// uniform LLMError on failure.
func (r *resilientLLM) run(ctx context.Context, op func() (any, error)) (any, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, asPermanentError("rate limiter wait cancelled", err)
	}

	b := backoff.NewExponentialBackOff()
	if r.maxElapsedSeconds > 0 {
		b.MaxElapsedTime = secondsToDuration(r.maxElapsedSeconds)
	}
	opts := []backoff.RetryOption{backoff.WithMaxTries(4)}

	result, err := backoff.Retry(ctx, func() (any, error) {
		value, breakerErr := r.breaker.Execute(op)
		if breakerErr == nil {
			return value, nil
		}

		var llmErr *model.LLMError
		if errors.As(breakerErr, &llmErr) && !llmErr.Transient {
			return nil, backoff.Permanent(breakerErr)
		}
		if errors.Is(breakerErr, gobreaker.ErrOpenState) || errors.Is(breakerErr, gobreaker.ErrTooManyRequests) {
			slog.WarnContext(ctx, "llm circuit breaker open, failing fast")
			return nil, backoff.Permanent(asPermanentError("circuit breaker open", breakerErr))
		}
		return nil, breakerErr
	}, append(opts, backoff.WithBackOff(b))...)

	if err != nil {
		var llmErr *model.LLMError
		if errors.As(err, &llmErr) {
			return nil, err
		}
		return nil, asTransientError("llm call failed after retries", err)
	}
	return result, nil
}
