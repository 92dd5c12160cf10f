package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"innostart.pro/innostart/internal/apierr"
	"innostart.pro/innostart/internal/logger"
)

// Middleware decorates a Model.
type Middleware func(next Model) Model

// Chain wraps m so that the first middleware is the outermost.
func Chain(m Model, mws ...Middleware) Model {
	for i := len(mws) - 1; i >= 0; i-- {
		m = mws[i](m)
	}
	return m
}

type modelFunc struct {
	next     Model
	generate func(ctx context.Context, prompt string) (string, error)
}

func (m *modelFunc) Name() string { return m.next.Name() }
func (m *modelFunc) Close() error { return m.next.Close() }
func (m *modelFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return m.generate(ctx, prompt)
}

// WithRetry retries Generate up to maxAttempts times with exponential
// backoff starting at baseDelay. Permanent errors and a done context stop
// it immediately.
func WithRetry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Model) Model {
		return &modelFunc{next: next, generate: func(ctx context.Context, prompt string) (string, error) {
			var last error
			for i := 0; i < maxAttempts; i++ {
				out, err := next.Generate(ctx, prompt)
				if err == nil {
					return out, nil
				}
				var pErr *PermanentError
				if errors.As(err, &pErr) {
					return "", err
				}
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				last = err
				if i == maxAttempts-1 {
					break
				}
				timer := time.NewTimer(baseDelay * time.Duration(1<<i))
				select {
				case <-ctx.Done():
					timer.Stop()
					return "", ctx.Err()
				case <-timer.C:
				}
			}
			return "", last
		}}
	}
}

// WithTimeout bounds each call. A call that runs out of time reports
// ErrModelUnavailable so it can be retried; cancellation by the caller is
// passed through unchanged.
func WithTimeout(d time.Duration) Middleware {
	return func(next Model) Model {
		if d <= 0 {
			return next
		}
		return &modelFunc{next: next, generate: func(ctx context.Context, prompt string) (string, error) {
			callCtx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			out, err := next.Generate(callCtx, prompt)
			if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: model call timed out after %s", apierr.ErrModelUnavailable, d)
			}
			return out, err
		}}
	}
}

// WithLogging logs every call with its size and duration, and failures with
// full detail. Prompts themselves are only logged at debug level.
func WithLogging(log *logger.Logger) Middleware {
	return func(next Model) Model {
		l := log.With("model", next.Name())
		return &modelFunc{next: next, generate: func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			l.Debug("Model request", "prompt", prompt)
			out, err := next.Generate(ctx, prompt)
			fields := []interface{}{"prompt_bytes", len(prompt), "duration_ms", time.Since(start).Milliseconds()}
			if err != nil {
				l.Error("Model call failed", append(fields, "error", err)...)
				return "", err
			}
			l.Info("Model call completed", append(fields, "completion_bytes", len(out))...)
			return out, nil
		}}
	}
}
