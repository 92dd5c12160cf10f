package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"innostart.pro/innostart/internal/apierr"
	"innostart.pro/innostart/internal/logger"
)

var errTransient = fmt.Errorf("%w: 503 from provider", apierr.ErrModelUnavailable)

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	fake := &fakeModel{respond: func(_ context.Context, call int, _ string) (string, error) {
		if call == 1 {
			return "", errTransient
		}
		return "ok", nil
	}}
	m := Chain(fake, WithRetry(3, time.Millisecond))

	out, err := m.Generate(context.Background(), "p")
	if err != nil || out != "ok" {
		t.Fatalf("Generate = %q, %v", out, err)
	}
	if fake.calls() != 2 {
		t.Fatalf("calls = %d, want 2", fake.calls())
	}
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	fake := &fakeModel{respond: func(context.Context, int, string) (string, error) { return "", errTransient }}
	m := Chain(fake, WithRetry(3, time.Millisecond))

	_, err := m.Generate(context.Background(), "p")
	if !errors.Is(err, apierr.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if fake.calls() != 3 {
		t.Fatalf("calls = %d, want 3", fake.calls())
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	fake := &fakeModel{respond: func(context.Context, int, string) (string, error) {
		return "", Permanent(fmt.Errorf("%w: prompt blocked", apierr.ErrModelUnavailable))
	}}
	m := Chain(fake, WithRetry(5, time.Millisecond))

	_, err := m.Generate(context.Background(), "p")
	if !errors.Is(err, apierr.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if fake.calls() != 1 {
		t.Fatalf("calls = %d, want 1", fake.calls())
	}
}

func TestWithRetryStopsWhenContextIsDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeModel{respond: func(context.Context, int, string) (string, error) {
		cancel()
		return "", errTransient
	}}
	m := Chain(fake, WithRetry(5, time.Hour))

	_, err := m.Generate(ctx, "p")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if fake.calls() != 1 {
		t.Fatalf("calls = %d, want 1", fake.calls())
	}
}

func TestWithTimeoutReportsModelUnavailable(t *testing.T) {
	fake := &fakeModel{respond: func(ctx context.Context, _ int, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	m := Chain(fake, WithTimeout(10*time.Millisecond))

	_, err := m.Generate(context.Background(), "p")
	if !errors.Is(err, apierr.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestWithTimeoutPassesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := &fakeModel{respond: func(ctx context.Context, _ int, _ string) (string, error) {
		return "", ctx.Err()
	}}
	m := Chain(fake, WithTimeout(time.Minute))

	if _, err := m.Generate(ctx, "p"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Model) Model {
			return &modelFunc{next: next, generate: func(ctx context.Context, prompt string) (string, error) {
				order = append(order, name)
				return next.Generate(ctx, prompt)
			}}
		}
	}
	m := Chain(replyWith("ok"), tag("outer"), tag("inner"), WithLogging(logger.Nop()))

	if _, err := m.Generate(context.Background(), "p"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("order = %v", order)
	}
	if m.Name() != "fake" {
		t.Fatalf("Name = %q", m.Name())
	}
}
