package core

import (
	"context"
	"sync"
)

// fakeModel answers prompts from a script and records what it was asked.
type fakeModel struct {
	mu      sync.Mutex
	prompts []string
	respond func(ctx context.Context, call int, prompt string) (string, error)
}

func replyWith(text string) *fakeModel {
	return &fakeModel{respond: func(context.Context, int, string) (string, error) { return text, nil }}
}

func (f *fakeModel) Name() string { return "fake" }
func (f *fakeModel) Close() error { return nil }

func (f *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	call := len(f.prompts)
	f.mu.Unlock()
	return f.respond(ctx, call, prompt)
}

func (f *fakeModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}
