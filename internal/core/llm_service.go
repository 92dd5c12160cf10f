package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"innostart.pro/innostart/internal/apierr"
)

// Model is the generative model boundary: a prompt in, raw completion text
// out. Implementations return apierr.ErrModelUnavailable or
// apierr.ErrModelEmptyResponse (possibly wrapped) on failure.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// PermanentError marks a failure that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

const defaultTemperature = float32(0.7)

// GeminiModel calls the Gemini API through the generative-ai-go client.
type GeminiModel struct {
	client    *genai.Client
	modelName string
}

func NewGeminiModel(ctx context.Context, apiKey, modelName string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiModel{client: client, modelName: modelName}, nil
}

func (g *GeminiModel) Name() string { return "gemini:" + g.modelName }

func (g *GeminiModel) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(defaultTemperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", Permanent(fmt.Errorf("%w: gemini blocked the request: %w", apierr.ErrModelUnavailable, err))
		}
		return "", fmt.Errorf("%w: gemini GenerateContent failed: %w", apierr.ErrModelUnavailable, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", apierr.ErrModelEmptyResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", apierr.ErrModelEmptyResponse
	}
	return text.String(), nil
}
