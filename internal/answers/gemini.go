package answers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/interview-autofill-host/internal/logger"
)

const defaultGeminiModel = "gemini-2.5-pro"

// swapped out in tests
var sleep = time.Sleep

// modelCaller abstracts the genai Models endpoint so tests can fake it.
type modelCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates answer text through the Gemini API, retrying temporary
// failures with exponential backoff.
type Gemini struct {
	models     modelCaller
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGemini creates a generator for the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string, maxRetries int, log *zap.Logger) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &Gemini{
		models:     client.Models,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.WithFields(log, logger.GeneratorFields("gemini", model)...),
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Generate sends the prompt to Gemini and returns the concatenated textual
// response parts.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	delay := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Jitter: true,
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err == nil {
			output := collectText(resp)
			if output == "" {
				return "", errors.New("gemini api returned empty response")
			}
			return output, nil
		}

		lastErr = err
		if !retryable(err) || attempt == g.maxRetries {
			break
		}

		wait := delay.Duration()
		g.logger.Warn("retrying gemini request",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		sleep(wait)
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

func retryable(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
}

func collectText(resp *genai.GenerateContentResponse) string {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}
