package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Inferno2211/blog-gen-sub002/internal/config"
	"github.com/Inferno2211/blog-gen-sub002/internal/domain"
	"github.com/Inferno2211/blog-gen-sub002/internal/generation"
)

// generateContentFunc matches the genai Models.GenerateContent call shape.
// It exists so tests can stub the transport.
type generateContentFunc func(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error)

// Client talks to the Gemini API. It implements both generation.Generator
// and generation.QualityChecker: the same transport and retry policy serve
// content production and content review, only the prompts differ.
type Client struct {
	logger   *slog.Logger
	config   config.LLMConfig
	model    string
	generate generateContentFunc
}

// NewClient creates a Gemini-backed client from the LLM configuration.
func NewClient(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &Client{
		logger:   logger.With(slog.String("component", "gemini")),
		config:   cfg,
		model:    cfg.ModelName,
		generate: client.Models.GenerateContent,
	}, nil
}

var (
	_ generation.Generator      = (*Client)(nil)
	_ generation.QualityChecker = (*Client)(nil)
)

// Generate implements generation.Generator.Generate.
func (c *Client) Generate(ctx context.Context, brief generation.Brief) (string, error) {
	prompt, err := buildGeneratePrompt(brief)
	if err != nil {
		return "", err
	}

	text, err := c.callWithRetry(ctx, prompt)
	if err != nil {
		return "", err
	}

	markdown := stripCodeFence(text)
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("%w: empty article body", generation.ErrInvalidResponse)
	}
	return markdown, nil
}

// Check implements generation.QualityChecker.Check.
func (c *Client) Check(ctx context.Context, markdown string, brief generation.Brief) (*domain.QCVerdict, error) {
	prompt, err := buildCheckPrompt(markdown, brief)
	if err != nil {
		return nil, err
	}

	text, err := c.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseVerdict(text)
}

// callWithRetry makes a Gemini call, retrying transient transport errors
// with exponential backoff and jitter. Safety blocks and malformed
// responses are permanent and returned immediately.
func (c *Client) callWithRetry(ctx context.Context, prompt string) (string, error) {
	maxRetries := c.config.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelaySeconds := c.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for attempt := 0; ; attempt++ {
		c.logger.InfoContext(ctx, "making Gemini API call",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1))

		text, err := c.callOnce(ctx, prompt)
		if err == nil {
			return text, nil
		}

		c.logger.ErrorContext(ctx, "Gemini API call failed",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrInvalidResponse) {
			return "", err
		}
		if attempt >= maxRetries {
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, maxRetries, err)
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5))
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

func (c *Client) callOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generate(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: response stopped by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}
	return text.String(), nil
}

// verdictSchema is the JSON shape the check prompt asks the model for.
type verdictSchema struct {
	Status string          `json:"status"`
	Issues []string        `json:"issues"`
	Flags  map[string]bool `json:"flags"`
}

func parseVerdict(text string) (*domain.QCVerdict, error) {
	cleaned := stripCodeFence(text)

	var parsed verdictSchema
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse verdict JSON: %v",
			generation.ErrInvalidResponse, err)
	}

	var status domain.VerdictStatus
	switch strings.ToLower(parsed.Status) {
	case "pass":
		status = domain.VerdictPass
	case "fail":
		status = domain.VerdictFail
	default:
		return nil, fmt.Errorf("%w: unknown verdict status %q",
			generation.ErrInvalidResponse, parsed.Status)
	}

	return &domain.QCVerdict{
		Status: status,
		Issues: parsed.Issues,
		Flags:  parsed.Flags,
	}, nil
}

// stripCodeFence removes a surrounding markdown code fence, which models
// add despite instructions.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
