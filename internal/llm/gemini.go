package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"parsewright/internal/logging"
)

// GeminiConfig holds Gemini client configuration.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int32
	Temperature     float32
	MaxRetries      int

	// BaseURL and HTTPClient override the API endpoint, used by tests.
	BaseURL    string
	HTTPClient *http.Client
}

// DefaultGeminiConfig returns the default Gemini configuration.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		Model:           "gemini-2.5-pro",
		Timeout:         10 * time.Minute,
		MaxOutputTokens: 65536,
		Temperature:     0.1,
		MaxRetries:      3,
	}
}

// GeminiClient generates completions through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	config GeminiConfig

	mu          sync.Mutex
	lastRequest time.Time
}

// NewGeminiClient creates a Gemini-backed client. No request is sent until
// the first completion.
func NewGeminiClient(ctx context.Context, config GeminiConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-pro"
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	cc := &genai.ClientConfig{APIKey: config.APIKey}
	if config.BaseURL != "" {
		cc.HTTPOptions.BaseURL = config.BaseURL
	}
	if config.HTTPClient != nil {
		cc.HTTPClient = config.HTTPClient
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &GeminiClient{client: client, config: config}, nil
}

// Complete sends a prompt without a system instruction.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends the prompt pair and returns the trimmed text of
// the response. Rate-limited responses are retried with exponential
// backoff.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.rateLimit()

	if _, has := ctx.Deadline(); !has && c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.config.Temperature),
	}
	if c.config.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = c.config.MaxOutputTokens
	}
	if systemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			logging.LLMWarn("gemini retry %d/%d in %v: %v", attempt, c.config.MaxRetries, backoff, lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(userPrompt), genCfg)
		if err != nil {
			lastErr = err
			if retryableGeminiError(err) {
				continue
			}
			return "", fmt.Errorf("gemini: generate content: %w", err)
		}

		text := strings.TrimSpace(resp.Text())
		if text == "" {
			lastErr = fmt.Errorf("empty completion")
			continue
		}

		logging.LLM("gemini completion: model=%s prompt=%dB response=%dB duration=%v",
			c.config.Model, len(systemPrompt)+len(userPrompt), len(text), time.Since(start))
		return text, nil
	}
	return "", fmt.Errorf("gemini: exhausted %d retries: %w", c.config.MaxRetries, lastErr)
}

// rateLimit enforces minimum spacing between requests.
func (c *GeminiClient) rateLimit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elapsed := time.Since(c.lastRequest); elapsed < minRequestSpacing {
		time.Sleep(minRequestSpacing - elapsed)
	}
	c.lastRequest = time.Now()
}

func retryableGeminiError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "UNAVAILABLE")
}
