package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Options selects and configures a provider without binding this package
// to the config file layout.
type Options struct {
	Provider string // gemini (default) or openai
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewClient builds the provider client named in opts. Unset fields fall
// back to the provider's defaults.
func NewClient(ctx context.Context, opts Options) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "gemini":
		cfg := DefaultGeminiConfig(opts.APIKey)
		if opts.Model != "" {
			cfg.Model = opts.Model
		}
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		return NewGeminiClient(ctx, cfg)

	case "openai":
		cfg := DefaultOpenAIConfig(opts.APIKey)
		if opts.Model != "" {
			cfg.Model = opts.Model
		}
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		return NewOpenAIClient(cfg)

	default:
		return nil, fmt.Errorf("unknown LLM provider %q (valid: gemini, openai)", opts.Provider)
	}
}

// DetectProvider picks a provider from the environment when none is
// configured. GEMINI_API_KEY wins over OPENAI_API_KEY.
func DetectProvider() (provider, apiKey string) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return "gemini", key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return "openai", key
	}
	return "", ""
}
