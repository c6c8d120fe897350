// Package llm provides a client for generative-text APIs speaking the
// Gemini wire format. Rate-limit responses (HTTP 429) are surfaced as a
// typed error so callers can implement their own degraded paths.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds configuration for an LLM client.
type Config struct {
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key" json:"api_key" env:"GEMINI_API_KEY"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	TopP        float64       `yaml:"top_p" json:"top_p"`
	TopK        int           `yaml:"top_k" json:"top_k"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:       "gemini-2.0-flash",
		Timeout:     60 * time.Second,
		MaxTokens:   4096,
		Temperature: 0.7,
		TopP:        0.95,
		TopK:        40,
	}
}

// Request holds the parameters for a single generation call.
// Zero-valued fields fall back to the client Config.
type Request struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
}

// Response holds the result of a generation call.
type Response struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensIn     int    `json:"tokens_in"`
	TokensOut    int    `json:"tokens_out"`
	LatencyMs    int64  `json:"latency_ms"`
}

// Client is the interface for generative-text backends.
type Client interface {
	// Generate sends a prompt and returns the generated text.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Close releases any resources held by the client.
	Close() error
}

// RateLimitError reports an HTTP 429 from the upstream API.
type RateLimitError struct {
	Status int
	Body   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%d): %s", e.Status, e.Body)
}

// IsRateLimit reports whether err is (or wraps) a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// NewClient creates a new LLM client from the given config.
func NewClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return newGeminiClient(cfg), nil
}
