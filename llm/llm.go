// Package llm wraps the completion providers behind one narrow client
// interface so the rest of the bot never sees a vendor SDK type.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Request struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

type Result struct {
	Text     string
	Duration time.Duration
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}

// ClientConfig selects and parameterizes a provider. An empty APIKey is
// not an error here; callers decide whether to run degraded.
type ClientConfig struct {
	Provider string
	APIKey   string
	Model    string
}

// NewClient builds the configured provider client. Returns nil (no
// client, no error) when the API key is missing so the generator can
// fall back instead of failing startup.
func NewClient(ctx context.Context, cfg ClientConfig) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return newOpenAIClient(cfg.APIKey), nil
	case "gemini":
		return newGeminiClient(ctx, cfg.APIKey)
	default:
		return nil, fmt.Errorf("unknown llm.provider: %s", cfg.Provider)
	}
}
