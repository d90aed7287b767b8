package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type geminiClient struct {
	client *genai.Client
}

func newGeminiClient(ctx context.Context, apiKey string) (*geminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &geminiClient{client: client}, nil
}

func (c *geminiClient) Chat(ctx context.Context, req Request) (Result, error) {
	model := c.client.GenerativeModel(req.Model)
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	var userParts []genai.Part
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(m.Content)},
			}
		default:
			userParts = append(userParts, genai.Text(m.Content))
		}
	}
	if len(userParts) == 0 {
		return Result{}, fmt.Errorf("gemini chat: no user message")
	}

	started := time.Now()
	resp, err := model.GenerateContent(ctx, userParts...)
	if err != nil {
		return Result{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Result{}, fmt.Errorf("gemini generate content: no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return Result{}, fmt.Errorf("gemini generate content: non-text response")
	}
	return Result{
		Text:     b.String(),
		Duration: time.Since(started),
	}, nil
}
