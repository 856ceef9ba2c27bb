package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rdeepak-711/spotify-playlist-app/internal/shared"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// AnthropicService sends single-turn prompts to the Messages API.
type AnthropicService struct {
	client    *resty.Client
	model     string
	maxTokens int
}

// NewAnthropicService builds a client from the anthropic credentials section.
func NewAnthropicService(cfg shared.AnthropicConfig) (*AnthropicService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing anthropic api_key", shared.ErrMissingCredentials)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(60*time.Second).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json")

	return &AnthropicService{client: client, model: cfg.Model, maxTokens: maxTokens}, nil
}

func (a *AnthropicService) Name() string {
	return "Anthropic"
}

// Complete sends one user message under system and returns the first text block.
//
// Transport failures and non-2xx responses wrap [shared.ErrOracle]; the
// response body is kept verbatim for diagnosis.
func (a *AnthropicService) Complete(ctx context.Context, system, user string) (string, error) {
	body := messagesRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: user}},
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrOracle, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("%w: %w", shared.ErrOracle, &APIError{
			Service:    "anthropic",
			StatusCode: resp.StatusCode(),
			Body:       strings.TrimSpace(resp.String()),
		})
	}

	var out messagesResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", shared.ErrOracle, err)
	}

	for _, block := range out.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: response contained no text", shared.ErrOracle)
}
