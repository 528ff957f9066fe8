// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package openai implements the OpenAI chat completions provider.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/BaSui01/agentrouter/internal/httpclient"
	"github.com/BaSui01/agentrouter/llm"
	"github.com/BaSui01/agentrouter/llm/providers"
	"github.com/BaSui01/agentrouter/types"
	"go.uber.org/zap"
)

const (
	// ProviderName identifies this provider in breakers, statistics and
	// error codes.
	ProviderName = "openai"

	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
)

// Config configures the OpenAI provider.
type Config struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	Organization string `yaml:"organization"`
}

// Provider calls the OpenAI chat completions API over the shared pooled
// HTTP client.
type Provider struct {
	config Config
	client *httpclient.Client
	logger *zap.Logger
}

// New creates an OpenAI provider. A missing API key is a construction-time
// configuration error.
func New(config Config, client *httpclient.Client, logger *zap.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, types.NewError(types.ErrConfiguration, "openai: api_key is required").
			WithProvider(ProviderName).
			WithProviderCode(providers.Code(ProviderName, "CONFIG_ERROR"))
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}

	return &Provider{
		config: config,
		client: client,
		logger: logger,
	}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string {
	return ProviderName
}

// CategorizeError converts a raw failure from this provider into the
// uniform categorized form with OPENAI_* provider codes.
func CategorizeError(err error) *types.Error {
	return providers.CategorizeError(ProviderName, err)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	headers := map[string]string{
		"Authorization": "Bearer " + p.config.APIKey,
	}
	if p.config.Organization != "" {
		headers["OpenAI-Organization"] = p.config.Organization
	}

	resp, err := p.client.PostJSON(ctx, p.config.BaseURL+"/v1/chat/completions", headers, chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, CategorizeError(err)
	}

	if resp.Status < 200 || resp.Status >= 300 {
		return nil, providers.Categorize(ProviderName, resp.Status,
			retryAfterSeconds(resp.Headers.Get("Retry-After")), errorMessage(resp.Body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, types.NewError(types.ErrProcessing,
			fmt.Sprintf("openai: decode response: %v", err)).
			WithProvider(ProviderName).
			WithCause(err)
	}
	if len(parsed.Choices) == 0 {
		return nil, types.NewError(types.ErrProcessing, "openai: response contains no choices").
			WithProvider(ProviderName)
	}

	return &llm.Response{
		Content:  parsed.Choices[0].Message.Content,
		Model:    parsed.Model,
		Provider: ProviderName,
		Usage: llm.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

// errorMessage extracts the API error message, falling back to the raw
// body.
func errorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// retryAfterSeconds parses a Retry-After header value in seconds form.
func retryAfterSeconds(value string) int {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
