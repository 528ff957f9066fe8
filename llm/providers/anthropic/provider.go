// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package anthropic implements the Anthropic messages provider.
package anthropic

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
	ProviderName = "anthropic"

	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 1024
	apiVersion       = "2023-06-01"
)

// Config configures the Anthropic provider.
type Config struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Provider calls the Anthropic messages API over the shared pooled HTTP
// client.
type Provider struct {
	config Config
	client *httpclient.Client
	logger *zap.Logger
}

// New creates an Anthropic provider. A missing API key is a
// construction-time configuration error.
func New(config Config, client *httpclient.Client, logger *zap.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, types.NewError(types.ErrConfiguration, "anthropic: api_key is required").
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
// uniform categorized form with ANTHROPIC_* provider codes.
func CategorizeError(err error) *types.Error {
	return providers.CategorizeError(ProviderName, err)
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	headers := map[string]string{
		"x-api-key":         p.config.APIKey,
		"anthropic-version": apiVersion,
	}

	resp, err := p.client.PostJSON(ctx, p.config.BaseURL+"/v1/messages", headers, messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []chatMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return nil, CategorizeError(err)
	}

	if resp.Status < 200 || resp.Status >= 300 {
		return nil, providers.Categorize(ProviderName, resp.Status,
			retryAfterSeconds(resp.Headers.Get("Retry-After")), errorMessage(resp.Body))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, types.NewError(types.ErrProcessing,
			fmt.Sprintf("anthropic: decode response: %v", err)).
			WithProvider(ProviderName).
			WithCause(err)
	}

	var content strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return nil, types.NewError(types.ErrProcessing, "anthropic: response contains no text content").
			WithProvider(ProviderName)
	}

	return &llm.Response{
		Content:  content.String(),
		Model:    parsed.Model,
		Provider: ProviderName,
		Usage: llm.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

func errorMessage(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(body))
}

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
