// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package quick provides one-line construction of a resilient provider
// manager for programs that do not need the full config machinery.
//
// Usage:
//
//	m, err := quick.New(quick.WithOpenAI("gpt-4o-mini"))
//	m, err := quick.New(quick.WithOpenAI(""), quick.WithAnthropic(""))
//
// API keys come from OPENAI_API_KEY / ANTHROPIC_API_KEY unless set
// explicitly. Providers are tried in option order when fallback is used.
package quick

import (
	"os"

	"github.com/BaSui01/agentrouter/internal/httpclient"
	"github.com/BaSui01/agentrouter/llm"
	"github.com/BaSui01/agentrouter/llm/classify"
	"github.com/BaSui01/agentrouter/llm/providers/anthropic"
	"github.com/BaSui01/agentrouter/llm/providers/openai"
	"github.com/BaSui01/agentrouter/llm/stats"
	"github.com/BaSui01/agentrouter/types"
	"go.uber.org/zap"
)

// Option configures the manager created by New.
type Option func(*options)

type providerSpec struct {
	name   string
	apiKey string
	model  string
}

type options struct {
	specs     []providerSpec
	providers []llm.Provider
	logger    *zap.Logger
	caller    *llm.CallerConfig
}

// WithOpenAI adds an OpenAI provider. An empty model uses the package
// default; the API key is read from OPENAI_API_KEY.
func WithOpenAI(model string) Option {
	return func(o *options) {
		o.specs = append(o.specs, providerSpec{
			name:   openai.ProviderName,
			apiKey: os.Getenv("OPENAI_API_KEY"),
			model:  model,
		})
	}
}

// WithAnthropic adds an Anthropic provider. An empty model uses the package
// default; the API key is read from ANTHROPIC_API_KEY.
func WithAnthropic(model string) Option {
	return func(o *options) {
		o.specs = append(o.specs, providerSpec{
			name:   anthropic.ProviderName,
			apiKey: os.Getenv("ANTHROPIC_API_KEY"),
			model:  model,
		})
	}
}

// WithProvider adds a pre-built provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.providers = append(o.providers, p) }
}

// WithLogger sets the logger. Defaults to zap.NewNop.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCallerConfig overrides the default retry and breaker settings.
func WithCallerConfig(config *llm.CallerConfig) Option {
	return func(o *options) { o.caller = config }
}

// New builds a provider manager with default resilience settings. At least
// one provider option is required.
func New(opts ...Option) (*llm.Manager, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	if len(o.specs) == 0 && len(o.providers) == 0 {
		return nil, types.NewError(types.ErrConfiguration, "quick: at least one provider is required")
	}

	client := httpclient.New(httpclient.DefaultConfig(), o.logger)
	caller := llm.NewCaller(o.caller, classify.NewClassifier(o.logger), stats.NewRegistry(), nil, o.logger)
	manager := llm.NewManager(caller, o.logger)

	for _, spec := range o.specs {
		var (
			p   llm.Provider
			err error
		)
		switch spec.name {
		case openai.ProviderName:
			p, err = openai.New(openai.Config{APIKey: spec.apiKey, Model: spec.model}, client, o.logger)
		case anthropic.ProviderName:
			p, err = anthropic.New(anthropic.Config{APIKey: spec.apiKey, Model: spec.model}, client, o.logger)
		}
		if err != nil {
			return nil, err
		}
		manager.Register(p)
	}
	for _, p := range o.providers {
		manager.Register(p)
	}

	return manager, nil
}
