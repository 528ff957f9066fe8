// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package agentrouter provides a top-level convenience entry point for
// creating a resilient provider manager with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/agentrouter"
//
//	m, err := agentrouter.New(agentrouter.WithOpenAI("gpt-4o-mini"))
//	m, err := agentrouter.New(agentrouter.WithOpenAI(""), agentrouter.WithAnthropic(""))
//
// This is a thin wrapper around [quick.New]; both produce identical results.
// Use this package when you prefer the shorter import path.
package agentrouter

import (
	"github.com/BaSui01/agentrouter/llm"
	"github.com/BaSui01/agentrouter/quick"
)

// Option configures the manager created by [New].
type Option = quick.Option

// New creates an [llm.Manager] with default resilience settings.
func New(opts ...Option) (*llm.Manager, error) {
	return quick.New(opts...)
}

// Re-export option shortcuts so callers never need to import quick/.

// WithOpenAI adds an OpenAI provider. API key from OPENAI_API_KEY.
var WithOpenAI = quick.WithOpenAI

// WithAnthropic adds an Anthropic provider. API key from ANTHROPIC_API_KEY.
var WithAnthropic = quick.WithAnthropic

// WithProvider adds a pre-built LLM provider.
var WithProvider = quick.WithProvider

// WithLogger sets the logger used by the constructed components.
var WithLogger = quick.WithLogger

// WithCallerConfig overrides the default retry and breaker settings.
var WithCallerConfig = quick.WithCallerConfig
