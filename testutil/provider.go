// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package testutil provides scripted fakes shared by the package tests.
package testutil

import (
	"context"
	"sync"

	"github.com/BaSui01/agentrouter/llm"
)

// Step is one scripted outcome for a mock provider call.
type Step struct {
	Response *llm.Response
	Err      error
}

// MockProvider replays a fixed script of outcomes. After the script is
// exhausted, the last step repeats. Safe for concurrent use.
type MockProvider struct {
	name string

	mu    sync.Mutex
	steps []Step
	calls int
}

// NewMockProvider creates a provider named name replaying steps in order.
// At least one step is required.
func NewMockProvider(name string, steps ...Step) *MockProvider {
	if len(steps) == 0 {
		panic("testutil: NewMockProvider requires at least one step")
	}
	return &MockProvider{name: name, steps: steps}
}

// Succeed is a convenience step returning content from the provider.
func Succeed(name, content string) Step {
	return Step{Response: &llm.Response{Content: content, Provider: name}}
}

// Fail is a convenience step returning err.
func Fail(err error) Step {
	return Step{Err: err}
}

// Name implements llm.Provider.
func (m *MockProvider) Name() string {
	return m.name
}

// Generate implements llm.Provider.
func (m *MockProvider) Generate(ctx context.Context, _ *llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	step := m.steps[min(m.calls, len(m.steps)-1)]
	m.calls++
	m.mu.Unlock()

	if step.Err != nil {
		return nil, step.Err
	}
	return step.Response, nil
}

// Calls reports how many times Generate ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
