// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package agent contains the request-handling agents and the router that
// dispatches inbound requests to them. Agents degrade gracefully: when every
// LLM provider fails, they answer from a canned fallback template and flag
// the result for human review instead of surfacing the raw failure.
package agent

import (
	"context"
	"time"
)

// Source identifies where an inbound request came from.
type Source string

const (
	SourceEmail   Source = "email"
	SourceWebhook Source = "webhook"
	SourceGeneric Source = "generic"
)

// Request is one unit of inbound work.
type Request struct {
	// ID is assigned by the router when empty.
	ID       string            `json:"id"`
	Source   Source            `json:"source"`
	Content  string            `json:"content"`
	UserID   string            `json:"user_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Result is the outcome of handling one request.
type Result struct {
	RequestID string `json:"request_id"`
	Agent     string `json:"agent"`
	Content   string `json:"content"`

	// RequiresReview marks responses produced from a fallback template
	// after all providers failed; a human should check them.
	RequiresReview bool `json:"requires_review"`

	// FallbackUsed reports that a non-primary provider produced the
	// response.
	FallbackUsed bool `json:"fallback_used"`

	Provider string        `json:"provider,omitempty"`
	Duration time.Duration `json:"duration"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// Agent handles requests routed to it.
type Agent interface {
	Name() string
	Handle(ctx context.Context, req *Request) (*Result, error)
}
