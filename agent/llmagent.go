package agent

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/agentrouter/llm"
	"github.com/BaSui01/agentrouter/llm/classify"
	"github.com/BaSui01/agentrouter/types"
	"go.uber.org/zap"
)

// Generator is the slice of llm.Manager an agent needs.
type Generator interface {
	GenerateWithFallback(ctx context.Context, req *llm.Request) (*llm.GenerateResult, error)
}

// LLMAgent answers requests through the provider manager. When every
// provider fails it answers from FallbackReply and marks the result for
// review; callers only see an error on cancellation.
type LLMAgent struct {
	name          string
	systemPrompt  string
	fallbackReply string
	generator     Generator
	classifier    *classify.Classifier
	logger        *zap.Logger
}

// LLMAgentConfig configures one LLM-backed agent.
type LLMAgentConfig struct {
	Name          string
	SystemPrompt  string
	FallbackReply string
}

// NewLLMAgent builds an agent on top of the provider manager.
func NewLLMAgent(cfg LLMAgentConfig, generator Generator, classifier *classify.Classifier, logger *zap.Logger) *LLMAgent {
	return &LLMAgent{
		name:          cfg.Name,
		systemPrompt:  cfg.SystemPrompt,
		fallbackReply: cfg.FallbackReply,
		generator:     generator,
		classifier:    classifier,
		logger:        logger,
	}
}

// Name implements Agent.
func (a *LLMAgent) Name() string {
	return a.name
}

// Handle implements Agent.
func (a *LLMAgent) Handle(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	result, err := a.generator.GenerateWithFallback(ctx, &llm.Request{
		Prompt: req.Content,
		System: a.systemPrompt,
	})
	if err != nil {
		// Abandonment is not a degradable failure.
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		return a.degrade(req, err, time.Since(start)), nil
	}

	return &Result{
		RequestID:    req.ID,
		Agent:        a.name,
		Content:      result.Response.Content,
		FallbackUsed: result.FallbackUsed,
		Provider:     result.Provider,
		Duration:     time.Since(start),
	}, nil
}

// degrade produces the canned reply for a request no provider could serve.
// The failure is classified and logged; the result is flagged for review.
func (a *LLMAgent) degrade(req *Request, err error, elapsed time.Duration) *Result {
	cerr, _ := types.AsError(err)
	category := a.classifier.Classify(err)

	a.classifier.Handle(err, types.NewErrorContext(a.name, req.ID, "agent.handle", map[string]any{
		"source": string(req.Source),
	}))
	a.logger.Warn("agent degraded to fallback reply",
		zap.String("agent", a.name),
		zap.String("request_id", req.ID),
		zap.String("category", category.String()),
	)

	meta := map[string]any{
		"degraded":       true,
		"error_category": category.String(),
	}
	if cerr != nil && cerr.ProviderCode != "" {
		meta["provider_code"] = cerr.ProviderCode
	}

	return &Result{
		RequestID:      req.ID,
		Agent:          a.name,
		Content:        a.fallbackReply,
		RequiresReview: true,
		Duration:       elapsed,
		Metadata:       meta,
	}
}
