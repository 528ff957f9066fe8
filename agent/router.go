package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/BaSui01/agentrouter/internal/metrics"
	"github.com/BaSui01/agentrouter/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Router dispatches inbound requests to registered agents and fans out
// batches with bounded concurrency.
type Router struct {
	defaultAgent   string
	maxConcurrency int
	metrics        *metrics.Collector
	logger         *zap.Logger

	mu     sync.RWMutex
	agents map[string]Agent
	rules  []Rule
}

// Rule maps matching requests to an agent by name. Rules are evaluated in
// registration order; the first match wins.
type Rule struct {
	// Source matches the request source; empty matches any.
	Source Source
	// Keywords match case-insensitively against the request content;
	// empty matches any.
	Keywords []string
	// Agent is the target agent name.
	Agent string
}

// RouterConfig configures request routing.
type RouterConfig struct {
	// DefaultAgent handles requests no rule matches.
	DefaultAgent string
	// MaxConcurrency bounds batch fan-out.
	MaxConcurrency int
}

// NewRouter creates a router with no agents registered. collector may be
// nil.
func NewRouter(cfg RouterConfig, collector *metrics.Collector, logger *zap.Logger) *Router {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 8
	}
	return &Router{
		defaultAgent:   cfg.DefaultAgent,
		maxConcurrency: cfg.MaxConcurrency,
		metrics:        collector,
		logger:         logger,
		agents:         make(map[string]Agent),
	}
}

// Register adds an agent. Registering the same name twice replaces the
// previous agent.
func (r *Router) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name()] = a
}

// AddRule appends a routing rule.
func (r *Router) AddRule(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// Route handles one request: pick the agent, assign a request ID if absent,
// and delegate.
func (r *Router) Route(ctx context.Context, req *Request) (*Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Source == "" {
		req.Source = SourceGeneric
	}

	agent, err := r.resolve(req)
	if err != nil {
		r.metrics.RecordAgentRequest("unrouted", "error")
		return nil, err
	}

	r.logger.Debug("routing request",
		zap.String("request_id", req.ID),
		zap.String("source", string(req.Source)),
		zap.String("agent", agent.Name()),
	)

	result, err := agent.Handle(ctx, req)
	switch {
	case err != nil:
		r.metrics.RecordAgentRequest(agent.Name(), "error")
	case result.RequiresReview:
		r.metrics.RecordAgentRequest(agent.Name(), "degraded")
	default:
		r.metrics.RecordAgentRequest(agent.Name(), "ok")
	}
	return result, err
}

// ProcessBatch routes requests concurrently, at most MaxConcurrency in
// flight. Results are returned in input order. The first hard failure
// cancels the remaining work.
func (r *Router) ProcessBatch(ctx context.Context, reqs []*Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)
	for i, req := range reqs {
		g.Go(func() error {
			result, err := r.Route(ctx, req)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolve picks the target agent for a request.
func (r *Router) resolve(req *Request) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := r.defaultAgent
	content := strings.ToLower(req.Content)
	for _, rule := range r.rules {
		if rule.Source != "" && rule.Source != req.Source {
			continue
		}
		if !matchesKeywords(content, rule.Keywords) {
			continue
		}
		name = rule.Agent
		break
	}

	agent, ok := r.agents[name]
	if !ok {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("router: no agent registered under %q", name))
	}
	return agent, nil
}

func matchesKeywords(content string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(content, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
