package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/agentrouter/types"
	"go.uber.org/zap"
)

// GenerateResult is a Manager response annotated with which provider served
// it and whether the fallback order was exercised.
type GenerateResult struct {
	Response     *Response
	Provider     string
	FallbackUsed bool
}

// Manager holds the registered providers and tries them in fallback order.
// The first registered provider is the default primary.
type Manager struct {
	caller *Caller
	logger *zap.Logger

	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewManager creates an empty provider manager on top of the caller.
func NewManager(caller *Caller, logger *zap.Logger) *Manager {
	return &Manager{
		caller:    caller,
		logger:    logger,
		providers: make(map[string]Provider),
	}
}

// Register adds a provider at the end of the fallback order.
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := p.Name()
	if _, exists := m.providers[name]; !exists {
		m.order = append(m.order, name)
	}
	m.providers[name] = p
}

// SetFallbackOrder replaces the provider try order. Every named provider
// must already be registered.
func (m *Manager) SetFallbackOrder(order []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range order {
		if _, ok := m.providers[name]; !ok {
			return types.NewError(types.ErrConfiguration,
				fmt.Sprintf("fallback order names unregistered provider %q", name))
		}
	}
	m.order = append([]string(nil), order...)
	return nil
}

// Provider returns a registered provider by name; empty name means the
// primary.
func (m *Manager) Provider(name string) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if name == "" {
		if len(m.order) == 0 {
			return nil, types.NewError(types.ErrConfiguration, "no providers registered")
		}
		name = m.order[0]
	}
	p, ok := m.providers[name]
	if !ok {
		return nil, types.NewError(types.ErrConfiguration,
			fmt.Sprintf("provider %q not found", name))
	}
	return p, nil
}

// Generate runs the request against the primary provider through the
// resilient caller.
func (m *Manager) Generate(ctx context.Context, req *Request) (*GenerateResult, error) {
	return m.generate(ctx, req, false)
}

// GenerateWithFallback runs the request against the fallback order: when a
// provider fails with a categorized error, the next one is tried. The last
// failure is returned when every provider fails.
func (m *Manager) GenerateWithFallback(ctx context.Context, req *Request) (*GenerateResult, error) {
	return m.generate(ctx, req, true)
}

func (m *Manager) generate(ctx context.Context, req *Request, fallback bool) (*GenerateResult, error) {
	m.mu.RLock()
	order := append([]string(nil), m.order...)
	m.mu.RUnlock()

	if len(order) == 0 {
		return nil, types.NewError(types.ErrConfiguration, "no providers registered")
	}
	if !fallback {
		order = order[:1]
	}

	var lastErr error
	for i, name := range order {
		p, err := m.Provider(name)
		if err != nil {
			return nil, err
		}

		resp, err := m.caller.Call(ctx, name, func(ctx context.Context) (*Response, error) {
			return p.Generate(ctx, req)
		})
		if err == nil {
			return &GenerateResult{
				Response:     resp,
				Provider:     name,
				FallbackUsed: i > 0,
			}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if i < len(order)-1 {
			m.logger.Warn("provider failed, trying next in fallback order",
				zap.String("provider", name),
				zap.String("next", order[i+1]),
				zap.Error(err),
			)
		}
	}

	return nil, lastErr
}
