package circuitbreaker

import (
	"sync"

	"go.uber.org/zap"
)

// Registry holds one breaker per named external dependency for the process
// lifetime. Breakers are created lazily on first use and are fully
// independent of each other.
type Registry struct {
	config *Config
	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry whose breakers share config defaults.
func NewRegistry(config *Config, logger *zap.Logger) *Registry {
	if config == nil {
		config = DefaultConfig()
	}
	return &Registry{
		config:   config,
		logger:   logger,
		breakers: make(map[string]*Breaker),
	}
}

// Register creates the breaker for name with a specific config. It is a
// no-op when the breaker already exists.
func (r *Registry) Register(name string, config *Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	if config == nil {
		config = r.config
	}
	b := New(name, config, r.logger)
	r.breakers[name] = b
	return b
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := New(name, r.config, r.logger)
	r.breakers[name] = b
	return b
}

// Lookup returns the breaker for name without creating one.
func (r *Registry) Lookup(name string) (*Breaker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	return b, ok
}

// Names returns the registered breaker names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}

// ResetAll forces every breaker back to closed. Operator action only.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
