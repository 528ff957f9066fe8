// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package stats tracks process-wide error occurrence counters keyed by
// (component, category) for observability. Counters grow monotonically for
// the life of the process and reset only by explicit operator action.
package stats

import (
	"fmt"
	"sync"

	"github.com/BaSui01/agentrouter/types"
)

// Snapshot is a point-in-time copy of the registry.
type Snapshot struct {
	TotalErrors int64            `json:"total_errors"`
	ErrorCounts map[string]int64 `json:"error_counts"`
}

// Registry counts error occurrences. All methods are safe for concurrent
// use; increments never lose updates.
type Registry struct {
	mu     sync.Mutex
	counts map[string]int64
	total  int64
}

// NewRegistry creates an empty statistics registry.
func NewRegistry() *Registry {
	return &Registry{
		counts: make(map[string]int64),
	}
}

// Key builds the composite counter key for a component and category.
func Key(component string, category types.ErrorCategory) string {
	return fmt.Sprintf("%s:%s", component, category)
}

// Increment counts one error occurrence for (component, category).
func (r *Registry) Increment(component string, category types.ErrorCategory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[Key(component, category)]++
	r.total++
}

// Snapshot returns a copy of the current counters.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int64, len(r.counts))
	for k, v := range r.counts {
		counts[k] = v
	}
	return Snapshot{
		TotalErrors: r.total,
		ErrorCounts: counts,
	}
}

// Reset clears all counters. Operator action only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = make(map[string]int64)
	r.total = 0
}
