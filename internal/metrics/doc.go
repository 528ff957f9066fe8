// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package metrics provides Prometheus metrics for the resilient call layer:
// provider request counts and latency, error occurrences by component and
// category, retry counts, and circuit breaker state. Internal only.
package metrics
