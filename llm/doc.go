// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

/*
Package llm defines the provider contract and the resilient call layer that
agents use to reach LLM providers.

Every provider call goes through a Caller, which runs the operation under a
per-provider circuit breaker and a retry policy, converts terminal failures
into categorized *types.Error values, and records the outcome in the error
statistics registry and Prometheus metrics. The Manager composes multiple
providers with a configured fallback order on top of the Caller.

Subpackages:

  - classify       — failure classification into the error taxonomy
  - circuitbreaker — per-provider Closed/Open/HalfOpen gating
  - retry          — bounded retries with exponential backoff
  - stats          — (component, category) error counters
  - providers      — provider integrations and uniform error categorization
*/
package llm
