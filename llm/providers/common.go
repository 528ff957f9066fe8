// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package providers hosts the LLM provider integrations and their shared,
// provider-uniform error categorization.
package providers

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/BaSui01/agentrouter/types"
)

// Code builds a provider-scoped error code, e.g. Code("openai",
// "RATE_LIMIT") == "OPENAI_RATE_LIMIT".
func Code(provider, suffix string) string {
	return strings.ToUpper(provider) + "_" + suffix
}

// Categorize maps an HTTP-level failure into a categorized error. The
// mapping is deliberately uniform: given the same (status, retryAfter,
// message) every provider produces the same error kind.
//
//	401          -> AUTHENTICATION  <PROVIDER>_AUTH_ERROR
//	429          -> RATE_LIMITED    <PROVIDER>_RATE_LIMIT (+retry_after)
//	>=500        -> UPSTREAM_ERROR  <PROVIDER>_SERVER_ERROR
//	no status,
//	timeout msg  -> TIMEOUT         <PROVIDER>_TIMEOUT
//	otherwise    -> UPSTREAM_ERROR  <PROVIDER>_CONNECTION_ERROR
func Categorize(provider string, status int, retryAfter int, msg string) *types.Error {
	switch {
	case status == 401:
		return types.NewError(types.ErrAuthentication, msg).
			WithHTTPStatus(status).
			WithProvider(provider).
			WithProviderCode(Code(provider, "AUTH_ERROR"))

	case status == 429:
		return types.NewError(types.ErrRateLimited, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithRetryAfter(retryAfter).
			WithProvider(provider).
			WithProviderCode(Code(provider, "RATE_LIMIT"))

	case status >= 500:
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithProvider(provider).
			WithProviderCode(Code(provider, "SERVER_ERROR"))

	case status == 0 && isTimeoutMessage(msg):
		return types.NewError(types.ErrTimeout, msg).
			WithRetryable(true).
			WithProvider(provider).
			WithProviderCode(Code(provider, "TIMEOUT"))

	default:
		return types.NewError(types.ErrUpstreamError, msg).
			WithHTTPStatus(status).
			WithRetryable(true).
			WithProvider(provider).
			WithProviderCode(Code(provider, "CONNECTION_ERROR"))
	}
}

// CategorizeError converts a raw failure from a provider call into the
// categorized form. Already-categorized errors pass through unchanged
// apart from filling in missing provider metadata.
func CategorizeError(provider string, err error) *types.Error {
	if e, ok := types.AsError(err); ok {
		if e.Provider == "" {
			e.Provider = provider
		}
		if e.ProviderCode == "" {
			e.ProviderCode = Code(provider, codeSuffix(e.Code))
		}
		return e
	}

	if isTimeoutError(err) {
		return types.NewError(types.ErrTimeout, err.Error()).
			WithRetryable(true).
			WithProvider(provider).
			WithProviderCode(Code(provider, "TIMEOUT")).
			WithCause(err)
	}
	return types.NewError(types.ErrUpstreamError, err.Error()).
		WithRetryable(true).
		WithProvider(provider).
		WithProviderCode(Code(provider, "CONNECTION_ERROR")).
		WithCause(err)
}

// codeSuffix picks the provider-code suffix for an already-categorized
// error that arrived without one.
func codeSuffix(code types.ErrorCode) string {
	switch code {
	case types.ErrAuthentication:
		return "AUTH_ERROR"
	case types.ErrRateLimited:
		return "RATE_LIMIT"
	case types.ErrTimeout:
		return "TIMEOUT"
	case types.ErrConfiguration:
		return "CONFIG_ERROR"
	case types.ErrUpstreamError:
		return "SERVER_ERROR"
	default:
		return "CONNECTION_ERROR"
	}
}

func isTimeoutMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out")
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return isTimeoutMessage(err.Error())
}
