package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/BaSui01/agentrouter/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestCode tests provider-scoped code construction.
func TestCode(t *testing.T) {
	assert.Equal(t, "OPENAI_RATE_LIMIT", Code("openai", "RATE_LIMIT"))
	assert.Equal(t, "ANTHROPIC_AUTH_ERROR", Code("anthropic", "AUTH_ERROR"))
}

// TestCategorize tests the uniform HTTP status mapping.
func TestCategorize(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter int
		msg        string
		wantCode   types.ErrorCode
		wantSuffix string
		wantRetry  bool
		wantCat    types.ErrorCategory
	}{
		{
			name: "401 authentication", status: 401, msg: "Invalid API key",
			wantCode: types.ErrAuthentication, wantSuffix: "AUTH_ERROR",
			wantRetry: false, wantCat: types.CategoryAuthentication,
		},
		{
			name: "429 rate limited", status: 429, retryAfter: 60, msg: "Rate limit exceeded",
			wantCode: types.ErrRateLimited, wantSuffix: "RATE_LIMIT",
			wantRetry: true, wantCat: types.CategoryRateLimit,
		},
		{
			name: "500 server error", status: 500, msg: "Internal server error",
			wantCode: types.ErrUpstreamError, wantSuffix: "SERVER_ERROR",
			wantRetry: true, wantCat: types.CategoryNetwork,
		},
		{
			name: "503 server error", status: 503, msg: "Service overloaded",
			wantCode: types.ErrUpstreamError, wantSuffix: "SERVER_ERROR",
			wantRetry: true, wantCat: types.CategoryNetwork,
		},
		{
			name: "no status, timeout message", status: 0, msg: "Request timed out",
			wantCode: types.ErrTimeout, wantSuffix: "TIMEOUT",
			wantRetry: true, wantCat: types.CategoryTimeout,
		},
		{
			name: "no status, opaque message", status: 0, msg: "tls handshake broke",
			wantCode: types.ErrUpstreamError, wantSuffix: "CONNECTION_ERROR",
			wantRetry: true, wantCat: types.CategoryNetwork,
		},
		{
			name: "404 falls through to connection error", status: 404, msg: "not found",
			wantCode: types.ErrUpstreamError, wantSuffix: "CONNECTION_ERROR",
			wantRetry: true, wantCat: types.CategoryNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Categorize("openai", tt.status, tt.retryAfter, tt.msg)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, "openai", err.Provider)
			assert.Equal(t, Code("openai", tt.wantSuffix), err.ProviderCode)
			assert.Equal(t, tt.wantRetry, err.Retryable)
			assert.Equal(t, tt.wantCat, err.Category())
			assert.Equal(t, tt.msg, err.Message)
			assert.Equal(t, tt.retryAfter, err.RetryAfter)
		})
	}
}

// TestCategorizeError_Timeouts tests raw timeout failures without an HTTP
// status.
func TestCategorizeError_Timeouts(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"deadline exceeded", context.DeadlineExceeded},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded)},
		{"timeout message", errors.New("Request timed out")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cerr := CategorizeError("openai", tt.err)
			assert.Equal(t, types.ErrTimeout, cerr.Code)
			assert.Equal(t, "OPENAI_TIMEOUT", cerr.ProviderCode)
			assert.True(t, cerr.Retryable)
		})
	}
}

// TestCategorizeError_Opaque tests that unrecognized failures become
// retryable connection errors.
func TestCategorizeError_Opaque(t *testing.T) {
	raw := errors.New("unexpected EOF")
	cerr := CategorizeError("anthropic", raw)

	assert.Equal(t, types.ErrUpstreamError, cerr.Code)
	assert.Equal(t, "ANTHROPIC_CONNECTION_ERROR", cerr.ProviderCode)
	assert.True(t, cerr.Retryable)
	assert.ErrorIs(t, cerr, raw)
}

// TestCategorizeError_Passthrough tests that categorized errors keep their
// identity and only gain missing provider metadata.
func TestCategorizeError_Passthrough(t *testing.T) {
	original := types.NewError(types.ErrRateLimited, "slow down").WithRetryAfter(30)
	got := CategorizeError("openai", original)

	require.Same(t, original, got)
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, "OPENAI_RATE_LIMIT", got.ProviderCode)
	assert.Equal(t, 30, got.RetryAfter)

	// Existing metadata is never overwritten.
	tagged := types.NewError(types.ErrTimeout, "x").
		WithProvider("anthropic").
		WithProviderCode("ANTHROPIC_TIMEOUT")
	got = CategorizeError("openai", tagged)
	assert.Equal(t, "anthropic", got.Provider)
	assert.Equal(t, "ANTHROPIC_TIMEOUT", got.ProviderCode)
}

// TestCategorize_UniformAcrossProviders tests that every provider maps the
// same raw failure to the same error kind; only the code prefix differs.
func TestCategorize_UniformAcrossProviders(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		status := rapid.SampledFrom([]int{0, 400, 401, 403, 404, 429, 500, 502, 503, 504}).Draw(t, "status")
		retryAfter := rapid.IntRange(0, 120).Draw(t, "retryAfter")
		msg := rapid.SampledFrom([]string{
			"Rate limit exceeded",
			"Invalid API key",
			"Internal server error",
			"Request timed out",
			"upstream hiccup",
		}).Draw(t, "msg")

		a := Categorize("openai", status, retryAfter, msg)
		b := Categorize("anthropic", status, retryAfter, msg)

		if a.Code != b.Code {
			t.Fatalf("codes diverge: %s vs %s", a.Code, b.Code)
		}
		if a.Retryable != b.Retryable {
			t.Fatalf("retryable diverges for status %d", status)
		}
		if a.Category() != b.Category() {
			t.Fatalf("categories diverge: %s vs %s", a.Category(), b.Category())
		}
		if a.RetryAfter != b.RetryAfter {
			t.Fatalf("retry_after diverges: %d vs %d", a.RetryAfter, b.RetryAfter)
		}

		wantA := "OPENAI" + a.ProviderCode[len("OPENAI"):]
		wantB := "ANTHROPIC" + a.ProviderCode[len("OPENAI"):]
		if a.ProviderCode != wantA || b.ProviderCode != wantB {
			t.Fatalf("provider codes differ beyond the prefix: %s vs %s", a.ProviderCode, b.ProviderCode)
		}
	})
}
