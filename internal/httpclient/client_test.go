package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(attempts int) *Client {
	return New(&Config{
		Timeout:       5 * time.Second,
		RetryAttempts: attempts,
		RetryDelay:    time.Millisecond,
		RetryBackoff:  2.0,
	}, zap.NewNop())
}

// TestClient_PostJSON tests request assembly: method, content type, custom
// headers, user agent and body.
func TestClient_PostJSON(t *testing.T) {
	var gotMethod, gotContentType, gotAuth, gotUA string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(1)
	resp, err := c.PostJSON(context.Background(), srv.URL, map[string]string{
		"Authorization": "Bearer secret",
	}, map[string]string{"prompt": "hi"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "agentrouter/1.0", gotUA)
	assert.Equal(t, "hi", gotBody["prompt"])
}

// TestClient_RetriesTransientStatus tests backoff retry on 500 then success.
func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("finally"))
	}))
	defer srv.Close()

	c := newTestClient(3)
	resp, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "finally", string(resp.Body))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, resp.Attempt)
}

// TestClient_ReturnsLastResponseWhenStillFailing tests that the final
// retryable response is handed to the caller rather than swallowed.
func TestClient_ReturnsLastResponseWhenStillFailing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	c := newTestClient(2)
	resp, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)

	require.NoError(t, err, "status mapping is the caller's concern")
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, "30", resp.Headers.Get("Retry-After"))
	assert.Equal(t, int32(2), calls.Load())
}

// TestClient_NonRetryableStatusReturnsImmediately tests that a 401 is never
// retried.
func TestClient_NonRetryableStatusReturnsImmediately(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(3)
	resp, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, int32(1), calls.Load())
}

// TestClient_ConnectionErrorAfterRetries tests the terminal transport error.
func TestClient_ConnectionErrorAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	c := newTestClient(2)
	_, err := c.Do(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
}

// TestClient_CancellationStopsRetries tests context abandonment during the
// backoff sleep.
func TestClient_CancellationStopsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(&Config{
		Timeout:       5 * time.Second,
		RetryAttempts: 5,
		RetryDelay:    time.Hour,
		RetryBackoff:  2.0,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Do(ctx, http.MethodGet, srv.URL, nil, nil)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), calls.Load())
	case <-time.After(time.Second):
		t.Fatal("request did not stop after cancellation")
	}
}

// TestDefaultConfig tests the pooled-client defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 100, cfg.MaxConns)
	assert.Equal(t, 30, cfg.MaxConnsPerHost)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, []int{429, 500, 502, 503, 504}, cfg.RetryOnStatus)
}
