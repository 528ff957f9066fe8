// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package httpclient provides the shared pooled HTTP client used by the
// provider integrations. The pool is process-wide: one transport bounded by
// a total and a per-host connection limit, idle connections recycled after
// a keep-alive timeout. Transient HTTP statuses are retried here with
// exponential backoff before the response is handed to the caller.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures the shared HTTP client.
type Config struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxConns        int           `yaml:"max_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// RetryAttempts is the total number of attempts for statuses listed
	// in RetryOnStatus.
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	RetryBackoff  float64       `yaml:"retry_backoff"`
	RetryOnStatus []int         `yaml:"retry_on_status"`

	// RequestsPerSecond enables a client-side rate limiter when > 0.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	UserAgent string `yaml:"user_agent"`
}

// DefaultConfig returns the default pooling and retry configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30 * time.Second,
		MaxConns:        100,
		MaxConnsPerHost: 30,
		IdleConnTimeout: 30 * time.Second,
		RetryAttempts:   3,
		RetryDelay:      1 * time.Second,
		RetryBackoff:    2.0,
		RetryOnStatus:   []int{429, 500, 502, 503, 504},
		UserAgent:       "agentrouter/1.0",
	}
}

// Response is a fully-read HTTP response.
type Response struct {
	Status      int
	Headers     http.Header
	Body        []byte
	RequestTime time.Duration
	Attempt     int
}

// Client is the shared pooled HTTP client. Construct one per process and
// inject it into the provider integrations.
type Client struct {
	http    *http.Client
	config  *Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Client with a pooled transport.
func New(config *Config, logger *zap.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxConns <= 0 {
		config.MaxConns = 100
	}
	if config.MaxConnsPerHost <= 0 {
		config.MaxConnsPerHost = 30
	}
	if config.IdleConnTimeout <= 0 {
		config.IdleConnTimeout = 30 * time.Second
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 1 * time.Second
	}
	if config.RetryBackoff < 1.0 {
		config.RetryBackoff = 2.0
	}
	if len(config.RetryOnStatus) == 0 {
		config.RetryOnStatus = []int{429, 500, 502, 503, 504}
	}
	if config.UserAgent == "" {
		config.UserAgent = "agentrouter/1.0"
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxConns,
		MaxIdleConnsPerHost:   config.MaxConnsPerHost,
		MaxConnsPerHost:       config.MaxConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	logger.Info("created pooled HTTP client",
		zap.Int("max_conns", config.MaxConns),
		zap.Int("max_conns_per_host", config.MaxConnsPerHost),
		zap.Duration("timeout", config.Timeout),
	)

	return &Client{
		http: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		config:  config,
		limiter: limiter,
		logger:  logger,
	}
}

// Do issues the request, retrying on the configured transient statuses
// with exponential backoff. The last response is returned even when its
// status is still retryable after the final attempt; mapping non-2xx
// statuses to errors is the caller's concern.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(float64(c.config.RetryDelay) *
				math.Pow(c.config.RetryBackoff, float64(attempt-2)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := c.doOnce(ctx, method, url, headers, body, attempt)
		if err != nil {
			lastErr = err
			c.logger.Warn("http request failed",
				zap.String("method", method),
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}

		if c.retryableStatus(resp.Status) && attempt < c.config.RetryAttempts {
			c.logger.Warn("retryable http status, retrying",
				zap.String("url", url),
				zap.Int("status", resp.Status),
				zap.Int("attempt", attempt),
			)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("http %s %s: %w", method, url, lastErr)
}

// PostJSON marshals payload and issues a POST with a JSON content type.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	headers["Content-Type"] = "application/json"
	return c.Do(ctx, http.MethodPost, url, headers, body)
}

// CloseIdleConnections releases pooled idle connections, for shutdown.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func (c *Client) doOnce(ctx context.Context, method, url string, headers map[string]string, body []byte, attempt int) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		Status:      resp.StatusCode,
		Headers:     resp.Header,
		Body:        data,
		RequestTime: time.Since(start),
		Attempt:     attempt,
	}, nil
}

func (c *Client) retryableStatus(status int) bool {
	for _, s := range c.config.RetryOnStatus {
		if s == status {
			return true
		}
	}
	return false
}
