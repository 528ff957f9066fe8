// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Command agentrouter routes requests to LLM-backed agents.
//
// Usage:
//
//	agentrouter run --config config.yaml --source email "customer message"
//	agentrouter run --metrics-addr :9090 "hello"
//	agentrouter version
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/agentrouter/agent"
	"github.com/BaSui01/agentrouter/config"
	"github.com/BaSui01/agentrouter/internal/httpclient"
	"github.com/BaSui01/agentrouter/internal/metrics"
	"github.com/BaSui01/agentrouter/internal/telemetry"
	"github.com/BaSui01/agentrouter/llm"
	"github.com/BaSui01/agentrouter/llm/circuitbreaker"
	"github.com/BaSui01/agentrouter/llm/classify"
	"github.com/BaSui01/agentrouter/llm/providers/anthropic"
	"github.com/BaSui01/agentrouter/llm/providers/openai"
	"github.com/BaSui01/agentrouter/llm/retry"
	"github.com/BaSui01/agentrouter/llm/stats"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "version":
		fmt.Printf("agentrouter %s (built %s)\n", Version, BuildTime)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage:
  agentrouter run [--config FILE] [--source SOURCE] [--metrics-addr ADDR] [PROMPT]
  agentrouter version

With no PROMPT argument, run reads one request per line from stdin.`)
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	source := fs.String("source", "generic", "Request source: email, webhook or generic")
	metricsAddr := fs.String("metrics-addr", "", "Expose Prometheus metrics on this address")
	fs.Parse(args)

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector("agentrouter")
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	router, err := buildRouter(cfg, collector, logger)
	if err != nil {
		logger.Fatal("failed to build runtime", zap.Error(err))
	}

	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt != "" {
		routeOne(ctx, router, agent.Source(*source), prompt, logger)
		return
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		routeOne(ctx, router, agent.Source(*source), line, logger)
	}
	if err := scanner.Err(); err != nil {
		logger.Error("read stdin", zap.Error(err))
		os.Exit(1)
	}
}

// buildRouter constructs the full runtime: HTTP client, providers, the
// resilient caller, the provider manager, agents and the router.
func buildRouter(cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) (*agent.Router, error) {
	httpClient := httpclient.New(&httpclient.Config{
		Timeout:           cfg.HTTP.Timeout,
		MaxConns:          cfg.HTTP.MaxConns,
		MaxConnsPerHost:   cfg.HTTP.MaxConnsPerHost,
		IdleConnTimeout:   cfg.HTTP.IdleConnTimeout,
		RetryAttempts:     cfg.HTTP.RetryAttempts,
		RetryDelay:        cfg.HTTP.RetryDelay,
		RetryBackoff:      cfg.HTTP.RetryBackoff,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
	}, logger)

	classifier := classify.NewClassifier(logger)
	statsRegistry := stats.NewRegistry()

	callerCfg := &llm.CallerConfig{
		RetryPolicy: &retry.Policy{
			MaxRetries: cfg.Resilience.MaxRetries,
			Delay:      cfg.Resilience.RetryDelay,
			Backoff:    cfg.Resilience.RetryBackoff,
			MaxDelay:   30 * time.Second,
		},
		Breaker: &circuitbreaker.Config{
			FailureThreshold: cfg.Resilience.FailureThreshold,
			RecoveryTimeout:  cfg.Resilience.RecoveryTimeout,
		},
		Providers: providerPolicies(cfg),
	}
	caller := llm.NewCaller(callerCfg, classifier, statsRegistry, collector, logger)
	manager := llm.NewManager(caller, logger)

	if cfg.Providers.OpenAI.Enabled {
		p, err := openai.New(openai.Config{
			APIKey:  cfg.Providers.OpenAI.APIKey,
			BaseURL: cfg.Providers.OpenAI.BaseURL,
			Model:   cfg.Providers.OpenAI.Model,
		}, httpClient, logger)
		if err != nil {
			return nil, err
		}
		manager.Register(p)
	}
	if cfg.Providers.Anthropic.Enabled {
		p, err := anthropic.New(anthropic.Config{
			APIKey:  cfg.Providers.Anthropic.APIKey,
			BaseURL: cfg.Providers.Anthropic.BaseURL,
			Model:   cfg.Providers.Anthropic.Model,
		}, httpClient, logger)
		if err != nil {
			return nil, err
		}
		manager.Register(p)
	}
	if len(cfg.Providers.FallbackOrder) > 0 {
		if err := manager.SetFallbackOrder(cfg.Providers.FallbackOrder); err != nil {
			return nil, err
		}
	}

	router := agent.NewRouter(agent.RouterConfig{
		DefaultAgent:   cfg.Router.DefaultAgent,
		MaxConcurrency: cfg.Router.MaxConcurrency,
	}, collector, logger)

	router.Register(agent.NewLLMAgent(agent.LLMAgentConfig{
		Name:          "default",
		SystemPrompt:  "You are a helpful assistant. Answer clearly and concisely.",
		FallbackReply: "We received your request but could not process it automatically. A team member will follow up shortly.",
	}, manager, classifier, logger))
	router.Register(agent.NewLLMAgent(agent.LLMAgentConfig{
		Name:          "sales",
		SystemPrompt:  "You are a sales assistant. Answer product and pricing questions helpfully and honestly.",
		FallbackReply: "Thanks for your interest! Our sales team will get back to you with details shortly.",
	}, manager, classifier, logger))

	router.AddRule(agent.Rule{Keywords: []string{"price", "pricing", "quote", "purchase"}, Agent: "sales"})
	router.AddRule(agent.Rule{Source: agent.SourceEmail, Agent: "default"})

	return router, nil
}

// providerPolicies turns per-provider config overrides into caller policies.
func providerPolicies(cfg *config.Config) map[string]*llm.ProviderPolicy {
	policies := make(map[string]*llm.ProviderPolicy)
	for name, pc := range map[string]config.ProviderConfig{
		openai.ProviderName:    cfg.Providers.OpenAI,
		anthropic.ProviderName: cfg.Providers.Anthropic,
	} {
		policy := &llm.ProviderPolicy{}
		if pc.MaxRetries != nil || pc.RetryDelay > 0 || pc.RetryBackoff > 0 {
			p := &retry.Policy{
				MaxRetries: cfg.Resilience.MaxRetries,
				Delay:      cfg.Resilience.RetryDelay,
				Backoff:    cfg.Resilience.RetryBackoff,
				MaxDelay:   30 * time.Second,
			}
			if pc.MaxRetries != nil {
				p.MaxRetries = *pc.MaxRetries
			}
			if pc.RetryDelay > 0 {
				p.Delay = pc.RetryDelay
			}
			if pc.RetryBackoff > 0 {
				p.Backoff = pc.RetryBackoff
			}
			policy.RetryPolicy = p
		}
		if pc.FailureThreshold > 0 || pc.RecoveryTimeout > 0 {
			b := &circuitbreaker.Config{
				FailureThreshold: cfg.Resilience.FailureThreshold,
				RecoveryTimeout:  cfg.Resilience.RecoveryTimeout,
			}
			if pc.FailureThreshold > 0 {
				b.FailureThreshold = pc.FailureThreshold
			}
			if pc.RecoveryTimeout > 0 {
				b.RecoveryTimeout = pc.RecoveryTimeout
			}
			policy.Breaker = b
		}
		if policy.RetryPolicy != nil || policy.Breaker != nil {
			policies[name] = policy
		}
	}
	return policies
}

func routeOne(ctx context.Context, router *agent.Router, source agent.Source, content string, logger *zap.Logger) {
	result, err := router.Route(ctx, &agent.Request{Source: source, Content: content})
	if err != nil {
		logger.Error("request failed", zap.Error(err))
		return
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}
