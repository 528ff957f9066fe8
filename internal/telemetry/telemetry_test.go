package telemetry

import (
	"context"
	"testing"

	"github.com/BaSui01/agentrouter/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestInit_Disabled tests that disabled telemetry builds no exporters and
// shuts down cleanly.
func TestInit_Disabled(t *testing.T) {
	providers, err := Init(config.TelemetryConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NoError(t, providers.Shutdown(context.Background()))
}

// TestShutdown_NilReceiver tests nil safety.
func TestShutdown_NilReceiver(t *testing.T) {
	var providers *Providers
	assert.NoError(t, providers.Shutdown(context.Background()))
}

// TestBuildVersion tests the build-info fallback.
func TestBuildVersion(t *testing.T) {
	assert.NotEmpty(t, buildVersion())
}
