// Copyright (c) AgentRouter Authors.
// Licensed under the MIT License.

// Package classify maps raised failures into the framework error taxonomy
// and selects severity, remediation hints and log levels for them.
package classify
