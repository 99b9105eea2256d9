// Package logging provides structured logging for miladyos with unified
// log handling and level filtering.
//
// The package wraps Go's standard slog package. Every log entry carries a
// timestamp, a level, a subsystem identifier, the message, and an optional
// error attribute.
//
// # Usage
//
//	import "miladyos/pkg/logging"
//
//	// Initialize with Info level logging to stderr
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Jenkins", "Queue item not resolved yet")
//	logging.Error("Metadata", err, "Failed to connect to store")
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - Bootstrap: application initialization and startup
//   - Config: configuration loading and validation
//   - Metadata: key-value store operations and recovery paths
//   - Jenkins: Jenkins HTTP operations and console streaming
//   - Coordinator: deploy/run orchestration
//   - ToolServer: MCP tool registration and dispatch
//   - TemplateRegistry / TemplateWatcher: on-disk Jenkinsfile management
//
// The server speaks MCP over stdout, so diagnostics must never be written
// there; InitForCLI is always given stderr (or a file) by the callers.
//
// # Thread Safety
//
// The logging system is fully thread-safe and may be called concurrently
// from multiple goroutines.
package logging
