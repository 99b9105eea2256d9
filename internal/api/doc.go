// Package api implements the central service locator pattern for miladyos,
// defining the contracts between the metadata store, the template registry,
// the pipeline coordinator, and the MCP tool server.
//
// # Architecture
//
// The API layer eliminates circular dependencies between packages by
// routing all cross-component communication through handler interfaces:
//
//	metadata  ──RegisterMetadataStore──▶  api  ◀──GetMetadataStore── pipeline
//	template  ──RegisterTemplateManager─▶ api  ◀──GetTemplateManager─ toolserver
//	pipeline  ──RegisterPipelineExecutor▶ api  ◀──GetPipelineExecutor toolserver
//
// Handlers are registered once during startup (internal/app wires them in
// dependency order) and retrieved by consumers at call time. The tool
// server additionally type-asserts handlers to ToolProvider to discover
// the tool catalog.
//
// # Error Handling
//
// The package defines the error taxonomy shared by all components:
// NotFoundError for missing templates, executions, deployments and
// servers; ValidationError for absent or malformed tool arguments;
// JenkinsError for wire-level Jenkins failures; StoreError for non-fatal
// metadata store failures. ErrorCode maps any error to the wire-level
// code carried in structured error records.
//
// No component panics across these boundaries; everything the transport
// sees is a JSON-serializable record.
package api
