// Package app bootstraps miladyos: it loads configuration into the
// concrete services, registers their API adapters in dependency order,
// and runs the stdio tool server until shutdown.
//
// All inter-package communication goes through the internal/api service
// locator. The bootstrap sequence registers the metadata store adapter
// first, then the template manager, then the pipeline coordinator, so
// every handler is available before the tool server collects tools.
package app
