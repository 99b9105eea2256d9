package metadata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

const (
	consoleUnavailableMsg = "Console output was recorded but is no longer available."
	noConsoleMsg          = "No console output available"
)

// consoleFilePath returns the spill file location for an execution.
func (s *Store) consoleFilePath(executionID string) string {
	return filepath.Join(s.metadataDir, "console_"+executionID+".txt")
}

// storeConsole writes the blob under the console key. Any stale value is
// deleted first, the write is verified with an existence check and
// retried once. Reports whether the blob ended up in the store.
func (s *Store) storeConsole(ctx context.Context, executionID, console string) bool {
	key := consoleKey(executionID)

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logging.Warn("Metadata", "Could not clear console key for %s: %v", executionID, err)
	}
	if err := s.rdb.Set(ctx, key, console, 0).Err(); err != nil {
		logging.Error("Metadata", err, "Could not store console output for %s", executionID)
		return false
	}
	if exists, err := s.rdb.Exists(ctx, key).Result(); err == nil && exists > 0 {
		logging.Info("Metadata", "Stored console output for %s (%d bytes)", executionID, len(console))
		return true
	}

	logging.Warn("Metadata", "Console write for %s did not verify, retrying", executionID)
	if err := s.rdb.Set(ctx, key, console, 0).Err(); err != nil {
		logging.Error("Metadata", err, "Console retry for %s failed", executionID)
		return false
	}
	exists, err := s.rdb.Exists(ctx, key).Result()
	return err == nil && exists > 0
}

// spillConsole writes the filesystem copy of the console output so it
// survives a store restart. Failures are logged, never fatal.
func (s *Store) spillConsole(executionID, console string) {
	if s.metadataDir == "" {
		return
	}
	if err := os.MkdirAll(s.metadataDir, 0755); err != nil {
		logging.Warn("Metadata", "Could not create metadata directory %s: %v", s.metadataDir, err)
		return
	}
	path := s.consoleFilePath(executionID)
	if err := os.WriteFile(path, []byte(console), 0644); err != nil {
		logging.Warn("Metadata", "Could not write console spill file %s: %v", path, err)
		return
	}
	logging.Debug("Metadata", "Wrote console spill file %s", path)
}

// readConsoleFile loads the spill file when one exists.
func (s *Store) readConsoleFile(executionID string) (string, bool) {
	if s.metadataDir == "" {
		return "", false
	}
	path := s.consoleFilePath(executionID)
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Metadata", "Could not read console spill file %s: %v", path, err)
		}
		return "", false
	}
	return string(content), true
}

// inferStatusFromConsole derives a terminal status from the Jenkins
// result line at the end of a console blob.
func inferStatusFromConsole(console string) (status, result string) {
	switch {
	case strings.Contains(console, "Finished: SUCCESS"):
		return api.StatusComplete, "SUCCESS"
	case strings.Contains(console, "Finished: FAILURE"):
		return api.StatusFailed, "FAILURE"
	default:
		return api.StatusUnknown, ""
	}
}

// GetConsoleOutput returns the console blob for an execution. A missing
// store entry falls back to the spill file, which on success is written
// back into the store. When neither holds the blob a human-readable
// placeholder is returned instead of an error.
func (s *Store) GetConsoleOutput(ctx context.Context, executionID string) (string, error) {
	console, err := s.rdb.Get(ctx, consoleKey(executionID)).Result()
	if err == nil {
		return console, nil
	}
	if !errors.Is(err, redis.Nil) {
		return "", api.NewStoreError("get console output", err)
	}

	if content, ok := s.readConsoleFile(executionID); ok {
		if err := s.rdb.Set(ctx, consoleKey(executionID), content, 0).Err(); err != nil {
			logging.Warn("Metadata", "Could not repopulate console output for %s: %v", executionID, err)
		}
		return content, nil
	}

	stored, err := s.rdb.HGet(ctx, executionKey(executionID), "console_stored").Result()
	if err == nil && stored == "true" {
		return consoleUnavailableMsg, nil
	}
	return noConsoleMsg, nil
}
