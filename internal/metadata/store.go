package metadata

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

// Store persists template, deployment and execution metadata in Redis.
// All hash fields are stored as strings; structured values (execution
// parameters) are JSON-encoded into a single field.
type Store struct {
	rdb          *redis.Client
	templatesDir string
	metadataDir  string
}

// Options configures a Store.
type Options struct {
	// Addr is the Redis host:port.
	Addr string
	// DB selects the Redis logical database.
	DB int
	// TemplatesDir is the directory scanned for *.Jenkinsfile templates.
	TemplatesDir string
	// MetadataDir is where console output spill files are written when
	// Redis cannot hold them.
	MetadataDir string
}

// NewStore connects to Redis and verifies the connection. The templates
// directory is created if missing; a missing metadata directory is only
// created lazily when a console spill file is first written.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, api.NewStoreError("connect", fmt.Errorf("pinging redis at %s: %w", opts.Addr, err))
	}

	if err := os.MkdirAll(opts.TemplatesDir, 0755); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("creating templates directory %s: %w", opts.TemplatesDir, err)
	}

	logging.Info("Metadata", "Connected to redis at %s", opts.Addr)

	return &Store{
		rdb:          rdb,
		templatesDir: opts.TemplatesDir,
		metadataDir:  opts.MetadataDir,
	}, nil
}

// NewStoreWithClient wraps an existing Redis client. Used by tests that
// run against miniredis.
func NewStoreWithClient(rdb *redis.Client, templatesDir, metadataDir string) *Store {
	return &Store{
		rdb:          rdb,
		templatesDir: templatesDir,
		metadataDir:  metadataDir,
	}
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// nowScore returns the wall time as a sorted-set score. Sub-second
// resolution keeps executions recorded in the same second ordered.
func nowScore() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
