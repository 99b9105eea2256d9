package metadata

import (
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// newTestStore wires a Store to an in-process Redis with throwaway
// template and metadata directories.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStoreWithClient(rdb, t.TempDir(), t.TempDir())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeTemplateFile(t *testing.T, store *Store, name, content string) string {
	t.Helper()
	path := store.TemplatePath(name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
