package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miladyos/internal/api"
	"miladyos/internal/metadata"
)

// newTestManager wires a Manager to an in-process Redis catalog and a
// throwaway templates directory.
func newTestManager(t *testing.T) (*Manager, *metadata.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	templatesDir := t.TempDir()
	store := metadata.NewStoreWithClient(rdb, templatesDir, t.TempDir())
	t.Cleanup(func() { _ = store.Close() })
	return NewManager(templatesDir, store), store
}

func TestReadWriteJenkinsfile(t *testing.T) {
	manager, _ := newTestManager(t)

	require.NoError(t, manager.WriteJenkinsfile("demo", "pipeline { agent any }\n"))

	content, err := manager.ReadJenkinsfile("demo")
	require.NoError(t, err)
	assert.Equal(t, "pipeline { agent any }\n", content)
}

func TestReadJenkinsfile_NotFound(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.ReadJenkinsfile("ghost")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestWriteJenkinsfile_LeavesNoTempFiles(t *testing.T) {
	manager, _ := newTestManager(t)

	require.NoError(t, manager.WriteJenkinsfile("demo", "first\n"))
	require.NoError(t, manager.WriteJenkinsfile("demo", "second\n"))

	entries, err := os.ReadDir(filepath.Dir(manager.Path("demo")))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "demo.Jenkinsfile", entries[0].Name())
}

func TestCreateTemplate(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	record, err := manager.CreateTemplate(ctx, api.CreateTemplateRequest{
		Name:        "builder",
		Description: "Build the service",
	})
	require.NoError(t, err)

	assert.Equal(t, "builder", record.Name)
	assert.Equal(t, "Build the service", record.Description)
	assert.Equal(t, 1, record.Version)

	content, err := manager.ReadJenkinsfile("builder")
	require.NoError(t, err)
	assert.Contains(t, content, "// Jenkinsfile for builder")
	assert.Contains(t, content, "stage('Build')")

	stored, err := store.GetTemplate(ctx, "builder")
	require.NoError(t, err)
	assert.Equal(t, "Build the service", stored.Description)
}

func TestCreateTemplate_MissingArgs(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.CreateTemplate(ctx, api.CreateTemplateRequest{Description: "x"})
	assert.True(t, api.IsValidation(err))

	_, err = manager.CreateTemplate(ctx, api.CreateTemplateRequest{Name: "x"})
	assert.True(t, api.IsValidation(err))
}

func TestEditTemplate_Preview(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, manager.WriteJenkinsfile("demo", "line one\nline two\n"))

	result, err := manager.EditTemplate(ctx, api.EditTemplateRequest{
		Name:        "demo",
		Content:     "line one\nline changed\n",
		DiffPreview: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "preview", result.Status)
	assert.Contains(t, result.Diff, "-line two")
	assert.Contains(t, result.Diff, "+line changed")
	assert.Contains(t, result.Diff, "demo.Jenkinsfile (original)")

	// Preview must not touch the file.
	content, err := manager.ReadJenkinsfile("demo")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", content)
}

func TestEditTemplate_WritesAndBumpsVersion(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	_, err := manager.CreateTemplate(ctx, api.CreateTemplateRequest{
		Name:        "demo",
		Description: "Build it",
	})
	require.NoError(t, err)

	result, err := manager.EditTemplate(ctx, api.EditTemplateRequest{
		Name:    "demo",
		Content: "pipeline { agent any }\n",
	})
	require.NoError(t, err)

	assert.Equal(t, "updated", result.Status)
	assert.Equal(t, 2, result.Version)

	content, err := manager.ReadJenkinsfile("demo")
	require.NoError(t, err)
	assert.Equal(t, "pipeline { agent any }\n", content)

	stored, err := store.GetTemplate(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
}

func TestEditTemplate_UpdatesDescription(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	_, err := manager.CreateTemplate(ctx, api.CreateTemplateRequest{
		Name:        "demo",
		Description: "Old description",
	})
	require.NoError(t, err)

	_, err = manager.EditTemplate(ctx, api.EditTemplateRequest{
		Name:        "demo",
		Content:     "pipeline { agent any }\n",
		Description: "New description",
	})
	require.NoError(t, err)

	stored, err := store.GetTemplate(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "New description", stored.Description)
}

func TestEditTemplate_MissingTemplate(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.EditTemplate(context.Background(), api.EditTemplateRequest{
		Name:    "ghost",
		Content: "whatever",
	})
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestEditTemplate_MissingArgs(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.EditTemplate(ctx, api.EditTemplateRequest{Content: "x"})
	assert.True(t, api.IsValidation(err))

	_, err = manager.EditTemplate(ctx, api.EditTemplateRequest{Name: "x"})
	assert.True(t, api.IsValidation(err))
}

func TestListTemplates_ReflectsDirectory(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.CreateTemplate(ctx, api.CreateTemplateRequest{
		Name:        "alpha",
		Description: "Build alpha",
	})
	require.NoError(t, err)

	summaries, err := manager.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "alpha", summaries[0].Name)

	require.NoError(t, os.Remove(manager.Path("alpha")))

	summaries, err = manager.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
