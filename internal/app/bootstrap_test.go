package app

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miladyos/internal/api"
	"miladyos/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	mr := miniredis.RunT(t)
	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg := config.GetDefaultConfig()
	cfg.Redis.Host = host
	cfg.Redis.Port = port
	cfg.Paths.TemplatesDir = t.TempDir()
	cfg.Paths.MetadataDir = t.TempDir()
	return cfg
}

func TestNewApplication_RegistersAdapters(t *testing.T) {
	api.ResetHandlers()
	t.Cleanup(api.ResetHandlers)

	application, err := NewApplication(context.Background(), testConfig(t), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	assert.NotNil(t, api.GetMetadataStore())
	assert.NotNil(t, api.GetTemplateManager())
	assert.NotNil(t, api.GetPipelineExecutor())
}

func TestNewApplication_RedisUnreachable(t *testing.T) {
	api.ResetHandlers()
	t.Cleanup(api.ResetHandlers)

	cfg := config.GetDefaultConfig()
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = 1 // nothing listens here
	cfg.Paths.TemplatesDir = t.TempDir()
	cfg.Paths.MetadataDir = t.TempDir()

	_, err := NewApplication(context.Background(), cfg, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata store")
}

func TestApplication_RegisteredToolsCoverBothDomains(t *testing.T) {
	api.ResetHandlers()
	t.Cleanup(api.ResetHandlers)

	application, err := NewApplication(context.Background(), testConfig(t), "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	templates, ok := api.GetTemplateManager().(api.ToolProvider)
	require.True(t, ok)
	pipelines, ok := api.GetPipelineExecutor().(api.ToolProvider)
	require.True(t, ok)

	names := map[string]bool{}
	for _, provider := range []api.ToolProvider{templates, pipelines} {
		for _, tool := range provider.GetTools() {
			names[tool.Name] = true
		}
	}
	for _, want := range []string{
		"create_template", "edit_template", "list_templates",
		"hello_world", "deploy_pipeline", "run_pipeline",
		"get_pipeline_status", "list_pipeline_runs",
		"execute_command", "get_console_output",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}
