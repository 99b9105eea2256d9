package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miladyos/internal/api"
)

func newTestAdapter(t *testing.T, fake *fakeJenkins) *Adapter {
	t.Helper()
	coordinator, _, manager := newTestCoordinator(t, fake)
	createTemplate(t, manager, "builder")
	return NewAdapter(coordinator)
}

func errorFields(t *testing.T, result *api.CallToolResult) map[string]interface{} {
	t.Helper()
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)
	fields, ok := result.Content[0].(map[string]interface{})
	require.True(t, ok, "error record is not a map")
	return fields
}

func TestAdapter_GetTools(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())

	names := make([]string, 0)
	for _, tool := range adapter.GetTools() {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"hello_world", "deploy_pipeline", "run_pipeline", "get_pipeline_status",
		"list_pipeline_runs", "execute_command", "get_console_output",
	}, names)
}

func TestAdapter_HelloWorld(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())

	result, err := adapter.ExecuteTool(context.Background(), "hello_world", nil)
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "Hello from MiladyOS! 👋", result.Content[0])
}

func TestAdapter_DeployPipeline(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())

	result, err := adapter.ExecuteTool(context.Background(), "deploy_pipeline", map[string]interface{}{
		"template_name": "builder",
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	deploy, ok := result.Content[0].(*api.DeployResult)
	require.True(t, ok)
	assert.True(t, deploy.Success)
	assert.NotEmpty(t, deploy.DeploymentID)
}

func TestAdapter_DeployPipeline_NotFound(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())

	result, err := adapter.ExecuteTool(context.Background(), "deploy_pipeline", map[string]interface{}{
		"template_name": "ghost",
	})
	require.NoError(t, err)

	fields := errorFields(t, result)
	assert.Equal(t, api.CodeTemplateNotFound, fields["error"])
	assert.Equal(t, "ghost", fields["template_name"])
}

func TestAdapter_RunPipeline_DefaultsStreaming(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())

	result, err := adapter.ExecuteTool(context.Background(), "run_pipeline", map[string]interface{}{
		"template_name": "builder",
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	run, ok := result.Content[0].(*api.RunResult)
	require.True(t, ok)
	// stream_output was absent, so the run streamed to completion.
	assert.Equal(t, "SUCCESS", run.Status)
	assert.True(t, run.Complete)
	assert.NotEmpty(t, run.ConsoleOutput)
}

func TestAdapter_RunPipeline_ExplicitNoStream(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())

	result, err := adapter.ExecuteTool(context.Background(), "run_pipeline", map[string]interface{}{
		"template_name": "builder",
		"stream_output": false,
	})
	require.NoError(t, err)

	run, ok := result.Content[0].(*api.RunResult)
	require.True(t, ok)
	assert.Equal(t, api.StatusRunning, run.Status)
	assert.Empty(t, run.ConsoleOutput)
}

func TestAdapter_RunPipeline_MissingInput(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())

	result, err := adapter.ExecuteTool(context.Background(), "run_pipeline", map[string]interface{}{})
	require.NoError(t, err)

	fields := errorFields(t, result)
	assert.Equal(t, api.CodeInputMissing, fields["error"])
}

func TestAdapter_GetPipelineStatus(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())
	ctx := context.Background()

	runResult, err := adapter.ExecuteTool(ctx, "run_pipeline", map[string]interface{}{
		"template_name": "builder",
	})
	require.NoError(t, err)
	run := runResult.Content[0].(*api.RunResult)

	result, err := adapter.ExecuteTool(ctx, "get_pipeline_status", map[string]interface{}{
		"execution_id": run.ExecutionID,
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	fields := result.Content[0].(map[string]interface{})
	assert.Equal(t, "success", fields["status"])
	execution, ok := fields["execution"].(*api.ExecutionRecord)
	require.True(t, ok)
	assert.Equal(t, run.ExecutionID, execution.ID)
}

func TestAdapter_GetPipelineStatus_NotFound(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())

	result, err := adapter.ExecuteTool(context.Background(), "get_pipeline_status", map[string]interface{}{
		"execution_id": "no-such-id",
	})
	require.NoError(t, err)

	fields := errorFields(t, result)
	assert.Equal(t, api.CodeExecutionNotFound, fields["error"])
}

func TestAdapter_ListPipelineRuns(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())
	ctx := context.Background()

	_, err := adapter.ExecuteTool(ctx, "run_pipeline", map[string]interface{}{
		"template_name": "builder",
	})
	require.NoError(t, err)

	result, err := adapter.ExecuteTool(ctx, "list_pipeline_runs", map[string]interface{}{
		"template_name": "builder",
	})
	require.NoError(t, err)

	fields := result.Content[0].(map[string]interface{})
	assert.Equal(t, "success", fields["status"])
	assert.Equal(t, 1, fields["count"])
	assert.Equal(t, "builder", fields["template_name"])
}

func TestAdapter_ExecuteCommandTool(t *testing.T) {
	fake := newFakeJenkins()
	fake.console = "==== OUTPUT ====\nok\n==== END OUTPUT ====\nFinished: SUCCESS\n"
	adapter := newTestAdapter(t, fake)

	result, err := adapter.ExecuteTool(context.Background(), "execute_command", map[string]interface{}{
		"command": "echo ok",
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	run, ok := result.Content[0].(*api.RunResult)
	require.True(t, ok)
	assert.True(t, run.Success)
	assert.Contains(t, run.ConsoleOutput, "ok")
}

func TestAdapter_GetConsoleOutputTool(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())
	ctx := context.Background()

	runResult, err := adapter.ExecuteTool(ctx, "run_pipeline", map[string]interface{}{
		"template_name": "builder",
	})
	require.NoError(t, err)
	run := runResult.Content[0].(*api.RunResult)

	result, err := adapter.ExecuteTool(ctx, "get_console_output", map[string]interface{}{
		"execution_id": run.ExecutionID,
	})
	require.NoError(t, err)

	fields := result.Content[0].(map[string]interface{})
	assert.Equal(t, run.ExecutionID, fields["execution_id"])
	assert.Contains(t, fields["console_output"], "Finished: SUCCESS")
}

func TestAdapter_UnknownToolIsError(t *testing.T) {
	adapter := newTestAdapter(t, newFakeJenkins())

	_, err := adapter.ExecuteTool(context.Background(), "no_such_tool", nil)
	require.Error(t, err)
	assert.Equal(t, api.CodeUnknownTool, api.ErrorCode(err))
}
