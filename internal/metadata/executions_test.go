package metadata

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miladyos/internal/api"
)

func registerDemoTemplate(t *testing.T, store *Store, name string) {
	t.Helper()
	writeTemplateFile(t, store, name, demoJenkinsfile)
	_, err := store.RegisterTemplate(context.Background(), name, "")
	require.NoError(t, err)
}

func TestRecordDeployment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	registerDemoTemplate(t, store, "demo")

	record, err := store.RecordDeployment(ctx, "demo", "demo-job", "default")
	require.NoError(t, err)

	_, err = uuid.Parse(record.ID)
	assert.NoError(t, err, "deployment id should be a UUID")
	assert.Equal(t, "demo", record.TemplateName)
	assert.Equal(t, 1, record.TemplateVersion)
	assert.Equal(t, "demo-job", record.JenkinsJobName)
	assert.Equal(t, "default", record.ServerName)
	assert.Equal(t, "deployed", record.Status)
	assert.NotEmpty(t, record.DeployedAt)

	deploymentID, err := store.rdb.Get(ctx, jobIndexKey("default", "demo-job")).Result()
	require.NoError(t, err)
	assert.Equal(t, record.ID, deploymentID)

	isMember, err := store.rdb.SIsMember(ctx, templateDeploymentsKey("demo"), record.ID).Result()
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestRecordDeployment_TemplateMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.RecordDeployment(context.Background(), "ghost", "job", "default")
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestRecordDeployment_RedeploySupersedesLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	registerDemoTemplate(t, store, "demo")

	first, err := store.RecordDeployment(ctx, "demo", "demo-job", "default")
	require.NoError(t, err)
	second, err := store.RecordDeployment(ctx, "demo", "demo-job", "default")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	deploymentID, err := store.rdb.Get(ctx, jobIndexKey("default", "demo-job")).Result()
	require.NoError(t, err)
	assert.Equal(t, second.ID, deploymentID)
}

func TestRecordExecution(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.RecordExecution(ctx, api.ExecutionStart{
		TemplateName:   "demo",
		JenkinsJobName: "demo-job",
		ServerName:     "default",
		BuildNumber:    "7",
	})
	require.NoError(t, err)

	_, err = uuid.Parse(record.ID)
	assert.NoError(t, err, "execution id should be a UUID")
	assert.Equal(t, api.StatusRunning, record.Status)
	assert.Equal(t, "7", record.BuildNumber)
	assert.NotEmpty(t, record.StartedAt)
	assert.True(t, record.MetadataUpdated)

	_, err = store.rdb.ZScore(ctx, executionsKey, record.ID).Result()
	assert.NoError(t, err, "execution should be in the global index")
	_, err = store.rdb.ZScore(ctx, templateExecutionsKey("demo"), record.ID).Result()
	assert.NoError(t, err, "execution should be in the template index")
	_, err = store.rdb.ZScore(ctx, jobExecutionsKey("default", "demo-job"), record.ID).Result()
	assert.NoError(t, err, "execution should be in the job index")

	isRunning, err := store.rdb.SIsMember(ctx, statusKey(api.StatusRunning), record.ID).Result()
	require.NoError(t, err)
	assert.True(t, isRunning)
}

func TestRecordExecution_ResolvesDeploymentFromJobIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	registerDemoTemplate(t, store, "demo")

	deployment, err := store.RecordDeployment(ctx, "demo", "demo-job", "default")
	require.NoError(t, err)

	record, err := store.RecordExecution(ctx, api.ExecutionStart{
		TemplateName:   "demo",
		JenkinsJobName: "demo-job",
		ServerName:     "default",
	})
	require.NoError(t, err)
	assert.Equal(t, deployment.ID, record.DeploymentID)
}

func TestRecordExecution_ParametersRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	params := map[string]interface{}{
		"branch":  "main",
		"retries": float64(3),
		"verbose": true,
	}
	record, err := store.RecordExecution(ctx, api.ExecutionStart{
		TemplateName:   "demo",
		JenkinsJobName: "demo-job",
		ServerName:     "default",
		Parameters:     params,
	})
	require.NoError(t, err)

	loaded, err := store.GetExecution(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, params, loaded.Parameters)
}

func TestRecordExecution_EmptyBuildNumberWhileQueued(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.RecordExecution(ctx, api.ExecutionStart{
		TemplateName:   "demo",
		JenkinsJobName: "demo-job",
		ServerName:     "default",
	})
	require.NoError(t, err)
	assert.Empty(t, record.BuildNumber)

	loaded, err := store.GetExecution(ctx, record.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.BuildNumber)
	assert.Equal(t, api.StatusRunning, loaded.Status)
}

func TestUpdateExecutionStatus_TerminalTransition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.RecordExecution(ctx, api.ExecutionStart{
		TemplateName:   "demo",
		JenkinsJobName: "demo-job",
		ServerName:     "default",
		BuildNumber:    "4",
	})
	require.NoError(t, err)

	updated, err := store.UpdateExecutionStatus(ctx, record.ID, api.ExecutionUpdate{
		Status:         api.StatusComplete,
		Result:         "SUCCESS",
		ConsoleOutput:  "building...\nFinished: SUCCESS\n",
		DurationMillis: 5230,
	})
	require.NoError(t, err)

	assert.Equal(t, api.StatusComplete, updated.Status)
	assert.Equal(t, "SUCCESS", updated.Result)
	assert.Equal(t, int64(5230), updated.DurationMillis)
	assert.NotEmpty(t, updated.FinishedAt)
	assert.True(t, updated.ConsoleStored)
	assert.True(t, updated.MetadataUpdated)

	isComplete, err := store.rdb.SIsMember(ctx, statusKey(api.StatusComplete), record.ID).Result()
	require.NoError(t, err)
	assert.True(t, isComplete)
	isRunning, err := store.rdb.SIsMember(ctx, statusKey(api.StatusRunning), record.ID).Result()
	require.NoError(t, err)
	assert.False(t, isRunning, "terminal execution must leave the running set")

	loaded, err := store.GetExecution(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusComplete, loaded.Status)
	assert.Contains(t, loaded.ConsoleOutput, "Finished: SUCCESS")
}

func TestUpdateExecutionStatus_CreatesPlaceholder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	executionID := uuid.New().String()

	updated, err := store.UpdateExecutionStatus(ctx, executionID, api.ExecutionUpdate{
		Status: api.StatusFailed,
		Result: "FAILURE",
	})
	require.NoError(t, err)

	assert.Equal(t, executionID, updated.ID)
	assert.Equal(t, api.StatusFailed, updated.Status)
	assert.NotEmpty(t, updated.StartedAt)

	loaded, err := store.GetExecution(ctx, executionID)
	require.NoError(t, err)
	assert.Equal(t, api.StatusFailed, loaded.Status)
}

func TestUpdateExecutionStatus_WritesSpillFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.RecordExecution(ctx, api.ExecutionStart{
		TemplateName:   "demo",
		JenkinsJobName: "demo-job",
		ServerName:     "default",
	})
	require.NoError(t, err)

	_, err = store.UpdateExecutionStatus(ctx, record.ID, api.ExecutionUpdate{
		Status:        api.StatusComplete,
		Result:        "SUCCESS",
		ConsoleOutput: "Finished: SUCCESS\n",
	})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(store.metadataDir, "console_"+record.ID+".txt"))
	require.NoError(t, err)
	assert.Equal(t, "Finished: SUCCESS\n", string(content))
}

func TestGetExecution_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetExecution(context.Background(), uuid.New().String())
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
}

func TestGetExecution_RecoversFromSpillFile(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	executionID := uuid.New().String()

	consoleText := "Started by user admin\nFinished: SUCCESS\n"
	path := filepath.Join(store.metadataDir, "console_"+executionID+".txt")
	require.NoError(t, os.WriteFile(path, []byte(consoleText), 0644))

	record, err := store.GetExecution(ctx, executionID)
	require.NoError(t, err)

	assert.Equal(t, api.StatusComplete, record.Status)
	assert.Equal(t, "SUCCESS", record.Result)
	assert.Equal(t, consoleText, record.ConsoleOutput)

	stored, err := store.rdb.Get(ctx, consoleKey(executionID)).Result()
	require.NoError(t, err, "console blob should be repopulated into the store")
	assert.Equal(t, consoleText, stored)
}

func TestGetExecution_ConsoleFallbackRepopulatesStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.RecordExecution(ctx, api.ExecutionStart{
		TemplateName:   "demo",
		JenkinsJobName: "demo-job",
		ServerName:     "default",
	})
	require.NoError(t, err)

	_, err = store.UpdateExecutionStatus(ctx, record.ID, api.ExecutionUpdate{
		Status:        api.StatusComplete,
		Result:        "SUCCESS",
		ConsoleOutput: "Finished: SUCCESS\n",
	})
	require.NoError(t, err)

	// Simulate the store losing the blob while the spill file survives.
	require.NoError(t, store.rdb.Del(ctx, consoleKey(record.ID)).Err())

	loaded, err := store.GetExecution(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "Finished: SUCCESS\n", loaded.ConsoleOutput)

	exists, err := store.rdb.Exists(ctx, consoleKey(record.ID)).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestGetExecution_ConsoleRecordedButGone(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record, err := store.RecordExecution(ctx, api.ExecutionStart{
		TemplateName:   "demo",
		JenkinsJobName: "demo-job",
		ServerName:     "default",
	})
	require.NoError(t, err)

	require.NoError(t, store.rdb.HSet(ctx, executionKey(record.ID), "console_stored", "true").Err())

	loaded, err := store.GetExecution(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, consoleUnavailableMsg, loaded.ConsoleOutput)
}

func TestListExecutions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	start := func(template string) string {
		record, err := store.RecordExecution(ctx, api.ExecutionStart{
			TemplateName:   template,
			JenkinsJobName: template + "-job",
			ServerName:     "default",
		})
		require.NoError(t, err)
		return record.ID
	}
	finish := func(id, status, result string) {
		_, err := store.UpdateExecutionStatus(ctx, id, api.ExecutionUpdate{Status: status, Result: result})
		require.NoError(t, err)
	}

	a1 := start("A")
	a2 := start("A")
	a3 := start("A")
	b1 := start("B")
	finish(a1, api.StatusComplete, "SUCCESS")
	finish(a2, api.StatusComplete, "SUCCESS")
	finish(a3, api.StatusFailed, "FAILURE")
	finish(b1, api.StatusComplete, "SUCCESS")

	t.Run("template and status intersection", func(t *testing.T) {
		records, err := store.ListExecutions(ctx, api.ExecutionFilter{TemplateName: "A", Status: api.StatusComplete})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, a2, records[0].ID, "newest first")
		assert.Equal(t, a1, records[1].ID)
		for _, record := range records {
			assert.Equal(t, "A", record.TemplateName)
			assert.Equal(t, api.StatusComplete, record.Status)
		}
	})

	t.Run("template only", func(t *testing.T) {
		records, err := store.ListExecutions(ctx, api.ExecutionFilter{TemplateName: "A"})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, a3, records[0].ID)
	})

	t.Run("status only", func(t *testing.T) {
		records, err := store.ListExecutions(ctx, api.ExecutionFilter{Status: api.StatusFailed})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, a3, records[0].ID)
	})

	t.Run("default newest first", func(t *testing.T) {
		records, err := store.ListExecutions(ctx, api.ExecutionFilter{})
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, b1, records[0].ID)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		records, err := store.ListExecutions(ctx, api.ExecutionFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("unknown status yields nothing", func(t *testing.T) {
		records, err := store.ListExecutions(ctx, api.ExecutionFilter{Status: "bogus"})
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
