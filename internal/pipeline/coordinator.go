package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"miladyos/internal/api"
	"miladyos/internal/config"
	"miladyos/internal/jenkins"
	"miladyos/pkg/logging"
)

// Coordinator composes the Jenkins client and the metadata store into
// the deploy/run actions. Jenkins connections are created per operation;
// the store handle and template registry are shared and long-lived.
type Coordinator struct {
	servers   config.JenkinsConfig
	store     api.MetadataStoreHandler
	templates api.TemplateManagerHandler
	timing    jenkins.Timing
}

// NewCoordinator creates a coordinator with production timing budgets.
func NewCoordinator(servers config.JenkinsConfig, store api.MetadataStoreHandler, templates api.TemplateManagerHandler) *Coordinator {
	return NewCoordinatorWithTiming(servers, store, templates, jenkins.DefaultTiming())
}

// NewCoordinatorWithTiming creates a coordinator with explicit timing
// budgets. Tests shrink these to run queue and stream timeouts in
// milliseconds.
func NewCoordinatorWithTiming(servers config.JenkinsConfig, store api.MetadataStoreHandler, templates api.TemplateManagerHandler, timing jenkins.Timing) *Coordinator {
	return &Coordinator{
		servers:   servers,
		store:     store,
		templates: templates,
		timing:    timing,
	}
}

// connect resolves a server name against the static map and opens an
// authenticated client. Empty credentials fall back to the configured
// defaults.
func (c *Coordinator) connect(ctx context.Context, serverName, username, password string) (*jenkins.Client, string, error) {
	if serverName == "" {
		serverName = config.DefaultServerName
	}
	server, ok := c.servers.Servers[serverName]
	if !ok {
		return nil, serverName, api.NewServerNotFoundError(serverName)
	}
	if username == "" {
		username = c.servers.Username
	}
	if password == "" {
		password = c.servers.Password
	}

	client, err := jenkins.Connect(ctx, jenkins.Options{
		ServerName: serverName,
		URL:        server.URL,
		Username:   username,
		Password:   password,
		Timing:     c.timing,
	})
	if err != nil {
		return nil, serverName, err
	}
	return client, serverName, nil
}

// Deploy registers a template's Jenkinsfile as a (fresh) Jenkins job
// and records the deployment.
func (c *Coordinator) Deploy(ctx context.Context, req api.DeployRequest) (*api.DeployResult, error) {
	if req.TemplateName == "" {
		return nil, api.NewMissingArgError("template_name")
	}
	jobName := req.JobName
	if jobName == "" {
		jobName = req.TemplateName
	}

	// Listing reconciles the catalog with the templates directory, so a
	// Jenkinsfile dropped in by hand is deployable without a prior list
	// call.
	if _, err := c.store.ListTemplates(ctx); err != nil {
		logging.Warn("Coordinator", "Could not reconcile the template catalog: %v", err)
	}
	if _, err := c.store.GetTemplate(ctx, req.TemplateName); err != nil {
		return nil, err
	}

	client, serverName, err := c.connect(ctx, req.ServerName, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	content, err := c.templates.ReadJenkinsfile(req.TemplateName)
	if err != nil {
		return nil, err
	}

	deleted, err := client.DeleteJobIfExists(ctx, jobName)
	if err != nil {
		return nil, err
	}
	if deleted {
		logging.Info("Coordinator", "Replaced existing job %s on %s", jobName, serverName)
	}
	if err := client.CreateJob(ctx, jobName, content); err != nil {
		return nil, err
	}

	deployment, err := c.store.RecordDeployment(ctx, req.TemplateName, jobName, serverName)
	if err != nil {
		return nil, err
	}

	return &api.DeployResult{
		Success:      true,
		Status:       "success",
		DeploymentID: deployment.ID,
		TemplateName: req.TemplateName,
		JobName:      jobName,
		ServerName:   serverName,
		Version:      deployment.TemplateVersion,
		Message:      fmt.Sprintf("Successfully deployed template %s as job %s on server %s", req.TemplateName, jobName, serverName),
	}, nil
}

// Run triggers a build of a template or of directly supplied
// Jenkinsfile text, records the execution, and (by default) follows the
// console output to completion.
func (c *Coordinator) Run(ctx context.Context, req api.RunRequest) (*api.RunResult, error) {
	templateName := req.TemplateName
	content := req.JenkinsfileContent
	if templateName == "" && content == "" {
		return nil, api.NewInvalidArgError("template_name",
			"either template_name or jenkinsfile_content is required")
	}
	if templateName != "" && content != "" {
		return nil, api.NewInvalidArgError("jenkinsfile_content",
			"template_name and jenkinsfile_content are mutually exclusive")
	}

	jobName := req.JobName
	direct := content != ""
	if direct {
		if jobName == "" {
			jobName = "direct-pipeline-" + shortID()
		}
		templateName = "direct-" + jobName
	}
	if jobName == "" {
		jobName = templateName
	}

	client, serverName, err := c.connect(ctx, req.ServerName, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	// Direct content always replaces the job; a template-based run only
	// deploys when the job is missing.
	needsDeploy := content != ""
	if !needsDeploy {
		exists, err := client.JobExists(ctx, jobName)
		if err != nil {
			return nil, err
		}
		needsDeploy = !exists
	}
	if needsDeploy {
		if content == "" {
			logging.Info("Coordinator", "Job %s does not exist, deploying template %s first", jobName, templateName)
			content, err = c.templates.ReadJenkinsfile(templateName)
			if err != nil {
				return nil, err
			}
		}
		if _, err := client.DeleteJobIfExists(ctx, jobName); err != nil {
			return nil, err
		}
		if err := client.CreateJob(ctx, jobName, content); err != nil {
			return nil, err
		}
		if !direct {
			if _, err := c.store.RecordDeployment(ctx, templateName, jobName, serverName); err != nil {
				logging.Warn("Coordinator", "Could not record deployment of %s: %v", templateName, err)
			}
		}
	}

	start := client.StartJob(ctx, jobName, req.Parameters)
	if start.Status == "error" {
		return nil, api.NewJenkinsError("start job", serverName, errors.New(start.Error))
	}

	if start.Status == "queued" {
		record := c.recordExecution(ctx, api.ExecutionStart{
			TemplateName:   templateName,
			JenkinsJobName: jobName,
			ServerName:     serverName,
			Parameters:     req.Parameters,
		})
		return &api.RunResult{
			Success:         true,
			Status:          "queued",
			ExecutionID:     record.ID,
			TemplateName:    templateName,
			JobName:         jobName,
			ServerName:      serverName,
			QueueNumber:     start.QueueNumber,
			MetadataUpdated: record.MetadataUpdated,
			Message:         fmt.Sprintf("Successfully queued %s as job %s on server %s", runSubject(direct, templateName), jobName, serverName),
		}, nil
	}

	buildNumber := start.BuildNumber
	record := c.recordExecution(ctx, api.ExecutionStart{
		TemplateName:   templateName,
		JenkinsJobName: jobName,
		ServerName:     serverName,
		BuildNumber:    strconv.FormatInt(buildNumber, 10),
		Parameters:     req.Parameters,
	})

	if !req.StreamOutput {
		return &api.RunResult{
			Success:         true,
			Status:          api.StatusRunning,
			ExecutionID:     record.ID,
			TemplateName:    templateName,
			JobName:         jobName,
			ServerName:      serverName,
			BuildNumber:     strconv.FormatInt(buildNumber, 10),
			MetadataUpdated: record.MetadataUpdated,
			Message: fmt.Sprintf("Successfully started %s as job %s on server %s. Build #%d is running.",
				runSubject(direct, templateName), jobName, serverName, buildNumber),
		}, nil
	}

	stream := client.StreamConsole(ctx, jobName, buildNumber)
	metadataUpdated := c.finishExecution(ctx, client, record.ID, jobName, buildNumber, stream)

	return &api.RunResult{
		Success:         true,
		Status:          stream.Status,
		ExecutionID:     record.ID,
		TemplateName:    templateName,
		JobName:         jobName,
		ServerName:      serverName,
		BuildNumber:     strconv.FormatInt(buildNumber, 10),
		Result:          stream.Status,
		ConsoleOutput:   stream.ConsoleOutput,
		Complete:        stream.Complete,
		MetadataUpdated: metadataUpdated,
		Message: fmt.Sprintf("Successfully ran %s as job %s on server %s",
			runSubject(direct, templateName), jobName, serverName),
	}, nil
}

// ExecuteCommand runs one shell command through a throwaway Jenkins job
// built from the embedded command pipeline. The job is deleted after
// streaming; the execution record survives under the job's name.
func (c *Coordinator) ExecuteCommand(ctx context.Context, req api.CommandRequest) (*api.RunResult, error) {
	if req.Command == "" {
		return nil, api.NewMissingArgError("command")
	}
	workingDir := req.WorkingDirectory
	if workingDir == "" {
		workingDir = "/workspace"
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	jobName := "cmd-" + shortID()

	client, serverName, err := c.connect(ctx, req.ServerName, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	logging.Info("Coordinator", "Executing command via job %s (session %s)", jobName, sessionID)

	if _, err := client.DeleteJobIfExists(ctx, jobName); err != nil {
		return nil, err
	}
	if err := client.CreateJob(ctx, jobName, renderCommandJenkinsfile(req.Command, workingDir, sessionID)); err != nil {
		return nil, err
	}

	start := client.StartJob(ctx, jobName, nil)
	switch start.Status {
	case "error":
		return nil, api.NewJenkinsError("start command job", serverName, errors.New(start.Error))
	case "queued":
		return nil, api.NewJenkinsError("start command job", serverName,
			errors.New("job did not start within timeout period"))
	}

	record := c.recordExecution(ctx, api.ExecutionStart{
		TemplateName:   jobName,
		JenkinsJobName: jobName,
		ServerName:     serverName,
		BuildNumber:    strconv.FormatInt(start.BuildNumber, 10),
		Parameters: map[string]interface{}{
			"command":           req.Command,
			"working_directory": workingDir,
			"session_id":        sessionID,
		},
	})

	stream := client.StreamConsole(ctx, jobName, start.BuildNumber)
	// Commands report a binary outcome: anything short of SUCCESS,
	// including a streaming timeout, is a FAILURE.
	result := "FAILURE"
	if stream.Status == "SUCCESS" {
		result = "SUCCESS"
	}
	stream.Status = result
	metadataUpdated := c.finishExecution(ctx, client, record.ID, jobName, start.BuildNumber, stream)

	if _, err := client.DeleteJobIfExists(ctx, jobName); err != nil {
		logging.Warn("Coordinator", "Could not clean up command job %s: %v", jobName, err)
	}

	return &api.RunResult{
		Success:         result == "SUCCESS",
		Status:          result,
		ExecutionID:     record.ID,
		JobName:         jobName,
		ServerName:      serverName,
		BuildNumber:     strconv.FormatInt(start.BuildNumber, 10),
		Result:          result,
		ConsoleOutput:   stream.ConsoleOutput,
		Complete:        stream.Complete,
		SessionID:       sessionID,
		MetadataUpdated: metadataUpdated,
	}, nil
}

// GetStatus returns one execution record with its console output.
func (c *Coordinator) GetStatus(ctx context.Context, executionID string) (*api.ExecutionRecord, error) {
	if executionID == "" {
		return nil, api.NewMissingArgError("execution_id")
	}
	return c.store.GetExecution(ctx, executionID)
}

// ListRuns returns executions newest first, honoring the filter.
func (c *Coordinator) ListRuns(ctx context.Context, filter api.ExecutionFilter) ([]*api.ExecutionRecord, error) {
	return c.store.ListExecutions(ctx, filter)
}

// GetConsoleOutput returns the console blob for one execution.
func (c *Coordinator) GetConsoleOutput(ctx context.Context, executionID string) (string, error) {
	if executionID == "" {
		return "", api.NewMissingArgError("execution_id")
	}
	return c.store.GetConsoleOutput(ctx, executionID)
}

// recordExecution records a new execution. A store failure never aborts
// the run: the job is already building, so a synthetic record with
// MetadataUpdated=false stands in for the lost write.
func (c *Coordinator) recordExecution(ctx context.Context, start api.ExecutionStart) *api.ExecutionRecord {
	record, err := c.store.RecordExecution(ctx, start)
	if err == nil {
		return record
	}
	logging.Error("Coordinator", err, "Could not record execution for job %s", start.JenkinsJobName)
	return &api.ExecutionRecord{
		ID:              uuid.New().String(),
		TemplateName:    start.TemplateName,
		JenkinsJobName:  start.JenkinsJobName,
		ServerName:      start.ServerName,
		BuildNumber:     start.BuildNumber,
		Parameters:      start.Parameters,
		Status:          api.StatusRunning,
		MetadataUpdated: false,
	}
}

// finishExecution applies the terminal status transition after
// streaming and reports whether the metadata write landed.
func (c *Coordinator) finishExecution(ctx context.Context, client *jenkins.Client, executionID, jobName string, buildNumber int64, stream *jenkins.StreamResult) bool {
	status := api.StatusFailed
	if stream.Status == "SUCCESS" {
		status = api.StatusComplete
	}

	var duration int64
	if info, err := client.GetBuildInfo(ctx, jobName, buildNumber); err == nil {
		duration = info.DurationMillis
	} else {
		logging.Warn("Coordinator", "Could not fetch duration for %s #%d: %v", jobName, buildNumber, err)
	}

	updated, err := c.store.UpdateExecutionStatus(ctx, executionID, api.ExecutionUpdate{
		Status:         status,
		Result:         stream.Status,
		ConsoleOutput:  stream.ConsoleOutput,
		DurationMillis: duration,
	})
	if err != nil {
		logging.Error("Coordinator", err, "Could not update execution %s", executionID)
		return false
	}
	return updated.MetadataUpdated
}

// runSubject labels a run for log and result messages.
func runSubject(direct bool, templateName string) string {
	if direct {
		return "provided pipeline"
	}
	return "template " + templateName
}
