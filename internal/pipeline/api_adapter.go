package pipeline

import (
	"context"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

// Adapter exposes the Coordinator through the central API layer and
// provides the pipeline tools.
type Adapter struct {
	coordinator *Coordinator
}

// NewAdapter creates a new pipeline executor API adapter.
func NewAdapter(coordinator *Coordinator) *Adapter {
	return &Adapter{coordinator: coordinator}
}

// Register registers this adapter with the central API layer. This
// method follows the project's API service locator pattern.
func (a *Adapter) Register() {
	api.RegisterPipelineExecutor(a)
	logging.Info("PipelineAdapter", "Registered pipeline executor with API layer")
}

// PipelineExecutorHandler delegation.

func (a *Adapter) Deploy(ctx context.Context, req api.DeployRequest) (*api.DeployResult, error) {
	return a.coordinator.Deploy(ctx, req)
}

func (a *Adapter) Run(ctx context.Context, req api.RunRequest) (*api.RunResult, error) {
	return a.coordinator.Run(ctx, req)
}

func (a *Adapter) ExecuteCommand(ctx context.Context, req api.CommandRequest) (*api.RunResult, error) {
	return a.coordinator.ExecuteCommand(ctx, req)
}

func (a *Adapter) GetStatus(ctx context.Context, executionID string) (*api.ExecutionRecord, error) {
	return a.coordinator.GetStatus(ctx, executionID)
}

func (a *Adapter) ListRuns(ctx context.Context, filter api.ExecutionFilter) ([]*api.ExecutionRecord, error) {
	return a.coordinator.ListRuns(ctx, filter)
}

func (a *Adapter) GetConsoleOutput(ctx context.Context, executionID string) (string, error) {
	return a.coordinator.GetConsoleOutput(ctx, executionID)
}

// GetTools returns the tool catalog for pipeline operations.
func (a *Adapter) GetTools() []api.ToolMetadata {
	return []api.ToolMetadata{
		{
			Name:        "hello_world",
			Description: "Say hello from MiladyOS!",
			Args:        []api.ArgMetadata{},
		},
		{
			Name:        "deploy_pipeline",
			Description: "Register a template with Jenkins (with version control)",
			Args: []api.ArgMetadata{
				{Name: "template_name", Type: "string", Required: true, Description: "Name of the template to deploy (without .Jenkinsfile extension)"},
				{Name: "job_name", Type: "string", Required: false, Description: "Name of the Jenkins job to create (defaults to template name)"},
				{Name: "server_name", Type: "string", Required: false, Description: "Name of the Jenkins server to deploy to (default is 'default')", Default: "default"},
				{Name: "username", Type: "string", Required: false, Description: "Jenkins username (optional, defaults to configured user)"},
				{Name: "password", Type: "string", Required: false, Description: "Jenkins password (optional, defaults to configured password)"},
			},
		},
		{
			Name:        "run_pipeline",
			Description: "Run a pipeline from a template or from directly supplied Jenkinsfile content (exactly one of template_name and jenkinsfile_content)",
			Args: []api.ArgMetadata{
				{Name: "template_name", Type: "string", Required: false, Description: "Name of the template to run (without .Jenkinsfile extension)"},
				{Name: "jenkinsfile_content", Type: "string", Required: false, Description: "Direct Jenkinsfile content to run instead of a template"},
				{Name: "job_name", Type: "string", Required: false, Description: "Name of the Jenkins job (defaults to template name)"},
				{Name: "server_name", Type: "string", Required: false, Description: "Name of the Jenkins server to use (default is 'default')", Default: "default"},
				{Name: "parameters", Type: "object", Required: false, Description: "Build parameters passed to the job"},
				{Name: "stream_output", Type: "boolean", Required: false, Description: "Follow console output until the build finishes", Default: true},
				{Name: "username", Type: "string", Required: false, Description: "Jenkins username (optional, defaults to configured user)"},
				{Name: "password", Type: "string", Required: false, Description: "Jenkins password (optional, defaults to configured password)"},
			},
		},
		{
			Name:        "get_pipeline_status",
			Description: "Get the status of a pipeline execution",
			Args: []api.ArgMetadata{
				{Name: "execution_id", Type: "string", Required: true, Description: "ID of the execution to look up"},
			},
		},
		{
			Name:        "list_pipeline_runs",
			Description: "List recent pipeline executions",
			Args: []api.ArgMetadata{
				{Name: "template_name", Type: "string", Required: false, Description: "Only list executions of this template"},
				{Name: "limit", Type: "number", Required: false, Description: "Maximum number of executions to return", Default: 10},
				{Name: "status", Type: "string", Required: false, Description: "Only list executions in this status (running, complete, failed)"},
			},
		},
		{
			Name:        "execute_command",
			Description: "Execute a CLI command",
			Args: []api.ArgMetadata{
				{Name: "command", Type: "string", Required: true, Description: "The CLI command to execute"},
				{Name: "working_directory", Type: "string", Required: false, Description: "Directory to execute the command in", Default: "/workspace"},
				{Name: "session_id", Type: "string", Required: false, Description: "Optional session ID for tracking related commands"},
				{Name: "server_name", Type: "string", Required: false, Description: "Name of the Jenkins server to use (default is 'default')", Default: "default"},
				{Name: "username", Type: "string", Required: false, Description: "Jenkins username (optional, defaults to configured user)"},
				{Name: "password", Type: "string", Required: false, Description: "Jenkins password (optional, defaults to configured password)"},
			},
		},
		{
			Name:        "get_console_output",
			Description: "Get the console output of a pipeline execution",
			Args: []api.ArgMetadata{
				{Name: "execution_id", Type: "string", Required: true, Description: "ID of the execution whose console output to fetch"},
			},
		},
	}
}

// ExecuteTool dispatches a pipeline tool call.
func (a *Adapter) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*api.CallToolResult, error) {
	switch toolName {
	case "hello_world":
		return &api.CallToolResult{Content: []interface{}{"Hello from MiladyOS! 👋"}}, nil
	case "deploy_pipeline":
		return a.handleDeploy(ctx, args)
	case "run_pipeline":
		return a.handleRun(ctx, args)
	case "get_pipeline_status":
		return a.handleGetStatus(ctx, args)
	case "list_pipeline_runs":
		return a.handleListRuns(ctx, args)
	case "execute_command":
		return a.handleExecuteCommand(ctx, args)
	case "get_console_output":
		return a.handleGetConsoleOutput(ctx, args)
	default:
		return nil, api.NewToolNotFoundError(toolName)
	}
}

func (a *Adapter) handleDeploy(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	var req api.DeployRequest
	if err := api.ParseRequest(args, &req); err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{}), nil
	}

	result, err := a.coordinator.Deploy(ctx, req)
	if err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{
			"template_name": req.TemplateName,
		}), nil
	}
	return &api.CallToolResult{Content: []interface{}{result}}, nil
}

func (a *Adapter) handleRun(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	var req api.RunRequest
	if err := api.ParseRequest(args, &req); err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{}), nil
	}
	// stream_output defaults to true; the zero value only means "absent".
	if _, present := args["stream_output"]; !present {
		req.StreamOutput = true
	}

	result, err := a.coordinator.Run(ctx, req)
	if err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{
			"template_name": req.TemplateName,
			"job_name":      req.JobName,
		}), nil
	}
	return &api.CallToolResult{Content: []interface{}{result}}, nil
}

func (a *Adapter) handleGetStatus(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	executionID, _ := args["execution_id"].(string)

	record, err := a.coordinator.GetStatus(ctx, executionID)
	if err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{
			"execution_id": executionID,
		}), nil
	}
	return &api.CallToolResult{Content: []interface{}{map[string]interface{}{
		"success":   true,
		"status":    "success",
		"execution": record,
	}}}, nil
}

func (a *Adapter) handleListRuns(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	var filter api.ExecutionFilter
	if err := api.ParseRequest(args, &filter); err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{
			"executions": []interface{}{},
		}), nil
	}

	records, err := a.coordinator.ListRuns(ctx, filter)
	if err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{
			"executions": []interface{}{},
		}), nil
	}
	return &api.CallToolResult{Content: []interface{}{map[string]interface{}{
		"success":       true,
		"status":        "success",
		"executions":    records,
		"count":         len(records),
		"template_name": filter.TemplateName,
		"filter_status": filter.Status,
	}}}, nil
}

func (a *Adapter) handleExecuteCommand(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	var req api.CommandRequest
	if err := api.ParseRequest(args, &req); err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{}), nil
	}

	result, err := a.coordinator.ExecuteCommand(ctx, req)
	if err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{
			"command": req.Command,
		}), nil
	}
	return &api.CallToolResult{Content: []interface{}{result}}, nil
}

func (a *Adapter) handleGetConsoleOutput(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	executionID, _ := args["execution_id"].(string)

	console, err := a.coordinator.GetConsoleOutput(ctx, executionID)
	if err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{
			"execution_id": executionID,
		}), nil
	}
	return &api.CallToolResult{Content: []interface{}{map[string]interface{}{
		"success":        true,
		"status":         "success",
		"execution_id":   executionID,
		"console_output": console,
	}}}, nil
}
