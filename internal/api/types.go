package api

import (
	"context"
)

// Execution status values. An execution is a member of exactly one
// status set in the store at any time.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
	StatusUnknown  = "unknown"
)

// CallToolResult represents the result of a tool call
type CallToolResult struct {
	Content []interface{} `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ToolMetadata describes a tool that can be exposed
type ToolMetadata struct {
	Name        string
	Description string
	Args        []ArgMetadata
}

// ArgMetadata describes a tool argument
type ArgMetadata struct {
	Name        string
	Type        string // "string", "number", "boolean", "object", "array"
	Required    bool
	Description string
	Default     interface{}

	// Schema optionally carries a detailed JSON schema for complex
	// arguments (objects, arrays). It takes precedence over Type when
	// the tool catalog is exported.
	Schema map[string]interface{}
}

// ToolProvider interface - implemented by the template and pipeline packages
type ToolProvider interface {
	// Returns all tools this provider offers
	GetTools() []ToolMetadata

	// Executes a tool by name
	ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error)
}

// TemplateRecord is the registered form of a Jenkinsfile on disk.
type TemplateRecord struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	TemplatePath string `json:"template_path"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	Version      int    `json:"version"`
}

// TemplateSummary is the listing form of a template.
type TemplateSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     int    `json:"version"`
	UpdatedAt   string `json:"updated_at"`
}

// DeploymentRecord associates a template with a Jenkins job on a server.
type DeploymentRecord struct {
	ID              string `json:"id"`
	TemplateName    string `json:"template_name"`
	TemplateVersion int    `json:"template_version"`
	JenkinsJobName  string `json:"jenkins_job_name"`
	ServerName      string `json:"server_name"`
	DeployedAt      string `json:"deployed_at"`
	Status          string `json:"status"`
}

// ExecutionRecord is a recorded pipeline run. BuildNumber may be empty
// while the run is still queued. Duration is integer milliseconds and
// zero until the run finishes.
type ExecutionRecord struct {
	ID             string                 `json:"execution_id"`
	DeploymentID   string                 `json:"deployment_id,omitempty"`
	TemplateName   string                 `json:"template_name"`
	JenkinsJobName string                 `json:"jenkins_job_name"`
	ServerName     string                 `json:"server_name"`
	BuildNumber    string                 `json:"build_number"`
	Parameters     map[string]interface{} `json:"parameters,omitempty"`
	StartedAt      string                 `json:"started_at"`
	Status         string                 `json:"status"`
	Result         string                 `json:"result,omitempty"`
	DurationMillis int64                  `json:"duration,omitempty"`
	FinishedAt     string                 `json:"finished_at,omitempty"`
	ConsoleStored  bool                   `json:"console_stored"`
	ConsoleOutput  string                 `json:"console_output,omitempty"`

	// MetadataUpdated is false when one or more index writes failed and
	// the record reflects best-known state rather than confirmed state.
	MetadataUpdated bool `json:"metadata_updated"`
}

// ExecutionStart carries the fields for recording a new execution.
// DeploymentID may be empty; the store resolves it through the job
// index when the template/job/server triplet is present.
type ExecutionStart struct {
	DeploymentID   string
	TemplateName   string
	JenkinsJobName string
	ServerName     string
	BuildNumber    string
	Parameters     map[string]interface{}
}

// ExecutionUpdate carries a status transition for an execution.
// ConsoleOutput, Result and DurationMillis are applied only when
// non-zero.
type ExecutionUpdate struct {
	Status         string
	Result         string
	ConsoleOutput  string
	DurationMillis int64
}

// ExecutionFilter narrows a listing. Zero values mean "no filter";
// Limit defaults to 10 when zero.
type ExecutionFilter struct {
	TemplateName string `json:"template_name,omitempty"`
	Status       string `json:"status,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// MetadataStoreHandler provides the typed operations over the metadata
// store: templates, deployments, executions, console spill, indices.
type MetadataStoreHandler interface {
	RegisterTemplate(ctx context.Context, name, description string) (*TemplateRecord, error)
	GetTemplate(ctx context.Context, name string) (*TemplateRecord, error)
	ListTemplates(ctx context.Context) ([]TemplateSummary, error)
	UpdateTemplate(ctx context.Context, name, description string) (*TemplateRecord, error)
	IncrementTemplateVersion(ctx context.Context, name string) (*TemplateRecord, error)

	RecordDeployment(ctx context.Context, templateName, jobName, serverName string) (*DeploymentRecord, error)

	RecordExecution(ctx context.Context, start ExecutionStart) (*ExecutionRecord, error)
	UpdateExecutionStatus(ctx context.Context, executionID string, update ExecutionUpdate) (*ExecutionRecord, error)
	GetExecution(ctx context.Context, executionID string) (*ExecutionRecord, error)
	ListExecutions(ctx context.Context, filter ExecutionFilter) ([]*ExecutionRecord, error)
	GetConsoleOutput(ctx context.Context, executionID string) (string, error)
}

// CreateTemplateRequest carries the arguments for scaffolding a new
// template on disk and registering it.
type CreateTemplateRequest struct {
	Name        string   `json:"template_name"`
	Description string   `json:"description"`
	Agent       string   `json:"agent,omitempty"`
	Environment []string `json:"environment,omitempty"`
}

// EditTemplateRequest carries the arguments for editing a template.
type EditTemplateRequest struct {
	Name        string `json:"template_name"`
	Content     string `json:"content"`
	DiffPreview bool   `json:"diff_preview,omitempty"`
	Description string `json:"description,omitempty"`
}

// EditResult is the outcome of an edit operation. Status is "preview"
// when no write happened, "updated" otherwise.
type EditResult struct {
	Status  string `json:"status"`
	Name    string `json:"template_name"`
	Diff    string `json:"diff"`
	Version int    `json:"version,omitempty"`
	Message string `json:"message,omitempty"`
}

// TemplateManagerHandler keeps on-disk Jenkinsfiles and the store
// catalog consistent.
type TemplateManagerHandler interface {
	ReadJenkinsfile(name string) (string, error)
	WriteJenkinsfile(name, content string) error
	CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*TemplateRecord, error)
	EditTemplate(ctx context.Context, req EditTemplateRequest) (*EditResult, error)
	ListTemplates(ctx context.Context) ([]TemplateSummary, error)
}

// DeployRequest carries the arguments for deploying a template to a
// Jenkins server.
type DeployRequest struct {
	TemplateName string `json:"template_name"`
	JobName      string `json:"job_name,omitempty"`
	ServerName   string `json:"server_name,omitempty"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
}

// DeployResult is the outcome of a successful deploy.
type DeployResult struct {
	Success      bool   `json:"success"`
	Status       string `json:"status"`
	DeploymentID string `json:"deployment_id"`
	TemplateName string `json:"template_name"`
	JobName      string `json:"job_name"`
	ServerName   string `json:"server_name"`
	Version      int    `json:"version"`
	Message      string `json:"message,omitempty"`
}

// RunRequest carries the arguments for running a pipeline. Exactly one
// of TemplateName and JenkinsfileContent must be set.
type RunRequest struct {
	TemplateName       string                 `json:"template_name,omitempty"`
	JenkinsfileContent string                 `json:"jenkinsfile_content,omitempty"`
	JobName            string                 `json:"job_name,omitempty"`
	ServerName         string                 `json:"server_name,omitempty"`
	Parameters         map[string]interface{} `json:"parameters,omitempty"`
	StreamOutput       bool                   `json:"stream_output,omitempty"`
	Username           string                 `json:"username,omitempty"`
	Password           string                 `json:"password,omitempty"`
}

// RunResult is the outcome of a run or command execution. Status is
// "queued" when the build never left the queue, "SUCCESS"/"FAILURE"/
// another Jenkins result when streamed to completion, or "TIMEOUT"
// when the streaming budget was exhausted.
type RunResult struct {
	Success         bool   `json:"success"`
	Status          string `json:"status"`
	ExecutionID     string `json:"execution_id"`
	TemplateName    string `json:"template_name,omitempty"`
	JobName         string `json:"job_name"`
	ServerName      string `json:"server_name"`
	BuildNumber     string `json:"build_number,omitempty"`
	QueueNumber     int64  `json:"queue_number,omitempty"`
	Result          string `json:"result,omitempty"`
	ConsoleOutput   string `json:"console_output,omitempty"`
	Complete        bool   `json:"complete"`
	SessionID       string `json:"session_id,omitempty"`
	MetadataUpdated bool   `json:"metadata_updated"`
	Message         string `json:"message,omitempty"`
}

// CommandRequest carries the arguments for running an ad-hoc shell
// command through the Jenkins substrate.
type CommandRequest struct {
	Command          string `json:"command"`
	WorkingDirectory string `json:"working_directory,omitempty"`
	SessionID        string `json:"session_id,omitempty"`
	ServerName       string `json:"server_name,omitempty"`
	Username         string `json:"username,omitempty"`
	Password         string `json:"password,omitempty"`
}

// PipelineExecutorHandler composes the Jenkins client and the metadata
// store into the user-facing deploy/run actions.
type PipelineExecutorHandler interface {
	Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error)
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
	ExecuteCommand(ctx context.Context, req CommandRequest) (*RunResult, error)
	GetStatus(ctx context.Context, executionID string) (*ExecutionRecord, error)
	ListRuns(ctx context.Context, filter ExecutionFilter) ([]*ExecutionRecord, error)
	GetConsoleOutput(ctx context.Context, executionID string) (string, error)
}
