package api

import (
	"errors"
	"fmt"
)

// NotFoundError represents a resource not found error with contextual
// information. The error includes resource type and name for precise
// reporting and supports custom messages for specific cases.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "template", "execution", "deployment", "jenkins server")
	ResourceType string

	// ResourceName is the specific identifier of the resource
	ResourceName string

	// Message provides a custom error message if the default format is
	// insufficient
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a new NotFoundError with the specified
// resource type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
	}
}

// NewNotFoundErrorWithMessage creates a new NotFoundError with a custom message.
func NewNotFoundErrorWithMessage(resourceType, resourceName, message string) *NotFoundError {
	return &NotFoundError{
		ResourceType: resourceType,
		ResourceName: resourceName,
		Message:      message,
	}
}

// Specific NotFoundError constructors for each resource type.
var (
	// NewTemplateNotFoundError creates a template not found error.
	NewTemplateNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("template", name)
	}

	// NewJenkinsfileNotFoundError creates an error for a missing
	// Jenkinsfile on disk.
	NewJenkinsfileNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundErrorWithMessage("jenkinsfile", name,
			fmt.Sprintf("jenkinsfile for template %s not found on disk", name))
	}

	// NewExecutionNotFoundError creates an execution not found error.
	NewExecutionNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("execution", id)
	}

	// NewDeploymentNotFoundError creates a deployment not found error.
	NewDeploymentNotFoundError = func(id string) *NotFoundError {
		return NewNotFoundError("deployment", id)
	}

	// NewServerNotFoundError creates an error for an unknown Jenkins
	// server name.
	NewServerNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("jenkins server", name)
	}

	// NewToolNotFoundError creates a tool not found error.
	NewToolNotFoundError = func(name string) *NotFoundError {
		return NewNotFoundError("tool", name)
	}
)

// ValidationError represents a missing or malformed tool argument.
type ValidationError struct {
	// Field is the name of the offending argument
	Field string

	// Message describes what is wrong with it
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("required argument %s is missing", e.Field)
}

// IsValidation checks if an error is a ValidationError using error unwrapping.
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// NewMissingArgError creates a ValidationError for an absent required argument.
func NewMissingArgError(field string) *ValidationError {
	return &ValidationError{Field: field}
}

// NewInvalidArgError creates a ValidationError for a malformed argument.
func NewInvalidArgError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// JenkinsError represents a wire-level failure on a specific Jenkins
// operation. Op labels the failing operation ("create job", "start job",
// "queue poll").
type JenkinsError struct {
	Op     string
	Server string
	Err    error
}

func (e *JenkinsError) Error() string {
	if e.Server != "" {
		return fmt.Sprintf("jenkins %s on %s: %v", e.Op, e.Server, e.Err)
	}
	return fmt.Sprintf("jenkins %s: %v", e.Op, e.Err)
}

func (e *JenkinsError) Unwrap() error {
	return e.Err
}

// IsJenkins checks if an error is a JenkinsError using error unwrapping.
func IsJenkins(err error) bool {
	var jenkinsErr *JenkinsError
	return errors.As(err, &jenkinsErr)
}

// NewJenkinsError wraps a wire failure with its operation label.
func NewJenkinsError(op, server string, err error) *JenkinsError {
	return &JenkinsError{Op: op, Server: server, Err: err}
}

// StoreError represents a non-fatal metadata store failure. Callers log
// it and surface metadata_updated=false alongside the best-known record.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("metadata store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps a store failure with its operation label.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// Common errors for API operations.
var (
	// ErrJenkinsUnreachable indicates the identity check failed twice
	// during connect.
	ErrJenkinsUnreachable = errors.New("jenkins server unreachable")

	// ErrMetadataStoreNotRegistered indicates the metadata store handler is not registered
	ErrMetadataStoreNotRegistered = errors.New("metadata store handler not registered")

	// ErrTemplateManagerNotRegistered indicates the template manager handler is not registered
	ErrTemplateManagerNotRegistered = errors.New("template manager handler not registered")

	// ErrPipelineExecutorNotRegistered indicates the pipeline executor handler is not registered
	ErrPipelineExecutorNotRegistered = errors.New("pipeline executor handler not registered")
)

// Wire-level error codes carried in structured error records.
const (
	CodeInputMissing       = "input_missing"
	CodeTemplateNotFound   = "template_not_found"
	CodeJenkinsfileMissing = "jenkinsfile_not_found"
	CodeExecutionNotFound  = "execution_not_found"
	CodeDeploymentNotFound = "deployment_not_found"
	CodeServerNotFound     = "server_not_found"
	CodeJenkinsUnreachable = "jenkins_unreachable"
	CodeJenkinsAPIError    = "jenkins_api_error"
	CodeStoreError         = "store_error"
	CodeUnknownTool        = "unknown_tool"
	CodeUnexpectedError    = "unexpected_error"
)

// ErrorCode maps an error to the wire-level code used in structured
// error records.
func ErrorCode(err error) string {
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		switch notFound.ResourceType {
		case "template":
			return CodeTemplateNotFound
		case "jenkinsfile":
			return CodeJenkinsfileMissing
		case "execution":
			return CodeExecutionNotFound
		case "deployment":
			return CodeDeploymentNotFound
		case "jenkins server":
			return CodeServerNotFound
		case "tool":
			return CodeUnknownTool
		}
		return CodeUnexpectedError
	}
	if IsValidation(err) {
		return CodeInputMissing
	}
	if errors.Is(err, ErrJenkinsUnreachable) {
		return CodeJenkinsUnreachable
	}
	if IsJenkins(err) {
		return CodeJenkinsAPIError
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return CodeStoreError
	}
	return CodeUnexpectedError
}

// NewSuccessRecord wraps a tool payload with the success envelope.
func NewSuccessRecord(fields map[string]interface{}) *CallToolResult {
	fields["success"] = true
	fields["status"] = "success"
	return &CallToolResult{Content: []interface{}{fields}}
}

// NewErrorRecord builds the structured error record tools return
// instead of a protocol-level failure, so clients always get a
// parseable body.
func NewErrorRecord(err error, fields map[string]interface{}) *CallToolResult {
	fields["success"] = false
	fields["status"] = "error"
	fields["error"] = ErrorCode(err)
	fields["message"] = err.Error()
	return &CallToolResult{Content: []interface{}{fields}, IsError: true}
}

// HandleError creates an appropriate CallToolResult based on the error type.
func HandleError(err error) *CallToolResult {
	return &CallToolResult{
		Content: []interface{}{fmt.Sprintf("Operation failed: %v", err)},
		IsError: true,
	}
}

// HandleErrorWithPrefix creates a CallToolResult with a custom prefix.
func HandleErrorWithPrefix(err error, prefix string) *CallToolResult {
	return &CallToolResult{
		Content: []interface{}{fmt.Sprintf("%s: %v", prefix, err)},
		IsError: true,
	}
}
