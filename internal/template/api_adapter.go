package template

import (
	"context"
	"fmt"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

// Adapter exposes the Manager through the central API layer and
// provides the template tools.
type Adapter struct {
	manager *Manager
}

// NewAdapter creates a new template manager API adapter.
func NewAdapter(manager *Manager) *Adapter {
	return &Adapter{manager: manager}
}

// Register registers this adapter with the central API layer. This
// method follows the project's API service locator pattern.
func (a *Adapter) Register() {
	api.RegisterTemplateManager(a)
	logging.Info("TemplateAdapter", "Registered template manager with API layer")
}

// TemplateManagerHandler delegation.

func (a *Adapter) ReadJenkinsfile(name string) (string, error) {
	return a.manager.ReadJenkinsfile(name)
}

func (a *Adapter) WriteJenkinsfile(name, content string) error {
	return a.manager.WriteJenkinsfile(name, content)
}

func (a *Adapter) CreateTemplate(ctx context.Context, req api.CreateTemplateRequest) (*api.TemplateRecord, error) {
	return a.manager.CreateTemplate(ctx, req)
}

func (a *Adapter) EditTemplate(ctx context.Context, req api.EditTemplateRequest) (*api.EditResult, error) {
	return a.manager.EditTemplate(ctx, req)
}

func (a *Adapter) ListTemplates(ctx context.Context) ([]api.TemplateSummary, error) {
	return a.manager.ListTemplates(ctx)
}

// GetTools returns the tool catalog for template management.
func (a *Adapter) GetTools() []api.ToolMetadata {
	return []api.ToolMetadata{
		{
			Name:        "create_template",
			Description: "Create or modify a template in the templates directory",
			Args: []api.ArgMetadata{
				{Name: "template_name", Type: "string", Required: true, Description: "Name of the template to create (without .Jenkinsfile extension)"},
				{Name: "description", Type: "string", Required: true, Description: "Description of what the pipeline should do"},
				{Name: "agent", Type: "string", Required: false, Description: "Agent to use (default is 'any')", Default: "any"},
				{Name: "environment", Type: "array", Required: false, Description: "List of environment variables to set",
					Schema: map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}}},
			},
		},
		{
			Name:        "edit_template",
			Description: "Edit an existing template in the templates directory",
			Args: []api.ArgMetadata{
				{Name: "template_name", Type: "string", Required: true, Description: "Name of the template to edit (without .Jenkinsfile extension)"},
				{Name: "content", Type: "string", Required: true, Description: "New content for the template"},
				{Name: "diff_preview", Type: "boolean", Required: false, Description: "If true, return a diff preview without saving changes", Default: false},
				{Name: "description", Type: "string", Required: false, Description: "Updated description for the template (optional)"},
			},
		},
		{
			Name:        "list_templates",
			Description: "List all available pipeline templates",
			Args:        []api.ArgMetadata{},
		},
	}
}

// ExecuteTool dispatches a template tool call.
func (a *Adapter) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*api.CallToolResult, error) {
	switch toolName {
	case "create_template":
		return a.handleCreateTemplate(ctx, args)
	case "edit_template":
		return a.handleEditTemplate(ctx, args)
	case "list_templates":
		return a.handleListTemplates(ctx)
	default:
		return nil, api.NewToolNotFoundError(toolName)
	}
}

func (a *Adapter) handleCreateTemplate(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	var req api.CreateTemplateRequest
	if err := api.ParseRequest(args, &req); err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{}), nil
	}

	record, err := a.manager.CreateTemplate(ctx, req)
	if err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{"template_name": req.Name}), nil
	}

	content, readErr := a.manager.ReadJenkinsfile(req.Name)
	if readErr != nil {
		logging.Warn("TemplateAdapter", "Created template %s but could not read it back: %v", req.Name, readErr)
	}

	return api.NewSuccessRecord(map[string]interface{}{
		"template_name": record.Name,
		"message":       fmt.Sprintf("Created template %s", record.Name),
		"path":          record.TemplatePath,
		"version":       record.Version,
		"content":       content,
	}), nil
}

func (a *Adapter) handleEditTemplate(ctx context.Context, args map[string]interface{}) (*api.CallToolResult, error) {
	var req api.EditTemplateRequest
	if err := api.ParseRequest(args, &req); err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{}), nil
	}

	result, err := a.manager.EditTemplate(ctx, req)
	if err != nil {
		return api.NewErrorRecord(err, map[string]interface{}{"template_name": req.Name}), nil
	}

	record := map[string]interface{}{
		"success":       true,
		"template_name": result.Name,
		"status":        result.Status,
		"message":       result.Message,
	}
	if result.Diff != "" {
		record["diff"] = result.Diff
	}
	if result.Version > 0 {
		record["version"] = result.Version
	}
	return &api.CallToolResult{Content: []interface{}{record}}, nil
}

func (a *Adapter) handleListTemplates(ctx context.Context) (*api.CallToolResult, error) {
	templates, err := a.manager.ListTemplates(ctx)
	if err != nil {
		record := map[string]interface{}{
			"status":    "error",
			"error":     api.ErrorCode(err),
			"message":   fmt.Sprintf("Error listing templates: %v", err),
			"templates": []interface{}{},
		}
		return &api.CallToolResult{Content: []interface{}{record}, IsError: true}, nil
	}

	if len(templates) == 0 {
		return &api.CallToolResult{Content: []interface{}{map[string]interface{}{
			"templates": []interface{}{},
			"count":     0,
			"message":   "No templates found",
		}}}, nil
	}

	return &api.CallToolResult{Content: []interface{}{map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
		"status":    "success",
	}}}, nil
}
