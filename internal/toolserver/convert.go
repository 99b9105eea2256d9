package toolserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"miladyos/internal/api"
)

// convertToMCPSchema renders arg metadata as the JSON-schema object MCP
// clients expect. A detailed Schema on an arg takes precedence over its
// basic Type.
func convertToMCPSchema(args []api.ArgMetadata) mcp.ToolInputSchema {
	properties := make(map[string]interface{})
	required := []string{}

	for _, arg := range args {
		var propSchema map[string]interface{}
		if len(arg.Schema) > 0 {
			propSchema = make(map[string]interface{}, len(arg.Schema)+1)
			for key, value := range arg.Schema {
				propSchema[key] = value
			}
			if arg.Description != "" {
				propSchema["description"] = arg.Description
			}
		} else {
			propSchema = map[string]interface{}{
				"type":        arg.Type,
				"description": arg.Description,
			}
		}
		if arg.Default != nil {
			propSchema["default"] = arg.Default
		}

		properties[arg.Name] = propSchema
		if arg.Required {
			required = append(required, arg.Name)
		}
	}

	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// convertToMCPResult serializes a tool result into MCP text content.
// String elements pass through; everything else is JSON-marshaled.
func convertToMCPResult(result *api.CallToolResult) *mcp.CallToolResult {
	content := make([]mcp.Content, len(result.Content))
	for i, element := range result.Content {
		content[i] = mcp.NewTextContent(renderContent(element))
	}
	return &mcp.CallToolResult{
		Content: content,
		IsError: result.IsError,
	}
}

func renderContent(element interface{}) string {
	if text, ok := element.(string); ok {
		return text
	}
	data, err := json.Marshal(element)
	if err != nil {
		return fmt.Sprintf("%v", element)
	}
	return string(data)
}
