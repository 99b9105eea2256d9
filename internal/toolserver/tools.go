package toolserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"miladyos/internal/api"
	"miladyos/pkg/logging"
	strutil "miladyos/pkg/strings"
)

// resultPreviewLen bounds the tool result excerpt written to the debug log.
const resultPreviewLen = 120

// collectProviders gathers the registered handlers that offer tools.
func collectProviders() []api.ToolProvider {
	var providers []api.ToolProvider
	if provider, ok := api.GetTemplateManager().(api.ToolProvider); ok {
		providers = append(providers, provider)
	}
	if provider, ok := api.GetPipelineExecutor().(api.ToolProvider); ok {
		providers = append(providers, provider)
	}
	return providers
}

// buildTools converts every provider tool into a registered MCP tool
// with its dispatch handler.
func buildTools(providers []api.ToolProvider) []mcpserver.ServerTool {
	var tools []mcpserver.ServerTool
	for _, provider := range providers {
		for _, metadata := range provider.GetTools() {
			tools = append(tools, mcpserver.ServerTool{
				Tool: mcp.Tool{
					Name:        metadata.Name,
					Description: metadata.Description,
					InputSchema: convertToMCPSchema(metadata.Args),
				},
				Handler: makeToolHandler(provider, metadata.Name),
			})
		}
	}
	return tools
}

// makeToolHandler builds the MCP dispatch closure for one tool. Handler
// errors become structured error records; an empty result is replaced
// with a generic success record so clients never see an empty body.
func makeToolHandler(provider api.ToolProvider, toolName string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logging.Debug("ToolServer", "Executing tool %s", toolName)

		result, err := provider.ExecuteTool(ctx, toolName, request.GetArguments())
		if err != nil {
			logging.Error("ToolServer", err, "Tool %s failed", toolName)
			return convertToMCPResult(api.NewErrorRecord(err, map[string]interface{}{
				"tool": toolName,
			})), nil
		}

		if isEmptyResult(result) {
			result = &api.CallToolResult{Content: []interface{}{map[string]interface{}{
				"status":  "success",
				"message": "Operation completed successfully",
			}}}
		}

		logging.Debug("ToolServer", "Tool %s returned: %s", toolName,
			strutil.TruncateDescription(renderContent(result.Content[0]), resultPreviewLen))
		return convertToMCPResult(result), nil
	}
}

// isEmptyResult reports whether a handler produced nothing a client
// could parse.
func isEmptyResult(result *api.CallToolResult) bool {
	if result == nil || len(result.Content) == 0 {
		return true
	}
	if len(result.Content) == 1 {
		if text, ok := result.Content[0].(string); ok && text == "" {
			return true
		}
	}
	return false
}
