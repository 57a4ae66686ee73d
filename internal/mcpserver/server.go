package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"craftfolio/internal/logging"
	"craftfolio/internal/tools"
)

// NewServer exposes the app's operation registry as an MCP server. Each
// registered operation becomes one MCP tool; calling a tool counts as an
// explicit intent match, so deep-context operations are reachable here.
func NewServer(app *App) *server.MCPServer {
	s := server.NewMCPServer(
		"craftfolio",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	for _, op := range app.Registry.All() {
		s.AddTool(toolDefinition(op), app.toolHandler(op.Name))
	}
	return s
}

// ServeStdio runs the MCP server over stdio until the transport closes.
func ServeStdio(app *App) error {
	logging.Server("serving %d operations over stdio", len(app.Registry.All()))
	return server.ServeStdio(NewServer(app))
}

func toolDefinition(op *tools.Operation) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(op.Description)}
	for name, prop := range op.Input {
		var fieldOpts []mcp.PropertyOption
		if prop.Required {
			fieldOpts = append(fieldOpts, mcp.Required())
		}
		fieldOpts = append(fieldOpts, mcp.Description(prop.Description))

		switch prop.Type {
		case "array":
			opts = append(opts, mcp.WithArray(name, fieldOpts...))
		case "number":
			opts = append(opts, mcp.WithNumber(name, fieldOpts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(name, fieldOpts...))
		default:
			opts = append(opts, mcp.WithString(name, fieldOpts...))
		}
	}
	return mcp.NewTool(op.Name, opts...)
}

// toolHandler adapts a registry operation to the MCP handler signature.
// Operation-level validation errors come back as tool errors so the caller
// can correct its input; infrastructure failures propagate as real errors.
func (a *App) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		out, err := a.Registry.Invoke(ctx, name, args, true)
		if err != nil {
			if errors.Is(err, tools.ErrOperationUnknown) {
				return nil, err
			}
			return mcp.NewToolResultError(err.Error()), nil
		}

		blob, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s result: %w", name, err)
		}
		return mcp.NewToolResultText(string(blob)), nil
	}
}

func serverInstructions() string {
	return `craftfolio turns a tradesperson's account of a finished job into a
polished portfolio page. Drive it conversationally with chat-turn; the other
operations are direct shortcuts. State lives server-side per project_id, so
every call only needs the id and the new information. check-readiness is
advisory: the user can always publish.`
}
