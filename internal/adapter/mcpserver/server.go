// Package mcpserver exposes the Figma tool catalog over MCP stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nmfisher/figma-mcp/internal/domain"
)

const (
	serverName    = "figma"
	serverVersion = "0.1.0"
)

// Server wires the tool catalog to a command executor and serves MCP
// requests over stdio. Stdout carries MCP framing only; all logging
// goes to the injected logger (stderr or a file).
type Server struct {
	mcp      *server.MCPServer
	exec     domain.CommandExecutor
	logger   *slog.Logger
	catalog  []ToolDef
	compiled map[string]*jsonschema.Schema
}

// New builds a Server exposing every catalog tool. It fails if any tool
// schema does not compile.
func New(exec domain.CommandExecutor, logger *slog.Logger) (*Server, error) {
	s := &Server{
		mcp: server.NewMCPServer(serverName, serverVersion,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		exec:     exec,
		logger:   logger,
		catalog:  Catalog(),
		compiled: make(map[string]*jsonschema.Schema),
	}

	compiler := jsonschema.NewCompiler()
	for _, def := range s.catalog {
		schema, err := compiler.Compile([]byte(def.Schema))
		if err != nil {
			return nil, fmt.Errorf("compile schema for tool %q: %w", def.Name, err)
		}
		s.compiled[def.Name] = schema

		tool := mcp.NewToolWithRawSchema(def.Name, def.Description, json.RawMessage(def.Schema))
		s.mcp.AddTool(tool, s.handler(def.Name))
	}

	return s, nil
}

// Serve runs the MCP server on stdin/stdout until ctx is cancelled or
// stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio", "tools", len(s.catalog))
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		if result := s.compiled[name].Validate(args); !result.IsValid() {
			s.logger.Debug("tool arguments rejected", "tool", name, "error", result.Error())
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments for %s: %s", name, result.Error())), nil
		}

		out, err := s.exec.Execute(ctx, name, args)
		if err != nil {
			return mcp.NewToolResultError(toolErrorText(err)), nil
		}

		if name == "export-selection" {
			return exportResult(args, out)
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

// toolErrorText renders an execution error for the model. Timeouts get a
// hint about the plugin connection since that is the usual cause.
func toolErrorText(err error) string {
	if errors.Is(err, domain.ErrCommandTimeout) {
		return "operation timed out - ensure the Figma plugin is connected"
	}
	return fmt.Sprintf("failed to execute tool: %v", err)
}

// exportResult converts an export-selection reply into an image content
// block. The plugin returns {"data": "<base64>"} with the payload encoded
// in the requested format.
func exportResult(args map[string]any, out json.RawMessage) (*mcp.CallToolResult, error) {
	var payload struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(out, &payload); err != nil || payload.Data == "" {
		// Plugin answered with something other than export data;
		// surface it verbatim.
		return mcp.NewToolResultText(string(out)), nil
	}

	format, _ := args["format"].(string)
	return mcp.NewToolResultImage("exported selection", payload.Data, exportMIMEType(format)), nil
}

func exportMIMEType(format string) string {
	switch strings.ToUpper(format) {
	case "JPG", "JPEG":
		return "image/jpeg"
	case "SVG":
		return "image/svg+xml"
	case "PDF":
		return "application/pdf"
	default:
		return "image/png"
	}
}
