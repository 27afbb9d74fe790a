package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/recipelint/internal/logging"
	"github.com/rendis/recipelint/internal/store"
	"github.com/rendis/recipelint/internal/validation"
)

// ServerDeps holds the dependencies for creating a RecipeServer.
type ServerDeps struct {
	Validator *validation.RecipeValidator
	// Schemas is optional; when set the schemas.list tool is registered.
	Schemas store.SchemaStore
	Logger  *slog.Logger
	Version string
}

// RecipeServer wraps an MCP server with recipe validation tools.
type RecipeServer struct {
	validator *validation.RecipeValidator
	schemas   store.SchemaStore
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewRecipeServer creates a RecipeServer with its tools registered. A nil
// Validator is replaced by one without metadata or rules.
func NewRecipeServer(deps ServerDeps) (*RecipeServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	v := deps.Validator
	if v == nil {
		var err error
		if v, err = validation.NewRecipeValidator(validation.Options{Logger: logger}); err != nil {
			return nil, err
		}
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &RecipeServer{
		validator: v,
		schemas:   deps.Schemas,
		logger:    logger,
	}

	mcpSrv := server.NewMCPServer(
		"recipelint",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("recipelint statically checks Workato recipes. Use recipe.validate on a whole recipe "+
			"to get line-numbered errors, and recipe.classify to see how a single input value is interpreted."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *RecipeServer) Serve(ctx context.Context) error {
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *RecipeServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *RecipeServer) tools() []server.ServerTool {
	tools := []server.ServerTool{
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: classifyTool(), Handler: s.handleClassify},
	}
	if s.schemas != nil {
		tools = append(tools, server.ServerTool{Tool: schemasTool(), Handler: s.handleSchemas})
	}
	return tools
}

// --- Tool definitions ---

func validateTool() mcp.Tool {
	return mcp.NewTool("recipe.validate",
		mcp.WithDescription("Validate a Workato recipe and report line-numbered errors"),
		mcp.WithObject("recipe", mcp.Description("Recipe document with trigger and actions")),
		mcp.WithString("recipe_json", mcp.Description("Recipe document as a JSON string (alternative to recipe)")),
	)
}

func classifyTool() mcp.Tool {
	return mcp.NewTool("recipe.classify",
		mcp.WithDescription("Classify one input value as literal, formula or interpolated and check its syntax"),
		mcp.WithString("value", mcp.Required(), mcp.Description("Input field value, e.g. =_dp('trigger.id') or #{_dp('1.body')}")),
	)
}

func schemasTool() mcp.Tool {
	return mcp.NewTool("schemas.list",
		mcp.WithDescription("List the connector schemas available for adapter checks"),
	)
}
