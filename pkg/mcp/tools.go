package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rendis/recipelint/internal/expressions"
)

// handleValidate validates a recipe given as an object or a JSON string.
func (s *RecipeServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if raw := req.GetString("recipe_json", ""); raw != "" {
		result, err := s.validator.ValidateJSON(ctx, []byte(raw))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid recipe_json: %v", err)), nil
		}
		return marshalResult(result)
	}

	doc := mcp.ParseStringMap(req, "recipe", nil)
	if doc == nil {
		return mcp.NewToolResultError("recipe or recipe_json is required"), nil
	}
	return marshalResult(s.validator.Validate(ctx, doc))
}

// classifyResponse is the recipe.classify payload.
type classifyResponse struct {
	Mode        expressions.InputMode      `json:"mode"`
	Mixed       bool                       `json:"mixed"`
	MixedOffset *int                       `json:"mixed_offset,omitempty"`
	References  []expressions.DataPill     `json:"references"`
	Issues      []expressions.FormulaIssue `json:"issues"`
}

func (s *RecipeServer) handleClassify(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError("value is required"), nil
	}

	c := expressions.Classify(value)
	resp := classifyResponse{
		Mode:       c.Mode,
		Mixed:      c.Mixed,
		References: c.References(),
		Issues:     []expressions.FormulaIssue{},
	}
	if c.Mixed {
		resp.MixedOffset = &c.MixedOffset
	}
	if resp.References == nil {
		resp.References = []expressions.DataPill{}
	}
	if c.Formula != nil {
		resp.Issues = append(resp.Issues, c.Formula.Issues...)
	}
	for _, perr := range c.PillErrors {
		resp.Issues = append(resp.Issues, expressions.FormulaIssue{Offset: perr.Offset, Message: perr.Message})
	}
	return marshalResult(resp)
}

func (s *RecipeServer) handleSchemas(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := s.schemas.ListSchemas(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list schemas failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"schemas": infos, "count": len(infos)})
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
