package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/recipelint/internal/recipe"
	"github.com/rendis/recipelint/pkg/schema"
)

// ordersRecipe numbers as:
// 0 trigger, 1 fetch, 2 if, 3 post (skipped), 4 else, 5 stop, 6 foreach, 7 get.
func ordersRecipe() map[string]any {
	fetch := map[string]any{"provider": "http", "name": "get_request", "as": "fetch", "input": map[string]any{}}
	post := map[string]any{"provider": "http", "name": "post_request", "skip": true, "input": map[string]any{}}
	get := map[string]any{"provider": "http", "name": "get_request", "input": map[string]any{}}
	return map[string]any{
		"name":    "orders",
		"trigger": map[string]any{"provider": "scheduler", "name": "scheduled_job", "input": map[string]any{}},
		"actions": []any{
			fetch,
			map[string]any{"keyword": "if", "input": map[string]any{}, "block": []any{
				post,
				map[string]any{"keyword": "else", "block": []any{map[string]any{"keyword": "stop"}}},
			}},
			map[string]any{"keyword": "foreach", "input": map[string]any{}, "block": []any{get}},
		},
	}
}

func ordersResult() *schema.ValidationResult {
	r := &schema.ValidationResult{}
	r.Add(
		schema.NewValidationError(schema.ErrStructureInvalid, "document problem", nil, []string{"name"}),
		schema.NewValidationError(schema.ErrFormulaSyntaxInvalid, "bad formula", schema.LineRef(2), []string{"operand"}),
		schema.NewValidationError(schema.ErrRuleViolation, "style", schema.LineRef(7), nil).AsWarning(),
	)
	return r
}

func ordersModel(t *testing.T) *DiagramModel {
	t.Helper()
	tree := recipe.Walk(ordersRecipe())
	require.Empty(t, tree.Errors)
	return Build("orders", tree, ordersResult())
}

func TestBuild(t *testing.T) {
	model := ordersModel(t)
	require.NotNil(t, model.Root)
	assert.Equal(t, "orders", model.Title)

	var lines []int
	kinds := map[int]NodeKind{}
	labels := map[int]string{}
	model.Walk(func(n *Node, _ int) {
		lines = append(lines, n.Line)
		kinds[n.Line] = n.Kind
		labels[n.Line] = n.Label
	})
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, lines, "pre-order walk is line order")

	assert.Equal(t, NodeKindTrigger, kinds[0])
	assert.Equal(t, NodeKindAction, kinds[1])
	assert.Equal(t, NodeKindCondition, kinds[2])
	assert.Equal(t, NodeKindBranch, kinds[4])
	assert.Equal(t, NodeKindStop, kinds[5])
	assert.Equal(t, NodeKindLoop, kinds[6])

	assert.Equal(t, "trigger scheduler/scheduled_job", labels[0])
	assert.Equal(t, "action http/get_request as fetch", labels[1])
	assert.Equal(t, "if", labels[2])
}

func TestBuild_StatusOverlay(t *testing.T) {
	model := ordersModel(t)
	status := map[int]*StatusOverlay{}
	model.Walk(func(n *Node, _ int) { status[n.Line] = n.Status })

	assert.Nil(t, status[0], "document-level issues have no line")
	assert.Equal(t, &StatusOverlay{Errors: 1}, status[2])
	assert.Equal(t, &StatusOverlay{Skipped: true}, status[3])
	assert.Equal(t, &StatusOverlay{Warnings: 1}, status[7])
	assert.Nil(t, status[1])
}

func TestBuild_InvalidLines(t *testing.T) {
	tree := recipe.Walk(map[string]any{
		"trigger": map[string]any{"provider": "scheduler", "name": "scheduled_job", "input": map[string]any{}},
		"actions": []any{"oops"},
	})
	model := Build("", tree, nil)
	require.Len(t, model.Root.Children, 1)
	n := model.Root.Children[0]
	assert.Equal(t, NodeKindInvalid, n.Kind)
	assert.Equal(t, "invalid line", n.Label)
	assert.Equal(t, "line_1", n.ID)
}

func TestBuild_NilTree(t *testing.T) {
	model := Build("empty", nil, nil)
	assert.Nil(t, model.Root)
	assert.Equal(t, "=== empty ===\n\n", RenderASCII(model))
	assert.Equal(t, "graph TD\n    %% empty\n", RenderMermaid(model))
}

func TestStatusOverlay_Tag(t *testing.T) {
	var none *StatusOverlay
	assert.Equal(t, "", none.tag())
	assert.Equal(t, "", (&StatusOverlay{}).tag())
	assert.Equal(t, "[1 error]", (&StatusOverlay{Errors: 1}).tag())
	assert.Equal(t, "[2 errors, 1 warning, skipped]", (&StatusOverlay{Errors: 2, Warnings: 1, Skipped: true}).tag())
	assert.Equal(t, "invalid", (&StatusOverlay{Errors: 1, Skipped: true}).status())
	assert.Equal(t, "skipped", (&StatusOverlay{Skipped: true}).status())
}
