package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMermaid(t *testing.T) {
	output := RenderMermaid(ordersModel(t))

	assert.True(t, strings.HasPrefix(output, "graph TD\n    %% orders\n"))

	// Node shapes by kind.
	assert.Contains(t, output, `line_0(("0 trigger scheduler/scheduled_job"))`)
	assert.Contains(t, output, `line_1["1 action http/get_request as fetch"]`)
	assert.Contains(t, output, `line_2{"2 if"}`)
	assert.Contains(t, output, `line_4(["4 else"])`)
	assert.Contains(t, output, `line_6[["6 foreach"]]`)

	// Blocks become nested subgraphs.
	assert.Contains(t, output, "    subgraph line_2_block[\"2 if block\"]\n        line_3[")
	assert.Contains(t, output, "        subgraph line_4_block[\"4 else block\"]\n            line_5((")

	// Edges follow execution order.
	for _, edge := range []string{
		"line_0 --> line_1",
		"line_1 --> line_2",
		"line_2 -->|true| line_3",
		"line_3 --> line_4",
		"line_4 --> line_5",
		"line_2 --> line_6",
		"line_6 -->|each| line_7",
	} {
		assert.Contains(t, output, "    "+edge+"\n")
	}
	assert.NotContains(t, output, "line_5 --> line_6")

	// Status classes.
	assert.Contains(t, output, "classDef invalid")
	assert.Contains(t, output, "class line_2 invalid\n")
	assert.Contains(t, output, "class line_3 skipped\n")
	assert.Contains(t, output, "class line_7 warning\n")
	assert.NotContains(t, output, "class line_1 ")
}

func TestMermaidEscapeLabel(t *testing.T) {
	assert.Equal(t, "as #quot;x#quot;", mermaidEscapeLabel(`as "x"`))
	assert.Equal(t, `line_1["1 action a/b as #quot;q"]`, mermaidNodeDef(&Node{ID: "line_1", Line: 1, Label: `action a/b as "q`, Kind: NodeKindAction}))
}
