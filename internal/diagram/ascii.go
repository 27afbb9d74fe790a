package diagram

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderASCII renders a DiagramModel as an indented outline with one row
// per recipe line, prefixed by its line number:
//
//	0  trigger scheduler/scheduled_job
//	1  ├── action http/get_request as fetch
//	2  └── if [1 error]
//	3      └── stop
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("=== %s ===\n\n", model.Title))
	}
	if model.Root == nil {
		return b.String()
	}

	maxLine := 0
	model.Walk(func(n *Node, _ int) { maxLine = max(maxLine, n.Line) })
	width := len(strconv.Itoa(maxLine))

	writeRow(&b, model.Root, "", width)
	renderChildren(&b, model.Root.Children, "", width)
	return b.String()
}

func renderChildren(b *strings.Builder, children []*Node, prefix string, width int) {
	for i, child := range children {
		connector, indent := "├── ", "│   "
		if i == len(children)-1 {
			connector, indent = "└── ", "    "
		}
		writeRow(b, child, prefix+connector, width)
		renderChildren(b, child.Children, prefix+indent, width)
	}
}

func writeRow(b *strings.Builder, n *Node, prefix string, width int) {
	b.WriteString(fmt.Sprintf("%*d  %s%s", width, n.Line, prefix, n.Label))
	if tag := n.Status.tag(); tag != "" {
		b.WriteString(" " + tag)
	}
	b.WriteByte('\n')
}
