package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string. Blocks
// become subgraphs; edges follow execution order within each block.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	// Title as comment.
	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}
	if model.Root == nil {
		return b.String()
	}

	b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(model.Root)))
	writeMermaidNodes(&b, model.Root.Children, "    ")
	writeMermaidEdges(&b, model.Root)

	// Status class definitions.
	b.WriteString("\n")
	b.WriteString("    classDef invalid fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef warning fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef skipped fill:#4a4a4a,stroke:#333,color:#aaa,stroke-dasharray:5 5\n")

	model.Walk(func(n *Node, _ int) {
		if cls := n.Status.status(); cls != "" {
			b.WriteString(fmt.Sprintf("    class %s %s\n", n.ID, cls))
		}
	})

	return b.String()
}

func writeMermaidNodes(b *strings.Builder, nodes []*Node, indent string) {
	for _, n := range nodes {
		b.WriteString(fmt.Sprintf("%s%s\n", indent, mermaidNodeDef(n)))
		if len(n.Children) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("%ssubgraph %s_block[\"%s\"]\n", indent, n.ID, mermaidEscapeLabel(blockLabel(n))))
		writeMermaidNodes(b, n.Children, indent+"    ")
		b.WriteString(indent + "end\n")
	}
}

// writeMermaidEdges links a parent to its first child and chains siblings.
func writeMermaidEdges(b *strings.Builder, parent *Node) {
	if len(parent.Children) == 0 {
		return
	}
	label := ""
	if l := edgeLabel(parent.Kind); l != "" {
		label = fmt.Sprintf("|%s|", l)
	}
	b.WriteString(fmt.Sprintf("    %s -->%s %s\n", parent.ID, label, parent.Children[0].ID))
	for i := 1; i < len(parent.Children); i++ {
		b.WriteString(fmt.Sprintf("    %s --> %s\n", parent.Children[i-1].ID, parent.Children[i].ID))
	}
	for _, child := range parent.Children {
		writeMermaidEdges(b, child)
	}
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape.
func mermaidNodeDef(node *Node) string {
	label := mermaidEscapeLabel(fmt.Sprintf("%d %s", node.Line, node.Label))

	switch node.Kind {
	case NodeKindTrigger, NodeKindStop:
		return fmt.Sprintf("%s((\"%s\"))", node.ID, label)
	case NodeKindCondition:
		return fmt.Sprintf("%s{\"%s\"}", node.ID, label)
	case NodeKindLoop, NodeKindTry:
		return fmt.Sprintf("%s[[\"%s\"]]", node.ID, label)
	case NodeKindBranch:
		return fmt.Sprintf("%s([\"%s\"])", node.ID, label)
	case NodeKindInvalid:
		return fmt.Sprintf("%s>\"%s\"]", node.ID, label)
	default: // action
		return fmt.Sprintf("%s[\"%s\"]", node.ID, label)
	}
}

// mermaidEscapeLabel escapes characters that end a quoted Mermaid label.
func mermaidEscapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func blockLabel(n *Node) string {
	return fmt.Sprintf("%d %s block", n.Line, firstWord(n.Label))
}

// edgeLabel names the edge from a line into its block.
func edgeLabel(kind NodeKind) string {
	switch kind {
	case NodeKindCondition:
		return "true"
	case NodeKindLoop:
		return "each"
	default:
		return ""
	}
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
