package diagram

import "fmt"

// NodeKind classifies a diagram node by the keyword of its recipe line.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindAction    NodeKind = "action"
	NodeKindCondition NodeKind = "condition" // if, elsif, while
	NodeKindLoop      NodeKind = "loop"      // foreach, repeat
	NodeKindTry       NodeKind = "try"
	NodeKindBranch    NodeKind = "branch" // else, catch
	NodeKindStop      NodeKind = "stop"
	NodeKindInvalid   NodeKind = "invalid"
)

// DiagramModel is the intermediate representation used by all renderers.
// Root is the trigger; its children are the top-level actions.
type DiagramModel struct {
	Title string
	Root  *Node
}

// Node represents one recipe line.
type Node struct {
	ID       string
	Line     int
	Label    string
	Kind     NodeKind
	Status   *StatusOverlay
	Children []*Node // block lines
}

// StatusOverlay carries validation findings for a node.
type StatusOverlay struct {
	Errors   int
	Warnings int
	Skipped  bool
}

// status names the dominant finding: invalid, warning, skipped or "".
func (s *StatusOverlay) status() string {
	switch {
	case s == nil:
		return ""
	case s.Errors > 0:
		return "invalid"
	case s.Warnings > 0:
		return "warning"
	case s.Skipped:
		return "skipped"
	}
	return ""
}

// tag is a short bracketed summary such as "[1 error, 2 warnings]".
func (s *StatusOverlay) tag() string {
	if s == nil {
		return ""
	}
	var parts []string
	if s.Errors > 0 {
		parts = append(parts, count(s.Errors, "error"))
	}
	if s.Warnings > 0 {
		parts = append(parts, count(s.Warnings, "warning"))
	}
	if s.Skipped {
		parts = append(parts, "skipped")
	}
	if len(parts) == 0 {
		return ""
	}
	out := "["
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out + "]"
}

func count(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Walk visits every node in pre-order, which is line-number order.
func (m *DiagramModel) Walk(fn func(n *Node, depth int)) {
	if m.Root != nil {
		walk(m.Root, 0, fn)
	}
}

func walk(n *Node, depth int, fn func(*Node, int)) {
	fn(n, depth)
	for _, c := range n.Children {
		walk(c, depth+1, fn)
	}
}
