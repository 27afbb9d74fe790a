package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// Image formats supported by RenderImage.
const (
	ImagePNG = graphviz.PNG
	ImageSVG = graphviz.SVG
)

// RenderImage renders a DiagramModel with graphviz in the given format.
// Blocks become dashed clusters.
func RenderImage(ctx context.Context, model *DiagramModel, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	if model.Root != nil {
		gvNodes := map[string]*cgraph.Node{}
		if err := addNode(graph, model.Root, gvNodes); err != nil {
			return nil, err
		}
		if err := addBlock(graph, model.Root, gvNodes); err != nil {
			return nil, err
		}
		if err := addEdges(graph, model.Root, gvNodes); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func addNode(g *cgraph.Graph, n *Node, gvNodes map[string]*cgraph.Node) error {
	gvNode, err := g.CreateNodeByName(n.ID)
	if err != nil {
		return fmt.Errorf("diagram: create node %s: %w", n.ID, err)
	}
	label := fmt.Sprintf("%d %s", n.Line, n.Label)
	if tag := n.Status.tag(); tag != "" {
		label += "\n" + tag
	}
	gvNode.SetLabel(label)
	applyNodeStyle(gvNode, n)
	gvNodes[n.ID] = gvNode
	return nil
}

// addBlock places the children of n in g, each nested block in its own
// cluster. The root's children sit directly in the top-level graph.
func addBlock(g *cgraph.Graph, n *Node, gvNodes map[string]*cgraph.Node) error {
	for _, child := range n.Children {
		if err := addNode(g, child, gvNodes); err != nil {
			return err
		}
		if len(child.Children) == 0 {
			continue
		}
		sub, err := g.CreateSubGraphByName("cluster_" + child.ID)
		if err != nil {
			return fmt.Errorf("diagram: create cluster for %s: %w", child.ID, err)
		}
		sub.SetLabel(blockLabel(child))
		sub.SetStyle(cgraph.DashedGraphStyle)
		if err := addBlock(sub, child, gvNodes); err != nil {
			return err
		}
	}
	return nil
}

func addEdges(g *cgraph.Graph, parent *Node, gvNodes map[string]*cgraph.Node) error {
	if len(parent.Children) == 0 {
		return nil
	}
	link := func(from, to *Node, label string) error {
		e, err := g.CreateEdgeByName("", gvNodes[from.ID], gvNodes[to.ID])
		if err != nil {
			return fmt.Errorf("diagram: create edge %s -> %s: %w", from.ID, to.ID, err)
		}
		if label != "" {
			e.SetLabel(label)
		}
		return nil
	}

	if err := link(parent, parent.Children[0], edgeLabel(parent.Kind)); err != nil {
		return err
	}
	for i := 1; i < len(parent.Children); i++ {
		if err := link(parent.Children[i-1], parent.Children[i], ""); err != nil {
			return err
		}
	}
	for _, child := range parent.Children {
		if err := addEdges(g, child, gvNodes); err != nil {
			return err
		}
	}
	return nil
}

// applyNodeStyle sets graphviz attributes based on node kind and status.
func applyNodeStyle(gvNode *cgraph.Node, node *Node) {
	// Shape by kind.
	switch node.Kind {
	case NodeKindAction, NodeKindLoop, NodeKindTry:
		gvNode.SetShape(cgraph.BoxShape)
	case NodeKindCondition:
		gvNode.SetShape(cgraph.DiamondShape)
	case NodeKindBranch:
		gvNode.SetShape(cgraph.EllipseShape)
	case NodeKindInvalid:
		gvNode.SetShape(cgraph.HexagonShape)
	case NodeKindTrigger, NodeKindStop:
		gvNode.SetShape(cgraph.CircleShape)
	}

	// Color by status.
	switch node.Status.status() {
	case "invalid":
		gvNode.SetStyle(cgraph.FilledNodeStyle)
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
	case "warning":
		gvNode.SetStyle(cgraph.FilledNodeStyle)
		gvNode.SetFillColor("#b7791a")
		gvNode.SetFontColor("white")
	case "skipped":
		gvNode.SetStyle(cgraph.DashedNodeStyle)
		gvNode.SetFontColor("#888888")
	}
}
