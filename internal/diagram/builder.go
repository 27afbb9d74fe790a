package diagram

import (
	"fmt"

	"github.com/rendis/recipelint/internal/recipe"
	"github.com/rendis/recipelint/pkg/schema"
)

// Build converts a walked recipe into a DiagramModel. When result is not
// nil, its issues are counted onto the lines they belong to; document-level
// issues have no line and are left out.
func Build(title string, tree *recipe.Tree, result *schema.ValidationResult) *DiagramModel {
	model := &DiagramModel{Title: title}
	if tree == nil || tree.Root == nil {
		return model
	}

	overlays := map[int]*StatusOverlay{}
	overlay := func(n int) *StatusOverlay {
		if overlays[n] == nil {
			overlays[n] = &StatusOverlay{}
		}
		return overlays[n]
	}
	if result != nil {
		for _, e := range result.Errors {
			if e.Line != nil {
				overlay(*e.Line).Errors++
			}
		}
		for _, e := range result.Warnings {
			if e.Line != nil {
				overlay(*e.Line).Warnings++
			}
		}
	}
	for _, n := range tree.Order {
		if tree.Lines[n].Skip {
			overlay(n).Skipped = true
		}
	}

	model.Root = buildNode(tree.Root, overlays)
	return model
}

func buildNode(l *recipe.Line, overlays map[int]*StatusOverlay) *Node {
	n := &Node{
		ID:     fmt.Sprintf("line_%d", l.Number),
		Line:   l.Number,
		Kind:   kindOf(l.Keyword),
		Label:  lineLabel(l),
		Status: overlays[l.Number],
	}
	for _, child := range l.Block {
		n.Children = append(n.Children, buildNode(child, overlays))
	}
	return n
}

func kindOf(kw recipe.Keyword) NodeKind {
	switch kw {
	case recipe.KeywordTrigger:
		return NodeKindTrigger
	case recipe.KeywordAction:
		return NodeKindAction
	case recipe.KeywordIf, recipe.KeywordElsif, recipe.KeywordWhile:
		return NodeKindCondition
	case recipe.KeywordForeach, recipe.KeywordRepeat:
		return NodeKindLoop
	case recipe.KeywordTry:
		return NodeKindTry
	case recipe.KeywordElse, recipe.KeywordCatch:
		return NodeKindBranch
	case recipe.KeywordStop:
		return NodeKindStop
	default:
		return NodeKindInvalid
	}
}

// lineLabel renders e.g. "action http/get_request as fetch" or "foreach".
func lineLabel(l *recipe.Line) string {
	if l.Keyword == "" {
		return "invalid line"
	}
	label := string(l.Keyword)
	if l.Provider != "" || l.Name != "" {
		label += " " + l.Label()
	}
	if l.As != "" {
		label += " as " + l.As
	}
	return label
}
