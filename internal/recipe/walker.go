package recipe

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/rendis/recipelint/pkg/schema"
)

// Tree is the numbered, scoped view of a recipe produced by Walk.
type Tree struct {
	Root *Line
	// Lines maps line numbers to lines; the trigger is line 0.
	Lines map[int]*Line
	// Order holds line numbers in pre-order traversal order.
	Order []int
	// Upstream maps a line to the ascending line numbers visible to it.
	Upstream map[int][]int
	Aliases  map[string]int
	UUIDs    map[string]int

	// Errors and Warnings are document-level issues.
	Errors   []schema.ValidationError
	Warnings []schema.ValidationError

	lineIssues map[int][]schema.ValidationError
	excluded   map[int]bool
}

// Len returns the number of lines, including the trigger.
func (t *Tree) Len() int {
	return len(t.Order)
}

// Visible reports whether line to is in the upstream set of line from.
func (t *Tree) Visible(from, to int) bool {
	_, ok := slices.BinarySearch(t.Upstream[from], to)
	return ok
}

// Checkable reports whether the inputs of line n should be inspected. Lines
// that failed construction, and everything nested under them, are not.
func (t *Tree) Checkable(n int) bool {
	l, ok := t.Lines[n]
	return ok && l.Valid && !t.excluded[n]
}

// LineIssues returns the structural issues (errors and warnings) that
// belong to line n, in the order they were found.
func (t *Tree) LineIssues(n int) []schema.ValidationError {
	return t.lineIssues[n]
}

// Walk numbers the lines of doc in pre-order and computes what each line can
// see. It never fails: structural defects are recorded in the tree.
func Walk(doc map[string]any) *Tree {
	w := &walker{
		tree: &Tree{
			Lines:      map[int]*Line{},
			Upstream:   map[int][]int{},
			Aliases:    map[string]int{},
			UUIDs:      map[string]int{},
			lineIssues: map[int][]schema.ValidationError{},
			excluded:   map[int]bool{},
		},
	}
	counter := 0

	triggerPath := []string{"trigger"}
	raw, present := doc["trigger"]
	rawTrigger, isObj := raw.(map[string]any)
	switch {
	case !present || raw == nil:
		w.docError(triggerPath, "recipe has no trigger")
	case !isObj:
		w.docError(triggerPath, fmt.Sprintf("trigger must be an object, got %s", typeName(raw)))
	}

	var root *Line
	if isObj {
		root = w.visit(rawTrigger, triggerPath, true, nil, false, &counter)
	} else {
		root = w.placeholder(triggerPath, KeywordTrigger, nil, &counter)
	}
	w.tree.Root = root

	// Every action sees the trigger.
	topLevel := []int{root.Number}

	actionsPath := []string{"actions"}
	switch actions := doc["actions"].(type) {
	case nil:
		w.docWarning(actionsPath, "recipe has no actions")
	case []any:
		if len(actions) == 0 {
			w.docWarning(actionsPath, "recipe has no actions")
		}
		root.Block = w.walkList(actions, actionsPath, topLevel, "", false, &counter)
	default:
		w.docError(actionsPath, fmt.Sprintf("actions must be a list, got %s", typeName(actions)))
	}

	return w.tree
}

type walker struct {
	tree *Tree
}

// walkList visits the lines of one block. inherited is the upstream set
// every line in the block starts from: ancestors plus their earlier siblings.
func (w *walker) walkList(items []any, listPath []string, inherited []int, parent Keyword, excluded bool, counter *int) []*Line {
	window := slices.Clone(inherited)
	var (
		lines []*Line
		prev  Keyword
	)
	for i, item := range items {
		path := append(slices.Clone(listPath), strconv.Itoa(i))

		raw, isObj := item.(map[string]any)
		if !isObj {
			l := w.placeholder(path, "", window, counter)
			w.lineError(l, fmt.Sprintf("line must be an object, got %s", typeName(item)))
			lines = append(lines, l)
			window = append(window, l.Number)
			prev = ""
			continue
		}

		kw := peekKeyword(raw)
		misplaced := false
		if kw.IsBranch() {
			switch {
			case parent.opens(kw) && parent != KeywordElsif:
				// Export form: the branch sits inside the if/try block and
				// closes the lines before it.
				window = slices.Clone(inherited)
			case prev.opens(kw):
			default:
				misplaced = true
			}
		}

		l := w.visit(raw, path, false, window, excluded, counter)
		if misplaced {
			w.lineError(l, branchMessage(kw))
		}
		lines = append(lines, l)
		window = append(window, l.Number)
		prev = l.Keyword
	}
	return lines
}

// visit builds one line, numbers it and descends into its block.
func (w *walker) visit(raw map[string]any, path []string, root bool, upstream []int, excluded bool, counter *int) *Line {
	l, errs := NewLine(raw, path, root)
	w.register(l, upstream, excluded, counter)
	for _, e := range errs {
		w.addLineIssue(l.Number, e)
	}

	// NewLine keeps only well-formed identifiers, so a line that failed
	// for other reasons still answers to its alias.
	w.indexIdentifiers(l)

	if l.hasBlock {
		if len(l.children) == 0 && l.Keyword != KeywordStop {
			w.addLineIssue(l.Number, schema.NewValidationError(schema.ErrStructureInvalid,
				fmt.Sprintf("%s line has an empty block", l.Keyword), schema.LineRef(l.Number), l.Path).AsWarning())
		}
		childUpstream := append(slices.Clone(upstream), l.Number)
		blockPath := append(slices.Clone(path), "block")
		l.Block = w.walkList(l.children, blockPath, childUpstream, l.Keyword, excluded || !l.Valid, counter)
		l.children = nil
	}
	return l
}

func (w *walker) register(l *Line, upstream []int, excluded bool, counter *int) {
	l.Number = *counter
	*counter++
	w.tree.Lines[l.Number] = l
	w.tree.Order = append(w.tree.Order, l.Number)
	w.tree.Upstream[l.Number] = slices.Clone(upstream)
	if excluded {
		w.tree.excluded[l.Number] = true
	}
}

func (w *walker) placeholder(path []string, kw Keyword, upstream []int, counter *int) *Line {
	l := &Line{Keyword: kw, Path: slices.Clone(path), Input: map[string]schema.Value{}}
	w.register(l, upstream, true, counter)
	return l
}

func (w *walker) indexIdentifiers(l *Line) {
	if l.As != "" {
		if first, dup := w.tree.Aliases[l.As]; dup {
			w.lineError(l, fmt.Sprintf("duplicate alias %q: already declared by line %d", l.As, first))
		} else {
			w.tree.Aliases[l.As] = l.Number
		}
	}
	if l.UUID != "" {
		if first, dup := w.tree.UUIDs[l.UUID]; dup {
			w.lineError(l, fmt.Sprintf("duplicate uuid %q: already used by line %d", l.UUID, first))
		} else {
			w.tree.UUIDs[l.UUID] = l.Number
		}
	}
}

func (w *walker) addLineIssue(n int, e schema.ValidationError) {
	e.Line = schema.LineRef(n)
	w.tree.lineIssues[n] = append(w.tree.lineIssues[n], e)
}

func (w *walker) lineError(l *Line, msg string) {
	w.addLineIssue(l.Number, schema.NewValidationError(schema.ErrStructureInvalid, msg, nil, l.Path))
}

func (w *walker) docError(path []string, msg string) {
	w.tree.Errors = append(w.tree.Errors, schema.NewValidationError(schema.ErrStructureInvalid, msg, nil, path))
}

func (w *walker) docWarning(path []string, msg string) {
	w.tree.Warnings = append(w.tree.Warnings, schema.NewValidationError(schema.ErrStructureInvalid, msg, nil, path).AsWarning())
}

func peekKeyword(raw map[string]any) Keyword {
	s, _ := raw["keyword"].(string)
	return Keyword(s)
}

func branchMessage(kw Keyword) string {
	if kw == KeywordCatch {
		return "catch without matching try"
	}
	return fmt.Sprintf("%s without matching if", kw)
}
