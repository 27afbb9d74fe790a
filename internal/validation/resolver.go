package validation

import (
	"fmt"

	"github.com/rendis/recipelint/internal/expressions"
	"github.com/rendis/recipelint/internal/recipe"
)

// resolver maps pill sources to line numbers and checks that the target runs
// before, and is visible from, the consuming line.
type resolver struct {
	tree *recipe.Tree
}

// target returns the line a source names. ok is false for unknown aliases.
func (r resolver) target(source string) (int, bool) {
	if source == recipe.TriggerSource {
		return r.tree.Root.Number, true
	}
	if n, isNum := recipe.ParseLineNumber(source); isNum {
		return n, true
	}
	n, ok := r.tree.Aliases[source]
	return n, ok
}

// check returns a message describing why pill cannot be consumed by line
// from, or "" when the reference is valid.
func (r resolver) check(from int, pill expressions.DataPill) string {
	to, ok := r.target(pill.Source)
	if !ok {
		return fmt.Sprintf("unknown reference %q: no line is numbered or aliased %q", pill.Raw, pill.Source)
	}
	switch {
	case to == from:
		return fmt.Sprintf("self reference: line %d cannot consume its own output", from)
	case r.tree.Lines[to] == nil:
		return fmt.Sprintf("unknown reference %q: line %s does not exist", pill.Raw, pill.Source)
	case to > from:
		return fmt.Sprintf("forward reference: line %d references line %d, which runs after it", from, to)
	case !r.tree.Visible(from, to):
		return fmt.Sprintf("reference to line %d is not visible from line %d (defined in another branch or nested block)", to, from)
	}
	return ""
}
