package validation

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/rendis/recipelint/internal/recipe"
	"github.com/rendis/recipelint/internal/rules"
	"github.com/rendis/recipelint/pkg/schema"
)

// recipeFacts is the "recipe" object rules see.
func recipeFacts(doc map[string]any, tree *recipe.Tree) map[string]any {
	providers := map[string]bool{}
	for _, l := range tree.Lines {
		if l.Provider != "" {
			providers[l.Provider] = true
		}
	}
	name, _ := doc["name"].(string)
	return map[string]any{
		"name":       name,
		"line_count": tree.Len(),
		"providers":  slices.Sorted(maps.Keys(providers)),
		"aliases":    slices.Sorted(maps.Keys(tree.Aliases)),
	}
}

// lineFacts is the "line" object rules see.
func lineFacts(l *recipe.Line) map[string]any {
	return map[string]any{
		"number":   l.Number,
		"keyword":  string(l.Keyword),
		"provider": l.Provider,
		"name":     l.Name,
		"as":       l.As,
		"uuid":     l.UUID,
		"skip":     l.Skip,
		"depth":    depth(l),
		"input":    schema.InputInterface(l.Input),
	}
}

// depth counts the blocks enclosing l; top-level actions are at depth 0.
func depth(l *recipe.Line) int {
	d := 0
	for _, seg := range l.Path {
		if seg == "block" {
			d++
		}
	}
	return d
}

func checkRules(ctx context.Context, set *rules.Set, l *recipe.Line, facts map[string]any) []schema.ValidationError {
	var out []schema.ValidationError
	for _, m := range set.Check(ctx, l.Provider, lineFacts(l), facts) {
		if m.Err != nil {
			out = append(out, schema.NewValidationError(schema.ErrRuleViolation,
				fmt.Sprintf("rule %s could not be evaluated: %v", m.Rule.ID, m.Err),
				schema.LineRef(l.Number), nil).AsWarning())
			continue
		}
		e := schema.NewValidationError(schema.ErrRuleViolation,
			fmt.Sprintf("%s: %s", m.Rule.ID, m.Rule.Message), schema.LineRef(l.Number), nil)
		if m.Rule.Severity == schema.SeverityWarning {
			e = e.AsWarning()
		}
		out = append(out, e)
	}
	return out
}
