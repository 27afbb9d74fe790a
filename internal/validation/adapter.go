package validation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/rendis/recipelint/internal/metadata"
	"github.com/rendis/recipelint/internal/recipe"
	"github.com/rendis/recipelint/pkg/schema"
)

// adapterChecker validates line inputs against connector metadata fetched
// once per call.
type adapterChecker struct {
	schemas *schemaCache
	// adapters holds the prefetched metadata by provider. Providers without
	// metadata are absent.
	adapters map[string]*metadata.AdapterSchema
}

// prefetch resolves every distinct provider used by checkable trigger and
// action lines. Lookup failures are warnings: the recipe is then checked
// structurally only.
func prefetch(ctx context.Context, p metadata.Provider, tree *recipe.Tree, logger *slog.Logger) (map[string]*metadata.AdapterSchema, []schema.ValidationError) {
	adapters := map[string]*metadata.AdapterSchema{}
	if p == nil {
		return adapters, nil
	}

	var providers []string
	for _, n := range tree.Order {
		l := tree.Lines[n]
		if !tree.Checkable(n) || !hasOperation(l) || slices.Contains(providers, l.Provider) {
			continue
		}
		providers = append(providers, l.Provider)
	}

	var warnings []schema.ValidationError
	for _, name := range providers {
		as, err := p.AdapterSchema(ctx, name)
		switch {
		case err == nil:
			adapters[name] = as
		case metadata.IsNotFound(err):
			logger.DebugContext(ctx, "no adapter schema", "provider", name)
			warnings = append(warnings, schema.NewValidationError(schema.ErrInputInvalidByAdapter,
				fmt.Sprintf("no metadata for provider %q; its inputs are checked structurally only", name),
				nil, nil).AsWarning())
		default:
			logger.DebugContext(ctx, "adapter schema lookup failed", "provider", name, "error", err)
			warnings = append(warnings, schema.NewValidationError(schema.ErrInputInvalidByAdapter,
				fmt.Sprintf("metadata lookup for provider %q failed: %v", name, err),
				nil, nil).AsWarning())
		}
	}
	return adapters, warnings
}

func hasOperation(l *recipe.Line) bool {
	return l.Keyword == recipe.KeywordTrigger || l.Keyword == recipe.KeywordAction
}

// check validates one line. dynamic lists the input locations holding
// formulas or pills; schema violations there are not reported.
func (a *adapterChecker) check(l *recipe.Line, dynamic map[string]bool) []schema.ValidationError {
	if !hasOperation(l) {
		return nil
	}
	as, ok := a.adapters[l.Provider]
	if !ok {
		return nil
	}

	lineErr := func(msg string, path []string) schema.ValidationError {
		return schema.NewValidationError(schema.ErrInputInvalidByAdapter, msg, schema.LineRef(l.Number), path)
	}

	op, ok := as.Operation(l.Name)
	if !ok {
		msg := fmt.Sprintf("provider %q has no operation %q", l.Provider, l.Name)
		if names := as.OperationNames(); len(names) > 0 {
			msg += fmt.Sprintf(" (known: %s)", strings.Join(names, ", "))
		}
		return []schema.ValidationError{lineErr(msg, []string{"name"})}
	}

	var out []schema.ValidationError
	if op.Kind != "" && op.Kind != string(l.Keyword) {
		out = append(out, lineErr(fmt.Sprintf("%s/%s is a %s operation, used as %s", l.Provider, l.Name, op.Kind, l.Keyword), []string{"name"}))
	}
	if len(op.Input) == 0 {
		return out
	}

	compiled, err := a.schemas.compile(op.Input)
	if err != nil {
		w := lineErr(fmt.Sprintf("input schema of %s/%s is unusable: %v", l.Provider, l.Name, err), nil).AsWarning()
		return append(out, w)
	}
	for _, v := range validate(compiled, schema.InputInterface(l.Input)) {
		if dynamic[joinPath(v.Location)] {
			continue
		}
		out = append(out, lineErr(v.Message, v.Location))
	}
	return out
}
