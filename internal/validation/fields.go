package validation

import (
	"slices"
	"strconv"
	"strings"

	"github.com/rendis/recipelint/internal/expressions"
	"github.com/rendis/recipelint/internal/recipe"
	"github.com/rendis/recipelint/pkg/schema"
)

const mixedModeMessage = "formula value also contains #{...} interpolation; " +
	"use _dp() inside the formula or drop the leading '='"

// fieldReport is what the field checks found on one line.
type fieldReport struct {
	issues []schema.ValidationError
	// dynamic holds the input locations whose value is computed at run time,
	// keyed by joinPath.
	dynamic map[string]bool
}

// fieldChecker classifies every string in a line's input and resolves the
// references it finds.
type fieldChecker struct {
	resolver resolver
	line     *recipe.Line
	report   fieldReport
}

func checkFields(tree *recipe.Tree, line *recipe.Line) fieldReport {
	fc := &fieldChecker{
		resolver: resolver{tree: tree},
		line:     line,
		report:   fieldReport{dynamic: map[string]bool{}},
	}
	for _, key := range line.InputKeys() {
		fc.visit(line.Input[key], []string{key})
	}
	return fc.report
}

func (fc *fieldChecker) visit(v schema.Value, path []string) {
	switch v.Kind() {
	case schema.KindString:
		s, _ := v.Str()
		fc.checkString(s, path)
	case schema.KindList:
		for i, item := range v.List() {
			fc.visit(item, appendPath(path, strconv.Itoa(i)))
		}
	case schema.KindMap:
		for _, key := range v.Keys() {
			item, _ := v.Field(key)
			fc.visit(item, appendPath(path, key))
		}
	case schema.KindNull, schema.KindNumber, schema.KindBool:
	}
}

func (fc *fieldChecker) checkString(s string, path []string) {
	c := expressions.Classify(s)
	if c.Dynamic() {
		fc.report.dynamic[joinPath(path)] = true
	}

	if c.Mixed {
		fc.add(schema.NewValidationError(schema.ErrMixedInputMode, mixedModeMessage, nil, path).WithOffset(c.MixedOffset))
		return
	}
	if c.Formula != nil {
		for _, issue := range c.Formula.Issues {
			fc.add(schema.NewValidationError(schema.ErrFormulaSyntaxInvalid, issue.Message, nil, path).WithOffset(issue.Offset))
		}
	}
	for _, perr := range c.PillErrors {
		fc.add(schema.NewValidationError(schema.ErrStructureInvalid, perr.Message, nil, path).WithOffset(perr.Offset))
	}
	for _, pill := range c.References() {
		if msg := fc.resolver.check(fc.line.Number, pill); msg != "" {
			fc.add(schema.NewValidationError(schema.ErrPillReferenceInvalid, msg, nil, path).WithOffset(pill.Span.Start))
		}
	}
}

func (fc *fieldChecker) add(e schema.ValidationError) {
	e.Line = schema.LineRef(fc.line.Number)
	fc.report.issues = append(fc.report.issues, e)
}

func appendPath(path []string, seg string) []string {
	return append(slices.Clip(path), seg)
}

// joinPath renders a location the way it is compared against JSON Schema
// instance locations.
func joinPath(path []string) string {
	return strings.Join(path, "\x00")
}
