package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/recipelint/internal/logging"
	"github.com/rendis/recipelint/internal/metadata"
	"github.com/rendis/recipelint/internal/recipe"
	"github.com/rendis/recipelint/internal/rules"
	"github.com/rendis/recipelint/pkg/schema"
)

// Options configures a RecipeValidator. All fields are optional.
type Options struct {
	// Metadata enables adapter input checks. Nil means structural checks only.
	Metadata metadata.Provider
	Rules    []rules.Rule
	Logger   *slog.Logger
}

// RecipeValidator checks recipe documents. It holds only compiled rules and
// schemas, so one instance is safe for concurrent use.
type RecipeValidator struct {
	metadata metadata.Provider
	rules    *rules.Set
	schemas  *schemaCache
	logger   *slog.Logger
}

// NewRecipeValidator compiles the rules and the recipe schema. Invalid rules
// are reported here, never during validation.
func NewRecipeValidator(opts Options) (*RecipeValidator, error) {
	schemas, err := newSchemaCache()
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "build recipe schema").WithCause(err)
	}

	var set *rules.Set
	if len(opts.Rules) > 0 {
		if set, err = rules.NewSet(opts.Rules); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &RecipeValidator{
		metadata: opts.Metadata,
		rules:    set,
		schemas:  schemas,
		logger:   logger,
	}, nil
}

var defaultValidator = sync.OnceValue(func() *RecipeValidator {
	v, err := NewRecipeValidator(Options{})
	if err != nil {
		panic(err)
	}
	return v
})

// ValidateRecipe validates doc with no metadata and no rules.
func ValidateRecipe(doc map[string]any) *schema.ValidationResult {
	return defaultValidator().Validate(context.Background(), doc)
}

// ValidateJSON decodes data and validates it. Only undecodable input is
// returned as an error; content defects are in the result.
func (v *RecipeValidator) ValidateJSON(ctx context.Context, data []byte) (*schema.ValidationResult, error) {
	doc, err := DecodeRecipe(data)
	if err != nil {
		return nil, err
	}
	return v.Validate(ctx, doc), nil
}

// DecodeRecipe parses a JSON recipe document, keeping numbers as json.Number.
func DecodeRecipe(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, schema.NewError(schema.ErrCodeDecode, "recipe is not valid JSON").WithCause(err)
	}
	if dec.More() {
		return nil, schema.NewError(schema.ErrCodeDecode, "recipe has trailing data after the JSON document")
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeDecode, "recipe must be a JSON object, got %T", raw)
	}
	return doc, nil
}

// Validate checks doc and reports every defect found. Errors follow
// traversal order: document issues first, then each line in pre-order with
// its structural, field, adapter and rule issues.
func (v *RecipeValidator) Validate(ctx context.Context, doc map[string]any) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if doc == nil {
		result.Add(schema.NewValidationError(schema.ErrStructureInvalid, "recipe document is empty", nil, nil))
		return result
	}

	ctx = logging.WithValidationID(ctx, uuid.NewString())
	if name, ok := doc["name"].(string); ok && name != "" {
		ctx = logging.WithRecipe(ctx, name)
	}
	start := time.Now()

	result.Add(v.schemas.checkDocument(doc)...)

	tree := recipe.Walk(doc)
	result.Add(tree.Errors...)
	result.Add(tree.Warnings...)
	v.logger.DebugContext(ctx, "recipe walked", "lines", tree.Len(), "aliases", len(tree.Aliases))

	adapters, warnings := prefetch(ctx, v.metadata, tree, v.logger)
	result.Add(warnings...)
	ac := &adapterChecker{schemas: v.schemas, adapters: adapters}

	var facts map[string]any
	if v.rules.Len() > 0 {
		facts = recipeFacts(doc, tree)
	}

	for _, n := range tree.Order {
		result.Add(tree.LineIssues(n)...)
		if !tree.Checkable(n) {
			continue
		}
		line := tree.Lines[n]

		fields := checkFields(tree, line)
		result.Add(fields.issues...)
		result.Add(ac.check(line, fields.dynamic)...)
		if facts != nil {
			result.Add(checkRules(logging.WithLine(ctx, n), v.rules, line, facts)...)
		}
	}

	v.logger.DebugContext(ctx, "recipe validated",
		"valid", result.IsValid(),
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
		"duration", time.Since(start),
	)
	return result
}
