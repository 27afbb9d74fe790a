package validation

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rendis/recipelint/pkg/schema"
)

const documentSchemaURL = "https://recipelint.dev/schemas/recipe.json"

// documentSchemaJSON describes the recipe-level fields around the trigger and
// actions. Line shape is checked by the walker, which knows line numbers.
const documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://recipelint.dev/schemas/recipe.json",
  "type": "object",
  "properties": {
    "name": { "type": "string", "maxLength": 255 },
    "description": { "type": "string" },
    "version": { "type": "integer", "minimum": 0 },
    "private": { "type": "boolean" },
    "concurrency": { "type": "integer", "minimum": 1, "maximum": 100 },
    "code": { "type": "object" },
    "config": {
      "type": "array",
      "items": { "$ref": "#/$defs/connection" }
    },
    "trigger": {},
    "actions": {}
  },
  "$defs": {
    "connection": {
      "type": "object",
      "required": ["provider"],
      "properties": {
        "keyword": { "type": "string", "const": "application" },
        "provider": { "type": "string", "minLength": 1 },
        "skip_validation": { "type": "boolean" },
        "account_id": {}
      }
    }
  }
}`

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronFormat accepts five-field cron expressions and @descriptors.
var cronFormat = &jsonschema.Format{
	Name: "cron",
	Validate: func(v any) error {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		if _, err := cronParser.Parse(s); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		return nil
	},
}

var printer = message.NewPrinter(language.English)

// violation is one leaf JSON Schema failure.
type violation struct {
	Location []string
	Message  string
}

// schemaCache compiles JSON Schema documents once and reuses them. It is safe
// for concurrent use.
type schemaCache struct {
	document *jsonschema.Schema

	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func newSchemaCache() (*schemaCache, error) {
	c := newInputCompiler()
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal recipe schema: %w", err)
	}
	if err := c.AddResource(documentSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("add recipe schema resource: %w", err)
	}
	compiled, err := c.Compile(documentSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile recipe schema: %w", err)
	}
	return &schemaCache{document: compiled, cache: make(map[string]*jsonschema.Schema)}, nil
}

// checkDocument validates the recipe-level fields. Values that cannot be
// represented as JSON are reported instead of validated.
func (c *schemaCache) checkDocument(doc map[string]any) []schema.ValidationError {
	top := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "trigger" || k == "actions" {
			continue
		}
		top[k] = v
	}
	value, err := toJSONValue(top)
	if err != nil {
		return []schema.ValidationError{schema.NewValidationError(schema.ErrStructureInvalid,
			fmt.Sprintf("recipe is not valid JSON data: %v", err), nil, nil)}
	}

	var out []schema.ValidationError
	for _, v := range validate(c.document, value) {
		out = append(out, schema.NewValidationError(schema.ErrStructureInvalid, v.Message, nil, v.Location))
	}
	return out
}

// compile returns the compiled form of an adapter input schema.
func (c *schemaCache) compile(doc map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	key := string(raw)

	c.mu.RLock()
	if cached, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache[key]; ok {
		return cached, nil
	}

	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// Each schema gets a unique URL and a fresh compiler to avoid resource
	// collisions.
	url := fmt.Sprintf("recipelint://input-schema/%d", len(c.cache))
	compiler := newInputCompiler()
	if err := compiler.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	c.cache[key] = compiled
	return compiled, nil
}

func newInputCompiler() *jsonschema.Compiler {
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	c.RegisterFormat(cronFormat)
	return c
}

// toJSONValue round-trips a Go value through JSON so that numbers become
// json.Number, as the jsonschema library expects.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// validate runs sch over value and flattens the failure tree into leaf
// violations ordered by location.
func validate(sch *jsonschema.Schema, value any) []violation {
	err := sch.Validate(value)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []violation{{Message: err.Error()}}
	}
	out := collectViolations(verr)
	slices.SortStableFunc(out, func(a, b violation) int {
		return slices.Compare(a.Location, b.Location)
	})
	return out
}

// collectViolations walks a ValidationError tree and collects the leaves.
func collectViolations(verr *jsonschema.ValidationError) []violation {
	if len(verr.Causes) == 0 {
		return []violation{{
			Location: slices.Clone(verr.InstanceLocation),
			Message:  verr.ErrorKind.LocalizedString(printer),
		}}
	}

	var out []violation
	for _, cause := range verr.Causes {
		out = append(out, collectViolations(cause)...)
	}
	return out
}
