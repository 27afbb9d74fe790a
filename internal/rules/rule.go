package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/rendis/recipelint/pkg/schema"
)

// Rule is a user-defined lint check. When is a predicate evaluated once per
// line against {"line": {...}, "recipe": {...}}; a true result reports Message.
type Rule struct {
	ID          string                    `yaml:"id" json:"id"`
	Description string                    `yaml:"description,omitempty" json:"description,omitempty"`
	Engine      string                    `yaml:"engine,omitempty" json:"engine,omitempty"`
	When        string                    `yaml:"when" json:"when"`
	Message     string                    `yaml:"message" json:"message"`
	Severity    schema.ValidationSeverity `yaml:"severity,omitempty" json:"severity,omitempty"`
	// Providers restricts the rule to lines of these providers. Empty means all.
	Providers []string `yaml:"providers,omitempty" json:"providers,omitempty"`
}

// AppliesTo reports whether the rule inspects lines of the given provider.
func (r Rule) AppliesTo(provider string) bool {
	return len(r.Providers) == 0 || slices.Contains(r.Providers, provider)
}

// Match is the outcome of one rule on one line. Err is set when the predicate
// could not be evaluated or did not produce a boolean.
type Match struct {
	Rule Rule
	Err  error
}

// Set is a compiled collection of rules. It is immutable after NewSet and safe
// for concurrent use.
type Set struct {
	rules   []Rule
	engines map[string]Engine
}

// NewSet normalizes and compiles rules. Every invalid rule is reported in the
// returned error.
func NewSet(rules []Rule) (*Set, error) {
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	s := &Set{
		engines: map[string]Engine{
			EngineCEL:  celEngine,
			EngineExpr: NewExprEngine(),
			EngineJQ:   NewGoJQEngine(),
		},
	}

	var problems []string
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		r = normalize(r, i)
		if seen[r.ID] {
			problems = append(problems, fmt.Sprintf("%s: duplicate rule id", r.ID))
			continue
		}
		seen[r.ID] = true

		eng, ok := s.engines[r.Engine]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: unknown engine %q", r.ID, r.Engine))
			continue
		}
		if r.Severity != schema.SeverityError && r.Severity != schema.SeverityWarning {
			problems = append(problems, fmt.Sprintf("%s: unknown severity %q", r.ID, r.Severity))
			continue
		}
		if err := eng.Compile(r.When); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", r.ID, err))
			continue
		}
		s.rules = append(s.rules, r)
	}

	if len(problems) > 0 {
		return nil, schema.NewErrorf(schema.ErrCodeRule, "invalid rules: %s", strings.Join(problems, "; ")).
			WithDetails(map[string]any{"problems": problems})
	}
	return s, nil
}

func normalize(r Rule, index int) Rule {
	if r.ID == "" {
		r.ID = fmt.Sprintf("rule-%d", index+1)
	}
	if r.Engine == "" {
		r.Engine = EngineCEL
	}
	r.Engine = strings.ToLower(r.Engine)
	if r.Severity == "" {
		r.Severity = schema.SeverityError
	}
	if r.Message == "" {
		r.Message = r.Description
	}
	if r.Message == "" {
		r.Message = "rule " + r.ID + " matched"
	}
	return r
}

// Rules returns the compiled rules in declaration order.
func (s *Set) Rules() []Rule {
	if s == nil {
		return nil
	}
	return slices.Clone(s.rules)
}

// Len returns the number of compiled rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Check evaluates every rule that applies to provider and returns the rules
// that matched plus the rules whose evaluation failed, in declaration order.
func (s *Set) Check(ctx context.Context, provider string, line, recipe map[string]any) []Match {
	if s == nil {
		return nil
	}
	data := map[string]any{
		"line":   Normalize(line),
		"recipe": Normalize(recipe),
	}

	var matches []Match
	for _, r := range s.rules {
		if !r.AppliesTo(provider) {
			continue
		}
		out, err := s.engines[r.Engine].Evaluate(ctx, r.When, data)
		if err != nil {
			matches = append(matches, Match{Rule: r, Err: err})
			continue
		}
		hit, ok := out.(bool)
		if !ok {
			matches = append(matches, Match{
				Rule: r,
				Err:  schema.NewErrorf(schema.ErrCodeRule, "rule %s returned %T, want bool", r.ID, out),
			})
			continue
		}
		if hit {
			matches = append(matches, Match{Rule: r})
		}
	}
	return matches
}

// Normalize converts decoded JSON into the plain forms all three engines
// accept: json.Number becomes int when integral, float64 otherwise, and
// []string becomes []any. gojq rejects int64 and json.Number.
func Normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case int64:
		return int(val)
	case int32:
		return int(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}
