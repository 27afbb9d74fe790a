package rules

import "context"

// Engine compiles and evaluates rule predicates.
// Three implementations: CEL, expr and jq.
type Engine interface {
	Name() string
	// Compile checks the expression and caches the compiled program.
	Compile(expression string) error
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Engine names accepted in Rule.Engine.
const (
	EngineCEL  = "cel"
	EngineExpr = "expr"
	EngineJQ   = "jq"
)
