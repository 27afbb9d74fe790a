package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	validationIDKey ctxKey = iota
	recipeKey
	lineKey
)

// WithValidationID returns a context with the validation ID set.
func WithValidationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, validationIDKey, id)
}

// WithRecipe returns a context with the recipe name (usually its file path) set.
func WithRecipe(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, recipeKey, name)
}

// WithLine returns a context with the line number under inspection set.
func WithLine(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, lineKey, n)
}

// ValidationID extracts the validation ID from the context, or "" if absent.
func ValidationID(ctx context.Context) string {
	v, _ := ctx.Value(validationIDKey).(string)
	return v
}

// Recipe extracts the recipe name from the context, or "" if absent.
func Recipe(ctx context.Context) string {
	v, _ := ctx.Value(recipeKey).(string)
	return v
}

// Line extracts the line number from the context.
func Line(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(lineKey).(int)
	return v, ok
}

// LogWith returns a logger enriched with correlation values from the context.
// Only values that are present are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if attrs := correlationAttrs(ctx); len(attrs) > 0 {
		args := make([]any, len(attrs))
		for i, a := range attrs {
			args[i] = a
		}
		logger = logger.With(args...)
	}
	return logger
}

func correlationAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if v := ValidationID(ctx); v != "" {
		attrs = append(attrs, slog.String("validation_id", v))
	}
	if v := Recipe(ctx); v != "" {
		attrs = append(attrs, slog.String("recipe", v))
	}
	if v, ok := Line(ctx); ok {
		attrs = append(attrs, slog.Int("line", v))
	}
	return attrs
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation values from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.DebugContext(ctx, ...) and the values appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(correlationAttrs(ctx)...)
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
