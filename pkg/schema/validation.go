package schema

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// ErrorType classifies a recipe content defect.
type ErrorType string

const (
	ErrStructureInvalid      ErrorType = "STRUCTURE_INVALID"
	ErrInputInvalidByAdapter ErrorType = "INPUT_INVALID_BY_ADAPTER"
	ErrFormulaSyntaxInvalid  ErrorType = "FORMULA_SYNTAX_INVALID"
	ErrPillReferenceInvalid  ErrorType = "PILL_REFERENCE_INVALID"
	ErrMixedInputMode        ErrorType = "MIXED_INPUT_MODE"
	ErrRuleViolation         ErrorType = "RULE_VIOLATION"
)

// ValidationSeverity indicates whether an issue is an error or warning.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationError is a single recipe defect with location context.
// Line is nil for document-level issues. FieldPath is relative to the
// line's input for field defects and to the document for structural ones.
type ValidationError struct {
	Message   string             `json:"message"`
	Type      ErrorType          `json:"error_type"`
	Line      *int               `json:"line_number,omitempty"`
	FieldPath []string           `json:"field_path"`
	Severity  ValidationSeverity `json:"severity"`
	Offset    *int               `json:"offset,omitempty"`
}

// NewValidationError builds an error-severity issue. The path is copied.
func NewValidationError(typ ErrorType, message string, line *int, path []string) ValidationError {
	p := slices.Clone(path)
	if p == nil {
		p = []string{}
	}
	var ln *int
	if line != nil {
		ln = LineRef(*line)
	}
	return ValidationError{
		Message:   message,
		Type:      typ,
		Line:      ln,
		FieldPath: p,
		Severity:  SeverityError,
	}
}

// AsWarning returns a copy of e with warning severity.
func (e ValidationError) AsWarning() ValidationError {
	e.Severity = SeverityWarning
	return e
}

// WithOffset returns a copy of e pointing at a character offset inside the
// offending string value.
func (e ValidationError) WithOffset(offset int) ValidationError {
	e.Offset = &offset
	return e
}

// LineNumber returns the line number, or -1 for document-level issues.
func (e ValidationError) LineNumber() int {
	if e.Line == nil {
		return -1
	}
	return *e.Line
}

func (e ValidationError) String() string {
	var sb strings.Builder
	if e.Line != nil {
		fmt.Fprintf(&sb, "line %d", *e.Line)
	} else {
		sb.WriteString("recipe")
	}
	if len(e.FieldPath) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(e.FieldPath, "."))
	}
	if e.Offset != nil {
		fmt.Fprintf(&sb, " @%d", *e.Offset)
	}
	fmt.Fprintf(&sb, ": %s: %s", e.Type, e.Message)
	return sb.String()
}

// LineRef returns a pointer to a copy of n.
func LineRef(n int) *int {
	return &n
}

// ValidationResult aggregates all issues found in one recipe.
type ValidationResult struct {
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings,omitempty"`
}

// IsValid returns true if there are no errors (warnings are acceptable).
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Add appends an issue to Errors or Warnings according to its severity.
func (r *ValidationResult) Add(issues ...ValidationError) {
	for _, e := range issues {
		if e.Severity == SeverityWarning {
			r.Warnings = append(r.Warnings, e)
			continue
		}
		if e.Severity == "" {
			e.Severity = SeverityError
		}
		r.Errors = append(r.Errors, e)
	}
}

// Merge combines another ValidationResult into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// CountByType returns how many errors of each type the result holds.
func (r *ValidationResult) CountByType() map[ErrorType]int {
	counts := make(map[ErrorType]int)
	for _, e := range r.Errors {
		counts[e.Type]++
	}
	return counts
}

// MarshalJSON renders the result with an explicit is_valid flag and a
// non-null errors array.
func (r ValidationResult) MarshalJSON() ([]byte, error) {
	errs := r.Errors
	if errs == nil {
		errs = []ValidationError{}
	}
	return json.Marshal(struct {
		IsValid  bool              `json:"is_valid"`
		Errors   []ValidationError `json:"errors"`
		Warnings []ValidationError `json:"warnings,omitempty"`
	}{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: r.Warnings,
	})
}

// ToError converts the result to a RecipeError if invalid, nil if valid.
func (r *ValidationResult) ToError() error {
	if r.IsValid() {
		return nil
	}

	msg := r.Errors[0].String()
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("recipe validation failed with %d errors", len(r.Errors))
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"error_count":   len(r.Errors),
			"warning_count": len(r.Warnings),
			"errors":        r.Errors,
			"warnings":      r.Warnings,
		})
}
