package expressions

import (
	"strings"
	"unicode"
)

// InputMode is how a string input value is interpreted.
type InputMode string

const (
	ModeLiteral      InputMode = "LITERAL"
	ModeFormula      InputMode = "FORMULA"
	ModeInterpolated InputMode = "INTERPOLATED"
)

// Classification is the result of classifying one string value.
// Offsets in Pills, PillErrors and Formula are relative to the original
// string, including any leading whitespace and the '='.
type Classification struct {
	Mode InputMode `json:"mode"`
	// Mixed is set when a formula also carries #{...} interpolation.
	Mixed       bool `json:"mixed"`
	MixedOffset int  `json:"mixed_offset,omitempty"`

	Pills      []DataPill         `json:"pills,omitempty"`
	PillErrors []*PillSyntaxError `json:"-"`
	Formula    *FormulaReport     `json:"formula,omitempty"`
}

// Dynamic reports whether the value is computed at run time.
func (c Classification) Dynamic() bool {
	return c.Mode != ModeLiteral
}

// References returns every data reference in the value: interpolated pills
// for INTERPOLATED values and _dp calls for FORMULA values.
func (c Classification) References() []DataPill {
	if c.Formula != nil {
		return c.Formula.References
	}
	return c.Pills
}

// Classify determines the input mode of s and runs the checks that apply to
// that mode. A formula mixed with interpolation is flagged once and its
// formula check is skipped.
func Classify(s string) Classification {
	trimmed := strings.TrimLeftFunc(s, unicode.IsSpace)
	if strings.HasPrefix(trimmed, "=") {
		bodyOffset := len(s) - len(trimmed) + 1
		if idx := strings.Index(s, markerOpen); idx != -1 {
			return Classification{Mode: ModeFormula, Mixed: true, MixedOffset: idx}
		}
		report := CheckFormula(s[bodyOffset:])
		shiftReport(&report, bodyOffset)
		return Classification{Mode: ModeFormula, Formula: &report}
	}

	pills, errs := ExtractPills(s)
	mode := ModeLiteral
	if len(pills) > 0 {
		mode = ModeInterpolated
	}
	return Classification{Mode: mode, Pills: pills, PillErrors: errs}
}

func shiftReport(r *FormulaReport, by int) {
	for i := range r.Issues {
		r.Issues[i].Offset += by
	}
	for i := range r.References {
		r.References[i].Span.Start += by
		r.References[i].Span.End += by
	}
}
