package expressions

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	markerOpen  = "#{"
	pillPrefix  = "_dp("
	pillQuoted  = "_dp('"
	pillClosing = "')}"
)

// Span is a half-open byte range [Start, End) within a string value.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// DataPill is a reference to the output of an earlier recipe line.
// Source is the line identifier: a line number, "trigger", or an alias.
type DataPill struct {
	Raw    string   `json:"raw"`
	Source string   `json:"source"`
	Path   []string `json:"path"`
	Span   Span     `json:"span"`
}

// PillSyntaxError describes a malformed #{...} marker.
type PillSyntaxError struct {
	Offset  int
	Message string
}

func (e *PillSyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Message)
}

// PillScanner yields the data pills of a single string, in order.
// It is consumed once: after io.EOF a new scanner is required.
type PillScanner struct {
	input string
	pos   int
	done  bool
}

// NewPillScanner creates a scanner over s.
func NewPillScanner(s string) *PillScanner {
	return &PillScanner{input: s}
}

// Next returns the next pill, a *PillSyntaxError for a malformed marker, or
// io.EOF when the string is exhausted. Scanning resumes after a malformed
// marker so later pills are still reported.
func (s *PillScanner) Next() (DataPill, error) {
	if s.done {
		return DataPill{}, io.EOF
	}

	idx := strings.Index(s.input[s.pos:], markerOpen)
	if idx == -1 {
		s.done = true
		return DataPill{}, io.EOF
	}

	start := s.pos + idx
	body := start + len(markerOpen)
	rest := s.input[body:]

	if !strings.HasPrefix(rest, pillPrefix) {
		closing := strings.IndexByte(rest, '}')
		if closing == -1 {
			s.done = true
			return DataPill{}, &PillSyntaxError{Offset: start, Message: "unterminated #{ marker"}
		}
		s.pos = body + closing + 1
		return DataPill{}, &PillSyntaxError{
			Offset:  start,
			Message: fmt.Sprintf("unsupported interpolation %q; expected #{_dp('...')}", s.input[start:s.pos]),
		}
	}

	if !strings.HasPrefix(rest, pillQuoted) {
		s.skipMarker(body)
		return DataPill{}, &PillSyntaxError{Offset: start, Message: "data pill argument must be a single-quoted string"}
	}

	argStart := body + len(pillQuoted)
	end := strings.Index(s.input[argStart:], pillClosing)
	if end == -1 || strings.Contains(s.input[argStart:argStart+end], markerOpen) {
		s.skipMarker(body)
		return DataPill{}, &PillSyntaxError{Offset: start, Message: "data pill is missing its closing ')}"}
	}
	argEnd := argStart + end
	s.pos = argEnd + len(pillClosing)

	source, path, err := ParsePillArgument(s.input[argStart:argEnd])
	if err != nil {
		return DataPill{}, &PillSyntaxError{Offset: start, Message: err.Error()}
	}

	return DataPill{
		Raw:    s.input[body : argEnd+2],
		Source: source,
		Path:   path,
		Span:   Span{Start: start, End: s.pos},
	}, nil
}

// skipMarker moves past a broken marker: to the next #{ if one follows,
// otherwise to the end of the input.
func (s *PillScanner) skipMarker(body int) {
	next := strings.Index(s.input[body:], markerOpen)
	if next == -1 {
		s.pos = len(s.input)
		s.done = true
		return
	}
	s.pos = body + next
}

// ExtractPills scans s completely and returns its pills and marker errors.
func ExtractPills(s string) ([]DataPill, []*PillSyntaxError) {
	var (
		pills []DataPill
		errs  []*PillSyntaxError
	)
	sc := NewPillScanner(s)
	for {
		p, err := sc.Next()
		if err == io.EOF {
			return pills, errs
		}
		if err != nil {
			errs = append(errs, err.(*PillSyntaxError))
			continue
		}
		pills = append(pills, p)
	}
}

// HasMarker reports whether s contains an interpolation marker.
func HasMarker(s string) bool {
	return strings.Contains(s, markerOpen)
}

// jsonPill is the object form used by exported recipes:
// {"pill_type":"output","provider":"http","line":"get","path":["body","id"]}.
type jsonPill struct {
	PillType string `json:"pill_type"`
	Provider string `json:"provider"`
	Line     string `json:"line"`
	Path     []any  `json:"path"`
}

// ParsePillArgument splits the quoted argument of _dp('...') into the source
// identifier and the field path. Both the dotted form ("3.body.id") and the
// JSON object form are accepted.
func ParsePillArgument(arg string) (string, []string, error) {
	if arg == "" {
		return "", nil, fmt.Errorf("empty data pill reference")
	}

	if strings.HasPrefix(arg, "{") {
		var jp jsonPill
		if err := json.Unmarshal([]byte(arg), &jp); err != nil {
			return "", nil, fmt.Errorf("invalid data pill JSON: %v", err)
		}
		if jp.Line == "" {
			return "", nil, fmt.Errorf("data pill JSON has no line")
		}
		path := make([]string, 0, len(jp.Path))
		for _, seg := range jp.Path {
			path = append(path, fmt.Sprint(seg))
		}
		return jp.Line, path, nil
	}

	segments := strings.Split(arg, ".")
	for _, seg := range segments {
		if seg == "" {
			return "", nil, fmt.Errorf("empty path segment in data pill reference %q", arg)
		}
	}
	return segments[0], segments[1:], nil
}
