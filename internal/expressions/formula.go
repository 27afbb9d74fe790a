package expressions

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FormulaIssue is one shape defect found in a formula, with the byte offset
// relative to the formula text (after the leading '=').
type FormulaIssue struct {
	Offset  int    `json:"offset"`
	Message string `json:"message"`
}

// FormulaReport is the outcome of CheckFormula.
type FormulaReport struct {
	Issues []FormulaIssue `json:"issues"`
	// References holds the _dp('...') calls with a literal argument.
	References []DataPill `json:"references"`
}

// Valid reports whether no issues were found.
func (r FormulaReport) Valid() bool {
	return len(r.Issues) == 0
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokRegex
	tokOperator
	tokOpen
	tokClose
	tokComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// Multi-rune operators, longest first.
var multiOperators = []string{
	"<=>", "...", "**", "==", "!=", ">=", "<=", "&&", "||", "<<", ">>",
	"=~", "!~", "..", "::", "=>", "&.",
}

const singleOperators = "+-*/%<>!=&|^~?:."

// prefixOperators may open an operand: unary signs, negation, splats,
// block-pass and symbol/constant prefixes.
var prefixOperators = map[string]bool{
	"+": true, "-": true, "!": true, "~": true, "&": true,
	"*": true, "**": true, ":": true, "::": true,
}

var closerFor = map[string]string{"(": ")", "[": "]", "{": "}"}

// CheckFormula validates the shape of a formula: balanced delimiters and
// quotes, operator placement, call argument lists and the absence of #{...}
// interpolation. Function names are not checked against any list.
func CheckFormula(src string) FormulaReport {
	var report FormulaReport

	if strings.TrimSpace(src) == "" {
		report.Issues = append(report.Issues, FormulaIssue{Offset: 0, Message: "empty formula"})
		return report
	}

	tokens, issues := lexFormula(src)
	report.Issues = append(report.Issues, issues...)
	report.Issues = append(report.Issues, checkDelimiters(tokens)...)
	report.Issues = append(report.Issues, checkOperators(tokens)...)

	refs, refIssues := collectReferences(tokens)
	report.References = refs
	report.Issues = append(report.Issues, refIssues...)
	return report
}

func lexFormula(src string) ([]token, []FormulaIssue) {
	var (
		tokens []token
		issues []FormulaIssue
	)
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size

		case strings.HasPrefix(src[i:], markerOpen):
			issues = append(issues, FormulaIssue{
				Offset:  i,
				Message: "data pill interpolation #{...} is not allowed inside a formula; use _dp('...')",
			})
			closing := strings.IndexByte(src[i:], '}')
			if closing == -1 {
				return tokens, issues
			}
			i += closing + 1

		case r == '\'' || r == '"':
			end, ok := scanQuoted(src, i)
			if !ok {
				issues = append(issues, FormulaIssue{Offset: i, Message: "unterminated string literal"})
				return tokens, issues
			}
			tokens = append(tokens, token{kind: tokString, text: src[i:end], pos: i})
			i = end

		case r == '/' && expectsOperand(tokens):
			end, ok := scanRegex(src, i)
			if !ok {
				issues = append(issues, FormulaIssue{Offset: i, Message: "unterminated regular expression"})
				return tokens, issues
			}
			tokens = append(tokens, token{kind: tokRegex, text: src[i:end], pos: i})
			i = end

		case r >= '0' && r <= '9':
			end := scanNumber(src, i)
			tokens = append(tokens, token{kind: tokNumber, text: src[i:end], pos: i})
			i = end

		case r == '_' || unicode.IsLetter(r):
			end := scanIdent(src, i)
			tokens = append(tokens, token{kind: tokIdent, text: src[i:end], pos: i})
			i = end

		case r == '(' || r == '[' || r == '{':
			tokens = append(tokens, token{kind: tokOpen, text: string(r), pos: i})
			i++

		case r == ')' || r == ']' || r == '}':
			tokens = append(tokens, token{kind: tokClose, text: string(r), pos: i})
			i++

		case r == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", pos: i})
			i++

		case strings.ContainsRune(singleOperators, r):
			op := string(r)
			for _, m := range multiOperators {
				if strings.HasPrefix(src[i:], m) {
					op = m
					break
				}
			}
			tokens = append(tokens, token{kind: tokOperator, text: op, pos: i})
			i += len(op)

		default:
			issues = append(issues, FormulaIssue{Offset: i, Message: fmt.Sprintf("unexpected character %q", r)})
			i += size
		}
	}
	return tokens, issues
}

// scanQuoted returns the index just past the closing quote of the literal
// starting at start. Backslash escapes the following byte.
func scanQuoted(src string, start int) (int, bool) {
	quote := src[start]
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		}
	}
	return len(src), false
}

// expectsOperand reports whether the next token starts an operand, which is
// where a '/' opens a regular expression instead of dividing.
func expectsOperand(tokens []token) bool {
	if len(tokens) == 0 {
		return true
	}
	switch tokens[len(tokens)-1].kind {
	case tokOpen, tokComma, tokOperator:
		return true
	}
	return false
}

// scanRegex returns the index just past a /pattern/flags literal starting at
// start. The pattern may not span lines.
func scanRegex(src string, start int) (int, bool) {
	for i := start + 1; i < len(src); i++ {
		switch src[i] {
		case '\\':
			i++
		case '\n':
			return len(src), false
		case '/':
			i++
			for i < len(src) && strings.IndexByte(regexFlags, src[i]) >= 0 {
				i++
			}
			return i, true
		}
	}
	return len(src), false
}

const regexFlags = "imxounse"

// scanNumber consumes digits, underscores and a fractional part. A dot
// followed by a letter is left alone so that 1.day lexes as a method call.
func scanNumber(src string, start int) int {
	i := start
	for i < len(src) && (isDigit(src[i]) || src[i] == '_') {
		i++
	}
	if i+1 < len(src) && src[i] == '.' && isDigit(src[i+1]) {
		i++
		for i < len(src) && (isDigit(src[i]) || src[i] == '_') {
			i++
		}
	}
	return i
}

// scanIdent consumes an identifier, including a trailing ? or ! predicate
// suffix (present?, strip!) when it is not the start of != or ?: spacing.
func scanIdent(src string, start int) int {
	i := start
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		i += size
	}
	if i < len(src) && (src[i] == '?' || src[i] == '!') {
		if i+1 >= len(src) || (src[i+1] != '=' && src[i+1] != '~') {
			i++
		}
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func checkDelimiters(tokens []token) []FormulaIssue {
	var (
		issues []FormulaIssue
		stack  []token
	)
	for _, t := range tokens {
		switch t.kind {
		case tokOpen:
			stack = append(stack, t)
		case tokClose:
			if len(stack) == 0 {
				issues = append(issues, FormulaIssue{Offset: t.pos, Message: fmt.Sprintf("unexpected closing %q", t.text)})
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if closerFor[top.text] != t.text {
				issues = append(issues, FormulaIssue{
					Offset:  t.pos,
					Message: fmt.Sprintf("mismatched %q: %q opened at offset %d expects %q", t.text, top.text, top.pos, closerFor[top.text]),
				})
			}
		case tokComma:
			if len(stack) == 0 {
				issues = append(issues, FormulaIssue{Offset: t.pos, Message: "unexpected ',' outside of a call or literal"})
			}
		}
	}
	for _, open := range stack {
		issues = append(issues, FormulaIssue{Offset: open.pos, Message: fmt.Sprintf("unclosed %q", open.text)})
	}
	return issues
}

func checkOperators(tokens []token) []FormulaIssue {
	var issues []FormulaIssue
	if len(tokens) == 0 {
		return issues
	}

	first := tokens[0]
	if first.kind == tokOperator && !prefixOperators[first.text] {
		issues = append(issues, FormulaIssue{Offset: first.pos, Message: fmt.Sprintf("formula starts with operator %q", first.text)})
	}
	last := tokens[len(tokens)-1]
	if last.kind == tokOperator && !isRangeOperator(last.text) {
		issues = append(issues, FormulaIssue{Offset: last.pos, Message: fmt.Sprintf("formula ends with operator %q", last.text)})
	}

	for i := 0; i+1 < len(tokens); i++ {
		cur, next := tokens[i], tokens[i+1]
		switch cur.kind {
		case tokOperator:
			if (next.kind == tokClose || next.kind == tokComma) && !isRangeOperator(cur.text) {
				issues = append(issues, FormulaIssue{Offset: cur.pos, Message: fmt.Sprintf("operator %q is missing its right operand", cur.text)})
			}
			if (cur.text == "." || cur.text == "&.") && next.kind != tokIdent && next.text != "(" {
				issues = append(issues, FormulaIssue{Offset: next.pos, Message: fmt.Sprintf("expected method name after %q", cur.text)})
			}
		case tokOpen, tokComma:
			// { |x| ... } opens a block with its parameter list.
			blockParams := cur.text == "{" && next.text == "|"
			if next.kind == tokOperator && !prefixOperators[next.text] && !blockParams {
				issues = append(issues, FormulaIssue{Offset: next.pos, Message: fmt.Sprintf("operator %q is missing its left operand", next.text)})
			}
			if next.kind == tokComma {
				issues = append(issues, FormulaIssue{Offset: next.pos, Message: "empty argument"})
			}
			if cur.kind == tokComma && next.kind == tokClose && next.text == ")" {
				issues = append(issues, FormulaIssue{Offset: cur.pos, Message: "trailing ',' in call arguments"})
			}
		}
	}
	return issues
}

func isRangeOperator(op string) bool {
	return op == ".." || op == "..."
}

// collectReferences finds _dp('...') calls whose argument is one string
// literal. Calls with computed arguments are left alone.
func collectReferences(tokens []token) ([]DataPill, []FormulaIssue) {
	var (
		refs   []DataPill
		issues []FormulaIssue
	)
	for i := 0; i+3 < len(tokens); i++ {
		if tokens[i].kind != tokIdent || tokens[i].text != "_dp" {
			continue
		}
		open, arg, closing := tokens[i+1], tokens[i+2], tokens[i+3]
		if open.text != "(" || arg.kind != tokString || closing.text != ")" {
			continue
		}
		source, path, err := ParsePillArgument(unquote(arg.text))
		if err != nil {
			issues = append(issues, FormulaIssue{Offset: arg.pos, Message: "invalid _dp reference: " + err.Error()})
			continue
		}
		end := closing.pos + 1
		refs = append(refs, DataPill{
			Raw:    "_dp(" + arg.text + ")",
			Source: source,
			Path:   path,
			Span:   Span{Start: tokens[i].pos, End: end},
		})
	}
	return refs, issues
}

func unquote(lit string) string {
	if len(lit) < 2 {
		return lit
	}
	body := lit[1 : len(lit)-1]
	if !strings.Contains(body, "\\") {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
		}
		sb.WriteByte(body[i])
	}
	return sb.String()
}
