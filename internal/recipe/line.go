package recipe

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/rendis/recipelint/pkg/schema"
)

// Identifier bounds. Oversized values are rejected, never truncated.
const (
	MaxUUIDLength  = 36
	MaxAliasLength = 64
)

// TriggerSource is the reserved pill source naming line 0.
const TriggerSource = "trigger"

// Keyword is the structural role of a recipe line.
type Keyword string

const (
	KeywordTrigger Keyword = "trigger"
	KeywordAction  Keyword = "action"
	KeywordIf      Keyword = "if"
	KeywordElsif   Keyword = "elsif"
	KeywordElse    Keyword = "else"
	KeywordForeach Keyword = "foreach"
	KeywordRepeat  Keyword = "repeat"
	KeywordWhile   Keyword = "while"
	KeywordTry     Keyword = "try"
	KeywordCatch   Keyword = "catch"
	KeywordStop    Keyword = "stop"
)

// keywordRules lists what each keyword requires.
var keywordRules = map[Keyword]struct {
	operation bool // provider and name
	input     bool
}{
	KeywordTrigger: {operation: true, input: true},
	KeywordAction:  {operation: true, input: true},
	KeywordIf:      {input: true},
	KeywordElsif:   {input: true},
	KeywordWhile:   {input: true},
	KeywordForeach: {input: true},
	KeywordRepeat:  {input: true},
	KeywordElse:    {},
	KeywordTry:     {},
	KeywordCatch:   {},
	KeywordStop:    {},
}

// IsBranch reports whether k continues an if or try construct.
func (k Keyword) IsBranch() bool {
	return k == KeywordElsif || k == KeywordElse || k == KeywordCatch
}

// opens reports whether a branch keyword may follow a line of kind k.
func (k Keyword) opens(branch Keyword) bool {
	switch branch {
	case KeywordElsif, KeywordElse:
		return k == KeywordIf || k == KeywordElsif
	case KeywordCatch:
		return k == KeywordTry
	}
	return false
}

// Line is one trigger, action or control step of a recipe.
type Line struct {
	Number   int
	Keyword  Keyword
	Provider string
	Name     string
	Input    map[string]schema.Value
	UUID     string
	As       string
	Skip     bool
	// Path is the location of the line in the recipe document.
	Path  []string
	Block []*Line

	// Valid is false when construction reported errors. Such lines and their
	// blocks are numbered but their inputs are not checked.
	Valid bool

	hasBlock bool
	children []any
}

// HasAlias reports whether the line declares a usable alias.
func (l *Line) HasAlias() bool {
	return l.As != ""
}

// InputKeys returns the input field names in sorted order.
func (l *Line) InputKeys() []string {
	return slices.Sorted(maps.Keys(l.Input))
}

// Label is a short human name for the line, e.g. "http/get" or "if".
func (l *Line) Label() string {
	if l.Provider != "" || l.Name != "" {
		return l.Provider + "/" + l.Name
	}
	return string(l.Keyword)
}

// NewLine checks the shape of one raw recipe line and builds it. root marks
// the trigger position. Errors carry the line's document path and no line
// number; the walker fills that in. Block children are not built here.
func NewLine(raw map[string]any, path []string, root bool) (*Line, []schema.ValidationError) {
	l := &Line{Path: slices.Clone(path), Input: map[string]schema.Value{}}
	var errs []schema.ValidationError
	fail := func(format string, args ...any) {
		errs = append(errs, schema.NewValidationError(schema.ErrStructureInvalid, fmt.Sprintf(format, args...), nil, path))
	}

	l.Keyword = KeywordAction
	if root {
		l.Keyword = KeywordTrigger
	}
	if v, ok := raw["keyword"]; ok {
		// A line with an unusable keyword is only reported once; its field
		// requirements are unknown.
		s, isStr := v.(string)
		_, known := keywordRules[Keyword(s)]
		switch {
		case !isStr:
			fail("field \"keyword\" must be a string, got %s", typeName(v))
			l.Keyword = ""
		case root && Keyword(s) != KeywordTrigger:
			fail("trigger line has keyword %q", s)
		case !root && Keyword(s) == KeywordTrigger:
			fail("keyword \"trigger\" is only allowed on the recipe trigger")
			l.Keyword = ""
		case !known:
			fail("unknown keyword %q", s)
			l.Keyword = Keyword(s)
		default:
			l.Keyword = Keyword(s)
		}
	}

	rules := keywordRules[l.Keyword]
	if rules.operation {
		l.Provider = requireString(raw, "provider", l.Keyword, fail)
		l.Name = requireString(raw, "name", l.Keyword, fail)
	} else {
		l.Provider = optionalString(raw, "provider", fail)
		l.Name = optionalString(raw, "name", fail)
	}

	switch v, ok := raw["input"]; {
	case !ok || v == nil:
		if rules.input {
			fail("%s line is missing required field \"input\"", l.Keyword)
		}
	default:
		obj, isObj := v.(map[string]any)
		if !isObj {
			fail("field \"input\" must be an object, got %s", typeName(v))
			break
		}
		for k, item := range obj {
			val, err := schema.ValueOf(item)
			if err != nil {
				fail("input field %q: %v", k, err)
				continue
			}
			l.Input[k] = val
		}
	}

	if uuid := optionalString(raw, "uuid", fail); len(uuid) > MaxUUIDLength {
		fail("uuid is %d characters long, the maximum is %d", len(uuid), MaxUUIDLength)
	} else {
		l.UUID = uuid
	}

	if alias := optionalString(raw, "as", fail); alias != "" {
		switch {
		case len(alias) > MaxAliasLength:
			fail("alias is %d characters long, the maximum is %d", len(alias), MaxAliasLength)
		case isDigits(alias):
			fail("alias %q is numeric; numeric pill sources always mean line numbers", alias)
		case alias == TriggerSource:
			fail("alias %q is reserved", alias)
		default:
			l.As = alias
		}
	}

	if v, ok := raw["skip"]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			fail("field \"skip\" must be a boolean, got %s", typeName(v))
		}
		l.Skip = b
	}

	if v, ok := raw["block"]; ok && v != nil {
		children, isList := v.([]any)
		switch {
		case root:
			fail("the trigger cannot have a block; recipe steps belong in \"actions\"")
		case !isList:
			fail("field \"block\" must be a list, got %s", typeName(v))
		default:
			l.hasBlock = true
			l.children = children
		}
	}

	l.Valid = len(errs) == 0
	return l, errs
}

func requireString(raw map[string]any, key string, kw Keyword, fail func(string, ...any)) string {
	v, ok := raw[key]
	if !ok || v == nil {
		fail("%s line is missing required field %q", kw, key)
		return ""
	}
	s, isStr := v.(string)
	if !isStr {
		fail("field %q must be a string, got %s", key, typeName(v))
		return ""
	}
	if s == "" {
		fail("field %q must not be empty", key)
	}
	return s
}

func optionalString(raw map[string]any, key string, fail func(string, ...any)) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	s, isStr := v.(string)
	if !isStr {
		fail("field %q must be a string, got %s", key, typeName(v))
		return ""
	}
	return s
}

// ParseLineNumber interprets a pill source as a line number. Any string of
// ASCII digits is a line number, so aliases can never shadow one.
func ParseLineNumber(s string) (int, bool) {
	if !isDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return math.MaxInt, true
	}
	return n, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// typeName names the JSON type of a decoded value.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return "number"
	}
}
