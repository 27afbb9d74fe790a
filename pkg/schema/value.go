package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Kind enumerates the shapes a recipe input value can take.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable tagged variant holding one JSON value from a recipe
// line's input. Build it with ValueOf or the typed constructors.
type Value struct {
	kind Kind
	str  string
	num  json.Number
	b    bool
	list []Value
	obj  map[string]Value
}

func NullValue() Value { return Value{kind: KindNull} }
func StringValue(s string) Value { return Value{kind: KindString, str: s} }
func NumberValue(n json.Number) Value { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ListValue wraps a copy of items.
func ListValue(items []Value) Value {
	return Value{kind: KindList, list: slices.Clone(items)}
}

// MapValue wraps a copy of fields.
func MapValue(fields map[string]Value) Value {
	return Value{kind: KindMap, obj: maps.Clone(fields)}
}

// ValueOf converts decoded JSON (encoding/json with or without UseNumber, or
// yaml.v3 into any) into a Value. Unsupported Go types are an error so that
// no shape silently escapes validation.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return NullValue(), nil
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case float64:
		return NumberValue(json.Number(strconv.FormatFloat(t, 'f', -1, 64))), nil
	case float32:
		return NumberValue(json.Number(strconv.FormatFloat(float64(t), 'f', -1, 32))), nil
	case int:
		return NumberValue(json.Number(strconv.Itoa(t))), nil
	case int64:
		return NumberValue(json.Number(strconv.FormatInt(t, 10))), nil
	case uint64:
		return NumberValue(json.Number(strconv.FormatUint(t, 10))), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, iv)
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			fields[k] = iv
		}
		return Value{kind: KindMap, obj: fields}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload; ok is false for non-strings.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Number returns the numeric payload; ok is false for non-numbers.
func (v Value) Number() (json.Number, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean payload; ok is false for non-booleans.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// List returns a copy of the list items.
func (v Value) List() []Value { return slices.Clone(v.list) }

// Len returns the number of list items or map fields.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.obj)
	}
	return 0
}

// Field returns a map field.
func (v Value) Field(key string) (Value, bool) {
	f, ok := v.obj[key]
	return f, ok
}

// Keys returns the map keys in sorted order.
func (v Value) Keys() []string {
	return slices.Sorted(maps.Keys(v.obj))
}

// Interface converts the value back into plain decoded-JSON form
// (json.Number for numbers).
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// InputInterface converts a line input map into plain decoded-JSON form.
func InputInterface(input map[string]Value) map[string]any {
	out := make(map[string]any, len(input))
	for k, v := range input {
		out[k] = v.Interface()
	}
	return out
}
