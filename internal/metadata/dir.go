package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rendis/recipelint/pkg/schema"
)

var schemaExtensions = []string{".yaml", ".yml", ".json"}

// Decode reads one adapter schema in YAML or JSON form.
func Decode(r io.Reader) (*AdapterSchema, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s AdapterSchema
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, schema.NewError(schema.ErrCodeDecode, "adapter schema is empty")
		}
		return nil, schema.NewError(schema.ErrCodeDecode, "decode adapter schema").WithCause(err)
	}
	for _, op := range s.Operations {
		if op != nil {
			op.Input = normalizeYAML(op.Input).(map[string]any)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadDir reads every *.yaml, *.yml and *.json file in dir (not recursive),
// one adapter schema per file.
func LoadDir(dir string) (*MapProvider, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}

	p := NewMapProvider()
	origin := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(schemaExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		s, err := Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, dup := origin[s.Provider]; dup {
			return nil, schema.NewErrorf(schema.ErrCodeConfig, "provider %q defined in both %s and %s", s.Provider, prev, path)
		}
		origin[s.Provider] = path
		p.Put(s)
	}
	return p, nil
}

// normalizeYAML turns what yaml.v3 decodes into JSON-compatible values: maps
// keyed by any become map[string]any. A nil map becomes an empty one.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeYAML(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
