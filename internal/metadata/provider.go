package metadata

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rendis/recipelint/pkg/schema"
)

// OperationSchema describes one trigger or action a connector offers.
// Input is a JSON Schema document for the line's input object.
type OperationSchema struct {
	Name        string         `yaml:"name,omitempty" json:"name,omitempty"`
	Kind        string         `yaml:"kind,omitempty" json:"kind,omitempty"` // trigger or action; empty means either
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	Input       map[string]any `yaml:"input,omitempty" json:"input,omitempty"`
}

// AdapterSchema is the metadata of one connector (provider).
type AdapterSchema struct {
	Provider   string                      `yaml:"provider" json:"provider"`
	Title      string                      `yaml:"title,omitempty" json:"title,omitempty"`
	Operations map[string]*OperationSchema `yaml:"operations" json:"operations"`
}

// Operation looks up an operation by name.
func (a *AdapterSchema) Operation(name string) (*OperationSchema, bool) {
	op, ok := a.Operations[name]
	return op, ok
}

// OperationNames returns the operation names in sorted order.
func (a *AdapterSchema) OperationNames() []string {
	return slices.Sorted(maps.Keys(a.Operations))
}

// Validate checks the schema is usable and fills operation names from map keys.
func (a *AdapterSchema) Validate() error {
	if a.Provider == "" {
		return schema.NewError(schema.ErrCodeDecode, "adapter schema has no provider")
	}
	for name, op := range a.Operations {
		if op == nil {
			return schema.NewErrorf(schema.ErrCodeDecode, "adapter %s: operation %q is empty", a.Provider, name)
		}
		if op.Name == "" {
			op.Name = name
		}
		if op.Name != name {
			return schema.NewErrorf(schema.ErrCodeDecode, "adapter %s: operation key %q names %q", a.Provider, name, op.Name)
		}
	}
	return nil
}

// Provider supplies connector metadata to the validator. A provider without
// metadata is reported with a NOT_FOUND RecipeError.
type Provider interface {
	AdapterSchema(ctx context.Context, provider string) (*AdapterSchema, error)
}

// IsNotFound reports whether err means the provider has no metadata.
func IsNotFound(err error) bool {
	return schema.HasCode(err, schema.ErrCodeNotFound)
}

// NotFound builds the error returned for unknown providers.
func NotFound(provider string) error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "no adapter schema for provider %q", provider).
		WithDetails(map[string]any{"provider": provider})
}

// MapProvider is an in-memory Provider. It is safe for concurrent use.
type MapProvider struct {
	mu      sync.RWMutex
	schemas map[string]*AdapterSchema
}

// NewMapProvider creates a provider holding the given schemas.
func NewMapProvider(schemas ...*AdapterSchema) *MapProvider {
	p := &MapProvider{schemas: make(map[string]*AdapterSchema, len(schemas))}
	for _, s := range schemas {
		p.schemas[s.Provider] = s
	}
	return p
}

// Put adds or replaces a schema.
func (p *MapProvider) Put(s *AdapterSchema) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.schemas[s.Provider] = s
}

func (p *MapProvider) AdapterSchema(ctx context.Context, provider string) (*AdapterSchema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.schemas[provider]
	if !ok {
		return nil, NotFound(provider)
	}
	return s, nil
}

// Providers returns the known provider names in sorted order.
func (p *MapProvider) Providers() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.schemas))
}

// Schemas returns all schemas ordered by provider name.
func (p *MapProvider) Schemas() []*AdapterSchema {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*AdapterSchema, 0, len(p.schemas))
	for _, name := range slices.Sorted(maps.Keys(p.schemas)) {
		out = append(out, p.schemas[name])
	}
	return out
}

var _ Provider = (*MapProvider)(nil)
