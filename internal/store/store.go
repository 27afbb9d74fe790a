package store

import (
	"context"
	"time"

	"github.com/rendis/recipelint/internal/metadata"
)

// SchemaInfo summarizes a cached adapter schema.
type SchemaInfo struct {
	Provider   string    `json:"provider"`
	Title      string    `json:"title,omitempty"`
	Operations int       `json:"operations"`
	Source     string    `json:"source,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SchemaStore persists adapter schemas between runs and serves them to the
// validator as a metadata.Provider.
// All implementations must be safe for concurrent use.
type SchemaStore interface {
	metadata.Provider

	PutSchema(ctx context.Context, s *metadata.AdapterSchema, source string) error
	ListSchemas(ctx context.Context) ([]SchemaInfo, error)
	DeleteSchema(ctx context.Context, provider string) error

	Migrate(ctx context.Context) error
	Close() error
}
