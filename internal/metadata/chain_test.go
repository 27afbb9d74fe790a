package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenProvider struct{ err error }

func (b brokenProvider) AdapterSchema(context.Context, string) (*AdapterSchema, error) {
	return nil, b.err
}

func TestChain_FirstMatchWins(t *testing.T) {
	local := NewMapProvider(&AdapterSchema{Provider: "http", Title: "local"})
	cached := NewMapProvider(
		&AdapterSchema{Provider: "http", Title: "cached"},
		&AdapterSchema{Provider: "slack", Title: "cached"},
	)
	c := Chain{local, cached}

	s, err := c.AdapterSchema(context.Background(), "http")
	require.NoError(t, err)
	assert.Equal(t, "local", s.Title)

	s, err = c.AdapterSchema(context.Background(), "slack")
	require.NoError(t, err)
	assert.Equal(t, "cached", s.Title)

	_, err = c.AdapterSchema(context.Background(), "jira")
	assert.True(t, IsNotFound(err))
}

func TestChain_StopsOnFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	c := Chain{NewMapProvider(), brokenProvider{err: boom}, NewMapProvider(&AdapterSchema{Provider: "http"})}

	_, err := c.AdapterSchema(context.Background(), "http")
	assert.ErrorIs(t, err, boom)
}

func TestChain_Empty(t *testing.T) {
	_, err := Chain(nil).AdapterSchema(context.Background(), "http")
	assert.True(t, IsNotFound(err))
}
