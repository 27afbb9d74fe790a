package metadata

import "context"

// Chain consults providers in order and returns the first schema found.
// A NOT_FOUND answer moves on to the next provider; any other error stops
// the lookup.
type Chain []Provider

func (c Chain) AdapterSchema(ctx context.Context, provider string) (*AdapterSchema, error) {
	for _, p := range c {
		s, err := p.AdapterSchema(ctx, provider)
		switch {
		case err == nil:
			return s, nil
		case !IsNotFound(err):
			return nil, err
		}
	}
	return nil, NotFound(provider)
}

var _ Provider = Chain(nil)
