// Package plugins assembles the registry of built-in package and builder
// kinds.
package plugins

import (
	"github.com/goliatone/go-pkgtree/builders"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/sources"
)

// Default returns a registry holding every built-in kind.
func Default() *kinds.Registry {
	r, err := New(sources.Register, builders.Register)
	if err != nil {
		panic(err)
	}
	return r
}

// New builds a registry and applies each register function to it.
func New(register ...func(*kinds.Registry) error) (*kinds.Registry, error) {
	r := kinds.NewRegistry()
	for _, fn := range register {
		if err := fn(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}
