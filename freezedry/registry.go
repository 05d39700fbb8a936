package freezedry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// TypeResolver allocates the concrete value registered for tag under the
// interface type iface. The returned value must be a pointer to a struct and
// must not have been passed through any validating constructor.
type TypeResolver interface {
	ResolveType(iface reflect.Type, tag string) (any, error)
}

// Registry is a TypeResolver keyed by interface type and tag.
type Registry struct {
	mu        sync.RWMutex
	factories map[reflect.Type]map[string]func() any
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[reflect.Type]map[string]func() any{}}
}

// Register stores factory for tag under the interface type T.
func Register[T any](r *Registry, tag string, factory func() T) error {
	if r == nil {
		return fmt.Errorf("freezedry: registry is nil")
	}
	if tag == "" {
		return fmt.Errorf("freezedry: tag must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("freezedry: factory for %q is nil", tag)
	}
	iface := reflect.TypeFor[T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.factories == nil {
		r.factories = map[reflect.Type]map[string]func() any{}
	}
	byTag := r.factories[iface]
	if byTag == nil {
		byTag = map[string]func() any{}
		r.factories[iface] = byTag
	}
	if _, exists := byTag[tag]; exists {
		return fmt.Errorf("freezedry: %s tag %q already registered", iface, tag)
	}
	byTag[tag] = func() any { return factory() }
	return nil
}

// ResolveType implements TypeResolver.
func (r *Registry) ResolveType(iface reflect.Type, tag string) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %s tag %q (no registry)", ErrUnknownType, typeName(iface), tag)
	}
	r.mu.RLock()
	factory := r.factories[iface][tag]
	r.mu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("%w: %s tag %q", ErrUnknownType, typeName(iface), tag)
	}
	return factory(), nil
}

// Tags lists the tags registered for the interface type T.
func Tags[T any](r *Registry) []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	byTag := r.factories[reflect.TypeFor[T]()]
	out := make([]string, 0, len(byTag))
	for tag := range byTag {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
