package kinds

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/freezedry"
)

// UnknownPluginError reports a kind name nothing is registered for.
type UnknownPluginError struct {
	Group string
	Name  string
	Known []string
}

func (e *UnknownPluginError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("kinds: unknown %s kind %q (known: %v)", e.Group, e.Name, e.Known)
}

// SourceKind registers a package source kind.
type SourceKind struct {
	Name string
	// New allocates an empty package for rehydration.
	New   func() Package
	Parse func(ctx ParseContext) (Package, error)
	// Options allocates the kind's options; nil when the kind has none.
	Options func() opts.KindOptions
}

// BuilderKind registers a builder kind.
type BuilderKind struct {
	Name    string
	New     func() Builder
	Parse   func(ctx ParseContext) (Builder, error)
	Options func() opts.KindOptions
}

// Registry maps kind names to implementations. It doubles as the
// freezedry.TypeResolver for packages, builders and kind options.
type Registry struct {
	mu       sync.RWMutex
	sources  map[string]SourceKind
	builders map[string]BuilderKind
	types    *freezedry.Registry
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources:  map[string]SourceKind{},
		builders: map[string]BuilderKind{},
		types:    freezedry.NewRegistry(),
	}
}

// RegisterSource adds a source kind.
func (r *Registry) RegisterSource(kind SourceKind) error {
	if kind.Name == "" || kind.New == nil || kind.Parse == nil {
		return fmt.Errorf("kinds: source kind %q is incomplete", kind.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[kind.Name]; exists {
		return fmt.Errorf("kinds: source kind %q already registered", kind.Name)
	}
	if err := freezedry.Register(r.types, kind.Name, kind.New); err != nil {
		return err
	}
	if kind.Options != nil {
		if err := freezedry.Register(r.types, opts.KindTag(opts.GroupSource, kind.Name), kind.Options); err != nil {
			return err
		}
	}
	r.sources[kind.Name] = kind
	return nil
}

// RegisterBuilder adds a builder kind.
func (r *Registry) RegisterBuilder(kind BuilderKind) error {
	if kind.Name == "" || kind.New == nil || kind.Parse == nil {
		return fmt.Errorf("kinds: builder kind %q is incomplete", kind.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.builders[kind.Name]; exists {
		return fmt.Errorf("kinds: builder kind %q already registered", kind.Name)
	}
	if err := freezedry.Register(r.types, kind.Name, kind.New); err != nil {
		return err
	}
	if kind.Options != nil {
		if err := freezedry.Register(r.types, opts.KindTag(opts.GroupBuilder, kind.Name), kind.Options); err != nil {
			return err
		}
	}
	r.builders[kind.Name] = kind
	return nil
}

// Source resolves a source kind by name.
func (r *Registry) Source(name string) (SourceKind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.sources[name]
	if !ok {
		return SourceKind{}, &UnknownPluginError{Group: opts.GroupSource, Name: name, Known: sortedNames(r.sources)}
	}
	return kind, nil
}

// Builder resolves a builder kind by name.
func (r *Registry) Builder(name string) (BuilderKind, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kind, ok := r.builders[name]
	if !ok {
		return BuilderKind{}, &UnknownPluginError{Group: opts.GroupBuilder, Name: name, Known: sortedNames(r.builders)}
	}
	return kind, nil
}

// KindOptions allocates the options of group/kind. It returns nil when the
// kind declares it has none.
func (r *Registry) KindOptions(group, name string) (opts.KindOptions, error) {
	switch group {
	case opts.GroupSource:
		kind, err := r.Source(name)
		if err != nil || kind.Options == nil {
			return nil, err
		}
		return kind.Options(), nil
	case opts.GroupBuilder:
		kind, err := r.Builder(name)
		if err != nil || kind.Options == nil {
			return nil, err
		}
		return kind.Options(), nil
	default:
		return nil, &UnknownPluginError{Group: group, Name: name}
	}
}

// ResolveType implements freezedry.TypeResolver.
func (r *Registry) ResolveType(iface reflect.Type, tag string) (any, error) {
	return r.types.ResolveType(iface, tag)
}

// Codec returns a freezedry codec that resolves tags through r.
func (r *Registry) Codec(options ...freezedry.CodecOption) *freezedry.Codec {
	return freezedry.NewCodec(append([]freezedry.CodecOption{freezedry.WithTypes(r)}, options...)...)
}

// ParsePackage instantiates the package defined by node. The source kind is
// read from its "source" key.
func (r *Registry) ParsePackage(name, origin string, node document.Node) (Package, error) {
	if !node.IsMapping() {
		return nil, node.Errorf("expected a package mapping, got %s", node.KindName())
	}
	sourceNode, ok := node.Get("source")
	if !ok {
		return nil, node.Errorf("package %q has no source", name)
	}
	sourceName, err := sourceNode.Scalar()
	if err != nil {
		return nil, err
	}
	kind, err := r.Source(sourceName)
	if err != nil {
		return nil, &document.FieldValueError{Path: sourceNode.Path(), Pos: sourceNode.Pos(), Err: err}
	}
	return kind.Parse(ParseContext{Name: name, Origin: origin, Node: node.Without("source"), Kinds: r})
}

// ParseBuilder instantiates a builder from a kind name or a mapping with a
// "type" key.
func (r *Registry) ParseBuilder(parent ParseContext, node document.Node) (Builder, error) {
	typeNode := node
	body := document.FromYAML(node.File(), nil)
	if node.IsMapping() {
		var ok bool
		typeNode, ok = node.Get("type")
		if !ok {
			return nil, node.Errorf("builder has no type")
		}
		body = node.Without("type")
	}
	typeName, err := typeNode.Scalar()
	if err != nil {
		return nil, err
	}
	kind, err := r.Builder(typeName)
	if err != nil {
		return nil, &document.FieldValueError{Path: typeNode.Path(), Pos: typeNode.Pos(), Err: err}
	}
	return kind.Parse(ParseContext{Name: parent.Name, Origin: parent.Origin, Node: body, Kinds: r})
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
