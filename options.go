package opts

import (
	"fmt"

	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/layering"
)

// Option groups a kind belongs to.
const (
	GroupSource  = "source"
	GroupBuilder = "builder"
)

// Fragment is one options mapping taken from a document.
type Fragment struct {
	Node   document.Node
	Origin string
	// Child is set for fragments contributed by a dependency's documents.
	Child bool
}

// KindOptions holds the options of one source or builder kind. Accumulate
// merges a fragment first-write-wins.
type KindOptions interface {
	freezedry.Tagged
	Accumulate(fragment Fragment) error
}

// KindTag builds the freeze-dry tag of a kind's options, e.g. "builder:cmake".
func KindTag(group, kind string) string {
	return group + ":" + kind
}

// Accumulate decodes fragment into a fresh T and fills the fields of dst that
// are still unset.
func Accumulate[T any](dst *T, fragment Fragment) error {
	var next T
	if err := fragment.Node.DecodeStrict(&next); err != nil {
		return err
	}
	layering.Fill(dst, next)
	return nil
}

// Options is the full option set of a resolved tree.
type Options struct {
	Common   *Common                `freezedry:"common"`
	Sources  map[string]KindOptions `freezedry:"sources"`
	Builders map[string]KindOptions `freezedry:"builders"`
}

// NewOptions returns an option set with empty Common options and no kinds.
func NewOptions() *Options {
	return &Options{
		Common:   &Common{},
		Sources:  map[string]KindOptions{},
		Builders: map[string]KindOptions{},
	}
}

func (*Options) FreezeDryAdapters() freezedry.Adapters {
	return freezedry.Adapters{
		"common":   freezedry.Nested[*Common](),
		"sources":  freezedry.DictOf[KindOptions](nil),
		"builders": freezedry.DictOf[KindOptions](nil),
	}
}

// Source returns the options of a source kind, or nil.
func (o *Options) Source(kind string) KindOptions {
	if o == nil {
		return nil
	}
	return o.Sources[kind]
}

// Builder returns the options of a builder kind, or nil.
func (o *Options) Builder(kind string) KindOptions {
	if o == nil {
		return nil
	}
	return o.Builders[kind]
}

// Has reports whether options for group/kind were materialized.
func (o *Options) Has(group, kind string) bool {
	_, ok := o.group(group)[kind]
	return ok
}

// Ensure stores the result of create under group/kind unless the kind already
// has options. A nil create means the kind has no options.
func (o *Options) Ensure(group, kind string, create func() KindOptions) (KindOptions, error) {
	target := o.group(group)
	if target == nil {
		return nil, fmt.Errorf("opts: unknown option group %q", group)
	}
	if existing, ok := target[kind]; ok {
		return existing, nil
	}
	if create == nil {
		return nil, nil
	}
	created := create()
	if created == nil {
		return nil, nil
	}
	target[kind] = created
	return created, nil
}

func (o *Options) group(group string) map[string]KindOptions {
	switch group {
	case GroupSource:
		if o.Sources == nil {
			o.Sources = map[string]KindOptions{}
		}
		return o.Sources
	case GroupBuilder:
		if o.Builders == nil {
			o.Builders = map[string]KindOptions{}
		}
		return o.Builders
	default:
		return nil
	}
}
