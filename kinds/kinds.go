// Package kinds defines the pluggable package and builder kinds and the
// registry that maps kind names to their implementations.
package kinds

import (
	"path/filepath"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/freezedry"
)

// Package is a resolved package definition. FreezeDryTag names its source
// kind.
type Package interface {
	freezedry.Tagged
	Base() *PackageBase
	// NeedsFetch reports whether the package's sources must be fetched
	// before its build is fully specified.
	NeedsFetch() bool
	// SetOptions attaches the finalized options of the package's kinds.
	SetOptions(options *opts.Options)
}

// Builder describes how a package is built. FreezeDryTag names its kind.
type Builder interface {
	freezedry.Tagged
	SetOptions(options *opts.Options)
}

// PackageBase carries the attributes shared by every source kind.
type PackageBase struct {
	Name       string         `freezedry:"name"`
	ConfigFile string         `freezedry:"config_file,nocompare"`
	Builder    Builder        `freezedry:"builder"`
	Usage      map[string]any `freezedry:"usage"`
	Submodules []string       `freezedry:"submodules"`
}

func (p *PackageBase) Base() *PackageBase { return p }

func (p *PackageBase) FreezeDryAdapters() freezedry.Adapters {
	return freezedry.Adapters{"builder": freezedry.Nested[Builder]()}
}

// ConfigDir is the directory of the document that defined the package.
func (p *PackageBase) ConfigDir() string {
	if p.ConfigFile == "" {
		return ""
	}
	return filepath.Dir(p.ConfigFile)
}

// BuilderKind names the package's builder kind, or "".
func (p *PackageBase) BuilderKind() string {
	if p.Builder == nil {
		return ""
	}
	return p.Builder.FreezeDryTag()
}

// ApplyExport fills the attributes the package left unset from a
// dependency's own export section.
func (p *PackageBase) ApplyExport(export *Export) {
	if export == nil {
		return
	}
	if p.Builder == nil {
		p.Builder = export.Builder
	}
	if p.Usage == nil {
		p.Usage = export.Usage
	}
	if p.Submodules == nil {
		p.Submodules = export.Submodules
	}
}

// SetBuilderOptions hands the builder its options. Source kinds call it from
// SetOptions.
func (p *PackageBase) SetBuilderOptions(options *opts.Options) {
	if p.Builder != nil {
		p.Builder.SetOptions(options)
	}
}

// Export is what a dependency declares about itself for dependents that do
// not specify it.
type Export struct {
	Builder    Builder
	Usage      map[string]any
	Submodules []string
}

// Placeholder marks a package name that an ancestor tree owns. It is never
// persisted.
type Placeholder struct {
	PackageBase
}

// NewPlaceholder returns the marker for name.
func NewPlaceholder(name string) *Placeholder {
	return &Placeholder{PackageBase{Name: name}}
}

func (*Placeholder) FreezeDryTag() string     { return "placeholder" }
func (*Placeholder) NeedsFetch() bool         { return false }
func (*Placeholder) SetOptions(*opts.Options) {}

// IsPlaceholder reports whether pkg is a Placeholder.
func IsPlaceholder(pkg Package) bool {
	_, ok := pkg.(*Placeholder)
	return ok
}

// ParseContext is handed to a kind's parser.
type ParseContext struct {
	Name   string
	Origin string
	Node   document.Node
	Kinds  *Registry
}

// Dir is the directory of the document being parsed.
func (ctx ParseContext) Dir() string {
	return filepath.Dir(ctx.Origin)
}

// Base builds the shared attributes from the usage, submodules and build
// keys of ctx.Node and returns the node without them.
func (ctx ParseContext) Base() (PackageBase, document.Node, error) {
	base := PackageBase{Name: ctx.Name, ConfigFile: ctx.Origin}
	if build, ok := ctx.Node.Get("build"); ok && !build.IsNull() {
		builder, err := ctx.Kinds.ParseBuilder(ctx, build)
		if err != nil {
			return base, ctx.Node, err
		}
		base.Builder = builder
	}
	if usage, ok := ctx.Node.Get("usage"); ok && !usage.IsNull() {
		if usage.IsScalar() {
			kind, _ := usage.Scalar()
			base.Usage = map[string]any{"type": kind}
		} else {
			value, err := usage.Interface()
			if err != nil {
				return base, ctx.Node, err
			}
			asMap, ok := value.(map[string]any)
			if !ok {
				return base, ctx.Node, usage.Errorf("expected a mapping or a usage name, got %s", usage.KindName())
			}
			base.Usage = asMap
		}
	}
	if submodules, ok := ctx.Node.Get("submodules"); ok && !submodules.IsNull() {
		if err := submodules.Decode(&base.Submodules); err != nil {
			return base, ctx.Node, err
		}
	}
	return base, ctx.Node.Without("build", "usage", "submodules"), nil
}
