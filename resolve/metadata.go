package resolve

import (
	"fmt"
	"sort"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/config"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/kinds"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MetadataVersion is the schema version Metadata is saved with.
//
// Version 1 stored packages as a mapping keyed by name and had no
// implicit_files.
const MetadataVersion = 2

// Metadata is the persisted outcome of a resolve.
type Metadata struct {
	Files         []string                                      `freezedry:"files"`
	ImplicitFiles []string                                      `freezedry:"implicit_files"`
	Options       *opts.Options                                 `freezedry:"options"`
	Packages      *orderedmap.OrderedMap[string, kinds.Package] `freezedry:"packages"`
}

// NewMetadata captures a finalized configuration.
func NewMetadata(cfg *config.Config) *Metadata {
	return &Metadata{
		Files:         cfg.Files(),
		ImplicitFiles: cfg.ImplicitFiles(),
		Options:       cfg.Options(),
		Packages:      cfg.Packages(),
	}
}

func (*Metadata) FreezeDryTag() string  { return "metadata" }
func (*Metadata) FreezeDryVersion() int { return MetadataVersion }

func (*Metadata) FreezeDryAdapters() freezedry.Adapters {
	return freezedry.Adapters{
		"options":  freezedry.Nested[*opts.Options](),
		"packages": freezedry.DictToListOf[kinds.Package](nil, packageName),
	}
}

func (*Metadata) Upgrade(fields map[string]any, version int) (map[string]any, error) {
	if version < 2 {
		if _, ok := fields["implicit_files"]; !ok {
			fields["implicit_files"] = []any{}
		}
		if byName, ok := fields["packages"].(map[string]any); ok {
			names := make([]string, 0, len(byName))
			for name := range byName {
				names = append(names, name)
			}
			sort.Strings(names)
			list := make([]any, 0, len(names))
			for _, name := range names {
				list = append(list, byName[name])
			}
			fields["packages"] = list
		}
	}
	return fields, nil
}

// Package returns a package by name.
func (m *Metadata) Package(name string) (kinds.Package, bool) {
	if m == nil || m.Packages == nil {
		return nil, false
	}
	return m.Packages.Get(name)
}

// Names lists the package names in resolution order.
func (m *Metadata) Names() []string {
	if m == nil || m.Packages == nil {
		return nil
	}
	names := make([]string, 0, m.Packages.Len())
	for pair := m.Packages.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// attach hands every package the restored options.
func (m *Metadata) attach() {
	if m.Options == nil {
		m.Options = opts.NewOptions()
	}
	if m.Packages == nil {
		m.Packages = orderedmap.New[string, kinds.Package]()
		return
	}
	for pair := m.Packages.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.SetOptions(m.Options)
	}
}

// Changed lists the packages of current whose definition differs from
// previous, followed by the packages previous had and current dropped. The
// builder is ignored: it may be exported by sources that were not fetched
// again. A nil previous reports every package.
func Changed(codec *freezedry.Codec, previous, current *Metadata) []string {
	changed := []string{}
	for _, name := range current.Names() {
		pkg, _ := current.Package(name)
		prev, ok := previous.Package(name)
		if !ok || !codec.Equal(prev, pkg, "builder") {
			changed = append(changed, name)
		}
	}
	for _, name := range previous.Names() {
		if _, ok := current.Package(name); !ok {
			changed = append(changed, name)
		}
	}
	return changed
}

func packageName(pkg kinds.Package) string {
	return pkg.Base().Name
}

func rehydrateMetadata(codec *freezedry.Codec, env freezedry.Envelope) (*Metadata, error) {
	if env.Type != "" && env.Type != (*Metadata)(nil).FreezeDryTag() {
		return nil, fmt.Errorf("resolve: stored snapshot is a %q, want metadata", env.Type)
	}
	m, err := freezedry.Rehydrate[*Metadata](codec, env)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = &Metadata{}
	}
	m.attach()
	return m, nil
}
