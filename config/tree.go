// Package config merges configuration documents into a resolved package
// graph. A root Config accumulates the requested documents, merges the
// ChildConfigs of fetched dependencies and finalizes into packages with their
// options attached.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/internal/logfields"
	"github.com/goliatone/go-pkgtree/kinds"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Document names looked up in a directory.
const (
	FileName      = "pkgtree.yml"
	LocalFileName = "pkgtree-local.yml"
)

const (
	guardKey = "if"
	finalKey = "final"
)

// Candidate is one guarded definition of a package.
type Candidate struct {
	Node document.Node
	// Guard is nil when absent, otherwise a bool or an expression string.
	Guard    any
	GuardPos document.Position
	Origin   string
}

// PendingOption is one options fragment waiting to be applied.
type PendingOption struct {
	Fragment opts.Fragment
	Final    bool
}

type optionKey struct {
	group string
	kind  string
}

// Tree is what a ChildConfig sees of its parent.
type Tree interface {
	// Owns reports whether the tree or one of its ancestors defines name.
	Owns(name string) bool
	Root() *Config
}

type tree struct {
	settings
	phase Phase
	root  *Config
	// parent is nil for the root.
	parent Tree
	// common is nil for child trees, whose documents cannot set common
	// options.
	common *opts.Common

	files         []string
	implicitFiles []string

	pendingPackages *orderedmap.OrderedMap[string, []Candidate]
	pendingOptions  map[optionKey][]PendingOption
	packages        *orderedmap.OrderedMap[string, kinds.Package]
}

func newTree(s settings) tree {
	return tree{
		settings:        s,
		phase:           PhaseCreated,
		pendingPackages: orderedmap.New[string, []Candidate](),
		pendingOptions:  map[optionKey][]PendingOption{},
		packages:        orderedmap.New[string, kinds.Package](),
	}
}

// Phase reports the tree's lifecycle stage.
func (t *tree) Phase() Phase { return t.phase }

// Files lists the documents read, in precedence order from weakest to
// strongest.
func (t *tree) Files() []string { return append([]string(nil), t.files...) }

// ImplicitFiles lists the documents of merged child trees.
func (t *tree) ImplicitFiles() []string { return append([]string(nil), t.implicitFiles...) }

// Root returns the root configuration.
func (t *tree) Root() *Config { return t.root }

// Owns implements Tree.
func (t *tree) Owns(name string) bool {
	if pkg, ok := t.packages.Get(name); ok && !kinds.IsPlaceholder(pkg) {
		return true
	}
	if _, ok := t.pendingPackages.Get(name); ok {
		return true
	}
	return t.parent != nil && t.parent.Owns(name)
}

// Package returns a resolved package. Placeholders are not returned.
func (t *tree) Package(name string) (kinds.Package, bool) {
	pkg, ok := t.packages.Get(name)
	if !ok || kinds.IsPlaceholder(pkg) {
		return nil, false
	}
	return pkg, true
}

// Packages returns the resolved packages in resolution order, without
// placeholders.
func (t *tree) Packages() *orderedmap.OrderedMap[string, kinds.Package] {
	out := orderedmap.New[string, kinds.Package](orderedmap.WithCapacity[string, kinds.Package](t.packages.Len()))
	for pair := t.packages.Oldest(); pair != nil; pair = pair.Next() {
		if !kinds.IsPlaceholder(pair.Value) {
			out.Set(pair.Key, pair.Value)
		}
	}
	return out
}

// Names lists the resolved package names in resolution order, without
// placeholders.
func (t *tree) Names() []string {
	names := make([]string, 0, t.packages.Len())
	for pair := t.packages.Oldest(); pair != nil; pair = pair.Next() {
		if !kinds.IsPlaceholder(pair.Value) {
			names = append(names, pair.Key)
		}
	}
	return names
}

// PendingNames lists the package names not resolved yet, in declaration
// order.
func (t *tree) PendingNames() []string {
	names := make([]string, 0, t.pendingPackages.Len())
	for pair := t.pendingPackages.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// ResolvePackage resolves name by scanning its candidates for the first true
// guard. It returns false when the name is unknown, owned by an ancestor, or
// no guard held.
func (t *tree) ResolvePackage(name string) (kinds.Package, bool, error) {
	if !t.phase.in(PhaseAccumulating, PhaseChildrenMerged) {
		return nil, false, phaseError("resolve package", t.phase, PhaseAccumulating, PhaseChildrenMerged)
	}
	return t.resolvePackage(name)
}

func (t *tree) resolvePackage(name string) (kinds.Package, bool, error) {
	if pkg, ok := t.packages.Get(name); ok {
		if kinds.IsPlaceholder(pkg) {
			return nil, false, nil
		}
		return pkg, true, nil
	}
	candidates, ok := t.pendingPackages.Get(name)
	if !ok {
		return nil, false, nil
	}
	t.pendingPackages.Delete(name)

	symbols := t.root.Symbols()
	for _, candidate := range candidates {
		match, err := t.guard(symbols, candidate)
		if err != nil {
			return nil, false, fmt.Errorf("config: package %q: %w", name, err)
		}
		if !match {
			continue
		}
		pkg, err := t.kinds.ParsePackage(name, candidate.Origin, candidate.Node)
		if err != nil {
			return nil, false, fmt.Errorf("config: package %q: %w", name, err)
		}
		t.packages.Set(name, pkg)
		t.logger.Debug("package resolved",
			logfields.Package(name), logfields.Source(pkg.FreezeDryTag()), logfields.File(candidate.Origin))
		return pkg, true, nil
	}
	t.logger.Debug("no candidate guard held", logfields.Package(name), slog.Int("candidates", len(candidates)))
	return nil, false, nil
}

func (t *tree) guard(symbols opts.Symbols, candidate Candidate) (bool, error) {
	switch guard := candidate.Guard.(type) {
	case nil:
		return true, nil
	case bool:
		return guard, nil
	case string:
		return t.engine.Guard(symbols, guard, candidate.GuardPos)
	default:
		return false, &document.FieldValueError{Pos: candidate.GuardPos, Err: fmt.Errorf("unsupported guard %T", guard)}
	}
}

// resolveAll resolves every pending package in declaration order.
func (t *tree) resolveAll(resolved func(kinds.Package) error) error {
	for _, name := range t.PendingNames() {
		pkg, ok, err := t.resolvePackage(name)
		if err != nil {
			return err
		}
		if ok && resolved != nil {
			if err := resolved(pkg); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandPaths turns the requested paths into document files. A directory
// contributes its base document in place and its local document after all
// explicit ones.
func (t *tree) expandPaths(paths []string) ([]string, error) {
	var explicit, local []string
	for _, path := range paths {
		path = filepath.Clean(path)
		info, err := t.fs.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if !info.IsDir() {
			explicit = append(explicit, path)
			continue
		}
		base := filepath.Join(path, FileName)
		if ok, err := t.exists(base); err != nil {
			return nil, err
		} else if ok {
			explicit = append(explicit, base)
		}
		override := filepath.Join(path, LocalFileName)
		if ok, err := t.exists(override); err != nil {
			return nil, err
		} else if ok {
			local = append(local, override)
		}
	}
	return append(explicit, local...), nil
}

func (t *tree) exists(path string) (bool, error) {
	info, err := t.fs.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("config: %w", err)
	default:
		return !info.IsDir(), nil
	}
}

// accumulate reads every file, strongest first.
func (t *tree) accumulate(paths []string, export func(document.Node, string) error) error {
	if t.phase != PhaseCreated {
		return phaseError("accumulate", t.phase, PhaseCreated)
	}
	files, err := t.expandPaths(paths)
	if err != nil {
		return err
	}
	t.files = files
	t.phase = PhaseAccumulating

	for i := len(files) - 1; i >= 0; i-- {
		doc, err := document.Load(t.fs, files[i])
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if err := t.accumulateDocument(doc, export); err != nil {
			return fmt.Errorf("config: %s: %w", files[i], err)
		}
		t.logger.Debug("document accumulated", logfields.File(files[i]), logfields.Phase(t.phase.String()))
	}
	return nil
}

func (t *tree) accumulateDocument(doc *document.Document, export func(document.Node, string) error) error {
	entries, err := doc.Root.Entries()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		switch entry.Key {
		case "packages":
			err = t.accumulatePackages(entry.Value, doc.File)
		case "options":
			err = t.accumulateOptions(entry.Value, doc.File)
		case "export":
			if export != nil {
				err = export(entry.Value, doc.File)
			}
		default:
			err = entry.Value.Errorf("unknown top-level key %q", entry.Key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *tree) accumulatePackages(node document.Node, origin string) error {
	entries, err := node.Entries()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Key
		if existing, ok := t.packages.Get(name); ok && kinds.IsPlaceholder(existing) {
			continue
		}
		if t.parent != nil && t.parent.Owns(name) {
			t.packages.Set(name, kinds.NewPlaceholder(name))
			t.logger.Debug("package owned by an ancestor", logfields.Package(name), logfields.File(origin))
			continue
		}
		candidates, err := parseCandidates(name, entry.Value, origin)
		if err != nil {
			return err
		}
		pending, _ := t.pendingPackages.Get(name)
		t.pendingPackages.Set(name, append(pending, candidates...))
	}
	return nil
}

func parseCandidates(name string, node document.Node, origin string) ([]Candidate, error) {
	var items []document.Node
	switch {
	case node.IsMapping():
		items = []document.Node{node}
	case node.IsSequence():
		var err error
		if items, err = node.Items(); err != nil {
			return nil, err
		}
	default:
		return nil, node.Errorf("package %q must be a mapping or a list of mappings, got %s", name, node.KindName())
	}

	out := make([]Candidate, 0, len(items))
	for i, item := range items {
		if !item.IsMapping() {
			return nil, item.Errorf("package %q candidate must be a mapping, got %s", name, item.KindName())
		}
		candidate := Candidate{Node: item.Without(guardKey), Origin: origin, GuardPos: item.Pos()}
		guard, ok := item.Get(guardKey)
		if ok && guard.IsNull() {
			// "if: ~" reads as no guard at all.
			ok = false
		}
		if ok {
			candidate.GuardPos = guard.Pos()
			switch {
			case guard.IsBool():
				value, _ := guard.Bool()
				candidate.Guard = value
			case guard.IsScalar():
				expr, _ := guard.Scalar()
				candidate.Guard = expr
			default:
				return nil, guard.Errorf("guard must be a boolean or an expression, got %s", guard.KindName())
			}
		} else if i < len(items)-1 {
			return nil, &MalformedCandidateListError{Name: name, Index: i, Pos: item.Pos()}
		}
		out = append(out, candidate)
	}
	return out, nil
}

func (t *tree) accumulateOptions(node document.Node, origin string) error {
	entries, err := node.Entries()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		switch entry.Key {
		case "sources":
			err = t.accumulateKindOptions(opts.GroupSource, entry.Value, origin)
		case "builders":
			err = t.accumulateKindOptions(opts.GroupBuilder, entry.Value, origin)
		default:
			if t.common == nil {
				t.logger.Debug("common option ignored in a dependency", slog.String("option", entry.Key), logfields.File(origin))
				continue
			}
			err = t.common.Apply(entry.Key, entry.Value, origin)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *tree) accumulateKindOptions(group string, node document.Node, origin string) error {
	entries, err := node.Entries()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if _, err := t.kinds.KindOptions(group, entry.Key); err != nil {
			return &document.FieldValueError{Path: entry.Value.Path(), Pos: entry.Value.Pos(), Err: err}
		}
		if !entry.Value.IsNull() && !entry.Value.IsMapping() {
			return entry.Value.Errorf("%s options must be a mapping, got %s", entry.Key, entry.Value.KindName())
		}
		pending := PendingOption{
			Fragment: opts.Fragment{Node: entry.Value.Without(finalKey), Origin: origin, Child: t.parent != nil},
		}
		if final, ok := entry.Value.Get(finalKey); ok {
			if pending.Final, err = final.Bool(); err != nil {
				return err
			}
		}
		key := optionKey{group: group, kind: entry.Key}
		t.pendingOptions[key] = append(t.pendingOptions[key], pending)
	}
	return nil
}
