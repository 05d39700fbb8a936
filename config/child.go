package config

import (
	"log/slog"

	"github.com/goliatone/go-pkgtree/document"
	"github.com/goliatone/go-pkgtree/internal/logfields"
	"github.com/goliatone/go-pkgtree/kinds"
)

// ChildConfig is the configuration tree found in a fetched dependency. It
// resolves its own packages with the root's symbols and keeps its option
// fragments for the parent to merge.
type ChildConfig struct {
	tree
	export *kinds.Export
}

// NewChild reads the documents for paths as a dependency of parent. Settings
// not overridden by options are taken from the root.
func NewChild(parent Tree, paths []string, options ...Option) (*ChildConfig, error) {
	root := parent.Root()
	s, err := root.settings.apply(options)
	if err != nil {
		return nil, err
	}
	c := &ChildConfig{tree: newTree(s)}
	c.root = root
	c.parent = parent
	if err := c.accumulate(paths, c.accumulateExport); err != nil {
		return nil, err
	}
	return c, nil
}

// Export returns what the dependency declares about itself, or nil.
func (c *ChildConfig) Export() *kinds.Export { return c.export }

// AddChildren merges finalized grandchildren into this tree.
func (c *ChildConfig) AddChildren(children ...*ChildConfig) error {
	return c.addChildren(children)
}

// Finalize resolves the remaining packages. Option fragments are kept until
// the tree is merged into its parent.
func (c *ChildConfig) Finalize() error {
	if !c.phase.in(PhaseAccumulating, PhaseChildrenMerged) {
		return phaseError("finalize", c.phase, PhaseAccumulating, PhaseChildrenMerged)
	}
	if err := c.resolveAll(nil); err != nil {
		return err
	}
	c.phase = PhaseFinalized
	c.logger.Debug("dependency configuration finalized", logfields.Phase(c.phase.String()))
	return nil
}

// accumulateExport fills the export fields still unset; documents are read
// strongest first.
func (c *ChildConfig) accumulateExport(node document.Node, origin string) error {
	if node.IsNull() {
		return nil
	}
	ctx := kinds.ParseContext{Name: "export", Origin: origin, Node: node, Kinds: c.kinds}
	base, rest, err := ctx.Base()
	if err != nil {
		return err
	}
	if err := rest.DecodeStrict(&struct{}{}); err != nil {
		return err
	}
	if c.export == nil {
		c.export = &kinds.Export{}
	}
	if c.export.Builder == nil {
		c.export.Builder = base.Builder
	}
	if c.export.Usage == nil {
		c.export.Usage = base.Usage
	}
	if c.export.Submodules == nil {
		c.export.Submodules = base.Submodules
	}
	return nil
}

func (t *tree) addChildren(children []*ChildConfig) error {
	if !t.phase.in(PhaseAccumulating, PhaseChildrenMerged) {
		return phaseError("add children", t.phase, PhaseAccumulating, PhaseChildrenMerged)
	}
	for _, child := range children {
		if child.phase != PhaseFinalized {
			return phaseError("merge child", child.phase, PhaseFinalized)
		}
	}
	codec := t.kinds.Codec()

	seen := map[string]kinds.Package{}
	for _, child := range children {
		for pair := child.packages.Oldest(); pair != nil; pair = pair.Next() {
			if kinds.IsPlaceholder(pair.Value) {
				continue
			}
			if prev, ok := seen[pair.Key]; ok && !codec.Equal(prev, pair.Value) {
				return &ConflictError{
					Name:  pair.Key,
					Files: [2]string{prev.Base().ConfigFile, pair.Value.Base().ConfigFile},
					Diff:  codec.Diff(prev, pair.Value),
				}
			}
			seen[pair.Key] = pair.Value
		}
	}

	for _, child := range children {
		for pair := child.packages.Oldest(); pair != nil; pair = pair.Next() {
			if kinds.IsPlaceholder(pair.Value) {
				continue
			}
			if _, ok := t.packages.Get(pair.Key); ok {
				continue
			}
			if _, ok := t.pendingPackages.Get(pair.Key); ok {
				continue
			}
			t.packages.Set(pair.Key, pair.Value)
		}
		for key, pending := range child.pendingOptions {
			t.pendingOptions[key] = append(t.pendingOptions[key], pending...)
		}
		t.implicitFiles = append(t.implicitFiles, child.files...)
		t.implicitFiles = append(t.implicitFiles, child.implicitFiles...)
		t.logger.Debug("dependency merged", slog.Any("files", child.files))
	}
	t.phase = PhaseChildrenMerged
	return nil
}
