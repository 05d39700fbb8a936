package config

import (
	"fmt"
	"log/slog"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/internal/logfields"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/spf13/afero"
)

// Config is the root configuration tree of one resolve.
type Config struct {
	tree
	options *opts.Options
	applied map[optionKey]bool
}

// New reads the documents for paths and returns a tree in the accumulating
// phase. Directories contribute pkgtree.yml and pkgtree-local.yml when they
// exist.
func New(paths []string, options ...Option) (*Config, error) {
	s, err := settings{}.apply(options)
	if err != nil {
		return nil, err
	}
	c := &Config{
		tree:    newTree(s),
		options: opts.NewOptions(),
		applied: map[optionKey]bool{},
	}
	c.root = c
	c.common = c.options.Common
	if err := c.accumulate(paths, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// Options returns the option set. It is complete once the tree is
// finalized.
func (c *Config) Options() *opts.Options { return c.options }

// Symbols returns the expression symbols guards are evaluated against.
func (c *Config) Symbols() opts.Symbols { return c.options.Common.Symbols() }

// Engine returns the expression engine of the tree.
func (c *Config) Engine() *opts.Engine { return c.engine }

// Logger returns the tree's logger.
func (c *Config) Logger() *slog.Logger { return c.logger }

// Fs returns the filesystem documents are read from.
func (c *Config) Fs() afero.Fs { return c.fs }

// Preview materializes the options described by the fragments pending so
// far without consuming them. Packages fetched before Finalize read their
// options from it.
func (c *Config) Preview() (*opts.Options, error) {
	if !c.phase.in(PhaseAccumulating, PhaseChildrenMerged) {
		return nil, phaseError("preview options", c.phase, PhaseAccumulating, PhaseChildrenMerged)
	}
	preview := opts.NewOptions()
	preview.Common = c.options.Common
	for key, pending := range c.pendingOptions {
		created, err := preview.Ensure(key.group, key.kind, c.kindOptions(key))
		if err != nil {
			return nil, err
		}
		if created == nil {
			continue
		}
		if err := applyPending(created, key.kind, pending); err != nil {
			return nil, err
		}
	}
	return preview, nil
}

// AddChildren merges finalized child trees. Packages this tree already
// resolved win; two children resolving a name differently is a
// ConflictError.
func (c *Config) AddChildren(children ...*ChildConfig) error {
	return c.addChildren(children)
}

// Finalize resolves every remaining package, materializes the options of
// the kinds in use and attaches them to the packages.
func (c *Config) Finalize() error {
	if !c.phase.in(PhaseAccumulating, PhaseChildrenMerged) {
		return phaseError("finalize", c.phase, PhaseAccumulating, PhaseChildrenMerged)
	}

	for pair := c.packages.Oldest(); pair != nil; pair = pair.Next() {
		if err := c.ensurePackageOptions(pair.Value); err != nil {
			return err
		}
	}
	if err := c.resolveAll(c.ensurePackageOptions); err != nil {
		return err
	}

	c.options.Common.Finalize()
	for pair := c.packages.Oldest(); pair != nil; pair = pair.Next() {
		pair.Value.SetOptions(c.options)
	}

	c.pendingPackages = nil
	c.pendingOptions = nil
	c.phase = PhaseFinalized
	c.logger.Debug("configuration finalized",
		logfields.Phase(c.phase.String()), slog.Int("packages", c.packages.Len()))
	return nil
}

func (c *Config) ensurePackageOptions(pkg kinds.Package) error {
	if kinds.IsPlaceholder(pkg) {
		return nil
	}
	if err := c.ensureKindOptions(opts.GroupSource, pkg.FreezeDryTag()); err != nil {
		return err
	}
	if kind := pkg.Base().BuilderKind(); kind != "" {
		return c.ensureKindOptions(opts.GroupBuilder, kind)
	}
	return nil
}

// ensureKindOptions materializes the options of one kind and applies its
// pending fragments in order, stopping after the first final one.
func (c *Config) ensureKindOptions(group, kind string) error {
	key := optionKey{group: group, kind: kind}
	if c.applied[key] {
		return nil
	}
	c.applied[key] = true

	created, err := c.options.Ensure(group, kind, c.kindOptions(key))
	if err != nil {
		return err
	}
	if created == nil {
		return nil
	}
	if err := applyPending(created, kind, c.pendingOptions[key]); err != nil {
		return err
	}
	c.logger.Debug("kind options materialized", logfields.Kind(opts.KindTag(group, kind)))
	return nil
}

func (c *Config) kindOptions(key optionKey) func() opts.KindOptions {
	return func() opts.KindOptions {
		options, _ := c.kinds.KindOptions(key.group, key.kind)
		return options
	}
}

// applyPending applies fragments in order, stopping after the first final
// one.
func applyPending(dst opts.KindOptions, kind string, pending []PendingOption) error {
	for _, option := range pending {
		if err := dst.Accumulate(option.Fragment); err != nil {
			return fmt.Errorf("config: %s options from %s: %w", kind, option.Fragment.Origin, err)
		}
		if option.Final {
			break
		}
	}
	return nil
}
