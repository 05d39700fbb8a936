// Package sources implements the package source kinds.
package sources

import (
	"path/filepath"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/shell"
)

// Directory is a package whose sources already live on disk.
type Directory struct {
	kinds.PackageBase
	Path shell.Path `freezedry:"path"`
}

func (*Directory) FreezeDryTag() string { return "directory" }

func (d *Directory) FreezeDryAdapters() freezedry.Adapters {
	adapters := d.PackageBase.FreezeDryAdapters()
	adapters["path"] = freezedry.Nested[shell.Path]()
	return adapters
}

// NeedsFetch is true until the build is known: the directory's own
// documents may export it.
func (d *Directory) NeedsFetch() bool {
	return d.Builder == nil
}

func (d *Directory) SetOptions(options *opts.Options) {
	d.SetBuilderOptions(options)
}

// SrcDir resolves the package's source directory.
func (d *Directory) SrcDir() (string, error) {
	return d.Path.Fill(map[string]string{shell.BaseCfgDir: d.ConfigDir()})
}

func parseDirectory(ctx kinds.ParseContext) (kinds.Package, error) {
	base, rest, err := ctx.Base()
	if err != nil {
		return nil, err
	}
	var fields struct {
		Path string `yaml:"path"`
	}
	if err := rest.DecodeStrict(&fields); err != nil {
		return nil, err
	}
	if fields.Path == "" {
		return nil, rest.Errorf("directory package %q needs a path", ctx.Name)
	}
	return &Directory{PackageBase: base, Path: configPath(fields.Path)}, nil
}

func configPath(text string) shell.Path {
	if filepath.IsAbs(text) {
		return shell.NewPath(shell.BaseAbsolute, filepath.ToSlash(text))
	}
	return shell.NewPath(shell.BaseCfgDir, text)
}
