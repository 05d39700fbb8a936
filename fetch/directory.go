package fetch

import (
	"context"
	"fmt"

	"github.com/goliatone/go-pkgtree/config"
	"github.com/goliatone/go-pkgtree/internal/ctxlog"
	"github.com/goliatone/go-pkgtree/internal/logfields"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/sources"
)

// DirectoryFetcher reads the documents of a directory package in place.
type DirectoryFetcher struct{}

func (DirectoryFetcher) Fetch(ctx context.Context, pkg kinds.Package, parent config.Tree) (*config.ChildConfig, error) {
	d, ok := pkg.(*sources.Directory)
	if !ok {
		return nil, fmt.Errorf("fetch: directory fetcher got %s package %q", pkg.FreezeDryTag(), pkg.Base().Name)
	}
	dir, err := d.SrcDir()
	if err != nil {
		return nil, fmt.Errorf("fetch: package %q: %w", d.Name, err)
	}
	info, err := parent.Root().Fs().Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("fetch: package %q: %w", d.Name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fetch: package %q: %s is not a directory", d.Name, dir)
	}
	ctxlog.FromContext(ctx).Debug("directory package located", logfields.Package(d.Name), logfields.Dir(dir))
	return readChild(parent.Root().Fs(), parent, dir)
}
