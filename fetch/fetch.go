// Package fetch obtains the sources of packages whose build is not fully
// specified locally and reads the configuration documents found there as a
// ChildConfig.
package fetch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/goliatone/go-pkgtree/config"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/spf13/afero"
)

// Fetcher fetches one package. A nil ChildConfig means the sources hold no
// configuration documents. The child is returned accumulated; the caller
// merges its own children and finalizes it.
type Fetcher interface {
	Fetch(ctx context.Context, pkg kinds.Package, parent config.Tree) (*config.ChildConfig, error)
}

// Func allows plain functions to satisfy Fetcher.
type Func func(ctx context.Context, pkg kinds.Package, parent config.Tree) (*config.ChildConfig, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, pkg kinds.Package, parent config.Tree) (*config.ChildConfig, error) {
	return f(ctx, pkg, parent)
}

// UnsupportedSourceError reports a package whose source kind has no fetcher.
type UnsupportedSourceError struct {
	Package string
	Source  string
	Known   []string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("fetch: package %q: no fetcher for source %q (have %v)", e.Package, e.Source, e.Known)
}

// Mux dispatches on the package's source kind.
type Mux map[string]Fetcher

// Default returns the fetchers for the built-in source kinds. Git checkouts
// are kept below cacheDir.
func Default(cacheDir string) Mux {
	return Mux{
		"directory": DirectoryFetcher{},
		"git":       &GitFetcher{CacheDir: cacheDir},
	}
}

func (m Mux) Fetch(ctx context.Context, pkg kinds.Package, parent config.Tree) (*config.ChildConfig, error) {
	fetcher, ok := m[pkg.FreezeDryTag()]
	if !ok || fetcher == nil {
		known := make([]string, 0, len(m))
		for name := range m {
			known = append(known, name)
		}
		sort.Strings(known)
		return nil, &UnsupportedSourceError{Package: pkg.Base().Name, Source: pkg.FreezeDryTag(), Known: known}
	}
	return fetcher.Fetch(ctx, pkg, parent)
}

// readChild reads the documents in dir from fs as a child of parent, or
// returns nil when dir has none.
func readChild(fs afero.Fs, parent config.Tree, dir string) (*config.ChildConfig, error) {
	for _, name := range []string{config.FileName, config.LocalFileName} {
		ok, err := afero.Exists(fs, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
		if ok {
			return config.NewChild(parent, []string{dir}, config.WithFs(fs))
		}
	}
	return nil, nil
}
