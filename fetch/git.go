package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/goliatone/go-pkgtree/config"
	"github.com/goliatone/go-pkgtree/internal/ctxlog"
	"github.com/goliatone/go-pkgtree/internal/logfields"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/shell"
	"github.com/goliatone/go-pkgtree/sources"
	"github.com/spf13/afero"
)

// refSpecs brings every remote branch and tag into a reused checkout.
var refSpecs = []gitconfig.RefSpec{
	"+refs/heads/*:refs/remotes/origin/*",
	"+refs/tags/*:refs/tags/*",
}

// GitFetcher clones git packages into a cache directory, one checkout per
// package name. An existing checkout of the same URL is fetched again and
// reused. Checkouts always live on the OS filesystem, whatever filesystem
// the parent tree reads from.
type GitFetcher struct {
	CacheDir string
	// Progress receives clone progress output when set.
	Progress io.Writer
}

func (f *GitFetcher) Fetch(ctx context.Context, pkg kinds.Package, parent config.Tree) (*config.ChildConfig, error) {
	g, ok := pkg.(*sources.Git)
	if !ok {
		return nil, fmt.Errorf("fetch: git fetcher got %s package %q", pkg.FreezeDryTag(), pkg.Base().Name)
	}
	if f.CacheDir == "" {
		return nil, fmt.Errorf("fetch: git package %q: no cache directory", g.Name)
	}
	logger := ctxlog.FromContext(ctx).With(logfields.Package(g.Name))
	dir := filepath.Join(f.CacheDir, g.Name)
	url := g.CloneURL()

	repo, err := f.open(ctx, g, dir, url)
	if err != nil {
		return nil, err
	}
	if err := checkout(repo, g.Rev); err != nil {
		return nil, fmt.Errorf("fetch: git package %q: checkout %q: %w", g.Name, g.Rev, err)
	}
	if err := updateSubmodules(ctx, repo, g.Submodules); err != nil {
		return nil, fmt.Errorf("fetch: git package %q: %w", g.Name, err)
	}

	src, err := g.CheckoutPath().Fill(map[string]string{shell.BaseSrcDir: dir})
	if err != nil {
		return nil, fmt.Errorf("fetch: git package %q: %w", g.Name, err)
	}
	if head, err := repo.Head(); err == nil {
		logger.Info("git package checked out", logfields.Dir(src), logfields.Commit(head.Hash().String()))
	}
	return readChild(afero.NewOsFs(), parent, src)
}

func (f *GitFetcher) open(ctx context.Context, g *sources.Git, dir, url string) (*git.Repository, error) {
	repo, err := git.PlainOpen(dir)
	if err == nil {
		remote, err := repo.Remote(git.DefaultRemoteName)
		if err != nil {
			return nil, fmt.Errorf("fetch: git package %q: %w", g.Name, err)
		}
		if urls := remote.Config().URLs; len(urls) == 0 || urls[0] != url {
			return nil, fmt.Errorf("fetch: git package %q: %s holds a checkout of %v, want %s", g.Name, dir, urls, url)
		}
		ctxlog.FromContext(ctx).Debug("reusing git checkout", logfields.Package(g.Name), logfields.Dir(dir))
		if err := f.update(ctx, repo, g); err != nil {
			return nil, fmt.Errorf("fetch: git package %q: fetch %s: %w", g.Name, url, err)
		}
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("fetch: git package %q: open %s: %w", g.Name, dir, err)
	}

	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	ctxlog.FromContext(ctx).Info("cloning git package", logfields.Package(g.Name), logfields.URL(url), logfields.Dir(dir))

	options := &git.CloneOptions{URL: url, Progress: f.Progress}
	// A commit may be anywhere in the history, so only named revisions
	// honour depth.
	if g.Rev == "" || !plumbing.IsHash(g.Rev) {
		options.Depth = g.Options().Depth
	}
	if g.Rev != "" && !plumbing.IsHash(g.Rev) {
		options.ReferenceName = plumbing.NewBranchReferenceName(g.Rev)
		options.SingleBranch = true
	}
	repo, err = git.PlainCloneContext(ctx, dir, false, options)
	if errors.Is(err, git.NoMatchingRefSpecError{}) {
		options.ReferenceName = plumbing.NewTagReferenceName(g.Rev)
		repo, err = git.PlainCloneContext(ctx, dir, false, options)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch: git package %q: clone %s: %w", g.Name, url, err)
	}
	return repo, nil
}

func (f *GitFetcher) update(ctx context.Context, repo *git.Repository, g *sources.Git) error {
	options := &git.FetchOptions{RemoteName: git.DefaultRemoteName, RefSpecs: refSpecs, Progress: f.Progress}
	if g.Rev == "" || !plumbing.IsHash(g.Rev) {
		options.Depth = g.Options().Depth
	}
	err := repo.FetchContext(ctx, options)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

func checkout(repo *git.Repository, rev string) error {
	if rev == "" {
		return nil
	}
	hash, err := resolveRevision(repo, rev)
	if err != nil {
		return err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}
	return worktree.Checkout(&git.CheckoutOptions{Hash: *hash})
}

// resolveRevision prefers the remote-tracking branch named rev, since the
// local branch of a reused checkout is never advanced.
func resolveRevision(repo *git.Repository, rev string) (*plumbing.Hash, error) {
	if !plumbing.IsHash(rev) {
		ref, err := repo.Reference(plumbing.NewRemoteReferenceName(git.DefaultRemoteName, rev), true)
		if err == nil {
			hash := ref.Hash()
			return &hash, nil
		}
	}
	return repo.ResolveRevision(plumbing.Revision(rev))
}

func updateSubmodules(ctx context.Context, repo *git.Repository, names []string) error {
	if len(names) == 0 {
		return nil
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}
	for _, name := range names {
		submodule, err := worktree.Submodule(name)
		if err != nil {
			return fmt.Errorf("submodule %q: %w", name, err)
		}
		if err := submodule.UpdateContext(ctx, &git.SubmoduleUpdateOptions{Init: true}); err != nil {
			return fmt.Errorf("submodule %q: %w", name, err)
		}
	}
	return nil
}
