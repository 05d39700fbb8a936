package fetch_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/goliatone/go-pkgtree/config"
	"github.com/goliatone/go-pkgtree/fetch"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterRejectsReentry(t *testing.T) {
	ctx, err := fetch.Enter(context.Background(), "/proj")
	require.NoError(t, err)
	ctx, err = fetch.Enter(ctx, "/proj/deps/foo")
	require.NoError(t, err)
	assert.Equal(t, []string{"/proj", "/proj/deps/foo"}, fetch.Active(ctx))

	_, err = fetch.Enter(ctx, "/proj/deps/../")
	assert.ErrorIs(t, err, fetch.ErrReentrant)

	sibling, err := fetch.Enter(context.Background(), "/proj/deps/foo")
	require.NoError(t, err, "unrelated contexts do not share the guard")
	assert.Equal(t, []string{"/proj/deps/foo"}, fetch.Active(sibling))
}

func memRoot(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	root, err := config.New([]string{"/proj"}, config.WithFs(fs))
	require.NoError(t, err)
	return root
}

func TestDirectoryFetcherReadsChild(t *testing.T) {
	root := memRoot(t, map[string]string{
		"/proj/pkgtree.yml":          "packages:\n  foo:\n    source: directory\n    path: deps/foo\n",
		"/proj/deps/foo/pkgtree.yml": "export:\n  build: cmake\n  usage: cmake\n",
	})
	pkg, ok, err := root.ResolvePackage("foo")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, pkg.NeedsFetch())

	child, err := fetch.Default(t.TempDir()).Fetch(context.Background(), pkg, root)
	require.NoError(t, err)
	require.NotNil(t, child)
	assert.Equal(t, []string{"/proj/deps/foo/pkgtree.yml"}, child.Files())
	require.NotNil(t, child.Export())
	assert.Equal(t, "cmake", child.Export().Builder.FreezeDryTag())
	assert.Equal(t, map[string]any{"type": "cmake"}, child.Export().Usage)
}

func TestDirectoryFetcherWithoutDocuments(t *testing.T) {
	root := memRoot(t, map[string]string{
		"/proj/pkgtree.yml":      "packages:\n  foo:\n    source: directory\n    path: deps/foo\n",
		"/proj/deps/foo/main.cc": "int main() {}\n",
	})
	pkg, _, err := root.ResolvePackage("foo")
	require.NoError(t, err)

	child, err := fetch.DirectoryFetcher{}.Fetch(context.Background(), pkg, root)
	require.NoError(t, err)
	assert.Nil(t, child)
}

func TestDirectoryFetcherMissingDirectory(t *testing.T) {
	root := memRoot(t, map[string]string{
		"/proj/pkgtree.yml": "packages:\n  foo:\n    source: directory\n    path: deps/foo\n",
	})
	pkg, _, err := root.ResolvePackage("foo")
	require.NoError(t, err)

	_, err = fetch.DirectoryFetcher{}.Fetch(context.Background(), pkg, root)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestMuxUnsupportedSource(t *testing.T) {
	root := memRoot(t, map[string]string{
		"/proj/pkgtree.yml": "packages:\n  zlib:\n    source: system\n",
	})
	pkg, _, err := root.ResolvePackage("zlib")
	require.NoError(t, err)

	_, err = fetch.Default(t.TempDir()).Fetch(context.Background(), pkg, root)
	var unsupported *fetch.UnsupportedSourceError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "system", unsupported.Source)
	assert.Equal(t, []string{"directory", "git"}, unsupported.Known)
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add(name)
	require.NoError(t, err)
	hash, err := worktree.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "pkgtree", Email: "pkgtree@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func gitRoot(t *testing.T, repository, rev string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	doc := fmt.Sprintf("packages:\n  zlib:\n    source: git\n    repository: %s\n    rev: %s\n", repository, rev)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(doc), 0o644))
	root, err := config.New([]string{dir})
	require.NoError(t, err)
	return root
}

func fetchZlib(t *testing.T, root *config.Config, cache string) *config.ChildConfig {
	t.Helper()
	pkg, ok, err := root.ResolvePackage("zlib")
	require.NoError(t, err)
	require.True(t, ok)
	child, err := (&fetch.GitFetcher{CacheDir: cache}).Fetch(context.Background(), pkg, root)
	require.NoError(t, err)
	require.NotNil(t, child)
	require.NotNil(t, child.Export())
	return child
}

func TestGitFetcherChecksOutPinnedRevision(t *testing.T) {
	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	first := commitFile(t, repo, upstream, config.FileName, "export:\n  build: none\n")
	commitFile(t, repo, upstream, config.FileName, "export:\n  build: cmake\n")

	child := fetchZlib(t, gitRoot(t, upstream, first), t.TempDir())
	assert.Equal(t, "none", child.Export().Builder.FreezeDryTag(), "the pinned revision is checked out")
}

func TestGitFetcherFetchesNewCommitsIntoCheckout(t *testing.T) {
	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	first := commitFile(t, repo, upstream, config.FileName, "export:\n  build: none\n")

	cache := t.TempDir()
	child := fetchZlib(t, gitRoot(t, upstream, first), cache)
	assert.Equal(t, "none", child.Export().Builder.FreezeDryTag())

	second := commitFile(t, repo, upstream, config.FileName, "export:\n  build: cmake\n")
	child = fetchZlib(t, gitRoot(t, upstream, second), cache)
	assert.Equal(t, "cmake", child.Export().Builder.FreezeDryTag(), "a commit made after the clone is fetched")

	child = fetchZlib(t, gitRoot(t, upstream, first), cache)
	assert.Equal(t, "none", child.Export().Builder.FreezeDryTag(), "an older pin still resolves")
}

func TestGitFetcherFollowsBranch(t *testing.T) {
	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	commitFile(t, repo, upstream, config.FileName, "export:\n  build: none\n")
	head, err := repo.Head()
	require.NoError(t, err)
	branch := head.Name().Short()

	cache := t.TempDir()
	child := fetchZlib(t, gitRoot(t, upstream, branch), cache)
	assert.Equal(t, "none", child.Export().Builder.FreezeDryTag())

	commitFile(t, repo, upstream, config.FileName, "export:\n  build: cmake\n")
	child = fetchZlib(t, gitRoot(t, upstream, branch), cache)
	assert.Equal(t, "cmake", child.Export().Builder.FreezeDryTag(), "the branch head moves with the remote")
}

func TestGitFetcherReadsCheckoutFromDisk(t *testing.T) {
	upstream := t.TempDir()
	repo, err := git.PlainInit(upstream, false)
	require.NoError(t, err)
	rev := commitFile(t, repo, upstream, config.FileName, "export:\n  build: cmake\n")

	root := memRoot(t, map[string]string{
		"/proj/pkgtree.yml": fmt.Sprintf("packages:\n  zlib:\n    source: git\n    repository: %s\n    rev: %s\n", upstream, rev),
	})
	child := fetchZlib(t, root, t.TempDir())
	assert.Equal(t, "cmake", child.Export().Builder.FreezeDryTag(), "documents are read from the OS checkout, not the tree's filesystem")
}

func TestGitFetcherRejectsForeignCheckout(t *testing.T) {
	cache := t.TempDir()
	checkout := filepath.Join(cache, "zlib")
	repo, err := git.PlainInit(checkout, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: git.DefaultRemoteName, URLs: []string{"https://example.com/other.git"}})
	require.NoError(t, err)
	first := commitFile(t, repo, checkout, "README", "other\n")

	root := gitRoot(t, "https://example.com/zlib.git", first)
	pkg, _, err := root.ResolvePackage("zlib")
	require.NoError(t, err)

	_, err = (&fetch.GitFetcher{CacheDir: cache}).Fetch(context.Background(), pkg, root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds a checkout of")
}
