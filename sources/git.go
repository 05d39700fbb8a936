package sources

import (
	"sort"
	"strings"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/shell"
)

// Git is a package cloned from a git repository.
type Git struct {
	kinds.PackageBase
	Repository string `freezedry:"repository"`
	Rev        string `freezedry:"rev"`
	// SubDir is the package root inside the checkout.
	SubDir string `freezedry:"subdir"`

	options *GitOptions
}

func (*Git) FreezeDryTag() string { return "git" }

func (g *Git) NeedsFetch() bool { return true }

func (g *Git) SetOptions(options *opts.Options) {
	g.options, _ = options.Source("git").(*GitOptions)
	g.SetBuilderOptions(options)
}

// Options returns the options attached at finalize time, or defaults.
func (g *Git) Options() GitOptions {
	if g.options == nil {
		return GitOptions{}
	}
	return *g.options
}

// CloneURL applies the longest matching mirror prefix to the repository.
func (g *Git) CloneURL() string {
	mirrors := g.Options().Mirrors
	prefixes := make([]string, 0, len(mirrors))
	for prefix := range mirrors {
		if strings.HasPrefix(g.Repository, prefix) {
			prefixes = append(prefixes, prefix)
		}
	}
	if len(prefixes) == 0 {
		return g.Repository
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	return mirrors[prefixes[0]] + strings.TrimPrefix(g.Repository, prefixes[0])
}

// CheckoutPath locates the package root relative to the clone directory.
func (g *Git) CheckoutPath() shell.Path {
	return shell.NewPath(shell.BaseSrcDir, g.SubDir)
}

// GitOptions configure every git package.
type GitOptions struct {
	// Depth limits clone history; zero clones everything.
	Depth int `yaml:"depth" freezedry:"depth"`
	// Mirrors rewrites repository URL prefixes. Only the root tree may set
	// mirrors.
	Mirrors map[string]string `yaml:"mirrors" freezedry:"mirrors"`
}

func (*GitOptions) FreezeDryTag() string { return opts.KindTag(opts.GroupSource, "git") }

func (o *GitOptions) Accumulate(fragment opts.Fragment) error {
	if fragment.Child {
		fragment.Node = fragment.Node.Without("mirrors")
	}
	return opts.Accumulate(o, fragment)
}

func parseGit(ctx kinds.ParseContext) (kinds.Package, error) {
	base, rest, err := ctx.Base()
	if err != nil {
		return nil, err
	}
	var fields struct {
		Repository string `yaml:"repository"`
		Rev        string `yaml:"rev"`
		SubDir     string `yaml:"subdir"`
	}
	if err := rest.DecodeStrict(&fields); err != nil {
		return nil, err
	}
	if fields.Repository == "" {
		return nil, rest.Errorf("git package %q needs a repository", ctx.Name)
	}
	return &Git{
		PackageBase: base,
		Repository:  fields.Repository,
		Rev:         fields.Rev,
		SubDir:      fields.SubDir,
	}, nil
}
