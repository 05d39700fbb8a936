package sources

import (
	"errors"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/kinds"
)

// Register adds the directory, git and system kinds to r.
func Register(r *kinds.Registry) error {
	return errors.Join(
		r.RegisterSource(kinds.SourceKind{
			Name:  "directory",
			New:   func() kinds.Package { return &Directory{} },
			Parse: parseDirectory,
		}),
		r.RegisterSource(kinds.SourceKind{
			Name:    "git",
			New:     func() kinds.Package { return &Git{} },
			Parse:   parseGit,
			Options: func() opts.KindOptions { return &GitOptions{} },
		}),
		r.RegisterSource(kinds.SourceKind{
			Name:  "system",
			New:   func() kinds.Package { return &System{} },
			Parse: parseSystem,
		}),
	)
}
