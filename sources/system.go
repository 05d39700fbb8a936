package sources

import (
	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/kinds"
)

// System is a package provided by the host system. It is never fetched.
type System struct {
	kinds.PackageBase
	Version string `freezedry:"version"`
}

func (*System) FreezeDryTag() string { return "system" }
func (*System) NeedsFetch() bool     { return false }

func (s *System) SetOptions(options *opts.Options) {
	s.SetBuilderOptions(options)
}

func parseSystem(ctx kinds.ParseContext) (kinds.Package, error) {
	base, rest, err := ctx.Base()
	if err != nil {
		return nil, err
	}
	var fields struct {
		Version string `yaml:"version"`
	}
	if err := rest.DecodeStrict(&fields); err != nil {
		return nil, err
	}
	return &System{PackageBase: base, Version: fields.Version}, nil
}
