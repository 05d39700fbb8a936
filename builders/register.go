package builders

import (
	"errors"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/kinds"
)

// None is the builder of packages that need no build step.
type None struct{}

func (*None) FreezeDryTag() string     { return "none" }
func (*None) SetOptions(*opts.Options) {}

func parseNone(ctx kinds.ParseContext) (kinds.Builder, error) {
	if err := ctx.Node.DecodeStrict(&struct{}{}); err != nil {
		return nil, err
	}
	return &None{}, nil
}

// Register adds the cmake, custom and none kinds to r.
func Register(r *kinds.Registry) error {
	return errors.Join(
		r.RegisterBuilder(kinds.BuilderKind{
			Name:    "cmake",
			New:     func() kinds.Builder { return &CMake{} },
			Parse:   parseCMake,
			Options: func() opts.KindOptions { return &CMakeOptions{} },
		}),
		r.RegisterBuilder(kinds.BuilderKind{
			Name:  "custom",
			New:   func() kinds.Builder { return &Custom{} },
			Parse: parseCustom,
		}),
		r.RegisterBuilder(kinds.BuilderKind{
			Name:  "none",
			New:   func() kinds.Builder { return &None{} },
			Parse: parseNone,
		}),
	)
}
