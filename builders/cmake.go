package builders

import (
	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/shell"
)

// CMake builds a package with cmake.
type CMake struct {
	ExtraArgs shell.Arguments `freezedry:"extra_args"`

	options *CMakeOptions
}

func (*CMake) FreezeDryTag() string { return "cmake" }

func (c *CMake) SetOptions(options *opts.Options) {
	c.options, _ = options.Builder("cmake").(*CMakeOptions)
}

// Command builds the configure command line. bases must provide srcdir and
// builddir.
func (c *CMake) Command(bases map[string]string) ([]string, error) {
	args := shell.Arguments{
		shell.Literal("cmake"),
		shell.Literal("-S"), shell.NewPath(shell.BaseSrcDir, ""),
		shell.Literal("-B"), shell.NewPath(shell.BaseBuildDir, ""),
	}
	if c.options != nil {
		if c.options.Generator != "" {
			args = append(args, shell.Literal("-G"), shell.Literal(c.options.Generator))
		}
		if c.options.Toolchain != "" {
			args = append(args, shell.Literal("-DCMAKE_TOOLCHAIN_FILE="+c.options.Toolchain))
		}
		args = append(args, shell.Strings(c.options.ExtraArgs...)...)
	}
	args = append(args, c.ExtraArgs...)
	return args.Fill(bases)
}

// CMakeOptions configure every cmake build.
type CMakeOptions struct {
	// Toolchain is only honored from the root tree.
	Toolchain string   `yaml:"toolchain" freezedry:"toolchain"`
	Generator string   `yaml:"generator" freezedry:"generator"`
	ExtraArgs []string `yaml:"extra_args" freezedry:"extra_args"`
}

func (*CMakeOptions) FreezeDryTag() string { return opts.KindTag(opts.GroupBuilder, "cmake") }

func (o *CMakeOptions) Accumulate(fragment opts.Fragment) error {
	if fragment.Child {
		fragment.Node = fragment.Node.Without("toolchain")
	}
	return opts.Accumulate(o, fragment)
}

func parseCMake(ctx kinds.ParseContext) (kinds.Builder, error) {
	builder := &CMake{}
	if ctx.Node.IsNull() {
		return builder, nil
	}
	entries, err := ctx.Node.Entries()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		switch entry.Key {
		case "extra_args":
			args, err := parseArguments(entry.Value)
			if err != nil {
				return nil, err
			}
			builder.ExtraArgs = args
		default:
			return nil, entry.Value.Errorf("unknown cmake field %q", entry.Key)
		}
	}
	return builder, nil
}

var _ freezedry.Tagged = (*CMake)(nil)
