package builders

import (
	"fmt"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/kinds"
	"github.com/goliatone/go-pkgtree/shell"
)

// Custom builds a package by running user supplied commands in order.
type Custom struct {
	BuildCommands []shell.Arguments `freezedry:"build_commands"`
}

func (*Custom) FreezeDryTag() string     { return "custom" }
func (*Custom) SetOptions(*opts.Options) {}

func (*Custom) FreezeDryAdapters() freezedry.Adapters {
	return freezedry.Adapters{"build_commands": freezedry.ListOf[shell.Arguments](nil)}
}

// Commands fills every build command against bases.
func (c *Custom) Commands(bases map[string]string) ([][]string, error) {
	out := make([][]string, 0, len(c.BuildCommands))
	for i, command := range c.BuildCommands {
		argv, err := command.Fill(bases)
		if err != nil {
			return nil, fmt.Errorf("builders: build command %d: %w", i, err)
		}
		out = append(out, argv)
	}
	return out, nil
}

func parseCustom(ctx kinds.ParseContext) (kinds.Builder, error) {
	builder := &Custom{}
	entries, err := ctx.Node.Entries()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Key != "build_commands" {
			return nil, entry.Value.Errorf("unknown custom builder field %q", entry.Key)
		}
		items, err := entry.Value.Items()
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			args, err := parseArguments(item)
			if err != nil {
				return nil, err
			}
			builder.BuildCommands = append(builder.BuildCommands, args)
		}
	}
	if len(builder.BuildCommands) == 0 {
		return nil, ctx.Node.Errorf("custom builder for %q needs build_commands", ctx.Name)
	}
	return builder, nil
}
