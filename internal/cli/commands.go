package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	opts "github.com/goliatone/go-pkgtree"
	"github.com/goliatone/go-pkgtree/config"
	"github.com/goliatone/go-pkgtree/freezedry"
	"github.com/goliatone/go-pkgtree/resolve"
	"github.com/spf13/cobra"
)

func newResolveCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "resolve [paths...]",
		Short: "Resolve the workspace and save its metadata",
		Long: `Resolve reads the given documents, or the workspace directory when none
are given, fetches dependencies and saves the resolved metadata. Packages
whose resolution changed since the last resolve are reported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFrom(cmd)
			if err != nil {
				return err
			}
			result, err := rt.Resolver.Resolve(cmd.Context(), rt.Settings.Workdir, args...)
			if err != nil {
				return err
			}
			if asJSON {
				return writeMetadataJSON(cmd.OutOrStdout(), rt.Resolver.Codec(), result.Metadata)
			}
			if err := writePackages(cmd.OutOrStdout(), result.Metadata, result.Changed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nsnapshot %s, %d changed\n", result.Meta.SnapshotID, len(result.Changed))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the resolved metadata as JSON")
	return cmd
}

func newShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the metadata saved by the last resolve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := runtimeFrom(cmd)
			if err != nil {
				return err
			}
			metadata, meta, ok, err := rt.Resolver.Load(cmd.Context(), rt.Settings.Workdir)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no metadata saved for %s, run pkgtree resolve first", rt.Settings.Workdir)
			}
			if asJSON {
				return writeMetadataJSON(cmd.OutOrStdout(), rt.Resolver.Codec(), metadata)
			}
			if err := writePackages(cmd.OutOrStdout(), metadata, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nsnapshot %s, updated %s\n", meta.SnapshotID, meta.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the metadata as JSON")
	return cmd
}

func newTraceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trace <field> [paths...]",
		Short: "Show which documents set a common option",
		Long: `Trace reads the workspace documents without fetching dependencies and
prints, as JSON, every document that tried to set the common option field
and whether its value took effect.`,
		Args: cobra.MinimumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveDefault
			}
			return opts.CommonFields(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFrom(cmd)
			if err != nil {
				return err
			}
			field := args[0]
			if !slices.Contains(opts.CommonFields(), field) {
				return fmt.Errorf("unknown option %q (want one of %s)", field, strings.Join(opts.CommonFields(), ", "))
			}
			paths := args[1:]
			if len(paths) == 0 {
				paths = []string{rt.Settings.Workdir}
			}
			cfg, err := config.New(paths, rt.ConfigOptions()...)
			if err != nil {
				return err
			}
			if err := cfg.Finalize(); err != nil {
				return err
			}
			data, err := cfg.Options().Common.Trace(field).ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func writePackages(w io.Writer, metadata *resolve.Metadata, changed []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tBUILDER\tCHANGED")
	for _, name := range metadata.Names() {
		pkg, _ := metadata.Package(name)
		builder := pkg.Base().BuilderKind()
		if builder == "" {
			builder = "-"
		}
		mark := ""
		if slices.Contains(changed, name) {
			mark = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, pkg.FreezeDryTag(), builder, mark)
	}
	return tw.Flush()
}

func writeMetadataJSON(w io.Writer, codec *freezedry.Codec, metadata *resolve.Metadata) error {
	env, err := codec.Dehydrate(metadata)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}
