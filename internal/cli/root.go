// Package cli implements the pkgtree command line tool.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

type runtimeKey struct{}

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var settingsFile string

	root := &cobra.Command{
		Use:   "pkgtree",
		Short: "Resolve package dependency configuration",
		Long: `pkgtree reads pkgtree.yml documents, resolves the packages they declare,
fetches dependencies that carry their own documents and records the
resolved metadata of the workspace.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			s, err := LoadSettings(settingsFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			rt, err := NewRuntime(cmd.Context(), s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if s.File != "" {
				rt.Logger.Debug("settings loaded", "file", s.File)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if rt, ok := cmd.Context().Value(runtimeKey{}).(*Runtime); ok {
				return rt.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&settingsFile, "settings", "", "settings file (default: <workdir>/"+SettingsFile+")")
	flags.StringP("workdir", "C", "", "workspace directory")
	flags.String("state", "", "directory resolved metadata is kept in")
	flags.String("backend", "", "state backend (json|sqlite|memory)")
	flags.String("cache-dir", "", "directory dependencies are fetched into")
	flags.String("engine", "", "expression engine for guards (expr|cel|js)")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-format", "", "log format (text|json)")
	flags.Bool("activity", false, "log activity events")
	flags.String("actor", "", "actor recorded on activity events")

	_ = root.RegisterFlagCompletionFunc("backend", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{BackendJSON, BackendSQLite, BackendMemory}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newResolveCommand())
	root.AddCommand(newShowCommand())
	root.AddCommand(newTraceCommand())
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func runtimeFrom(cmd *cobra.Command) (*Runtime, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*Runtime)
	if !ok {
		return nil, fmt.Errorf("pkgtree: settings not loaded")
	}
	return rt, nil
}
