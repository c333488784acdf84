// Package cli implements the lazysql command line.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config string
}

// DefaultConfig is the configuration file read when --config is not set.
const DefaultConfig = "lazysql.yaml"

// NewRootCommand creates the root command for the lazysql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lazysql",
		Short: "Compose and run SQL queries lazily",
		Long: `lazysql composes SELECT statements from YAML query files and runs them
through lazy collections, pushing skip, take and count into SQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", DefaultConfig, "configuration file")

	cmd.AddCommand(NewComposeCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPingCommand(opts))

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
