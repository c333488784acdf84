package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/lazysql/config"
)

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "ping",
		Short:         "Check that every configured connection is reachable",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rootOpts.Config)
			if err != nil {
				return err
			}
			if err := cfg.PingAll(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d connection(s) reachable\n", len(cfg.Connections))
			return err
		},
	}
}
