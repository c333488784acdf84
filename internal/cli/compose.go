package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/syssam/lazysql/config"
)

// ComposeOptions holds flags for the compose command.
type ComposeOptions struct {
	File  string
	Watch bool
}

// NewComposeCommand creates the compose command.
func NewComposeCommand(_ *RootOptions) *cobra.Command {
	opts := &ComposeOptions{}
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Print the SQL of a query file",
		Long: `Compose the SELECT statement described by a query file and print it.

With --watch the statement is printed again every time the file changes,
until the command is interrupted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := composeFile(cmd.OutOrStdout(), opts.File); err != nil {
				return err
			}
			if !opts.Watch {
				return nil
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watchCompose(ctx, cmd, opts.File)
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "query file")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "recompose when the file changes")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func watchCompose(ctx context.Context, cmd *cobra.Command, path string) error {
	return config.Watch(ctx, []string{path}, func(string) {
		if err := composeFile(cmd.OutOrStdout(), path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
}

func composeFile(w io.Writer, path string) error {
	spec, err := config.LoadQuerySpec(path)
	if err != nil {
		return err
	}
	q, err := spec.Query()
	if err != nil {
		return err
	}
	s, err := q.Compose()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}
