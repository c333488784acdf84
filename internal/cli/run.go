package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/syssam/lazysql/collection"
	"github.com/syssam/lazysql/config"
	"github.com/syssam/lazysql/dialect/sql"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Conn   string
	File   string
	SQL    string
	Skip   int
	Take   int
	Count  bool
	Format string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a query through a lazy collection",
		Long: `Run the query of a query file, or a raw statement, on a configured connection.

--skip and --take are applied to the collection before it is fetched, so
they become OFFSET and LIMIT when the statement allows it. --count prints
the number of rows instead of the rows.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(*cobra.Command, []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if (opts.File == "") == (opts.SQL == "") {
				return errors.New("exactly one of --file or --sql is required")
			}
			if opts.Skip < 0 {
				return fmt.Errorf("negative --skip %d", opts.Skip)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Conn, "conn", "main", "connection name")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "query file")
	cmd.Flags().StringVar(&opts.SQL, "sql", "", "raw SELECT statement")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "items to skip")
	cmd.Flags().IntVar(&opts.Take, "take", -1, "items to take (negative: all)")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the item count")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml|msgpack)")
	return cmd
}

func runQuery(cmd *cobra.Command, rootOpts *RootOptions, opts *RunOptions) (err error) {
	ctx := cmd.Context()
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return err
	}
	log, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	log = log.With("run", uuid.NewString())
	conn, err := cfg.Open(opts.Conn, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := config.CloseAll(conn); err == nil {
			err = cerr
		}
	}()

	c, err := newCollection(conn, opts, log)
	if err != nil {
		return err
	}
	out, err := evaluate(ctx, c, opts)
	if err != nil {
		return err
	}
	log.Info("run finished",
		"stats", conn.Stats(),
	)
	return writeOutput(cmd.OutOrStdout(), opts.Format, out)
}

func newCollection(conn *sql.Connection, opts *RunOptions, log *slog.Logger) (*collection.Collection, error) {
	if opts.SQL != "" {
		return collection.NewRaw(conn, opts.SQL, collection.WithLogger(log)), nil
	}
	spec, err := config.LoadQuerySpec(opts.File)
	if err != nil {
		return nil, err
	}
	q, err := spec.Query()
	if err != nil {
		return nil, err
	}
	return collection.New(conn, q, collection.WithLogger(log)), nil
}

// evaluate applies skip and take to c and returns its count or its items.
func evaluate(ctx context.Context, c *collection.Collection, opts *RunOptions) (any, error) {
	if opts.Skip > 0 {
		c = c.Skip(opts.Skip)
	}
	if opts.Take >= 0 {
		var err error
		if c, err = c.Take(ctx, opts.Take); err != nil {
			return nil, err
		}
	}
	if opts.Count {
		n, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	items, err := c.ToSlice(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []any{}
	}
	return items, nil
}
