package sql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/syssam/lazysql/dialect"
)

// Driver is a dialect.Driver running statements on a database/sql pool.
type Driver struct {
	db      *sql.DB
	dialect string
}

// Open opens a pool for the named dialect. Aliases such as "sqlite3" or
// "postgresql" are accepted; the database/sql driver name is derived from
// the normalized dialect.
func Open(name, source string) (*Driver, error) {
	d := dialect.Normalize(name)
	db, err := sql.Open(dialect.DriverName(d), source)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s: %w", d, err)
	}
	return &Driver{db: db, dialect: d}, nil
}

// OpenDB returns a Driver over an already opened pool.
func OpenDB(name string, db *sql.DB) *Driver {
	return &Driver{db: db, dialect: dialect.Normalize(name)}
}

// DB returns the underlying pool.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect returns the normalized dialect name.
func (d *Driver) Dialect() string { return d.dialect }

// Close closes the pool.
func (d *Driver) Close() error { return d.db.Close() }

// Query runs a query and stores its rows in v, which must be a *Rows.
func (d *Driver) Query(ctx context.Context, query string, args, v any) error {
	rows, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: query: want *Rows target, got %T", v)
	}
	argv, err := argList(args)
	if err != nil {
		return err
	}
	r, err := d.db.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	rows.ColumnScanner = r
	return nil
}

// Exec runs a statement. v is nil or a *Result receiving the result.
func (d *Driver) Exec(ctx context.Context, query string, args, v any) error {
	argv, err := argList(args)
	if err != nil {
		return err
	}
	res, err := d.db.ExecContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: %w", err)
	}
	switch v := v.(type) {
	case nil:
	case *Result:
		*v = res
	default:
		return fmt.Errorf("dialect/sql: exec: want *Result target, got %T", v)
	}
	return nil
}

func argList(args any) ([]any, error) {
	switch args := args.(type) {
	case nil:
		return nil, nil
	case []any:
		return args, nil
	default:
		return nil, fmt.Errorf("dialect/sql: want []any args, got %T", args)
	}
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows holds the rows of a query.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
)

// ColumnScanner is the subset of *sql.Rows that records are scanned from.
type ColumnScanner interface {
	Close() error
	Columns() ([]string, error)
	Err() error
	Next() bool
	Scan(dest ...any) error
}
