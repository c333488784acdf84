// Package dialect provides database dialect abstraction for lazysql.
//
// This package defines the contract used by the query layer to reach a
// database, allowing lazysql to support multiple backends including
// PostgreSQL, MySQL, and SQLite.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// Normalize folds common aliases ("postgresql", "mariadb", "sqlite3") onto
// these constants, and DriverName returns the name the database/sql driver
// is registered under.
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Close() error
//	    Dialect() string
//	}
//
// There are no transactions; the query layer only issues
// standalone SELECT statements.
//
// # Usage
//
//	import (
//	    "github.com/syssam/lazysql/dialect"
//	    "github.com/syssam/lazysql/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	conn := sql.NewConnection(drv)
//
// # Sub-packages
//
//   - dialect/sql: SQL query builder, composer, quoting and driver implementation
package dialect
