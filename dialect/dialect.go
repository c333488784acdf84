package dialect

import "context"

// Dialect names for external usage.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the
// connection collaborator: running statements, closing and reporting the dialect.
type Driver interface {
	ExecQuerier
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect of the driver.
	Dialect() string
}

// Normalize maps driver names and aliases onto one of the dialect constants.
// Unknown names are returned unchanged.
func Normalize(name string) string {
	switch name {
	case MySQL, "mariadb":
		return MySQL
	case SQLite, "sqlite3":
		return SQLite
	case Postgres, "postgresql", "pgx":
		return Postgres
	}
	return name
}

// DriverName returns the database/sql driver name registered for d.
// The registered names of go-sql-driver/mysql, lib/pq and modernc.org/sqlite
// coincide with the dialect constants.
func DriverName(d string) string {
	return Normalize(d)
}
