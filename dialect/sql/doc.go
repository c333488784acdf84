// Package sql provides an immutable SELECT builder, a restriction tree for
// WHERE and HAVING clauses, and a database/sql backed connection.
//
// # Queries
//
// A Query is immutable: every method returns a new Query, so a base query
// can be shared and specialised without copying:
//
//	base := sql.Select("*").From("customers AS c").
//	    InnerJoin("orders", "c.id = customer_id")
//
//	q := base.AndWhere(sql.Cond("c.id = 1")).AndWhere(sql.Cond("orders.id = 1"))
//	q.String()
//	// SELECT * FROM customers AS c INNER JOIN orders ON (c.id = customer_id)
//	// WHERE c.id = 1 AND orders.id = 1
//
// Column and table strings may carry an alias ("name AS n"), which is split
// off by ExtractAlias. Adding an alias twice records a
// lazysql.DuplicateAliasError that Compose and Err return.
//
// # Restrictions
//
// Restrictions are Cond leaves combined by And, Or and Group nodes.
// Parentheses are only emitted where the operator changes:
//
//	sql.And(sql.Cond("a"), sql.And(sql.Cond("b"), sql.Cond("c")))  // a AND b AND c
//	sql.Or(sql.Cond("a"), sql.And(sql.Cond("b"), sql.Cond("c")))   // a OR (b AND c)
//
// ParseRestriction reads the nested list form used in query files:
//
//	sql.ParseRestriction([]any{"OR", "bonus = 1", []any{"AND", "special = 1", "age < 12"}})
//
// # Composition
//
// Compose renders the query and reports missing columns or tables, unknown
// ORDER BY directions and malformed restriction trees as
// lazysql.ComposeError. String never fails; errors are logged and the
// empty string is returned.
//
// # Connections
//
// Connection executes any Statement (a *Query or a RawQuery) on a
// dialect.Driver and quotes values and identifiers for its dialect:
//
//	drv, err := sql.Open(dialect.MySQL, dsn)
//	if err != nil {
//	    return err
//	}
//	conn := sql.NewConnection(drv, sql.WithSlowQueryLogger(logger))
//	records, err := conn.FetchAll(ctx, sql.Select("id", "name").From("fruits"))
//
// Every connection counts its queries through a StatsDriver; wrap the
// driver with NewDebugDriver to log each statement.
package sql
