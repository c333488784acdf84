// Package lazysql builds SELECT statements and runs them through lazy
// collections.
//
// The packages are layered:
//
//   - dialect/sql holds the immutable Query builder, restriction trees
//     and the Connection that executes composed statements.
//   - collection wraps a pending Query and translates sequence operations
//     (Where, Select, OrderBy, Skip, Take, Count, Min, Max) into query
//     changes, fetching rows only when an operation cannot be expressed
//     in SQL.
//   - config loads named connections and YAML query files for the
//     lazysql command.
//
// This package holds the errors shared by all of them.
package lazysql
