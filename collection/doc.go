// Package collection provides a sequence type over query results that
// stays a SQL query for as long as it can.
//
// A Collection built with New holds a *sql.Query and no rows. Where,
// Select, OrderBy, Skip, Take, Count, Min and Max rewrite that query when
// the operation maps onto plain columns of it. Anything else, such as a
// Predicate, a Func selector or a sort method other than SortRegular,
// fetches the rows once and continues in memory with the same results.
//
// Items are addressed with paths:
//
//	"name"        a column, map key, index or exported field
//	"[name]"      a column, map key or index
//	"->Name"      an exported struct field
//	"owner.name"  nested values
//
// Only a single "name" or "[name]" segment naming a bare column can be
// translated to SQL.
package collection
