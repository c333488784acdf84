package sql

import (
	"errors"
	"slices"

	"github.com/syssam/lazysql"
)

// JoinKind is the keyword of a joined table.
type JoinKind string

// Join kinds. The empty kind is a comma-joined table.
const (
	JoinInner JoinKind = "INNER JOIN"
	JoinLeft  JoinKind = "LEFT JOIN"
	JoinRight JoinKind = "RIGHT JOIN"
)

// Direction is an ORDER BY direction.
type Direction string

// Order directions. OrderNull renders "ORDER BY NULL", which disables
// sorting on MySQL.
const (
	OrderAsc  Direction = "ASC"
	OrderDesc Direction = "DESC"
	OrderNull Direction = "NULL"
)

// Column is a select column. An empty alias, or an alias equal to the
// expression, renders the expression alone.
type Column struct {
	Expr  string
	Alias string
}

// Name returns the unquoted name the column is fetched under.
func (c Column) Name() string {
	if c.Alias == "" {
		return c.Expr
	}
	return Unquote(c.Alias)
}

// Table is an entry of the FROM clause. The first table of a query is the
// FROM table, later tables are comma-joined when Join is empty.
type Table struct {
	Name  string
	Alias string
	Join  JoinKind
	On    string
}

// Order is a single ORDER BY term.
type Order struct {
	Column    string
	Direction Direction
}

// Query is an immutable SELECT statement. Every method returns a new
// Query and leaves the receiver untouched, so a Query can be shared and
// extended freely:
//
//	base := sql.Select("*").From("customers AS c")
//	vip := base.Where(sql.Cond("c.bonus = 1"))
//	young := base.Where(sql.Cond("c.age < 12"))
//
// Errors found while building, such as a duplicate alias, are kept on the
// Query and returned by Compose and Err.
type Query struct {
	rawColumns string
	columns    []Column
	tables     []Table
	where      Restriction
	rawGroupBy string
	groupBy    []string
	having     Restriction
	orderBy    []Order
	limit      int
	offset     int
	errs       []error
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{}
}

// Select returns a new query selecting the given columns.
//
//	sql.Select("*")
//	sql.Select("id", "name AS n")
func Select(columns ...string) *Query {
	return NewQuery().Select(columns...)
}

// SelectRaw returns a new query selecting a raw column expression.
func SelectRaw(expr string) *Query {
	return NewQuery().SelectRaw(expr)
}

// clone returns a copy of q that shares no slices with it.
// Restrictions are immutable and are shared.
func (q *Query) clone() *Query {
	if q == nil {
		return &Query{}
	}
	c := *q
	c.columns = slices.Clone(q.columns)
	c.tables = slices.Clone(q.tables)
	c.groupBy = slices.Clone(q.groupBy)
	c.orderBy = slices.Clone(q.orderBy)
	c.errs = slices.Clone(q.errs)
	return &c
}

// Clone returns a copy of the query.
func (q *Query) Clone() *Query {
	return q.clone()
}

// Select replaces the selected columns. A single "*" is kept as raw SQL;
// every other column goes through ExtractAlias.
func (q *Query) Select(columns ...string) *Query {
	c := q.clone()
	c.rawColumns, c.columns = "", nil
	if len(columns) == 1 && columns[0] == "*" {
		c.rawColumns = "*"
		return c
	}
	for _, col := range columns {
		c.addColumn(ExtractAlias(col))
	}
	return c
}

// SelectRaw replaces the selected columns with raw SQL.
func (q *Query) SelectRaw(expr string) *Query {
	c := q.clone()
	c.rawColumns, c.columns = expr, nil
	return c
}

// SelectColumns replaces the selected columns.
func (q *Query) SelectColumns(columns ...Column) *Query {
	c := q.clone()
	c.rawColumns, c.columns = "", nil
	for _, col := range columns {
		c.addColumn(col.Expr, col.Alias)
	}
	return c
}

// Columns appends columns to the selection.
func (q *Query) Columns(columns ...string) *Query {
	c := q.clone()
	for _, col := range columns {
		c.addColumn(ExtractAlias(col))
	}
	return c
}

// Column appends a single column with an alias to the selection.
func (q *Query) Column(expr, alias string) *Query {
	c := q.clone()
	c.addColumn(expr, alias)
	return c
}

// addColumn is the in-place primitive behind the column methods. It must
// only be called on a fresh clone.
func (q *Query) addColumn(expr, alias string) {
	if alias == "" {
		alias = expr
	}
	if q.rawColumns != "" {
		q.columns = []Column{{Expr: q.rawColumns, Alias: q.rawColumns}}
		q.rawColumns = ""
	}
	name := Unquote(alias)
	for _, col := range q.columns {
		if col.Name() == name {
			q.errs = append(q.errs, lazysql.NewDuplicateAliasError("columns", name))
			return
		}
	}
	q.columns = append(q.columns, Column{Expr: expr, Alias: alias})
}

// From replaces the tables of the query.
//
//	sql.Select("*").From("customers AS c", "orders")
func (q *Query) From(tables ...string) *Query {
	c := q.clone()
	c.tables = nil
	for _, t := range tables {
		name, alias := ExtractAlias(t)
		c.addTable(Table{Name: name, Alias: alias})
	}
	return c
}

// Join adds a joined table. The alias of the table is derived
// with ExtractAlias.
func (q *Query) Join(kind JoinKind, table, on string) *Query {
	c := q.clone()
	name, alias := ExtractAlias(table)
	c.addTable(Table{Name: name, Alias: alias, Join: kind, On: on})
	return c
}

// InnerJoin adds an INNER JOIN.
func (q *Query) InnerJoin(table, on string) *Query {
	return q.Join(JoinInner, table, on)
}

// LeftJoin adds a LEFT JOIN.
func (q *Query) LeftJoin(table, on string) *Query {
	return q.Join(JoinLeft, table, on)
}

// RightJoin adds a RIGHT JOIN.
func (q *Query) RightJoin(table, on string) *Query {
	return q.Join(JoinRight, table, on)
}

func (q *Query) addTable(t Table) {
	for _, e := range q.tables {
		if Unquote(e.Alias) == Unquote(t.Alias) {
			q.errs = append(q.errs, lazysql.NewDuplicateAliasError("from", Unquote(t.Alias)))
			return
		}
	}
	q.tables = append(q.tables, t)
}

// Where replaces the WHERE restriction.
func (q *Query) Where(r Restriction) *Query {
	c := q.clone()
	c.where = r
	return c
}

// AndWhere extends the WHERE restriction with AND.
//
//	sql.Select("*").From("t").AndWhere(sql.Cond("a")).AndWhere(sql.Cond("b")) // WHERE a AND b
func (q *Query) AndWhere(r Restriction) *Query {
	c := q.clone()
	c.where = extendRestriction(c.where, OpAnd, r)
	return c
}

// OrWhere extends the WHERE restriction with OR.
func (q *Query) OrWhere(r Restriction) *Query {
	c := q.clone()
	c.where = extendRestriction(c.where, OpOr, r)
	return c
}

// Having replaces the HAVING restriction.
func (q *Query) Having(r Restriction) *Query {
	c := q.clone()
	c.having = r
	return c
}

// AndHaving extends the HAVING restriction with AND.
func (q *Query) AndHaving(r Restriction) *Query {
	c := q.clone()
	c.having = extendRestriction(c.having, OpAnd, r)
	return c
}

// OrHaving extends the HAVING restriction with OR.
func (q *Query) OrHaving(r Restriction) *Query {
	c := q.clone()
	c.having = extendRestriction(c.having, OpOr, r)
	return c
}

// GroupBy replaces the GROUP BY columns.
func (q *Query) GroupBy(columns ...string) *Query {
	c := q.clone()
	c.rawGroupBy, c.groupBy = "", slices.Clone(columns)
	return c
}

// GroupByRaw replaces the GROUP BY clause with raw SQL.
func (q *Query) GroupByRaw(expr string) *Query {
	c := q.clone()
	c.rawGroupBy, c.groupBy = expr, nil
	return c
}

// OrderBy replaces the ordering with a single column. Repeated calls
// replace, they do not accumulate; use OrderBys for multiple keys.
func (q *Query) OrderBy(column string, dir Direction) *Query {
	return q.OrderBys(Order{Column: column, Direction: dir})
}

// OrderBys replaces the ordering. Calling it without arguments
// removes the ORDER BY clause.
func (q *Query) OrderBys(orders ...Order) *Query {
	c := q.clone()
	c.orderBy = slices.Clone(orders)
	return c
}

// Limit sets the LIMIT. Zero or less removes it.
func (q *Query) Limit(n int) *Query {
	c := q.clone()
	c.limit = max(n, 0)
	return c
}

// Offset sets the OFFSET. Zero or less removes it.
func (q *Query) Offset(n int) *Query {
	c := q.clone()
	c.offset = max(n, 0)
	return c
}

// LimitValue returns the limit and whether one is set.
func (q *Query) LimitValue() (int, bool) {
	return q.limit, q.limit > 0
}

// OffsetValue returns the offset, zero when unset.
func (q *Query) OffsetValue() int {
	return q.offset
}

// IsWildcard reports whether the query selects "*".
func (q *Query) IsWildcard() bool {
	return q.rawColumns == "*"
}

// RawColumns returns the raw column SQL, empty when the columns are a list.
func (q *Query) RawColumns() string {
	return q.rawColumns
}

// ColumnList returns a copy of the selected columns.
func (q *Query) ColumnList() []Column {
	return slices.Clone(q.columns)
}

// Tables returns a copy of the FROM entries.
func (q *Query) Tables() []Table {
	return slices.Clone(q.tables)
}

// WhereRestriction returns the WHERE restriction, nil when unset.
func (q *Query) WhereRestriction() Restriction {
	return q.where
}

// HavingRestriction returns the HAVING restriction, nil when unset.
func (q *Query) HavingRestriction() Restriction {
	return q.having
}

// HasGroupBy reports whether the query has a GROUP BY clause.
func (q *Query) HasGroupBy() bool {
	return q.rawGroupBy != "" || len(q.groupBy) > 0
}

// Orders returns a copy of the ORDER BY terms.
func (q *Query) Orders() []Order {
	return slices.Clone(q.orderBy)
}

// Err returns the errors collected while building the query.
func (q *Query) Err() error {
	return errors.Join(q.errs...)
}
