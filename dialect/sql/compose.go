package sql

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/syssam/lazysql"
)

// Compose renders the query to SQL text:
//
//	SELECT <columns> FROM <tables> [WHERE ...] [GROUP BY ...] [HAVING ...]
//	[ORDER BY ...] [LIMIT n [OFFSET m]]
//
// OFFSET is only rendered together with LIMIT.
func (q *Query) Compose() (string, error) {
	if q == nil {
		return "", lazysql.NewComposeError("", "nil query")
	}
	if err := q.Err(); err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	if err := q.composeColumns(&b); err != nil {
		return "", err
	}
	b.WriteString(" FROM ")
	if err := q.composeTables(&b); err != nil {
		return "", err
	}
	where, err := composeRestriction(q.where, false)
	if err != nil {
		return "", err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	switch {
	case q.rawGroupBy != "":
		b.WriteString(" GROUP BY ")
		b.WriteString(q.rawGroupBy)
	case len(q.groupBy) > 0:
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(q.groupBy, ", "))
	}
	having, err := composeRestriction(q.having, false)
	if err != nil {
		return "", err
	}
	if having != "" {
		b.WriteString(" HAVING ")
		b.WriteString(having)
	}
	if err := q.composeOrderBy(&b); err != nil {
		return "", err
	}
	if q.limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.limit))
		if q.offset > 0 {
			b.WriteString(" OFFSET ")
			b.WriteString(strconv.Itoa(q.offset))
		}
	}
	return b.String(), nil
}

// String returns the composed query. It never fails: a composition
// error is logged and the empty string returned, so a Query can be
// embedded in log lines and error messages safely.
func (q *Query) String() string {
	s, err := q.Compose()
	if err != nil {
		slog.Error("dialect/sql: compose query", "error", err)
		return ""
	}
	return s
}

func (q *Query) composeColumns(b *strings.Builder) error {
	if q.rawColumns != "" {
		b.WriteString(q.rawColumns)
		return nil
	}
	if len(q.columns) == 0 {
		return lazysql.NewComposeError("columns", "no columns selected")
	}
	for i, c := range q.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Expr)
		if c.Alias != "" && c.Alias != c.Expr {
			b.WriteString(" AS ")
			b.WriteString(c.Alias)
		}
	}
	return nil
}

func (q *Query) composeTables(b *strings.Builder) error {
	if len(q.tables) == 0 {
		return lazysql.NewComposeError("from", "no tables")
	}
	for i, t := range q.tables {
		switch {
		case i == 0:
		case t.Join == "":
			b.WriteString(", ")
		default:
			b.WriteByte(' ')
			b.WriteString(string(t.Join))
			b.WriteByte(' ')
		}
		b.WriteString(t.Name)
		if t.Alias != "" && t.Alias != t.Name {
			b.WriteString(" AS ")
			b.WriteString(t.Alias)
		}
		if t.On != "" {
			b.WriteString(" ON (")
			b.WriteString(t.On)
			b.WriteByte(')')
		}
	}
	return nil
}

func (q *Query) composeOrderBy(b *strings.Builder) error {
	if len(q.orderBy) == 0 {
		return nil
	}
	b.WriteString(" ORDER BY ")
	for i, o := range q.orderBy {
		if i > 0 {
			b.WriteString(", ")
		}
		dir := Direction(normalizeKeyword(string(o.Direction)))
		if dir == "" {
			dir = OrderAsc
		}
		switch dir {
		case OrderAsc, OrderDesc:
			b.WriteString(o.Column)
			b.WriteByte(' ')
			b.WriteString(string(dir))
		case OrderNull:
			b.WriteString("NULL")
		default:
			return lazysql.NewComposeError("order by", "unknown direction %q for column %q", o.Direction, o.Column)
		}
	}
	return nil
}
