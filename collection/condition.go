package collection

import (
	"context"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/lazysql/dialect"
	"github.com/syssam/lazysql/dialect/sql"
)

// positiveIntRe matches the string form of a positive integer key.
var positiveIntRe = regexp.MustCompile(`^[1-9][0-9]*$`)

// resolveColumn maps a path onto a column of q. With a wildcard selection
// every simple column resolves to itself. With a column list the path
// must name a selected column; bare restricts the match to columns that
// select the identically named column without renaming it, as WHERE and
// ORDER BY cannot portably refer to select aliases.
func resolveColumn(q *sql.Query, path string, bare bool) (string, bool) {
	col, ok := convertPathToColumn(path)
	if !ok {
		return "", false
	}
	if q.IsWildcard() {
		return col, true
	}
	if q.RawColumns() != "" {
		return "", false
	}
	for _, c := range q.ColumnList() {
		if c.Name() != col {
			continue
		}
		if bare && c.Expr != col {
			return "", false
		}
		return c.Expr, true
	}
	return "", false
}

// quote renders v for a comparison with column. Columns named id or
// ending in _id take positive integers unquoted, so string and integer
// keys compare the same way on every driver.
func (c *Collection) quote(column string, v any) string {
	name := column
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if name == "id" || strings.HasSuffix(name, "_id") {
		switch x := v.(type) {
		case string:
			if positiveIntRe.MatchString(x) {
				return x
			}
		default:
			rv := reflect.ValueOf(v)
			switch rv.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				if rv.Int() > 0 {
					return strconv.FormatInt(rv.Int(), 10)
				}
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				if rv.Uint() > 0 {
					return strconv.FormatUint(rv.Uint(), 10)
				}
			}
		}
	}
	return c.conn.Quote(v)
}

// conditionSQL renders a single condition on column. It reports false
// when the condition has no SQL form that matches the in-memory result.
func (c *Collection) conditionSQL(ctx context.Context, column string, cond condition) (string, bool) {
	if cond.value == nil {
		return c.nullConditionSQL(ctx, column, cond)
	}
	switch cond.op {
	case OpEqual:
		return column + " = " + c.quote(column, cond.value), true
	case OpNotEqual:
		return "(" + column + " != " + c.quote(column, cond.value) + " OR " + column + " IS NULL)", true
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpLike, OpNotLike:
		return column + " " + cond.op + " " + c.quote(column, cond.value), true
	case OpIn, OpNotIn:
		if !isList(cond.value) {
			c.log.WarnContext(ctx, "IN operand is not a list, splitting on commas",
				"path", cond.path, "operator", cond.op, "value", cond.value)
		}
		return c.inSQL(column, cond.op, inOperands(cond.value)), true
	}
	return "", false
}

// nullConditionSQL renders a comparison against nil.
func (c *Collection) nullConditionSQL(ctx context.Context, column string, cond condition) (string, bool) {
	switch cond.op {
	case OpEqual:
		return column + " IS NULL", true
	case OpNotEqual:
		return column + " IS NOT NULL", true
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		// MySQL coerces '' to 0 for numeric columns, which matches the
		// in-memory comparison with nil. Other drivers have no such rule.
		if dialect.Normalize(c.conn.Dialect()) != dialect.MySQL {
			return "", false
		}
		return column + " " + cond.op + " ''", true
	case OpIn, OpNotIn:
		return c.inSQL(column, cond.op, nil), true
	}
	c.log.WarnContext(ctx, "no null form for operator, comparing with NULL",
		"path", cond.path, "operator", cond.op)
	return column + " " + cond.op + " " + c.conn.Quote(nil), true
}

func (c *Collection) inSQL(column, op string, operands []any) string {
	if len(operands) == 0 {
		if op == OpIn {
			return "1 = 0"
		}
		return "1 = 1"
	}
	values := make([]string, len(operands))
	for i, o := range operands {
		values[i] = c.quote(column, o)
	}
	return column + " " + op + " (" + strings.Join(values, ", ") + ")"
}

// whereRestriction translates conds into a restriction on q. It reports
// false when any condition cannot be expressed.
func (c *Collection) whereRestriction(ctx context.Context, q *sql.Query, conds []condition) (sql.Restriction, bool) {
	children := make([]sql.Restriction, 0, len(conds))
	for _, cond := range conds {
		column, ok := resolveColumn(q, cond.path, true)
		if !ok {
			return nil, false
		}
		s, ok := c.conditionSQL(ctx, column, cond)
		if !ok {
			return nil, false
		}
		children = append(children, sql.Cond(s))
	}
	return sql.And(children...), true
}

// enclose parenthesizes a raw WHERE condition so conditions ANDed to it
// cannot bind into an OR inside it. Nodes are parenthesized by Compose.
func enclose(r sql.Restriction) sql.Restriction {
	for {
		n, ok := r.(*sql.Node)
		if !ok || n == nil || len(n.Children()) != 1 {
			break
		}
		r = n.Children()[0]
	}
	c, ok := r.(sql.Cond)
	s := strings.TrimSpace(string(c))
	if !ok || s == "" || enclosed(s) {
		return r
	}
	return sql.Cond("(" + s + ")")
}

// enclosed reports whether the parenthesis opening s closes at its end.
func enclosed(s string) bool {
	if !strings.HasPrefix(s, "(") {
		return false
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i == len(s)-1
			}
		}
	}
	return false
}
