package collection

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/syssam/lazysql/dialect/sql"
)

// Selector picks a value out of an item.
//
// This is a sealed interface - only types in this package implement it.
type Selector interface {
	selector()
}

// Path selects the value at a path, e.g. "name", "[name]" or "owner->name".
type Path string

// Paths selects several paths; the selected item is a []any in path order.
type Paths []string

// Field is an aliased path of Fields.
type Field struct {
	Alias string
	Path  string
}

// Fields selects several paths; the selected item is a sql.Record with
// the aliases as columns.
type Fields []Field

// Func selects with a function. It can never be expressed in SQL.
type Func func(item any) (any, error)

func (Path) selector()   {}
func (Paths) selector()  {}
func (Fields) selector() {}
func (Func) selector()   {}

// selectValue applies sel to item.
func selectValue(sel Selector, item any) (any, error) {
	switch sel := sel.(type) {
	case Path:
		return getPath(item, string(sel))
	case Paths:
		values := make([]any, len(sel))
		for i, p := range sel {
			v, err := getPath(item, p)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return values, nil
	case Fields:
		columns := make([]string, len(sel))
		values := make([]any, len(sel))
		for i, f := range sel {
			v, err := getPath(item, f.Path)
			if err != nil {
				return nil, err
			}
			columns[i], values[i] = f.Alias, v
		}
		return sql.NewRecord(columns, values), nil
	case Func:
		return sel(item)
	case nil:
		return item, nil
	default:
		return nil, fmt.Errorf("collection: unsupported selector %T", sel)
	}
}

// Filter decides which items a Where keeps.
//
// This is a sealed interface - only types in this package implement it.
type Filter interface {
	filter()
}

// Conditions filters on path values. Keys are a path optionally followed
// by an operator, all conditions must hold:
//
//	collection.Conditions{"type": "fruit", "id <=": 6, "name IN": []string{"apple", "pear"}}
//
// Supported operators are ==, !=, <, <=, >, >=, IN, NOT IN, LIKE and
// NOT LIKE; the default is ==.
type Conditions map[string]any

// Predicate filters with a function. It can never be expressed in SQL.
type Predicate func(item any) bool

func (Conditions) filter() {}
func (Predicate) filter()  {}

// Comparison operators.
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpIn           = "IN"
	OpNotIn        = "NOT IN"
	OpLike         = "LIKE"
	OpNotLike      = "NOT LIKE"
)

var operators = []string{
	OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
	OpIn, OpNotIn, OpLike, OpNotLike,
}

// condition is a single parsed entry of Conditions.
type condition struct {
	path  string
	op    string
	value any
}

// parseConditions returns the conditions ordered by key, so the
// generated SQL does not depend on map iteration order.
func parseConditions(c Conditions) []condition {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	conds := make([]condition, 0, len(keys))
	for _, k := range keys {
		path, op := parseConditionKey(k)
		conds = append(conds, condition{path: path, op: op, value: c[k]})
	}
	return conds
}

// parseConditionKey splits "id <=" into "id" and "<=". "=" is read as ==
// and "<>" as !=.
func parseConditionKey(key string) (path, op string) {
	key = strings.TrimSpace(key)
	path, op, found := strings.Cut(key, " ")
	if !found {
		return key, OpEqual
	}
	op = cases.Upper(language.Und).String(strings.Join(strings.Fields(op), " "))
	switch op {
	case "=", "":
		op = OpEqual
	case "<>":
		op = OpNotEqual
	}
	return path, op
}

func isSupportedOperator(op string) bool {
	return slices.Contains(operators, op)
}

// keyName names the i-th column of a Paths selection.
func keyName(i int) string {
	return strconv.Itoa(i)
}
