package collection

import (
	"cmp"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortMethod selects how OrderBy compares values.
type SortMethod int

const (
	// SortRegular compares numbers numerically and everything else as
	// strings. It is the only method that can be expressed in SQL.
	SortRegular SortMethod = iota
	// SortNumeric compares values as numbers; non-numeric values are 0.
	SortNumeric
	// SortString compares the string form of values byte by byte.
	SortString
	// SortStringFold compares strings ignoring case.
	SortStringFold
	// SortNatural compares strings with embedded numbers in numeric
	// order ("img2" before "img10").
	SortNatural
)

// String returns the name of the method.
func (m SortMethod) String() string {
	switch m {
	case SortRegular:
		return "regular"
	case SortNumeric:
		return "numeric"
	case SortString:
		return "string"
	case SortStringFold:
		return "string-fold"
	case SortNatural:
		return "natural"
	}
	return "SortMethod(" + strconv.Itoa(int(m)) + ")"
}

// comparator returns the compare function of m. Collators are not safe
// for concurrent use, so every call builds its own.
func (m SortMethod) comparator() (func(a, b any) int, error) {
	switch m {
	case SortRegular:
		return compareValues, nil
	case SortNumeric:
		return func(a, b any) int {
			x, _ := toFloat(a)
			y, _ := toFloat(b)
			return cmp.Compare(x, y)
		}, nil
	case SortString:
		return func(a, b any) int {
			return strings.Compare(toString(a), toString(b))
		}, nil
	case SortStringFold:
		c := collate.New(language.Und, collate.IgnoreCase)
		return func(a, b any) int {
			return c.CompareString(toString(a), toString(b))
		}, nil
	case SortNatural:
		c := collate.New(language.Und, collate.Numeric)
		return func(a, b any) int {
			return c.CompareString(toString(a), toString(b))
		}, nil
	}
	return nil, fmt.Errorf("collection: unknown sort method %d", int(m))
}

// compareValues orders a and b the way the database orders a column:
// numbers numerically, times chronologically and everything else by
// string form. nil compares as the empty string.
func compareValues(a, b any) int {
	if x, ok := a.(time.Time); ok {
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return cmp.Compare(x, y)
		}
	}
	return strings.Compare(toString(a), toString(b))
}

// looseEqual reports whether a and b are equal after numeric coercion:
// 6, int64(6), 6.0 and "6" are all equal.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return compareValues(a, b) == 0
}

// match evaluates "value op operand" in memory, mirroring the SQL that
// conditionSQL generates for the same condition.
func match(op string, value, operand any) (bool, error) {
	if operand == nil {
		switch op {
		case OpEqual:
			return value == nil, nil
		case OpNotEqual:
			return value != nil, nil
		}
	}
	switch op {
	case OpEqual:
		return looseEqual(value, operand), nil
	case OpNotEqual:
		return !looseEqual(value, operand), nil
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		if value == nil {
			return false, nil
		}
		c := compareValues(value, operand)
		switch op {
		case OpLess:
			return c < 0, nil
		case OpLessEqual:
			return c <= 0, nil
		case OpGreater:
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	case OpIn, OpNotIn:
		operands := inOperands(operand)
		if len(operands) == 0 {
			return op == OpNotIn, nil
		}
		if value == nil {
			return false, nil
		}
		in := slices.ContainsFunc(operands, func(o any) bool { return looseEqual(value, o) })
		return in == (op == OpIn), nil
	case OpLike, OpNotLike:
		if value == nil || operand == nil {
			return false, nil
		}
		re, err := likePattern(toString(operand))
		if err != nil {
			return false, err
		}
		return re.MatchString(toString(value)) == (op == OpLike), nil
	}
	return false, fmt.Errorf("collection: unsupported operator %q", op)
}

// inOperands returns the members of an IN operand. Slices are used as
// they are, strings and byte slices are split on commas and anything
// else is a single member.
func inOperands(operand any) []any {
	switch v := operand.(type) {
	case []any:
		return v
	case string:
		return splitOperand(v)
	case []byte:
		return splitOperand(string(v))
	case nil:
		return nil
	}
	rv := reflect.ValueOf(operand)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return values
	}
	return []any{operand}
}

func splitOperand(s string) []any {
	parts := strings.Split(s, ",")
	values := make([]any, 0, len(parts))
	for _, p := range parts {
		values = append(values, strings.TrimSpace(p))
	}
	return values
}

// isList reports whether an IN operand is a slice or array.
func isList(operand any) bool {
	if _, ok := operand.([]byte); ok {
		return false
	}
	k := reflect.ValueOf(operand).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// likePattern compiles a SQL LIKE pattern. Matching is case-insensitive,
// as with the default collations of MySQL and SQLite.
func likePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

// toFloat converts numbers and numeric strings.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(x)), 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("2006-01-02 15:04:05.999999")
	}
	return fmt.Sprint(v)
}

// toInt converts a fetched count to an int.
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(x), nil
	case int:
		return x, nil
	}
	if f, ok := toFloat(v); ok {
		return int(f), nil
	}
	return 0, fmt.Errorf("collection: unexpected count value %T(%v)", v, v)
}
