package sql

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/syssam/lazysql/dialect"
)

var (
	// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
	validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)
	// simpleIdentifierRe validates bare column names.
	simpleIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// IsSimpleIdentifier reports whether s is a bare column name: no table
// prefix, no quoting, no expression.
func IsSimpleIdentifier(s string) bool {
	return isValidIdentifier(s) && simpleIdentifierRe.MatchString(s)
}

// escapeStringValue escapes a string value for safe use in SQL.
// It escapes both single quotes (by doubling) and backslashes (for MySQL compatibility).
func escapeStringValue(s string) string {
	// Fast path: if no escaping needed, return as-is
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	// Escape backslashes first, then single quotes
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// QuoteIdentifier quotes name as a single identifier of dialect d:
// "name" for Postgres and SQLite, `name` for MySQL.
func QuoteIdentifier(d, name string) string {
	switch dialect.Normalize(d) {
	case dialect.Postgres:
		return pq.QuoteIdentifier(name)
	case dialect.MySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// QuoteValue renders v as a SQL literal of dialect d. Numbers are
// rendered bare, nil as NULL and everything else as a quoted string.
func QuoteValue(d string, v any) string {
	d = dialect.Normalize(d)
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		switch {
		case d == dialect.Postgres && v:
			return "TRUE"
		case d == dialect.Postgres:
			return "FALSE"
		case v:
			return "1"
		default:
			return "0"
		}
	case string:
		return quoteString(d, v)
	case []byte:
		return quoteString(d, string(v))
	case time.Time:
		return quoteString(d, v.Format("2006-01-02 15:04:05.999999"))
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return quoteString(d, fmt.Sprint(v))
		}
		return QuoteValue(d, dv)
	case fmt.Stringer:
		return quoteString(d, v.String())
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	case reflect.String:
		return quoteString(d, rv.String())
	case reflect.Bool:
		return QuoteValue(d, rv.Bool())
	}
	return quoteString(d, fmt.Sprint(v))
}

func quoteString(d, s string) string {
	switch d {
	case dialect.Postgres:
		return pq.QuoteLiteral(s)
	case dialect.MySQL:
		return "'" + escapeStringValue(s) + "'"
	default:
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}
