package sql

import (
	"regexp"
	"strings"
)

// aliasRe matches "<expr> AS <alias>", taking the last AS of the string.
var aliasRe = regexp.MustCompile(`(?is)^(.*\S)\s+AS\s+(\S+)$`)

// ExtractAlias splits a column or table expression into the expression and
// its alias. The alias is kept as written, quotes included, so it renders
// back unchanged; use Unquote for the name a column is fetched under:
//
//	ExtractAlias("customers AS c")   // "customers", "c"
//	ExtractAlias("name AS `0`")      // "name", "`0`"
//	ExtractAlias("orders")           // "orders", "orders"
//
// An expression without AS is its own alias.
func ExtractAlias(s string) (expr, alias string) {
	s = strings.TrimSpace(s)
	if m := aliasRe.FindStringSubmatch(s); m != nil {
		return m[1], m[2]
	}
	return s, s
}

// Unquote removes one pair of identifier quotes (backticks, double quotes
// or square brackets) around s.
func Unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch first, last := s[0], s[len(s)-1]; {
	case first == '`' && last == '`':
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	case first == '"' && last == '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case first == '[' && last == ']':
		return s[1 : len(s)-1]
	}
	return s
}
