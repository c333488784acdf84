package config

import (
	"fmt"
	"os"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/syssam/lazysql/dialect/sql"
)

// QuerySpec is a query file:
//
//	select: [name, "type AS kind"]
//	from: fruits
//	joins: [{type: INNER JOIN, table: orders, on: "orders.fruit_id = fruits.id"}]
//	where: ["OR", "id = 1", ["AND", "type = 'fruit'", "id < 6"]]
//	order_by: [{column: name, direction: DESC}]
//	limit: 10
//
// where and having take a condition string or a nested list whose first
// element may be AND or OR.
type QuerySpec struct {
	Select  StringOrSlice `yaml:"select"`
	From    StringOrSlice `yaml:"from"`
	Joins   []JoinSpec    `yaml:"joins"`
	Where   any           `yaml:"where"`
	GroupBy StringOrSlice `yaml:"group_by"`
	Having  any           `yaml:"having"`
	OrderBy []OrderSpec   `yaml:"order_by"`
	Limit   int           `yaml:"limit"`
	Offset  int           `yaml:"offset"`
}

// JoinSpec is a joined table.
type JoinSpec struct {
	Type  string `yaml:"type"` // INNER JOIN, LEFT JOIN or RIGHT JOIN (default: INNER JOIN)
	Table string `yaml:"table"`
	On    string `yaml:"on"`
}

// OrderSpec is an ORDER BY term.
type OrderSpec struct {
	Column    string `yaml:"column"`
	Direction string `yaml:"direction"` // default: ASC
}

// StringOrSlice supports YAML fields that can be either a string or a
// slice of strings.
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler to handle both string and []string.
func (s *StringOrSlice) UnmarshalYAML(value *yaml.Node) error {
	var single string
	if err := value.Decode(&single); err == nil {
		*s = []string{single}
		return nil
	}
	var slice []string
	if err := value.Decode(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// LoadQuerySpec reads the query file at path.
func LoadQuerySpec(path string) (*QuerySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query: %w", err)
	}
	return ParseQuerySpec(data)
}

// ParseQuerySpec decodes a query document.
func ParseQuerySpec(data []byte) (*QuerySpec, error) {
	spec := &QuerySpec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	return spec, nil
}

// Query builds the query described by s. Duplicate aliases are returned
// as errors; other composition errors, such as a missing FROM, are
// reported by the query's Compose.
func (s *QuerySpec) Query() (*sql.Query, error) {
	q := sql.Select("*")
	if len(s.Select) > 0 {
		q = sql.Select(s.Select...)
	}
	q = q.From(s.From...)
	for _, j := range s.Joins {
		kind := sql.JoinInner
		if j.Type != "" {
			kind = sql.JoinKind(cases.Upper(language.Und).String(j.Type))
		}
		switch kind {
		case sql.JoinInner, sql.JoinLeft, sql.JoinRight:
		default:
			return nil, fmt.Errorf("unknown join type %q", j.Type)
		}
		q = q.Join(kind, j.Table, j.On)
	}
	where, err := sql.ParseRestriction(s.Where)
	if err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	having, err := sql.ParseRestriction(s.Having)
	if err != nil {
		return nil, fmt.Errorf("having: %w", err)
	}
	q = q.Where(where).Having(having)
	if len(s.GroupBy) > 0 {
		q = q.GroupBy(s.GroupBy...)
	}
	orders := make([]sql.Order, len(s.OrderBy))
	for i, o := range s.OrderBy {
		dir := sql.OrderAsc
		if o.Direction != "" {
			dir = sql.Direction(o.Direction)
		}
		orders[i] = sql.Order{Column: o.Column, Direction: dir}
	}
	if len(orders) > 0 {
		q = q.OrderBys(orders...)
	}
	q = q.Limit(s.Limit).Offset(s.Offset)
	if err := q.Err(); err != nil {
		return nil, err
	}
	return q, nil
}
