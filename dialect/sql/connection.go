package sql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"github.com/syssam/lazysql"
	"github.com/syssam/lazysql/dialect"
)

// Statement is anything that renders to SQL text. *Query and RawQuery
// implement it.
type Statement interface {
	Compose() (string, error)
}

// RawQuery is a hand-written SQL statement.
type RawQuery string

// Compose implements Statement.
func (q RawQuery) Compose() (string, error) {
	if strings.TrimSpace(string(q)) == "" {
		return "", lazysql.NewComposeError("", "empty statement")
	}
	return string(q), nil
}

// Record is a fetched row. Values are kept in select order.
type Record struct {
	columns []string
	values  []any
}

// NewRecord returns a record holding values under the given column names.
func NewRecord(columns []string, values []any) Record {
	return Record{columns: slices.Clone(columns), values: slices.Clone(values)}
}

// Columns returns the column names of the record.
func (r Record) Columns() []string { return slices.Clone(r.columns) }

// Values returns the values of the record in column order.
func (r Record) Values() []any { return slices.Clone(r.values) }

// Len returns the number of columns.
func (r Record) Len() int { return len(r.values) }

// Get returns the value of the named column.
func (r Record) Get(column string) (any, bool) {
	if i := slices.Index(r.columns, column); i >= 0 {
		return r.values[i], true
	}
	return nil, false
}

// Map returns the record as a map. Duplicate column names keep the last value.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Connection runs statements on a driver and quotes values and
// identifiers for its dialect. Statements are counted, so callers can
// check how many round trips an operation issued.
type Connection struct {
	drv     *StatsDriver
	dialect string
}

// NewConnection returns a Connection over drv. Drivers that are not
// already a *StatsDriver are wrapped with one.
func NewConnection(drv dialect.Driver, opts ...StatsOption) *Connection {
	sd, ok := drv.(*StatsDriver)
	if !ok {
		sd = NewStatsDriver(drv, opts...)
	}
	return &Connection{drv: sd, dialect: dialect.Normalize(drv.Dialect())}
}

// Dialect returns the dialect of the connection.
func (c *Connection) Dialect() string { return c.dialect }

// Driver returns the statistics driver of the connection.
func (c *Connection) Driver() *StatsDriver { return c.drv }

// Stats returns the statement statistics of the connection.
func (c *Connection) Stats() Snapshot { return c.drv.Counters().Snapshot() }

// QueryCount returns the number of queries issued through the connection.
func (c *Connection) QueryCount() int64 { return c.drv.Counters().Queries() }

// Close closes the underlying driver.
func (c *Connection) Close() error { return c.drv.Close() }

// Quote renders v as a SQL literal of the connection dialect.
func (c *Connection) Quote(v any) string { return QuoteValue(c.dialect, v) }

// QuoteIdentifier quotes name as an identifier of the connection dialect.
func (c *Connection) QuoteIdentifier(name string) string { return QuoteIdentifier(c.dialect, name) }

// Execute composes stmt and runs it. The caller must close the returned rows.
func (c *Connection) Execute(ctx context.Context, stmt Statement) (*Rows, error) {
	query, err := stmt.Compose()
	if err != nil {
		return nil, lazysql.NewQueryError("execute", "", err)
	}
	rows := &Rows{}
	if err := c.drv.Query(ctx, query, []any{}, rows); err != nil {
		return nil, lazysql.NewQueryError("execute", query, err)
	}
	return rows, nil
}

// FetchAll runs stmt and returns all rows. Byte slices are converted
// to strings.
func (c *Connection) FetchAll(ctx context.Context, stmt Statement) ([]Record, error) {
	query, err := stmt.Compose()
	if err != nil {
		return nil, lazysql.NewQueryError("fetch all", "", err)
	}
	rows := &Rows{}
	if err := c.drv.Query(ctx, query, []any{}, rows); err != nil {
		return nil, lazysql.NewQueryError("fetch all", query, err)
	}
	defer rows.Close()
	records, err := ScanRecords(rows)
	if err != nil {
		return nil, lazysql.NewQueryError("fetch all", query, err)
	}
	return records, nil
}

// FetchValue runs stmt and returns the first column of the first row,
// nil when no row matched.
func (c *Connection) FetchValue(ctx context.Context, stmt Statement) (any, error) {
	records, err := c.FetchAll(ctx, stmt)
	if err != nil {
		var qe *lazysql.QueryError
		if errors.As(err, &qe) {
			qe.Op = "fetch value"
		}
		return nil, err
	}
	if len(records) == 0 || records[0].Len() == 0 {
		return nil, nil
	}
	return records[0].values[0], nil
}

// ScanRecords reads all rows of rows into records.
func ScanRecords(rows ColumnScanner) ([]Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var records []Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		records = append(records, Record{columns: columns, values: values})
	}
	return records, rows.Err()
}
