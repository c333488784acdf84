package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/syssam/lazysql/dialect/sql"
)

// Connection is the part of *sql.Connection a collection needs.
type Connection interface {
	Dialect() string
	FetchAll(ctx context.Context, stmt sql.Statement) ([]sql.Record, error)
	FetchValue(ctx context.Context, stmt sql.Statement) (any, error)
	Quote(v any) string
	QuoteIdentifier(name string) string
}

var _ Connection = (*sql.Connection)(nil)

// ErrNoConnection is returned when a collection has a query but no
// connection to run it on.
var ErrNoConnection = errors.New("collection: no connection")

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger that receives diagnostics. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Collection) {
		if l != nil {
			c.log = l
		}
	}
}

// projection is the shape of the items a pending query yields.
type projection int

const (
	projectRecord projection = iota // sql.Record rows
	projectValue                    // the first column of each row
	projectList                     // []any of the row values
)

// state is either pending or materialized.
type state interface {
	isState()
}

// pending is a collection that has not run its query yet. Exactly one of
// query and raw is set. skip and take window the rows of a raw query and
// take is -1 when unbounded.
type pending struct {
	query *sql.Query
	raw   string
	proj  projection
	skip  int
	take  int
}

// materialized is a collection backed by fetched items. keys has the same
// length as items.
type materialized struct {
	items []any
	keys  []any
}

func (*pending) isState()      {}
func (*materialized) isState() {}

// Collection is a sequence of items backed either by a pending query or
// by items already in memory. Operations that can be expressed in SQL
// return a collection with a rewritten query and issue no statement;
// everything else fetches the rows once and continues in memory. The
// results are the same either way.
//
//	fruits := collection.New(conn, sql.Select("*").From("fruits"))
//	cheap, err := fruits.Where(ctx, collection.Conditions{"price <": 2})
//	n, err := cheap.Skip(10).Count(ctx) // SELECT COUNT(*) FROM fruits WHERE price < 2
//
// A Collection is not safe for concurrent use: materializing replaces its
// state in place.
type Collection struct {
	conn  Connection
	log   *slog.Logger
	state state
}

// New returns a lazy collection over the rows of q.
func New(conn Connection, q *sql.Query, opts ...Option) *Collection {
	c := newCollection(conn, opts)
	c.state = &pending{query: q.Clone(), take: -1}
	return c
}

// NewRaw returns a lazy collection over the rows of a hand-written
// statement. Only Skip and Take stay lazy on it.
func NewRaw(conn Connection, query string, opts ...Option) *Collection {
	c := newCollection(conn, opts)
	c.state = &pending{raw: query, take: -1}
	return c
}

// FromSlice returns a materialized collection over items.
func FromSlice(items []any, opts ...Option) *Collection {
	c := newCollection(nil, opts)
	c.state = newMaterialized(slices.Clone(items), nil)
	return c
}

func newCollection(conn Connection, opts []Option) *Collection {
	c := &Collection{conn: conn, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newMaterialized returns a state over items, keyed by position when keys
// is nil.
func newMaterialized(items, keys []any) *materialized {
	if keys == nil {
		keys = make([]any, len(items))
		for i := range keys {
			keys[i] = i
		}
	}
	return &materialized{items: items, keys: keys}
}

// derive returns a collection sharing the connection and logger of c.
func (c *Collection) derive(s state) *Collection {
	return &Collection{conn: c.conn, log: c.log, state: s}
}

func (c *Collection) empty() *Collection {
	return c.derive(newMaterialized([]any{}, nil))
}

// IsLazy reports whether the collection still holds an unexecuted query.
func (c *Collection) IsLazy() bool {
	_, ok := c.state.(*pending)
	return ok
}

// Query returns a copy of the pending query. It reports false once the
// collection is materialized or when it wraps a raw statement.
func (c *Collection) Query() (*sql.Query, bool) {
	if p, ok := c.state.(*pending); ok && p.query != nil {
		return p.query.Clone(), true
	}
	return nil, false
}

// SetQuery replaces the query of the collection. Items fetched before
// are dropped; the next read runs q.
func (c *Collection) SetQuery(q *sql.Query) {
	c.state = &pending{query: q.Clone(), take: -1}
}

// Clone returns a copy of the collection that shares no state with c.
func (c *Collection) Clone() *Collection {
	switch s := c.state.(type) {
	case *pending:
		p := *s
		if s.query != nil {
			p.query = s.query.Clone()
		}
		return c.derive(&p)
	case *materialized:
		return c.derive(&materialized{items: slices.Clone(s.items), keys: slices.Clone(s.keys)})
	}
	return c.empty()
}

// materialize runs the pending query once and switches c to its items.
// Later calls return the same items.
func (c *Collection) materialize(ctx context.Context) (*materialized, error) {
	switch s := c.state.(type) {
	case *materialized:
		return s, nil
	case *pending:
		items, err := c.fetch(ctx, s)
		if err != nil {
			return nil, err
		}
		m := newMaterialized(items, nil)
		c.state = m
		return m, nil
	}
	return nil, fmt.Errorf("collection: unknown state %T", c.state)
}

func (c *Collection) fetch(ctx context.Context, p *pending) ([]any, error) {
	if c.conn == nil {
		return nil, ErrNoConnection
	}
	var (
		stmt       sql.Statement
		skip, take = p.skip, p.take
	)
	if p.query != nil {
		stmt = p.query
		// OFFSET is only rendered with a LIMIT.
		if _, ok := p.query.LimitValue(); !ok {
			skip = p.query.OffsetValue()
		}
	} else {
		stmt = sql.RawQuery(p.raw)
	}
	records, err := c.conn.FetchAll(ctx, stmt)
	if err != nil {
		return nil, err
	}
	records = window(records, skip, take)
	items := make([]any, len(records))
	for i, r := range records {
		switch p.proj {
		case projectValue:
			if values := r.Values(); len(values) > 0 {
				items[i] = values[0]
			}
		case projectList:
			items[i] = r.Values()
		default:
			items[i] = r
		}
	}
	return items, nil
}

// window returns at most take elements of s after the first skip. A
// negative take is unbounded.
func window[S ~[]E, E any](s S, skip, take int) S {
	skip = min(max(skip, 0), len(s))
	s = s[skip:]
	if take >= 0 && take < len(s) {
		s = s[:take]
	}
	return s
}

// ToSlice returns the items of the collection, running the query if
// needed.
func (c *Collection) ToSlice(ctx context.Context) ([]any, error) {
	m, err := c.materialize(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(m.items), nil
}

// Keys returns the keys of the items: their position unless SelectKey
// assigned others.
func (c *Collection) Keys(ctx context.Context) ([]any, error) {
	m, err := c.materialize(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(m.keys), nil
}

// fallback logs why an operation leaves SQL and materializes c.
func (c *Collection) fallback(ctx context.Context, op, reason string) (*materialized, error) {
	if c.IsLazy() {
		c.log.DebugContext(ctx, "materializing collection", "op", op, "reason", reason)
	}
	return c.materialize(ctx)
}

// lazyQuery returns the pending query of c when it yields whole records
// and reason otherwise.
func (c *Collection) lazyQuery() (*pending, string) {
	p, ok := c.state.(*pending)
	switch {
	case !ok:
		return nil, "materialized"
	case p.query == nil:
		return nil, "raw statement"
	case p.proj != projectRecord:
		return nil, "projected rows"
	}
	return p, ""
}

// unwindowed reports why q cannot be refined further, empty when it can.
func unwindowed(q *sql.Query) string {
	if _, ok := q.LimitValue(); ok {
		return "limit set"
	}
	if q.OffsetValue() > 0 {
		return "offset set"
	}
	return ""
}

// Where keeps the items matching f. Conditions on plain columns are added
// to the WHERE clause of a pending query; a Predicate always runs in
// memory.
func (c *Collection) Where(ctx context.Context, f Filter) (*Collection, error) {
	switch f := f.(type) {
	case nil:
		return c.Clone(), nil
	case Predicate:
		m, err := c.fallback(ctx, "where", "predicate")
		if err != nil {
			return nil, err
		}
		return c.derive(filterItems(m, f)), nil
	case Conditions:
		if len(f) == 0 {
			return c.Clone(), nil
		}
		conds := c.checkConditions(ctx, parseConditions(f))
		p, reason := c.lazyQuery()
		if p != nil {
			reason = unwindowed(p.query)
			if p.query.HasGroupBy() {
				reason = "group by set"
			}
		}
		if reason == "" {
			if r, ok := c.whereRestriction(ctx, p.query, conds); ok {
				q := p.query.Where(enclose(p.query.WhereRestriction())).AndWhere(r)
				return c.derive(&pending{query: q, take: -1}), nil
			}
			reason = "condition not expressible in SQL"
		}
		m, err := c.fallback(ctx, "where", reason)
		if err != nil {
			return nil, err
		}
		var matchErr error
		out := filterItems(m, func(item any) bool {
			ok, err := matchConditions(item, conds)
			if err != nil && matchErr == nil {
				matchErr = err
			}
			return ok
		})
		if matchErr != nil {
			return nil, matchErr
		}
		return c.derive(out), nil
	}
	return nil, fmt.Errorf("collection: unsupported filter %T", f)
}

// checkConditions replaces unsupported operators with equality.
func (c *Collection) checkConditions(ctx context.Context, conds []condition) []condition {
	for i, cond := range conds {
		if !isSupportedOperator(cond.op) {
			c.log.WarnContext(ctx, "unsupported operator, comparing for equality",
				"path", cond.path, "operator", cond.op)
			conds[i].op = OpEqual
		}
	}
	return conds
}

func matchConditions(item any, conds []condition) (bool, error) {
	for _, cond := range conds {
		v, err := getPath(item, cond.path)
		if err != nil {
			return false, err
		}
		ok, err := match(cond.op, v, cond.value)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func filterItems(m *materialized, keep func(any) bool) *materialized {
	out := &materialized{items: []any{}, keys: []any{}}
	for i, item := range m.items {
		if keep(item) {
			out.items = append(out.items, item)
			out.keys = append(out.keys, m.keys[i])
		}
	}
	return out
}

// Select maps every item through sel. Paths of selected columns narrow
// the select list of a pending query.
func (c *Collection) Select(ctx context.Context, sel Selector) (*Collection, error) {
	if sel == nil {
		return c.Clone(), nil
	}
	p, reason := c.lazyQuery()
	if p != nil {
		if q, proj, ok := c.selectQuery(p.query, sel); ok {
			return c.derive(&pending{query: q, proj: proj, take: -1}), nil
		}
		reason = "selector not expressible in SQL"
	}
	m, err := c.fallback(ctx, "select", reason)
	if err != nil {
		return nil, err
	}
	items := make([]any, len(m.items))
	for i, item := range m.items {
		if items[i], err = selectValue(sel, item); err != nil {
			return nil, err
		}
	}
	return c.derive(&materialized{items: items, keys: slices.Clone(m.keys)}), nil
}

// selectQuery rewrites the select list of q for sel.
func (c *Collection) selectQuery(q *sql.Query, sel Selector) (*sql.Query, projection, bool) {
	var (
		columns []sql.Column
		proj    projection
	)
	switch sel := sel.(type) {
	case Path:
		expr, ok := resolveColumn(q, string(sel), false)
		if !ok {
			return nil, 0, false
		}
		columns, proj = []sql.Column{{Expr: expr}}, projectValue
	case Paths:
		for i, path := range sel {
			expr, ok := resolveColumn(q, path, false)
			if !ok {
				return nil, 0, false
			}
			columns = append(columns, sql.Column{Expr: expr, Alias: c.conn.QuoteIdentifier(keyName(i))})
		}
		proj = projectList
	case Fields:
		for _, f := range sel {
			expr, ok := resolveColumn(q, f.Path, false)
			if !ok {
				return nil, 0, false
			}
			col := sql.Column{Expr: expr}
			if f.Alias != expr {
				col.Alias = c.conn.QuoteIdentifier(f.Alias)
			}
			columns = append(columns, col)
		}
		proj = projectRecord
	default:
		return nil, 0, false
	}
	if len(columns) == 0 {
		return nil, 0, false
	}
	return q.SelectColumns(columns...), proj, true
}

// SelectKey maps every item through sel and keys it by key. It always
// runs in memory.
func (c *Collection) SelectKey(ctx context.Context, sel, key Selector) (*Collection, error) {
	m, err := c.fallback(ctx, "select key", "keyed selection")
	if err != nil {
		return nil, err
	}
	items := make([]any, len(m.items))
	keys := make([]any, len(m.items))
	for i, item := range m.items {
		if items[i], err = selectValue(sel, item); err != nil {
			return nil, err
		}
		if keys[i], err = selectValue(key, item); err != nil {
			return nil, err
		}
	}
	return c.derive(&materialized{items: items, keys: keys}), nil
}

// OrderBy sorts the items by the value sel picks in ascending order.
// Sorting a pending query by a column with SortRegular replaces its
// ORDER BY clause.
func (c *Collection) OrderBy(ctx context.Context, sel Selector, method SortMethod) (*Collection, error) {
	return c.orderBy(ctx, sel, method, sql.OrderAsc)
}

// OrderByDescending is like OrderBy in descending order.
func (c *Collection) OrderByDescending(ctx context.Context, sel Selector, method SortMethod) (*Collection, error) {
	return c.orderBy(ctx, sel, method, sql.OrderDesc)
}

func (c *Collection) orderBy(ctx context.Context, sel Selector, method SortMethod, dir sql.Direction) (*Collection, error) {
	compare, err := method.comparator()
	if err != nil {
		return nil, err
	}
	p, reason := c.lazyQuery()
	if p != nil {
		reason = unwindowed(p.query)
	}
	if reason == "" && method != SortRegular {
		reason = "sort method " + method.String()
	}
	if reason == "" {
		if path, ok := sel.(Path); ok {
			if column, ok := resolveColumn(p.query, string(path), true); ok {
				return c.derive(&pending{query: p.query.OrderBy(column, dir), take: -1}), nil
			}
		}
		reason = "selector not expressible in SQL"
	}
	m, err := c.fallback(ctx, "order by", reason)
	if err != nil {
		return nil, err
	}
	type entry struct {
		item, key, value any
	}
	entries := make([]entry, len(m.items))
	for i, item := range m.items {
		v, err := selectValue(sel, item)
		if err != nil {
			return nil, err
		}
		entries[i] = entry{item: item, key: m.keys[i], value: v}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		if dir == sql.OrderDesc {
			return compare(b.value, a.value)
		}
		return compare(a.value, b.value)
	})
	out := &materialized{items: make([]any, len(entries)), keys: make([]any, len(entries))}
	for i, e := range entries {
		out.items[i], out.keys[i] = e.item, e.key
	}
	return c.derive(out), nil
}

// Skip drops the first n items. On a pending query the offset grows and
// the limit shrinks; when no row can remain the result is empty and no
// statement is issued.
func (c *Collection) Skip(n int) *Collection {
	if n <= 0 {
		return c.Clone()
	}
	switch s := c.state.(type) {
	case *pending:
		p := *s
		if p.query == nil {
			p.skip += n
			if p.take >= 0 {
				p.take -= n
				if p.take <= 0 {
					return c.empty()
				}
			}
			return c.derive(&p)
		}
		q := p.query
		if limit, ok := q.LimitValue(); ok {
			if limit-n <= 0 {
				return c.empty()
			}
			q = q.Limit(limit - n)
		}
		p.query = q.Offset(q.OffsetValue() + n)
		return c.derive(&p)
	case *materialized:
		return c.derive(&materialized{
			items: slices.Clone(window(s.items, n, -1)),
			keys:  slices.Clone(window(s.keys, n, -1)),
		})
	}
	return c.empty()
}

// Take keeps at most the first n items. A pending query gets a LIMIT
// unless a tighter one is already set.
func (c *Collection) Take(ctx context.Context, n int) (*Collection, error) {
	if n <= 0 {
		return c.empty(), nil
	}
	reason := "materialized"
	if s, ok := c.state.(*pending); ok {
		p := *s
		if p.query == nil {
			if p.take < 0 || p.take > n {
				p.take = n
			}
			return c.derive(&p), nil
		}
		limit, ok := p.query.LimitValue()
		if !ok || limit > n {
			p.query = p.query.Limit(n)
			return c.derive(&p), nil
		}
		reason = "limit already tighter"
	}
	m, err := c.fallback(ctx, "take", reason)
	if err != nil {
		return nil, err
	}
	return c.derive(&materialized{
		items: slices.Clone(window(m.items, 0, n)),
		keys:  slices.Clone(window(m.keys, 0, n)),
	}), nil
}

// Count returns the number of items. A pending query is counted with
// SELECT COUNT(*); its offset and limit are applied to the result.
func (c *Collection) Count(ctx context.Context) (int, error) {
	if p, ok := c.state.(*pending); ok && p.query != nil && !p.query.HasGroupBy() {
		if c.conn == nil {
			return 0, ErrNoConnection
		}
		q := p.query.SelectRaw("COUNT(*)").OrderBys().Limit(0).Offset(0)
		v, err := c.conn.FetchValue(ctx, q)
		if err != nil {
			return 0, err
		}
		n, err := toInt(v)
		if err != nil {
			return 0, err
		}
		n = max(n-p.query.OffsetValue(), 0)
		if limit, ok := p.query.LimitValue(); ok {
			n = min(n, limit)
		}
		return n, nil
	}
	m, err := c.fallback(ctx, "count", "group by or raw statement")
	if err != nil {
		return 0, err
	}
	return len(m.items), nil
}

// Min returns the smallest value sel picks, nil for an empty collection.
// Nil values are ignored.
func (c *Collection) Min(ctx context.Context, sel Selector) (any, error) {
	return c.aggregate(ctx, "MIN", sel, -1)
}

// Max returns the largest value sel picks, nil for an empty collection.
// Nil values are ignored.
func (c *Collection) Max(ctx context.Context, sel Selector) (any, error) {
	return c.aggregate(ctx, "MAX", sel, 1)
}

func (c *Collection) aggregate(ctx context.Context, fn string, sel Selector, sign int) (any, error) {
	p, reason := c.lazyQuery()
	if p != nil {
		reason = unwindowed(p.query)
		if p.query.HasGroupBy() {
			reason = "group by set"
		}
	}
	if reason == "" {
		if path, ok := sel.(Path); ok {
			if column, ok := resolveColumn(p.query, string(path), true); ok {
				if c.conn == nil {
					return nil, ErrNoConnection
				}
				q := p.query.SelectRaw(fn + "(" + column + ")").OrderBys()
				return c.conn.FetchValue(ctx, q)
			}
		}
		reason = "selector not expressible in SQL"
	}
	m, err := c.fallback(ctx, fn, reason)
	if err != nil {
		return nil, err
	}
	var best any
	for _, item := range m.items {
		v, err := selectValue(sel, item)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if best == nil || compareValues(v, best)*sign > 0 {
			best = v
		}
	}
	return best, nil
}
