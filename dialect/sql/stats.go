package sql

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/lazysql/dialect"
)

// DefaultSlowThreshold is the slow statement threshold of a StatsDriver
// created without WithSlowThreshold.
const DefaultSlowThreshold = 100 * time.Millisecond

// Counters accumulates statement statistics. It is safe for concurrent use.
type Counters struct {
	queries atomic.Int64
	execs   atomic.Int64
	slow    atomic.Int64
	errors  atomic.Int64
	elapsed atomic.Int64 // nanoseconds
}

// Queries returns the number of queries issued so far.
func (c *Counters) Queries() int64 { return c.queries.Load() }

// Snapshot returns the current values of the counters.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Queries: c.queries.Load(),
		Execs:   c.execs.Load(),
		Slow:    c.slow.Load(),
		Errors:  c.errors.Load(),
		Elapsed: time.Duration(c.elapsed.Load()),
	}
}

// Reset sets every counter to zero.
func (c *Counters) Reset() {
	c.queries.Store(0)
	c.execs.Store(0)
	c.slow.Store(0)
	c.errors.Store(0)
	c.elapsed.Store(0)
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Queries int64
	Execs   int64
	Slow    int64
	Errors  int64
	Elapsed time.Duration
}

// Average returns the mean duration of a statement.
func (s Snapshot) Average() time.Duration {
	n := s.Queries + s.Execs
	if n == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(n)
}

// LogValue implements slog.LogValuer.
func (s Snapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("queries", s.Queries),
		slog.Int64("execs", s.Execs),
		slog.Int64("slow", s.Slow),
		slog.Int64("errors", s.Errors),
		slog.Duration("elapsed", s.Elapsed),
		slog.Duration("avg", s.Average()),
	)
}

// Executed describes a finished statement.
type Executed struct {
	Kind    string // "query" or "exec"
	SQL     string
	Args    []any
	Elapsed time.Duration
	Err     error
}

// SlowHook is called with every statement slower than the threshold.
type SlowHook func(ctx context.Context, e Executed)

// StatsDriver counts the statements passed to the wrapped driver.
// Connection reads its query count from here.
type StatsDriver struct {
	dialect.Driver
	counters  Counters
	threshold atomic.Int64 // nanoseconds
	hook      SlowHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement is slow.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold.Store(int64(d))
	}
}

// WithSlowHook sets the function called for slow statements.
func WithSlowHook(hook SlowHook) StatsOption {
	return func(s *StatsDriver) {
		s.hook = hook
	}
}

// WithSlowQueryLogger logs slow statements to l as warnings, or to the
// default logger when l is nil.
func WithSlowQueryLogger(l *slog.Logger) StatsOption {
	return WithSlowHook(func(ctx context.Context, e Executed) {
		logger := l
		if logger == nil {
			logger = slog.Default()
		}
		logger.WarnContext(ctx, "slow statement",
			"kind", e.Kind,
			"sql", e.SQL,
			"args", e.Args,
			"elapsed", e.Elapsed,
		)
	})
}

// NewStatsDriver wraps drv with statement counting:
//
//	drv, _ := sql.Open("mysql", dsn)
//	sd := sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLogger(logger),
//	)
//	conn := sql.NewConnection(sd)
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv}
	s.threshold.Store(int64(DefaultSlowThreshold))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Counters returns the statement counters of the driver.
func (d *StatsDriver) Counters() *Counters {
	return &d.counters
}

// SlowThreshold returns the current slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration {
	return time.Duration(d.threshold.Load())
}

// SetSlowThreshold updates the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) {
	d.threshold.Store(int64(threshold))
}

// Query runs a query on the wrapped driver and counts it.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.counters.queries.Add(1)
	d.record(ctx, Executed{Kind: "query", SQL: query, Elapsed: time.Since(start), Err: err}, args)
	return err
}

// Exec runs a statement on the wrapped driver and counts it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.counters.execs.Add(1)
	d.record(ctx, Executed{Kind: "exec", SQL: query, Elapsed: time.Since(start), Err: err}, args)
	return err
}

func (d *StatsDriver) record(ctx context.Context, e Executed, args any) {
	d.counters.elapsed.Add(int64(e.Elapsed))
	if e.Err != nil {
		d.counters.errors.Add(1)
	}
	if e.Elapsed <= d.SlowThreshold() {
		return
	}
	d.counters.slow.Add(1)
	if d.hook != nil {
		e.Args, _ = args.([]any)
		d.hook(ctx, e)
	}
}

// DebugDriver logs every statement at debug level before running it.
// Each record carries a fresh statement id, so lines of concurrent
// requests can be told apart.
type DebugDriver struct {
	dialect.Driver
	log *slog.Logger
}

// NewDebugDriver wraps drv with statement logging to l, or to the
// default logger when l is nil.
func NewDebugDriver(drv dialect.Driver, l *slog.Logger) *DebugDriver {
	if l == nil {
		l = slog.Default()
	}
	return &DebugDriver{Driver: drv, log: l}
}

// Query logs the query and runs it on the wrapped driver.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.debug(ctx, "query", query, args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec logs the statement and runs it on the wrapped driver.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.debug(ctx, "exec", query, args)
	return d.Driver.Exec(ctx, query, args, v)
}

func (d *DebugDriver) debug(ctx context.Context, kind, query string, args any) {
	d.log.DebugContext(ctx, "statement",
		"id", uuid.NewString(),
		"kind", kind,
		"sql", query,
		"args", args,
	)
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
)
