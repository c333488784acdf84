// Package config loads connection settings and query files for the
// lazysql command.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/syssam/lazysql"
	"github.com/syssam/lazysql/dialect"
	"github.com/syssam/lazysql/dialect/sql"
	"github.com/syssam/lazysql/internal/logging"
)

// Config is the lazysql configuration file:
//
//	connections:
//	  main: {dialect: mysql, dsn: "user:pw@tcp(host)/db", max_open_conns: 4, debug: true}
//	logging: {level: info, format: text}
//	stats: {slow_threshold: 200ms}
type Config struct {
	Connections map[string]Connection `yaml:"connections"`
	Logging     logging.Config        `yaml:"logging"`
	Stats       Stats                 `yaml:"stats"`
}

// Connection configures a single named database connection.
type Connection struct {
	Dialect      string `yaml:"dialect"`        // mysql, postgres or sqlite
	DSN          string `yaml:"dsn"`            // data source name of the driver
	MaxOpenConns int    `yaml:"max_open_conns"` // 0 is unlimited
	Debug        bool   `yaml:"debug"`          // log every statement at debug level
}

// Stats configures statement statistics.
type Stats struct {
	SlowThreshold time.Duration `yaml:"slow_threshold"` // default: 100ms
}

// DefaultSlowThreshold is used when stats.slow_threshold is unset.
const DefaultSlowThreshold = sql.DefaultSlowThreshold

// Dialects lists the supported dialects.
var Dialects = []string{dialect.MySQL, dialect.Postgres, dialect.SQLite}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Stats.SlowThreshold == 0 {
		cfg.Stats.SlowThreshold = DefaultSlowThreshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every connection and the logging settings. All
// problems are reported together.
func (cfg *Config) Validate() error {
	var errs []error
	for _, name := range cfg.Names() {
		if err := cfg.Connections[name].validate(); err != nil {
			errs = append(errs, fmt.Errorf("connection %q: %w", name, err))
		}
	}
	if err := cfg.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Stats.SlowThreshold < 0 {
		errs = append(errs, fmt.Errorf("stats: negative slow_threshold %s", cfg.Stats.SlowThreshold))
	}
	return lazysql.NewAggregateError(errs...)
}

func (c Connection) validate() error {
	d := dialect.Normalize(c.Dialect)
	if !slices.Contains(Dialects, d) {
		return fmt.Errorf("unsupported dialect %q: must be one of %v", c.Dialect, Dialects)
	}
	if c.DSN == "" {
		return errors.New("missing dsn")
	}
	if c.MaxOpenConns < 0 {
		return fmt.Errorf("negative max_open_conns %d", c.MaxOpenConns)
	}
	switch d {
	case dialect.MySQL:
		if _, err := mysql.ParseDSN(c.DSN); err != nil {
			return fmt.Errorf("invalid mysql dsn: %w", err)
		}
	case dialect.Postgres:
		if strings.HasPrefix(c.DSN, "postgres://") || strings.HasPrefix(c.DSN, "postgresql://") {
			if _, err := pq.ParseURL(c.DSN); err != nil {
				return fmt.Errorf("invalid postgres url: %w", err)
			}
		}
	}
	return nil
}

// Names returns the connection names in sorted order.
func (cfg *Config) Names() []string {
	names := make([]string, 0, len(cfg.Connections))
	for name := range cfg.Connections {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Logger returns the logger described by the logging section.
func (cfg *Config) Logger(w io.Writer) (*slog.Logger, error) {
	return logging.New(w, cfg.Logging)
}

// Open opens the named connection. Statements are counted, slow ones are
// logged as warnings and, with debug set, every statement is logged at
// debug level.
func (cfg *Config) Open(name string, log *slog.Logger) (*sql.Connection, error) {
	c, ok := cfg.Connections[name]
	if !ok {
		return nil, fmt.Errorf("unknown connection %q", name)
	}
	drv, err := c.open()
	if err != nil {
		return nil, fmt.Errorf("connection %q: %w", name, err)
	}
	if log == nil {
		log = slog.Default()
	}
	log = log.With("connection", name)
	var wrapped dialect.Driver = drv
	if c.Debug {
		wrapped = sql.NewDebugDriver(drv, log)
	}
	stats := sql.NewStatsDriver(wrapped,
		sql.WithSlowThreshold(cfg.Stats.SlowThreshold),
		sql.WithSlowQueryLogger(log),
	)
	return sql.NewConnection(stats), nil
}

func (c Connection) open() (*sql.Driver, error) {
	drv, err := sql.Open(c.Dialect, c.DSN)
	if err != nil {
		return nil, err
	}
	if c.MaxOpenConns > 0 {
		drv.DB().SetMaxOpenConns(c.MaxOpenConns)
	}
	return drv, nil
}

// PingAll opens and pings every connection concurrently. The first
// failure cancels the remaining pings.
func (cfg *Config) PingAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, name := range cfg.Names() {
		c := cfg.Connections[name]
		g.Go(func() error {
			drv, err := c.open()
			if err != nil {
				return fmt.Errorf("connection %q: %w", name, err)
			}
			defer drv.Close()
			if err := drv.DB().PingContext(ctx); err != nil {
				return fmt.Errorf("connection %q: ping: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// CloseAll closes every closer and reports all failures together.
func CloseAll[C io.Closer](closers ...C) error {
	errs := make([]error, 0, len(closers))
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return lazysql.NewAggregateError(errs...)
}
