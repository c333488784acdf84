// Package logging builds the slog loggers used by the lazysql command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Config selects the level and format of a logger.
type Config struct {
	Level  string `yaml:"level"`  // debug, info, warn or error (default: info)
	Format string `yaml:"format"` // text or json (default: text)
}

// Formats lists the supported handler formats.
var Formats = []string{"text", "json"}

// ParseLevel parses a level name. The empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("logging: invalid level %q", name)
	}
	return level, nil
}

// Validate checks the level and format of cfg.
func (cfg Config) Validate() error {
	if _, err := ParseLevel(cfg.Level); err != nil {
		return err
	}
	switch strings.ToLower(cfg.Format) {
	case "", "text", "json":
		return nil
	}
	return fmt.Errorf("logging: invalid format %q: must be one of %v", cfg.Format, Formats)
}

// New returns a logger writing to w as configured by cfg.
func New(w io.Writer, cfg Config) (*slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
