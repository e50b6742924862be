// Package config holds the server settings and loads them from defaults,
// a YAML file, the environment and command line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level    string `koanf:"level"`
	Encoding string `koanf:"encoding"`
}

type Config struct {
	Bind        string        `koanf:"bind"`
	Port        int           `koanf:"port"`
	Workers     int           `koanf:"workers"`
	ReadTimeout time.Duration `koanf:"read_timeout"`
	Shards      int           `koanf:"shards"`
	RateLimit   int           `koanf:"rate_limit"`
	MetricsAddr string        `koanf:"metrics_addr"`
	Log         LogConfig     `koanf:"log"`
}

func Default() *Config {
	return &Config{
		Port:        6379,
		Workers:     16,
		ReadTimeout: 30 * time.Second,
		Shards:      1,
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// defaultMap mirrors Default as koanf keys, the lowest priority layer.
func defaultMap() map[string]any {
	d := Default()
	return map[string]any{
		"bind":         d.Bind,
		"port":         d.Port,
		"workers":      d.Workers,
		"read_timeout": d.ReadTimeout,
		"shards":       d.Shards,
		"rate_limit":   d.RateLimit,
		"metrics_addr": d.MetricsAddr,
		"log": map[string]any{
			"level":    d.Log.Level,
			"encoding": d.Log.Encoding,
		},
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("read_timeout must be positive, got %s", c.ReadTimeout))
	}
	if c.Shards < 1 || c.Shards&(c.Shards-1) != 0 {
		errs = append(errs, fmt.Errorf("shards must be a power of two, got %d", c.Shards))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %d", c.RateLimit))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Encoding != "console" && c.Log.Encoding != "json" {
		errs = append(errs, fmt.Errorf("log.encoding must be console or json, got %q", c.Log.Encoding))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}
