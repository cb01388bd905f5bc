// Package config loads the broker configuration from a YAML file and the
// environment.
//
// Environment variables override file values and are named MQ_ followed by
// the upper snake case field name, e.g. MQ_SEGMENT_SIZE or MQ_LOG_LEVEL.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const envPrefix = "MQ_"

type Config struct {
	Addr           string `yaml:"addr"`
	DataDir        string `yaml:"data_dir"`
	SegmentSize    int    `yaml:"segment_size"`
	MaxFetchCount  int    `yaml:"max_fetch_count"`
	MaxFetchBytes  int    `yaml:"max_fetch_bytes"`
	MaxConnections int64  `yaml:"max_connections"`
	LogLevel       string `yaml:"log_level"`
	LogDevelopment bool   `yaml:"log_development"`
}

func Default() *Config {
	return &Config{
		Addr:           ":6380",
		DataDir:        "data",
		SegmentSize:    64 * 1024 * 1024,
		MaxFetchCount:  32,
		MaxFetchBytes:  256 * 1024,
		MaxConnections: 1024,
		LogLevel:       "info",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays MQ_* environment variables.
func (c *Config) ApplyEnv() error {
	return c.applyLookup(os.LookupEnv)
}

func (c *Config) applyLookup(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ADDR":      &c.Addr,
		"DATA_DIR":  &c.DataDir,
		"LOG_LEVEL": &c.LogLevel,
	}
	for k, p := range strs {
		if v, ok := lookup(envPrefix + k); ok {
			*p = v
		}
	}

	ints := map[string]*int{
		"SEGMENT_SIZE":    &c.SegmentSize,
		"MAX_FETCH_COUNT": &c.MaxFetchCount,
		"MAX_FETCH_BYTES": &c.MaxFetchBytes,
	}
	for k, p := range ints {
		v, ok := lookup(envPrefix + k)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", envPrefix, k, err)
		}
		*p = n
	}

	if v, ok := lookup(envPrefix + "MAX_CONNECTIONS"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %sMAX_CONNECTIONS: %w", envPrefix, err)
		}
		c.MaxConnections = n
	}
	if v, ok := lookup(envPrefix + "LOG_DEVELOPMENT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sLOG_DEVELOPMENT: %w", envPrefix, err)
		}
		c.LogDevelopment = b
	}
	return nil
}

func (c *Config) Validate() error {
	var err error
	if c.Addr == "" {
		err = multierr.Append(err, errors.New("addr is empty"))
	}
	if c.DataDir == "" {
		err = multierr.Append(err, errors.New("data_dir is empty"))
	}
	if c.SegmentSize < 4096 {
		err = multierr.Append(err, fmt.Errorf("segment_size %d is below 4096", c.SegmentSize))
	}
	if c.MaxFetchCount <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_fetch_count %d must be positive", c.MaxFetchCount))
	}
	if c.MaxFetchBytes <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_fetch_bytes %d must be positive", c.MaxFetchBytes))
	}
	if c.MaxConnections <= 0 {
		err = multierr.Append(err, fmt.Errorf("max_connections %d must be positive", c.MaxConnections))
	}
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
