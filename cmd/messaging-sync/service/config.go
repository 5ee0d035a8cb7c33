// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service wires the messaging sync service's dependencies from configuration.
package service

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/linuxfoundation/lfx-v2-messaging-sync-service/pkg/constants"
)

// Config is the runtime configuration. Values come from the optional YAML
// file named by CONFIG_FILE and are overridden by environment variables.
type Config struct {
	NATS       NATSConfig       `yaml:"nats"`
	Repository RepositoryConfig `yaml:"repository"`
	Import     ImportConfig     `yaml:"import"`
	Jobs       JobsConfig       `yaml:"jobs"`
	HealthPort string           `yaml:"health_port"`
}

// NATSConfig holds the NATS connection settings
type NATSConfig struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxReconnect  int           `yaml:"max_reconnect"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// RepositoryConfig selects the record store
type RepositoryConfig struct {
	Source      string `yaml:"source"` // postgres, sqlite, mock
	DatabaseURL string `yaml:"database_url"`
}

// ImportConfig controls batch import retries
type ImportConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`
}

// JobsConfig controls the job queue
type JobsConfig struct {
	PayloadEncoding string `yaml:"payload_encoding"` // json, msgpack
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			Timeout:       10 * time.Second,
			MaxReconnect:  3,
			ReconnectWait: 2 * time.Second,
		},
		Repository: RepositoryConfig{
			Source: constants.RepositorySourcePostgres,
		},
		Import: ImportConfig{
			MaxAttempts:    3,
			RetryBaseDelay: 100 * time.Millisecond,
			RetryMaxDelay:  2 * time.Second,
		},
		Jobs: JobsConfig{
			PayloadEncoding: constants.JobEncodingJSON,
		},
		HealthPort: "8080",
	}
}

// LoadConfig builds the configuration from CONFIG_FILE and the environment.
func LoadConfig() (Config, error) {
	return loadConfig(os.Getenv, os.ReadFile)
}

func loadConfig(getenv func(string) string, readFile func(string) ([]byte, error)) (Config, error) {
	cfg := DefaultConfig()

	if path := getenv(constants.EnvConfigFile); path != "" {
		data, err := readFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str(constants.EnvNATSURL, &cfg.NATS.URL)
	str(constants.EnvRepositorySource, &cfg.Repository.Source)
	str(constants.EnvDatabaseURL, &cfg.Repository.DatabaseURL)
	str(constants.EnvJobPayloadEncoding, &cfg.Jobs.PayloadEncoding)
	str(constants.EnvHealthPort, &cfg.HealthPort)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{constants.EnvNATSTimeout, &cfg.NATS.Timeout},
		{constants.EnvNATSReconnectWait, &cfg.NATS.ReconnectWait},
		{constants.EnvImportRetryBaseDelay, &cfg.Import.RetryBaseDelay},
		{constants.EnvImportRetryMaxDelay, &cfg.Import.RetryMaxDelay},
	}
	for _, d := range durations {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s duration %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}

	ints := []struct {
		key string
		dst *int
	}{
		{constants.EnvNATSMaxReconnect, &cfg.NATS.MaxReconnect},
		{constants.EnvImportMaxAttempts, &cfg.Import.MaxAttempts},
	}
	for _, i := range ints {
		v := getenv(i.key)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s value %q: %w", i.key, v, err)
		}
		*i.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with
func (c Config) Validate() error {
	switch c.Repository.Source {
	case constants.RepositorySourcePostgres, constants.RepositorySourceSQLite:
		if c.Repository.DatabaseURL == "" {
			return fmt.Errorf("%s is required for repository source %s", constants.EnvDatabaseURL, c.Repository.Source)
		}
	case constants.RepositorySourceMock:
	default:
		return fmt.Errorf("unsupported repository source %q", c.Repository.Source)
	}

	switch c.Jobs.PayloadEncoding {
	case constants.JobEncodingJSON, constants.JobEncodingMsgpack:
	default:
		return fmt.Errorf("unsupported job payload encoding %q", c.Jobs.PayloadEncoding)
	}

	if c.NATS.URL == "" {
		return fmt.Errorf("%s is required", constants.EnvNATSURL)
	}
	if c.Import.MaxAttempts < 1 {
		return fmt.Errorf("import max attempts must be at least 1, got %d", c.Import.MaxAttempts)
	}
	if c.Import.RetryMaxDelay < c.Import.RetryBaseDelay {
		return fmt.Errorf("import retry max delay %s is below base delay %s", c.Import.RetryMaxDelay, c.Import.RetryBaseDelay)
	}
	return nil
}
