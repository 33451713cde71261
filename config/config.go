// Package config loads the YAML configuration shared by the example driver:
// logging, persistence backend and parameter sweep partitioning.
package config

import (
	"fmt"
	"os"

	"github.com/notargets/ROMKernel/partitions"
	"github.com/notargets/ROMKernel/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logging    LoggingConfig   `yaml:"logging"`
	Store      store.Config    `yaml:"store"`
	Partitions PartitionConfig `yaml:"partitions"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error
	Development bool   `yaml:"development"` // human readable console output
	Encoding    string `yaml:"encoding"`    // json or console
}

type PartitionConfig struct {
	Strategy   string `yaml:"strategy"`    // block or round_robin
	TargetSize int    `yaml:"target_size"` // parameter points per partition
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Encoding: "json"},
		Store:   store.Config{Backend: store.BackendMemory},
		Partitions: PartitionConfig{
			Strategy:   partitions.BlockPartition.String(),
			TargetSize: 8,
		},
	}
}

// Load reads path over the defaults; keys absent from the file keep their
// default value
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	switch c.Logging.Encoding {
	case "json", "console", "":
	default:
		return fmt.Errorf("logging: unknown encoding %q", c.Logging.Encoding)
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if _, err := partitions.ParseStrategy(c.Partitions.Strategy); err != nil {
		return err
	}
	if c.Partitions.TargetSize < 1 {
		return fmt.Errorf("partitions: target_size must be positive, got %d", c.Partitions.TargetSize)
	}
	return nil
}

// Build creates the logger described by c
func (c LoggingConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if c.Encoding != "" {
		zc.Encoding = c.Encoding
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Builder returns the partition builder for a sample of n points
func (c PartitionConfig) Builder(n int) (*partitions.PartitionBuilder, error) {
	strategy, err := partitions.ParseStrategy(c.Strategy)
	if err != nil {
		return nil, err
	}
	return &partitions.PartitionBuilder{
		NumPoints:           n,
		TargetPartitionSize: c.TargetSize,
		Strategy:            strategy,
	}, nil
}
