/*
Copyright 2025 The gradcompose Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads gradcompose settings from a YAML file, GRADCOMPOSE_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/phylo-inference/gradcompose/internal/logging"
	"github.com/phylo-inference/gradcompose/pkg/diagnostics"
)

// EnvPrefix prefixes every environment variable, e.g. GRADCOMPOSE_PARALLEL_WORKERS.
const EnvPrefix = "GRADCOMPOSE"

// Config is the effective configuration.
type Config struct {
	Parallel    ParallelConfig    `mapstructure:"parallel" yaml:"parallel"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Checks      CheckConfigData   `mapstructure:"checks" yaml:"checks"`
}

// ParallelConfig configures the executor of Sum and Joint composites.
type ParallelConfig struct {
	// Enabled turns on parallel evaluation.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Workers bounds the worker pool; zero sizes it to the provider count.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// DiagnosticsConfig configures the diagnostics logger and its history.
type DiagnosticsConfig struct {
	// Interval evaluates every Interval-th sampler state.
	Interval int64 `mapstructure:"interval" yaml:"interval"`
	// Retention bounds the age of in-memory history points; zero keeps them.
	Retention time.Duration `mapstructure:"retention" yaml:"retention"`
	// MaxPoints bounds the number of history points per series; zero is unlimited.
	MaxPoints int `mapstructure:"maxPoints" yaml:"maxPoints"`
	// Metrics exports the statistics as Prometheus gauges.
	Metrics bool `mapstructure:"metrics" yaml:"metrics"`
	// Aggregation reduces history series in reports.
	Aggregation string `mapstructure:"aggregation" yaml:"aggregation"`
}

// LoggingConfig configures the zap sink.
type LoggingConfig struct {
	// Level is info, debug or trace.
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
	JSON        bool   `mapstructure:"json" yaml:"json"`
}

// Options converts the logging section into logger options.
func (c LoggingConfig) Options() (logging.Options, error) {
	v, err := logging.ParseVerbosity(c.Level)
	if err != nil {
		return logging.Options{}, err
	}
	return logging.Options{Verbosity: v, Development: c.Development, JSON: c.JSON}, nil
}

func (c *ParallelConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("parallel.workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

func (c *DiagnosticsConfig) Validate() error {
	var errs []error
	if c.Interval < 1 {
		errs = append(errs, fmt.Errorf("diagnostics.interval must be >= 1, got %d", c.Interval))
	}
	if c.Retention < 0 {
		errs = append(errs, fmt.Errorf("diagnostics.retention must be >= 0, got %s", c.Retention))
	}
	if c.MaxPoints < 0 {
		errs = append(errs, fmt.Errorf("diagnostics.maxPoints must be >= 0, got %d", c.MaxPoints))
	}
	if _, err := diagnostics.ParseAggregation(c.Aggregation); err != nil {
		errs = append(errs, fmt.Errorf("diagnostics.aggregation: %w", err))
	}
	return utilerrors.NewAggregate(errs)
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Parallel.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Diagnostics.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Logging.Options(); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	for _, name := range c.Checks.Names() {
		check := c.Checks[name]
		if err := check.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("checks.%s: %w", name, err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"workers":     "parallel.workers",
	"parallel":    "parallel.enabled",
	"interval":    "diagnostics.interval",
	"metrics":     "diagnostics.metrics",
	"log-level":   "logging.level",
	"tolerance":   "checks.default.tolerance",
	"step-scale":  "checks.default.stepScale",
	"small-value": "checks.default.smallNumberThreshold",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("parallel.enabled", false)
	v.SetDefault("parallel.workers", 0)
	v.SetDefault("diagnostics.interval", 1)
	v.SetDefault("diagnostics.retention", time.Duration(0))
	v.SetDefault("diagnostics.maxPoints", 0)
	v.SetDefault("diagnostics.metrics", false)
	v.SetDefault("diagnostics.aggregation", string(diagnostics.AggMax))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.json", false)
	v.SetDefault("checks.default.tolerance", DefaultTolerance)
	v.SetDefault("checks.default.smallNumberThreshold", DefaultSmallNumberThreshold)
}

// Load reads the configuration. path may be empty; flags may be nil. Only
// flags listed in the flag table and set on the command line override the
// file and the environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if cfg.Checks == nil {
		cfg.Checks = make(CheckConfigData)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Log.V(logging.DEBUG).Info("Loaded configuration",
		"file", path,
		"checks", len(cfg.Checks))
	return cfg, nil
}

// ErrNilConfig is returned by Dump for a nil configuration.
var ErrNilConfig = errors.New("nil configuration")

// Dump renders the configuration as YAML.
func Dump(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	return yaml.Marshal(cfg)
}
