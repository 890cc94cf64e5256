package keel

import (
	"flag"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config controls kernel execution and strategy selection.
type Config struct {
	Parallel    ParallelConfig `yaml:"parallel"`
	Concatenate ConcatConfig   `yaml:"concatenate"`
}

// ConcatConfig controls how Concatenate picks between its strategies.
type ConcatConfig struct {
	// FusedSourceThreshold is the number of sources above which fixed-width
	// concatenation uses the fused kernel even without nulls.
	FusedSourceThreshold int `yaml:"fused_source_threshold"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Parallel: *DefaultParallelConfig(),
		Concatenate: ConcatConfig{
			FusedSourceThreshold: 4,
		},
	}
}

// RegisterFlags registers the configuration under the "keel." prefix.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("keel.", f)
}

// RegisterFlagsWithPrefix registers the configuration with the given flag
// prefix. Defaults come from DefaultConfig.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	def := DefaultConfig()
	f.IntVar(&cfg.Parallel.MinRowsForParallel, prefix+"min-rows-for-parallel", def.Parallel.MinRowsForParallel, "Minimum rows in a launch before blocks are spread across workers.")
	f.IntVar(&cfg.Parallel.BlockSize, prefix+"block-size", def.Parallel.BlockSize, "Lanes per block. Must be a positive multiple of 32.")
	f.IntVar(&cfg.Parallel.MaxWorkers, prefix+"max-workers", def.Parallel.MaxWorkers, "Maximum worker goroutines per launch. 0 uses GOMAXPROCS.")
	f.BoolVar(&cfg.Parallel.Enabled, prefix+"parallel", def.Parallel.Enabled, "Spread kernel blocks across worker goroutines.")
	f.IntVar(&cfg.Concatenate.FusedSourceThreshold, prefix+"concatenate.fused-source-threshold", def.Concatenate.FusedSourceThreshold, "Number of sources above which concatenation always uses the fused kernel.")
}

// Validate checks the configuration.
func (cfg *Config) Validate() error {
	if err := cfg.Parallel.Validate(); err != nil {
		return err
	}
	if cfg.Concatenate.FusedSourceThreshold < 0 {
		return fmt.Errorf("concatenate.fused_source_threshold must not be negative, got %d", cfg.Concatenate.FusedSourceThreshold)
	}
	return nil
}

// ParseConfig decodes a YAML document on top of DefaultConfig and validates
// the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
