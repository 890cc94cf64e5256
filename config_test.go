package keel

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
parallel:
  block_size: 256
  max_workers: 3
concatenate:
  fused_source_threshold: 8
`))
	require.NoError(t, err)
	require.Equal(t, 256, cfg.Parallel.BlockSize)
	require.Equal(t, 3, cfg.Parallel.MaxWorkers)
	require.Equal(t, 8, cfg.Concatenate.FusedSourceThreshold)

	// Unset fields keep their defaults.
	def := DefaultConfig()
	require.Equal(t, def.Parallel.MinRowsForParallel, cfg.Parallel.MinRowsForParallel)
	require.True(t, cfg.Parallel.Enabled)
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("parallel:\n  block_size: 100\n"))
	require.Error(t, err)

	_, err = ParseConfig([]byte("concatenate:\n  fused_source_threshold: -1\n"))
	require.Error(t, err)

	_, err = ParseConfig([]byte("parallel: [1, 2"))
	require.Error(t, err)
}

func TestConfig_RegisterFlags(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"-keel.block-size=64",
		"-keel.parallel=false",
		"-keel.concatenate.fused-source-threshold=2",
	}))
	require.Equal(t, 64, cfg.Parallel.BlockSize)
	require.False(t, cfg.Parallel.Enabled)
	require.Equal(t, 2, cfg.Concatenate.FusedSourceThreshold)
	require.Equal(t, DefaultConfig().Parallel.MinRowsForParallel, cfg.Parallel.MinRowsForParallel)
	require.NoError(t, cfg.Validate())
}

func TestNewStream_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallel.BlockSize = 48
	_, err := NewStream(cfg, nil, nil)
	require.Error(t, err)
}
