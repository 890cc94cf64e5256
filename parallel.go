package keel

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Parallel Execution Configuration
// ============================================================================

// ParallelConfig controls how kernels are spread across worker goroutines
type ParallelConfig struct {
	// MinRowsForParallel is the minimum rows to justify parallel overhead
	MinRowsForParallel int `yaml:"min_rows_for_parallel"`

	// BlockSize is the number of lanes per block (default 1024). It must be
	// a multiple of the bitmap word size so that every validity word is
	// owned by exactly one block.
	BlockSize int `yaml:"block_size"`

	// MaxWorkers limits the number of worker goroutines (0 = GOMAXPROCS)
	MaxWorkers int `yaml:"max_workers"`

	// Enabled controls whether parallelism is used at all
	Enabled bool `yaml:"enabled"`
}

// DefaultParallelConfig returns sensible defaults
func DefaultParallelConfig() *ParallelConfig {
	return &ParallelConfig{
		MinRowsForParallel: 8192, // ~8K rows minimum
		BlockSize:          1024, // 32 words of validity per block
		MaxWorkers:         0,    // Use all CPUs
		Enabled:            true,
	}
}

// globalConfig is the configuration used by the default stream. It only
// ever holds a validated copy.
var globalConfig = DefaultParallelConfig()

// SetParallelConfig sets the configuration used by the default stream. An
// invalid configuration is rejected and the current one is kept. A nil
// configuration is ignored.
func SetParallelConfig(cfg *ParallelConfig) error {
	if cfg == nil {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c := *cfg
	globalConfig = &c
	return nil
}

// GetParallelConfig returns a copy of the current configuration
func GetParallelConfig() *ParallelConfig {
	c := *globalConfig
	return &c
}

// Validate checks the configuration.
func (cfg *ParallelConfig) Validate() error {
	if cfg.BlockSize <= 0 || cfg.BlockSize%32 != 0 {
		return fmt.Errorf("parallel.block_size must be a positive multiple of 32, got %d", cfg.BlockSize)
	}
	if cfg.MaxWorkers < 0 {
		return fmt.Errorf("parallel.max_workers must not be negative, got %d", cfg.MaxWorkers)
	}
	return nil
}

// numWorkers returns the number of workers to use
func (cfg ParallelConfig) numWorkers() int {
	if cfg.MaxWorkers > 0 {
		return cfg.MaxWorkers
	}
	return runtime.GOMAXPROCS(0)
}

// shouldParallelize determines if an operation should be parallelized
func (cfg ParallelConfig) shouldParallelize(rows int) bool {
	return cfg.Enabled && rows >= cfg.MinRowsForParallel
}

// numBlocks returns the number of blocks a launch over n lanes uses.
func (cfg ParallelConfig) numBlocks(n int) int {
	return (n + cfg.BlockSize - 1) / cfg.BlockSize
}

// ============================================================================
// Morsel-Based Work Distribution
// ============================================================================

// Morsel represents a range of rows to process
type Morsel struct {
	Start int
	End   int
}

// MorselIterator provides work-stealing morsel distribution
type MorselIterator struct {
	totalRows  int
	morselSize int
	nextStart  int64 // atomic counter for work-stealing
}

// NewMorselIterator creates a new morsel iterator
func NewMorselIterator(totalRows, morselSize int) *MorselIterator {
	if morselSize <= 0 {
		morselSize = globalConfig.BlockSize
	}
	return &MorselIterator{
		totalRows:  totalRows,
		morselSize: morselSize,
		nextStart:  0,
	}
}

// Next returns the next morsel, or nil if exhausted
// This is safe for concurrent use (work-stealing)
func (mi *MorselIterator) Next() *Morsel {
	for {
		start := atomic.LoadInt64(&mi.nextStart)
		if int(start) >= mi.totalRows {
			return nil
		}

		end := int(start) + mi.morselSize
		if end > mi.totalRows {
			end = mi.totalRows
		}

		// Try to claim this morsel
		if atomic.CompareAndSwapInt64(&mi.nextStart, start, int64(end)) {
			return &Morsel{Start: int(start), End: end}
		}
		// Another worker claimed it, try again
	}
}

// ============================================================================
// Kernel Launches
// ============================================================================

// block is the unit of work handed to a kernel body: lanes [begin, end) of
// the launch. begin is always a multiple of the block size.
type block struct {
	index int
	begin int
	end   int
}

// launch runs body over n lanes split into blocks. Blocks are claimed by up
// to MaxWorkers goroutines; small launches run on the calling goroutine. A
// panic inside a block fails the launch with ErrKernelFault. Launches on one
// stream never overlap.
func (s *Stream) launch(kernel string, n int, body func(b block)) error {
	if n <= 0 {
		return nil
	}

	cfg := s.config().Parallel
	blockSize := cfg.BlockSize
	numBlocks := cfg.numBlocks(n)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.kernelLaunches.WithLabelValues(kernel).Inc()
	s.metrics.kernelBlocks.WithLabelValues(kernel).Add(float64(numBlocks))

	run := func(m *Morsel) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.Wrapf(ErrKernelFault, "%s block %d: %v", kernel, m.Start/blockSize, r)
			}
		}()
		body(block{index: m.Start / blockSize, begin: m.Start, end: m.End})
		return nil
	}

	morsels := NewMorselIterator(n, blockSize)

	if !cfg.shouldParallelize(n) || numBlocks == 1 {
		// Sequential execution
		for m := morsels.Next(); m != nil; m = morsels.Next() {
			if err := run(m); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		g      errgroup.Group
		failed atomic.Bool
	)
	for w := 0; w < min(cfg.numWorkers(), numBlocks); w++ {
		g.Go(func() error {
			for !failed.Load() {
				m := morsels.Next()
				if m == nil {
					return nil
				}
				if err := run(m); err != nil {
					failed.Store(true)
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// ============================================================================
// Parallel Column Operations
// ============================================================================

// buildColumns builds n columns, in parallel when enabled. If any build
// fails, every column already built is released.
func buildColumns(cfg ParallelConfig, n int, build func(colIdx int) (*Column, error)) ([]*Column, error) {
	cols := make([]*Column, n)

	if !cfg.Enabled || n <= 1 {
		for i := 0; i < n; i++ {
			col, err := build(i)
			if err != nil {
				releaseColumns(cols)
				return nil, err
			}
			cols[i] = col
		}
		return cols, nil
	}

	var g errgroup.Group
	g.SetLimit(cfg.numWorkers())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			col, err := build(i)
			cols[i] = col
			return err
		})
	}
	if err := g.Wait(); err != nil {
		releaseColumns(cols)
		return nil, err
	}
	return cols, nil
}
