package keel

import (
	"errors"
	"sync/atomic"
	"testing"
)

// ============================================================================
// ParallelConfig Tests
// ============================================================================

func TestDefaultParallelConfig(t *testing.T) {
	cfg := DefaultParallelConfig()

	if cfg == nil {
		t.Fatal("DefaultParallelConfig returned nil")
	}
	if cfg.MinRowsForParallel <= 0 {
		t.Errorf("MinRowsForParallel should be positive, got %d", cfg.MinRowsForParallel)
	}
	if cfg.BlockSize <= 0 || cfg.BlockSize%32 != 0 {
		t.Errorf("BlockSize should be a positive multiple of 32, got %d", cfg.BlockSize)
	}
	if !cfg.Enabled {
		t.Error("Enabled should be true by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSetGetParallelConfig(t *testing.T) {
	// Save original config
	original := GetParallelConfig()
	defer SetParallelConfig(original)

	custom := &ParallelConfig{
		MinRowsForParallel: 1000,
		BlockSize:          512,
		MaxWorkers:         2,
		Enabled:            false,
	}
	if err := SetParallelConfig(custom); err != nil {
		t.Fatalf("SetParallelConfig failed: %v", err)
	}

	got := GetParallelConfig()
	if got.MinRowsForParallel != 1000 {
		t.Errorf("MinRowsForParallel = %d, want 1000", got.MinRowsForParallel)
	}
	if got.BlockSize != 512 {
		t.Errorf("BlockSize = %d, want 512", got.BlockSize)
	}
	if got.MaxWorkers != 2 {
		t.Errorf("MaxWorkers = %d, want 2", got.MaxWorkers)
	}
	if got.Enabled {
		t.Error("Enabled should be false")
	}
	if DefaultStream().config().Parallel.BlockSize != 512 {
		t.Error("default stream should follow the global config")
	}

	// Setting nil should not change config
	SetParallelConfig(nil)
	if *GetParallelConfig() != *custom {
		t.Error("SetParallelConfig(nil) should not change config")
	}

	// Later changes to either pointer do not reach the default stream
	custom.BlockSize = 48
	got.BlockSize = 0
	if DefaultStream().config().Parallel.BlockSize != 512 {
		t.Error("global config should be held as a copy")
	}
}

func TestSetParallelConfig_RejectsInvalid(t *testing.T) {
	original := GetParallelConfig()
	defer SetParallelConfig(original)

	for _, blockSize := range []int{0, 48, -32} {
		err := SetParallelConfig(&ParallelConfig{BlockSize: blockSize, Enabled: true})
		if err == nil {
			t.Errorf("BlockSize %d should be rejected", blockSize)
		}
		if got := GetParallelConfig(); *got != *original {
			t.Errorf("BlockSize %d: config changed to %+v", blockSize, *got)
		}
	}
	if mi := NewMorselIterator(100, 0); mi.morselSize != original.BlockSize {
		t.Errorf("morsel fallback = %d, want %d", mi.morselSize, original.BlockSize)
	}
}

func TestParallelConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ParallelConfig
		wantErr bool
	}{
		{"valid", ParallelConfig{BlockSize: 64}, false},
		{"zero block", ParallelConfig{BlockSize: 0}, true},
		{"unaligned block", ParallelConfig{BlockSize: 100}, true},
		{"negative workers", ParallelConfig{BlockSize: 32, MaxWorkers: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParallelConfig_NumWorkers(t *testing.T) {
	cfg := &ParallelConfig{MaxWorkers: 4}
	if cfg.numWorkers() != 4 {
		t.Errorf("numWorkers() = %d, want 4", cfg.numWorkers())
	}

	cfg.MaxWorkers = 0
	workers := cfg.numWorkers()
	if workers <= 0 {
		t.Errorf("numWorkers() with MaxWorkers=0 should use GOMAXPROCS, got %d", workers)
	}
}

func TestParallelConfig_ShouldParallelize(t *testing.T) {
	cfg := &ParallelConfig{
		MinRowsForParallel: 1000,
		Enabled:            true,
	}

	if cfg.shouldParallelize(500) {
		t.Error("Should not parallelize 500 rows when min is 1000")
	}
	if !cfg.shouldParallelize(2000) {
		t.Error("Should parallelize 2000 rows when min is 1000")
	}

	cfg.Enabled = false
	if cfg.shouldParallelize(2000) {
		t.Error("Should not parallelize when disabled")
	}
}

// ============================================================================
// Morsel Iterator Tests
// ============================================================================

func TestMorselIterator_Next(t *testing.T) {
	mi := NewMorselIterator(25, 10)

	m1 := mi.Next()
	if m1 == nil || m1.Start != 0 || m1.End != 10 {
		t.Errorf("First morsel = %v, want {0, 10}", m1)
	}

	m2 := mi.Next()
	if m2 == nil || m2.Start != 10 || m2.End != 20 {
		t.Errorf("Second morsel = %v, want {10, 20}", m2)
	}

	// Third morsel: 20-25 (partial)
	m3 := mi.Next()
	if m3 == nil || m3.Start != 20 || m3.End != 25 {
		t.Errorf("Third morsel = %v, want {20, 25}", m3)
	}

	if m4 := mi.Next(); m4 != nil {
		t.Errorf("Fourth morsel should be nil, got %v", m4)
	}
}

func TestMorselIterator_Empty(t *testing.T) {
	mi := NewMorselIterator(0, 10)
	if m := mi.Next(); m != nil {
		t.Errorf("Empty iterator should return nil, got %v", m)
	}
}

func TestMorselIterator_DefaultSize(t *testing.T) {
	mi := NewMorselIterator(100, 0)
	if mi.morselSize != GetParallelConfig().BlockSize {
		t.Errorf("morselSize = %d, want the global block size", mi.morselSize)
	}
}

// ============================================================================
// Launch Tests
// ============================================================================

func TestLaunch_EveryLaneOnce(t *testing.T) {
	st := testStream(t)

	for _, n := range []int{1, 31, 32, 33, 1000} {
		hits := make([]int32, n)
		var blocks int32
		err := st.launch("test", n, func(blk block) {
			atomic.AddInt32(&blocks, 1)
			if blk.begin != blk.index*32 {
				t.Errorf("block %d begins at %d", blk.index, blk.begin)
			}
			for i := blk.begin; i < blk.end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		if err != nil {
			t.Fatalf("launch(%d) failed: %v", n, err)
		}
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: lane %d ran %d times", n, i, h)
			}
		}
		if want := int32((n + 31) / 32); blocks != want {
			t.Errorf("n=%d: %d blocks, want %d", n, blocks, want)
		}
	}
}

func TestLaunch_Sequential(t *testing.T) {
	original := GetParallelConfig()
	defer SetParallelConfig(original)

	SetParallelConfig(&ParallelConfig{
		MinRowsForParallel: 10000,
		BlockSize:          64,
		Enabled:            true,
	})

	sum := 0
	err := DefaultStream().launch("test", 100, func(blk block) {
		for i := blk.begin; i < blk.end; i++ {
			sum += i // no synchronization needed when sequential
		}
	})
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	if sum != 99*100/2 {
		t.Errorf("Sum = %d, want %d", sum, 99*100/2)
	}
}

func TestLaunch_PanicBecomesKernelFault(t *testing.T) {
	st := testStream(t)
	values := make([]int, 10)
	err := st.launch("test", 100, func(blk block) {
		for i := blk.begin; i < blk.end; i++ {
			values[i] = i
		}
	})
	if !errors.Is(err, ErrKernelFault) {
		t.Fatalf("expected ErrKernelFault, got %v", err)
	}
}

func TestLaunch_Empty(t *testing.T) {
	called := false
	if err := testStream(t).launch("test", 0, func(block) { called = true }); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("empty launch should not run a block")
	}
}

func TestLaunch_SameStreamDoesNotOverlap(t *testing.T) {
	st := testStream(t)

	var active, overlaps int32
	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = st.launch("test", 256, func(block) {
				if atomic.AddInt32(&active, 1) > 4 {
					atomic.AddInt32(&overlaps, 1)
				}
				atomic.AddInt32(&active, -1)
			})
		}()
	}
	for g := 0; g < 4; g++ {
		<-done
	}
	st.Synchronize()

	if overlaps != 0 {
		t.Errorf("%d blocks ran alongside another launch", overlaps)
	}
}

func TestBuildColumns_ReleasesOnError(t *testing.T) {
	opts := testOptions(t)
	o := newOptions(opts)
	boom := errors.New("boom")

	_, err := buildColumns(o.stream.config().Parallel, 8, func(i int) (*Column, error) {
		if i == 5 {
			return nil, boom
		}
		return NewColumn([]int64{1, 2, 3}, nil, opts...)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}
	// The checked allocator verifies at cleanup that nothing leaked.
}
