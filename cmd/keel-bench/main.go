// Command keel-bench times the restructuring kernels on synthetic data and
// writes the results as JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/NerdMeNot/keel"
	"github.com/NerdMeNot/keel/memory"
)

// BenchmarkResult holds timing results for a single benchmark, in
// milliseconds.
type BenchmarkResult struct {
	Median   float64   `json:"median"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	Mean     float64   `json:"mean"`
	AllTimes []float64 `json:"all_times"`
}

// AllResults holds all benchmark results.
type AllResults struct {
	Threads   int                        `json:"threads"`
	BlockSize int                        `json:"block_size"`
	Rows      int                        `json:"rows"`
	Sources   int                        `json:"sources"`
	Results   map[string]BenchmarkResult `json:"results"`
}

func runBenchmark(warmup, iterations int, fn func() error) (BenchmarkResult, error) {
	for i := 0; i < warmup; i++ {
		if err := fn(); err != nil {
			return BenchmarkResult{}, err
		}
	}

	times := make([]float64, iterations)
	for i := 0; i < iterations; i++ {
		runtime.GC()
		start := time.Now()
		if err := fn(); err != nil {
			return BenchmarkResult{}, err
		}
		times[i] = float64(time.Since(start).Microseconds()) / 1000.0
	}

	sort.Float64s(times)
	var sum float64
	for _, t := range times {
		sum += t
	}
	return BenchmarkResult{
		Median:   times[len(times)/2],
		Min:      times[0],
		Max:      times[len(times)-1],
		Mean:     sum / float64(len(times)),
		AllTimes: times,
	}, nil
}

func newLogger(lvl string) (log.Logger, error) {
	var allow level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		allow = level.AllowDebug()
	case "info":
		allow = level.AllowInfo()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, fmt.Errorf("unknown log level %q", lvl)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	return level.NewFilter(logger, allow), nil
}

func makeColumns(rng *rand.Rand, opts []keel.Option, sources, rows int, nullRate float64) ([]*keel.Column, error) {
	cols := make([]*keel.Column, 0, sources)
	for s := 0; s < sources; s++ {
		values := make([]int64, rows)
		var valid []bool
		if nullRate > 0 {
			valid = make([]bool, rows)
		}
		for i := range values {
			values[i] = rng.Int63()
			if valid != nil {
				valid[i] = rng.Float64() >= nullRate
			}
		}
		col, err := keel.NewColumn(values, valid, opts...)
		if err != nil {
			for _, c := range cols {
				c.Release()
			}
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func makeIndices(rng *rand.Rand, opts []keel.Option, n, bound int) (*keel.Column, error) {
	indices := make([]int32, n)
	for i := range indices {
		indices[i] = int32(rng.Intn(bound))
	}
	return keel.NewColumn(indices, nil, opts...)
}

func views(cols []*keel.Column) []keel.ColumnView {
	out := make([]keel.ColumnView, len(cols))
	for i, c := range cols {
		out[i] = c.View()
	}
	return out
}

func run(logger log.Logger, opts []keel.Option, rows, sources, iterations int, nullRate float64) (map[string]BenchmarkResult, error) {
	rng := rand.New(rand.NewSource(42))
	perSource := max(1, rows/sources)

	cols, err := makeColumns(rng, opts, sources, perSource, nullRate)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	indices, err := makeIndices(rng, opts, rows, perSource)
	if err != nil {
		return nil, err
	}
	defer indices.Release()

	inputs := views(cols)
	source, err := keel.NewTableView(inputs[0])
	if err != nil {
		return nil, err
	}
	scatterMap, err := keel.Slice(indices.View(), []int{0, perSource})
	if err != nil {
		return nil, err
	}

	benches := []struct {
		name string
		fn   func() error
	}{
		{"concatenate_fused", func() error {
			out, err := keel.Concatenate(inputs, append(opts, keel.WithConcatStrategy(keel.ConcatFused))...)
			if err == nil {
				out.Release()
			}
			return err
		}},
		{"concatenate_sequential", func() error {
			out, err := keel.Concatenate(inputs, append(opts, keel.WithConcatStrategy(keel.ConcatSequential))...)
			if err == nil {
				out.Release()
			}
			return err
		}},
		{"gather", func() error {
			out, err := keel.Gather(source, indices.View(), keel.BoundsDontCheck, opts...)
			if err == nil {
				out.Release()
			}
			return err
		}},
		{"scatter", func() error {
			out, err := keel.Scatter(source, scatterMap[0], source, false, opts...)
			if err == nil {
				out.Release()
			}
			return err
		}},
	}

	results := make(map[string]BenchmarkResult, len(benches))
	for _, b := range benches {
		level.Info(logger).Log("msg", "running benchmark", "name", b.name, "rows", rows, "sources", sources)
		res, err := runBenchmark(2, iterations, b.fn)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.name, err)
		}
		level.Info(logger).Log("msg", "benchmark done", "name", b.name, "median_ms", res.Median, "min_ms", res.Min)
		results[b.name] = res
	}
	return results, nil
}

func logMetrics(logger log.Logger, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			kv := []interface{}{"metric", mf.GetName(), "value", m.GetCounter().GetValue()}
			for _, l := range m.GetLabel() {
				kv = append(kv, l.GetName(), l.GetValue())
			}
			level.Debug(logger).Log(kv...)
		}
	}
	return nil
}

func main() {
	cfg := keel.DefaultConfig()
	cfg.RegisterFlags(flag.CommandLine)

	var (
		rows       = flag.Int("rows", 1_000_000, "Total rows per benchmark.")
		sources    = flag.Int("sources", 8, "Number of input columns for concatenation.")
		iterations = flag.Int("iterations", 10, "Timed iterations per benchmark.")
		nullRate   = flag.Float64("null-rate", 0.1, "Fraction of null rows in the inputs.")
		output     = flag.String("output", "", "File to write JSON results to. Defaults to stdout.")
		pooled     = flag.Bool("pool", false, "Allocate columns from a pooled memory resource.")
		logLevel   = flag.String("log.level", "info", "Only log messages with the given severity or above. One of: debug, info, warn, error.")
	)
	flag.Parse()

	logger, err := newLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *sources <= 0 || *rows <= 0 || *iterations <= 0 {
		level.Error(logger).Log("msg", "rows, sources and iterations must be positive")
		os.Exit(2)
	}

	reg := prometheus.NewRegistry()
	st, err := keel.NewStream(cfg, logger, reg)
	if err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		os.Exit(2)
	}

	opts := []keel.Option{keel.WithStream(st)}
	if *pooled {
		opts = append(opts, keel.WithResource(memory.NewPoolResource()))
	}

	results, err := run(logger, opts, *rows, *sources, *iterations, *nullRate)
	if err != nil {
		level.Error(logger).Log("msg", "benchmark failed", "err", err)
		os.Exit(1)
	}
	if err := logMetrics(logger, reg); err != nil {
		level.Warn(logger).Log("msg", "gathering metrics failed", "err", err)
	}

	threads := cfg.Parallel.MaxWorkers
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	data, err := json.MarshalIndent(AllResults{
		Threads:   threads,
		BlockSize: cfg.Parallel.BlockSize,
		Rows:      *rows,
		Sources:   *sources,
		Results:   results,
	}, "", "  ")
	if err != nil {
		level.Error(logger).Log("msg", "encoding results failed", "err", err)
		os.Exit(1)
	}

	if *output == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		level.Error(logger).Log("msg", "writing results failed", "file", *output, "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "results written", "file", *output)
}
