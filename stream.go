package keel

import (
	"sync"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
)

// Stream is an ordering token for kernel launches. Launches issued on the
// same stream run one after another in issue order; launches on different
// streams may overlap and must touch disjoint memory.
//
// Kernels execute synchronously with respect to the issuing goroutine, so a
// result is readable as soon as the operation returns.
type Stream struct {
	cfg     *Config // nil follows the global parallel config
	logger  log.Logger
	metrics *Metrics

	mu sync.Mutex
}

var defaultStream = &Stream{
	logger:  log.NewNopLogger(),
	metrics: NewMetrics(nil),
}

// DefaultStream returns the implicit stream used when an operation is not
// given one. It follows SetParallelConfig.
func DefaultStream() *Stream {
	return defaultStream
}

// NewStream creates a stream with its own configuration, logger and
// metrics. A nil registerer leaves the metrics unregistered.
func NewStream(cfg Config, logger log.Logger, reg prometheus.Registerer) (*Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Stream{
		cfg:     &cfg,
		logger:  logger,
		metrics: NewMetrics(reg),
	}, nil
}

func (s *Stream) config() Config {
	if s.cfg != nil {
		return *s.cfg
	}
	return Config{
		Parallel:    *GetParallelConfig(),
		Concatenate: DefaultConfig().Concatenate,
	}
}

// Synchronize waits for every launch issued on s to complete.
func (s *Stream) Synchronize() {
	// A launch holds mu until its last block finishes.
	s.mu.Lock()
	s.mu.Unlock()
}
