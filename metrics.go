package keel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters a Stream reports to.
type Metrics struct {
	kernelLaunches *prometheus.CounterVec
	kernelBlocks   *prometheus.CounterVec
	concatStrategy *prometheus.CounterVec
	allocatedBytes prometheus.Counter
}

// NewMetrics creates stream metrics registered with reg. A nil reg creates
// unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		kernelLaunches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "keel_kernel_launches_total",
			Help: "Total number of kernel launches, by kernel.",
		}, []string{"kernel"}),
		kernelBlocks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "keel_kernel_blocks_total",
			Help: "Total number of blocks executed, by kernel.",
		}, []string{"kernel"}),
		concatStrategy: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "keel_concatenate_strategy_total",
			Help: "Total number of fixed-width concatenations, by strategy.",
		}, []string{"strategy"}),
		allocatedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "keel_allocated_bytes_total",
			Help: "Total bytes requested from memory resources for new columns.",
		}),
	}
}
