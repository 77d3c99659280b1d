package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConfirmingSetCollector implements module.ConfirmingSetMetrics, grounded on
// consensus.go's NewConsensusCollector shape.
type ConfirmingSetCollector struct {
	cemented         prometheus.Counter
	alreadyCemented  prometheus.Counter
	pending          prometheus.Gauge
	processing       prometheus.Gauge
	batchDuration    prometheus.Histogram
}

func NewConfirmingSetCollector(registerer prometheus.Registerer) *ConfirmingSetCollector {
	c := &ConfirmingSetCollector{
		cemented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemConfirmingSet,
			Name:      "blocks_cemented_total",
			Help:      "count of blocks newly cemented",
		}),
		alreadyCemented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemConfirmingSet,
			Name:      "blocks_already_cemented_total",
			Help:      "count of submissions for blocks already cemented",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemConfirmingSet,
			Name:      "pending_size",
			Help:      "current size of the pending confirmation set",
		}),
		processing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemConfirmingSet,
			Name:      "processing_size",
			Help:      "current size of the in-flight confirmation batch",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemConfirmingSet,
			Name:      "confirm_batch_duration_seconds",
			Help:      "duration of a single confirmation batch",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	registerer.MustRegister(c.cemented, c.alreadyCemented, c.pending, c.processing, c.batchDuration)
	return c
}

func (c *ConfirmingSetCollector) BlockCemented()        { c.cemented.Inc() }
func (c *ConfirmingSetCollector) BlockAlreadyCemented() { c.alreadyCemented.Inc() }

func (c *ConfirmingSetCollector) ConfirmingSetSize(pending int, processing int) {
	c.pending.Set(float64(pending))
	c.processing.Set(float64(processing))
}

func (c *ConfirmingSetCollector) ConfirmBatchDuration(duration time.Duration) {
	c.batchDuration.Observe(duration.Seconds())
}
