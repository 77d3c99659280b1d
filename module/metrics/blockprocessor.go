package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BlockProcessorCollector implements module.BlockProcessorMetrics, grounded
// on consensus.go's NewConsensusCollector shape (manually constructed
// prometheus.Counter/Histogram fields, registered once via
// registerer.MustRegister).
type BlockProcessorCollector struct {
	processed         *prometheus.CounterVec
	processBlocking   prometheus.Counter
	processTimeout    prometheus.Counter
	overfilled        *prometheus.CounterVec
	insufficientWork  *prometheus.CounterVec
	forced            prometheus.Counter
	queueOverflow     *prometheus.CounterVec
}

func NewBlockProcessorCollector(registerer prometheus.Registerer) *BlockProcessorCollector {
	c := &BlockProcessorCollector{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemBlockProcessor,
			Name:      "blocks_processed_total",
			Help:      "count of blocks processed, by outcome status and source",
		}, []string{"status", "source"}),
		processBlocking: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemBlockProcessor,
			Name:      "process_blocking_total",
			Help:      "count of add_blocking calls",
		}),
		processTimeout: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemBlockProcessor,
			Name:      "process_blocking_timeout_total",
			Help:      "count of add_blocking calls that timed out",
		}),
		overfilled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemBlockProcessor,
			Name:      "overfill_total",
			Help:      "count of submissions dropped because their source subqueue was full",
		}, []string{"source"}),
		insufficientWork: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemBlockProcessor,
			Name:      "insufficient_work_total",
			Help:      "count of submissions rejected for an invalid work proof",
		}, []string{"source"}),
		forced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemBlockProcessor,
			Name:      "force_total",
			Help:      "count of forced submissions",
		}),
		queueOverflow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemBlockProcessor,
			Name:      "queue_overflow_total",
			Help:      "count of rejected submissions due to queue overflow, by source",
		}, []string{"source"}),
	}
	registerer.MustRegister(c.processed, c.processBlocking, c.processTimeout, c.overfilled, c.insufficientWork, c.forced, c.queueOverflow)
	return c
}

func (c *BlockProcessorCollector) BlockProcessed(status string, source string) {
	c.processed.WithLabelValues(status, source).Inc()
}
func (c *BlockProcessorCollector) BlockProcessBlocking()        { c.processBlocking.Inc() }
func (c *BlockProcessorCollector) BlockProcessBlockingTimeout() { c.processTimeout.Inc() }
func (c *BlockProcessorCollector) BlockOverfilled(source string) {
	c.overfilled.WithLabelValues(source).Inc()
}
func (c *BlockProcessorCollector) InsufficientWork(source string) {
	c.insufficientWork.WithLabelValues(source).Inc()
}
func (c *BlockProcessorCollector) BlockForced() { c.forced.Inc() }
func (c *BlockProcessorCollector) QueueOverflow(source string) {
	c.queueOverflow.WithLabelValues(source).Inc()
}
