package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ActiveElectionsCollector implements module.ActiveElectionsMetrics, grounded
// on consensus.go's NewConsensusCollector shape.
type ActiveElectionsCollector struct {
	started  *prometheus.CounterVec
	stopped  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	voted    prometheus.Counter
	count    *prometheus.GaugeVec
}

func NewActiveElectionsCollector(registerer prometheus.Registerer) *ActiveElectionsCollector {
	c := &ActiveElectionsCollector{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemActiveElections,
			Name:      "elections_started_total",
			Help:      "count of elections started, by behavior",
		}, []string{"behavior"}),
		stopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemActiveElections,
			Name:      "elections_stopped_total",
			Help:      "count of elections stopped, by behavior and confirmation type",
		}, []string{"behavior", "confirmation_type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemActiveElections,
			Name:      "election_duration_seconds",
			Help:      "lifetime of an election from insertion to termination",
			Buckets:   prometheus.DefBuckets,
		}, []string{"behavior", "confirmation_type"}),
		voted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemActiveElections,
			Name:      "votes_processed_total",
			Help:      "count of votes processed across all elections",
		}),
		count: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceConsensus,
			Subsystem: subsystemActiveElections,
			Name:      "elections_count",
			Help:      "current number of active elections, by behavior",
		}, []string{"behavior"}),
	}
	registerer.MustRegister(c.started, c.stopped, c.duration, c.voted, c.count)
	return c
}

func (c *ActiveElectionsCollector) ElectionStarted(behavior string) {
	c.started.WithLabelValues(behavior).Inc()
}

func (c *ActiveElectionsCollector) ElectionStopped(behavior string, confirmationType string, duration time.Duration) {
	c.stopped.WithLabelValues(behavior, confirmationType).Inc()
	c.duration.WithLabelValues(behavior, confirmationType).Observe(duration.Seconds())
}

func (c *ActiveElectionsCollector) ElectionVoted() { c.voted.Inc() }

func (c *ActiveElectionsCollector) ActiveElectionsCount(behavior string, count int) {
	c.count.WithLabelValues(behavior).Set(float64(count))
}
