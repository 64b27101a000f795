package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tiercache/tiercache/pkg/types"
)

// Collector exposes cache behavior as Prometheus metrics on a private
// registry, so embedding applications never collide with the default one.
type Collector struct {
	registry *prometheus.Registry

	hitCounter        *prometheus.CounterVec
	missCounter       prometheus.Counter
	evictionCounter   *prometheus.CounterVec
	expirationCounter prometheus.Counter
	moveCounter       *prometheus.CounterVec
	adaptationCounter *prometheus.CounterVec

	tierSizeGauge     *prometheus.GaugeVec
	tierCapacityGauge *prometheus.GaugeVec
	strategyGauge     *prometheus.GaugeVec
	trackedKeysGauge  prometheus.Gauge

	opDuration *prometheus.HistogramVec
}

// NewCollector builds a collector with all metrics registered.
func NewCollector(namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = "tiercache"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.hitCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hits_total",
		Help:      "Cache hits by serving tier",
	}, []string{"tier"})

	c.missCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "misses_total",
		Help:      "Cache misses",
	})

	c.evictionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evictions_total",
		Help:      "Entries evicted by tier",
	}, []string{"tier"})

	c.expirationCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expirations_total",
		Help:      "Entries removed because their TTL elapsed",
	})

	c.moveCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tier_moves_total",
		Help:      "Entries moved between tiers by direction",
	}, []string{"direction"})

	c.adaptationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_adaptations_total",
		Help:      "Strategy switches by destination strategy",
	}, []string{"strategy"})

	c.tierSizeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tier_entries",
		Help:      "Current entry count per tier",
	}, []string{"tier"})

	c.tierCapacityGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tier_capacity",
		Help:      "Current capacity per tier, after strategy scaling",
	}, []string{"tier"})

	c.strategyGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_strategy",
		Help:      "1 for the active strategy, 0 for the rest",
	}, []string{"strategy"})

	c.trackedKeysGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_keys",
		Help:      "Keys with access pattern history",
	})

	c.opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of cache operations",
		Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12),
	}, []string{"operation"})

	collectors := []prometheus.Collector{
		c.hitCounter, c.missCounter, c.evictionCounter, c.expirationCounter,
		c.moveCounter, c.adaptationCounter,
		c.tierSizeGauge, c.tierCapacityGauge, c.strategyGauge, c.trackedKeysGauge,
		c.opDuration,
	}
	for _, col := range collectors {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return c, nil
}

// Handler returns the HTTP handler serving the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordHit records a cache hit served from the given tier.
func (c *Collector) RecordHit(tier types.Tier) {
	c.hitCounter.WithLabelValues(tier.String()).Inc()
}

// RecordMiss records a cache miss.
func (c *Collector) RecordMiss() {
	c.missCounter.Inc()
}

// RecordEviction records entries evicted from a tier.
func (c *Collector) RecordEviction(tier types.Tier, count int) {
	c.evictionCounter.WithLabelValues(tier.String()).Add(float64(count))
}

// RecordExpiration records entries removed by TTL expiry.
func (c *Collector) RecordExpiration(count int) {
	c.expirationCounter.Add(float64(count))
}

// RecordPromotion records an entry moved to a faster tier.
func (c *Collector) RecordPromotion() {
	c.moveCounter.WithLabelValues("promotion").Inc()
}

// RecordDemotion records an entry moved to a slower tier.
func (c *Collector) RecordDemotion() {
	c.moveCounter.WithLabelValues("demotion").Inc()
}

// RecordAdaptation records a strategy switch and updates the active
// strategy gauge.
func (c *Collector) RecordAdaptation(active string, all []string) {
	c.adaptationCounter.WithLabelValues(active).Inc()
	c.SetStrategy(active, all)
}

// SetStrategy marks the active strategy on the gauge.
func (c *Collector) SetStrategy(active string, all []string) {
	for _, name := range all {
		v := 0.0
		if name == active {
			v = 1.0
		}
		c.strategyGauge.WithLabelValues(name).Set(v)
	}
}

// SetTierUsage updates the size and capacity gauges for a tier.
func (c *Collector) SetTierUsage(tier types.Tier, size, capacity int) {
	c.tierSizeGauge.WithLabelValues(tier.String()).Set(float64(size))
	c.tierCapacityGauge.WithLabelValues(tier.String()).Set(float64(capacity))
}

// SetTrackedKeys updates the pattern tracker cardinality gauge.
func (c *Collector) SetTrackedKeys(n int) {
	c.trackedKeysGauge.Set(float64(n))
}

// ObserveOperation records the latency of a cache operation.
func (c *Collector) ObserveOperation(operation string, elapsed time.Duration) {
	c.opDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
