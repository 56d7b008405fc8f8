package tenant

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMetricsPeriod is the default interval between stats exports.
// The floor of 5s keeps the exporter from hammering the directory lock.
const (
	DefaultMetricsPeriod = time.Minute
	minMetricsPeriod     = 5 * time.Second
)

// MetricsExporter periodically publishes directory statistics as
// Prometheus metrics. It is non-critical: collection panics are
// swallowed so observability can never take the request path down.
type MetricsExporter struct {
	directory *Directory
	period    time.Duration

	entries prometheus.Gauge
	hits    prometheus.Counter
	misses  prometheus.Counter

	mu         sync.Mutex
	lastHits   int64
	lastMisses int64

	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewMetricsExporter registers the tenant cache metrics with the given
// registerer and starts the collection loop. Close stops it.
func NewMetricsExporter(directory *Directory, reg prometheus.Registerer, period time.Duration) (*MetricsExporter, error) {
	if period < minMetricsPeriod {
		period = DefaultMetricsPeriod
	}

	e := &MetricsExporter{
		directory: directory,
		period:    period,
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tenant_cache_entries",
			Help: "Current number of tenant cache entries (id and code aliases counted separately).",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenant_cache_hits_total",
			Help: "Cumulative tenant cache resolve hits.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenant_cache_misses_total",
			Help: "Cumulative tenant cache resolve misses.",
		}),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	for _, c := range []prometheus.Collector{e.entries, e.hits, e.misses} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	// First collection runs immediately so values appear on the next
	// scrape instead of one period later.
	e.Collect()
	go e.run()

	return e, nil
}

func (e *MetricsExporter) run() {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	defer close(e.done)

	for {
		select {
		case <-ticker.C:
			e.collectSafe()
		case <-e.stop:
			return
		}
	}
}

func (e *MetricsExporter) collectSafe() {
	defer func() {
		_ = recover()
	}()
	e.Collect()
}

// Collect converts absolute hit/miss snapshots into counter
// increments. The periodic loop drives it, but callers may also invoke
// it directly, e.g. right before shutdown to flush final numbers.
func (e *MetricsExporter) Collect() {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := e.directory.Stats()

	e.entries.Set(float64(stats.Size))

	if inc := stats.Hits - e.lastHits; inc > 0 {
		e.hits.Add(float64(inc))
	}
	if inc := stats.Misses - e.lastMisses; inc > 0 {
		e.misses.Add(float64(inc))
	}
	e.lastHits = stats.Hits
	e.lastMisses = stats.Misses
}

// Close stops the collection loop. It is idempotent.
func (e *MetricsExporter) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	close(e.stop)
	<-e.done
	return nil
}
