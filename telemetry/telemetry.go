package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the pricing service.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks
// are executed inline with the batch upload and publish paths.
type Collector interface {
	IncBatchStarted()
	IncBatchFinished(outcome string)
	IncRecordsStaged(count int)
	IncRejected(operation string)
	ObserveMergeDuration(d time.Duration)
	SetPublishedInstruments(count int)
}

// Batch outcome labels reported through IncBatchFinished.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
)

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncBatchStarted()                   {}
func (noopCollector) IncBatchFinished(string)            {}
func (noopCollector) IncRecordsStaged(int)               {}
func (noopCollector) IncRejected(string)                 {}
func (noopCollector) ObserveMergeDuration(time.Duration) {}
func (noopCollector) SetPublishedInstruments(int)        {}

// PrometheusCollector exposes service telemetry via Prometheus.
type PrometheusCollector struct {
	batchesStarted  prometheus.Counter
	batchesFinished *prometheus.CounterVec
	recordsStaged   prometheus.Counter
	rejected        *prometheus.CounterVec
	mergeDuration   prometheus.Histogram
	published       prometheus.Gauge
}

var (
	registryLock    sync.Mutex
	batchesStarted  prometheus.Counter
	batchesFinished *prometheus.CounterVec
	recordsStaged   prometheus.Counter
	rejected        *prometheus.CounterVec
	mergeDuration   prometheus.Histogram
	publishedGauge  prometheus.Gauge
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Metrics are package-level singletons so repeated collector
// construction reuses the already registered instances.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	registryLock.Lock()
	defer registryLock.Unlock()

	if batchesStarted == nil {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricing_service_batches_started_total",
			Help: "Number of batch runs started by producers.",
		})
		registered, err := register(reg, counter)
		if err != nil {
			return nil, err
		}
		batchesStarted = registered.(prometheus.Counter)
	}

	if batchesFinished == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_service_batches_finished_total",
			Help: "Number of batch runs reaching a terminal state, by outcome.",
		}, []string{"outcome"})
		registered, err := register(reg, counter)
		if err != nil {
			return nil, err
		}
		batchesFinished = registered.(*prometheus.CounterVec)
	}

	if recordsStaged == nil {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricing_service_records_staged_total",
			Help: "Number of price records accepted into batch staging areas.",
		})
		registered, err := register(reg, counter)
		if err != nil {
			return nil, err
		}
		recordsStaged = registered.(prometheus.Counter)
	}

	if rejected == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricing_service_rejected_operations_total",
			Help: "Number of batch operations rejected with a caller error, by operation.",
		}, []string{"operation"})
		registered, err := register(reg, counter)
		if err != nil {
			return nil, err
		}
		rejected = registered.(*prometheus.CounterVec)
	}

	if mergeDuration == nil {
		histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pricing_service_merge_duration_seconds",
			Help:    "Duration of the exclusive reduce-and-merge section per completed batch.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		})
		registered, err := register(reg, histogram)
		if err != nil {
			return nil, err
		}
		mergeDuration = registered.(prometheus.Histogram)
	}

	if publishedGauge == nil {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricing_service_published_instruments",
			Help: "Number of instruments with a published last price.",
		})
		registered, err := register(reg, gauge)
		if err != nil {
			return nil, err
		}
		publishedGauge = registered.(prometheus.Gauge)
	}

	return &PrometheusCollector{
		batchesStarted:  batchesStarted,
		batchesFinished: batchesFinished,
		recordsStaged:   recordsStaged,
		rejected:        rejected,
		mergeDuration:   mergeDuration,
		published:       publishedGauge,
	}, nil
}

func register(reg prometheus.Registerer, collector prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return already.ExistingCollector, nil
		}
		return nil, err
	}
	return collector, nil
}

// IncBatchStarted counts a newly started batch run.
func (p *PrometheusCollector) IncBatchStarted() {
	if p == nil || p.batchesStarted == nil {
		return
	}
	p.batchesStarted.Inc()
}

// IncBatchFinished counts a batch reaching a terminal state.
func (p *PrometheusCollector) IncBatchFinished(outcome string) {
	if p == nil || p.batchesFinished == nil {
		return
	}
	p.batchesFinished.WithLabelValues(outcome).Inc()
}

// IncRecordsStaged counts records accepted into a staging area.
func (p *PrometheusCollector) IncRecordsStaged(count int) {
	if p == nil || p.recordsStaged == nil || count == 0 {
		return
	}
	p.recordsStaged.Add(float64(count))
}

// IncRejected counts an operation rejected with a caller error.
func (p *PrometheusCollector) IncRejected(operation string) {
	if p == nil || p.rejected == nil {
		return
	}
	p.rejected.WithLabelValues(operation).Inc()
}

// ObserveMergeDuration records the time spent in the exclusive merge section.
func (p *PrometheusCollector) ObserveMergeDuration(d time.Duration) {
	if p == nil || p.mergeDuration == nil {
		return
	}
	p.mergeDuration.Observe(d.Seconds())
}

// SetPublishedInstruments updates the published instrument gauge.
func (p *PrometheusCollector) SetPublishedInstruments(count int) {
	if p == nil || p.published == nil {
		return
	}
	p.published.Set(float64(count))
}
