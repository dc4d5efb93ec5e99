package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metricsSettings struct {
	namespace   string
	subsystem   string
	constLabels prometheus.Labels
	buckets     []float64
	registerer  prometheus.Registerer
}

// MetricsOption customizes NewMetrics.
type MetricsOption func(*metricsSettings)

// WithNamespace replaces the "vstore" metric name prefix.
func WithNamespace(namespace string) MetricsOption {
	return func(s *metricsSettings) { s.namespace = namespace }
}

func WithSubsystem(subsystem string) MetricsOption {
	return func(s *metricsSettings) { s.subsystem = subsystem }
}

// WithConstLabels attaches fixed labels to every series.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(s *metricsSettings) { s.constLabels = labels }
}

// WithBuckets overrides the update duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(s *metricsSettings) { s.buckets = buckets }
}

// WithRegistry registers the metrics with r instead of
// prometheus.DefaultRegisterer.
func WithRegistry(r prometheus.Registerer) MetricsOption {
	return func(s *metricsSettings) { s.registerer = r }
}

func (s metricsSettings) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   s.namespace,
		Subsystem:   s.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: s.constLabels,
	}
}

// Metrics records store activity as Prometheus metrics.
//
// Metrics collected (labelled by store name):
//   - vstore_updates_total{result}: committed updates by result
//     ("notified" or "silent") and rejected partials ("rejected")
//   - vstore_notifications_total: listeners queued by updates
//   - vstore_update_duration_seconds: selector evaluation + commit time
//   - vstore_version: current version counter
//   - vstore_subscribers: live subscription entries
type Metrics struct {
	updatesTotal       *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	updateDuration     *prometheus.HistogramVec
	version            *prometheus.GaugeVec
	subscribers        *prometheus.GaugeVec
}

// NewMetrics registers the store metrics. Like promauto it panics when
// they are already registered with the same registerer.
func NewMetrics(opts ...MetricsOption) *Metrics {
	s := metricsSettings{
		namespace: "vstore",
		// Updates are in-memory; most finish in microseconds.
		buckets:    []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		registerer: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&s)
	}

	f := promauto.With(s.registerer)
	byStore := []string{"store"}

	duration := s.opts("update_duration_seconds", "Time spent evaluating selectors and committing an update")
	return &Metrics{
		updatesTotal: f.NewCounterVec(prometheus.CounterOpts(
			s.opts("updates_total", "Total number of store updates by result"),
		), []string{"store", "result"}),
		notificationsTotal: f.NewCounterVec(prometheus.CounterOpts(
			s.opts("notifications_total", "Total number of listener notifications queued by updates"),
		), byStore),
		updateDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   duration.Namespace,
			Subsystem:   duration.Subsystem,
			Name:        duration.Name,
			Help:        duration.Help,
			ConstLabels: duration.ConstLabels,
			Buckets:     s.buckets,
		}, byStore),
		version: f.NewGaugeVec(prometheus.GaugeOpts(
			s.opts("version", "Current store version counter"),
		), byStore),
		subscribers: f.NewGaugeVec(prometheus.GaugeOpts(
			s.opts("subscribers", "Number of live subscription entries"),
		), byStore),
	}
}

func (m *Metrics) OnEvent(event Event) {
	switch event.Type {
	case EventUpdate:
		result := "silent"
		if event.Notified > 0 {
			result = "notified"
			m.notificationsTotal.WithLabelValues(event.Store).Add(float64(event.Notified))
		}
		m.updatesTotal.WithLabelValues(event.Store, result).Inc()
		m.updateDuration.WithLabelValues(event.Store).Observe(event.Duration.Seconds())
		m.version.WithLabelValues(event.Store).Set(float64(event.Version))

	case EventRejected:
		m.updatesTotal.WithLabelValues(event.Store, "rejected").Inc()

	case EventSubscribe, EventUnsubscribe:
		m.subscribers.WithLabelValues(event.Store).Set(float64(event.Subscribers))
	}
}
