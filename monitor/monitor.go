package monitor

import (
	"expvar"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/sololeveling/models"
)

type Metrics struct {
	QuestsSettled  *prometheus.CounterVec
	LevelUps       prometheus.Counter
	Purchases      *prometheus.CounterVec
	OnlineSessions prometheus.Gauge
	RequestLatency *prometheus.HistogramVec
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QuestsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quests_settled_total",
			Help:      "Quests completed or failed, by quest type and outcome",
		}, []string{"type", "outcome"}),
		LevelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Levels gained across all players",
		}),
		Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Shop purchases by item",
		}, []string{"item"}),
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of live websocket sessions",
		}),
		RequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"route", "status"}),
	}

	reg.MustRegister(
		m.QuestsSettled,
		m.LevelUps,
		m.Purchases,
		m.OnlineSessions,
		m.RequestLatency,
	)

	return m
}

// Monitor records game metrics and serves them. It implements
// services.Observer.
type Monitor struct {
	metrics      *Metrics
	gatherer     prometheus.Gatherer
	startTime    time.Time
	requestCount atomic.Int64
}

func NewMonitor(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		gatherer:  gatherer,
		startTime: time.Now(),
	}
}

func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

// PublishExpvars exposes uptime and request totals under /debug/vars. expvar
// names are process-global, so call it once.
func (m *Monitor) PublishExpvars() {
	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))
	expvar.Publish("requests", expvar.Func(func() interface{} {
		return m.requestCount.Load()
	}))
}

// Server returns the HTTP server exposing Handler on addr.
func (m *Monitor) Server(addr string) *http.Server {
	return &http.Server{Addr: addr, Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second}
}

func (m *Monitor) QuestSettled(questType models.QuestType, outcome string) {
	m.metrics.QuestsSettled.WithLabelValues(string(questType), outcome).Inc()
}

func (m *Monitor) LevelUp(levels int) {
	m.metrics.LevelUps.Add(float64(levels))
}

func (m *Monitor) Purchase(itemID string) {
	m.metrics.Purchases.WithLabelValues(itemID).Inc()
}

func (m *Monitor) SessionOpened() {
	m.metrics.OnlineSessions.Inc()
}

func (m *Monitor) SessionClosed() {
	m.metrics.OnlineSessions.Dec()
}

func (m *Monitor) ObserveRequest(route string, status int, duration time.Duration) {
	m.metrics.RequestLatency.WithLabelValues(route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requestCount.Add(1)
}
