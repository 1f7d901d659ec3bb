package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/markread/internal/ipc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "markread"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Bridge metrics
	MessagesSent      *prometheus.CounterVec
	MessagesReceived  *prometheus.CounterVec
	PayloadBytes      *prometheus.HistogramVec
	Fragments         *prometheus.CounterVec
	Drops             *prometheus.CounterVec
	ListenerFailures  *prometheus.CounterVec
	DocumentsRendered prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds running totals for the JSON status endpoint.
type Snapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	MessagesSent  int64   `json:"messages_sent"`
	MessagesRecv  int64   `json:"messages_received"`
	Drops         int64   `json:"drops"`
	Documents     int64   `json:"documents"`
	Clients       int64   `json:"clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a collector set on its own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latencies in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request sizes in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),
		ResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response sizes in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ipc",
				Name:      "messages_sent_total",
				Help:      "Messages sent across the bridge",
			},
			[]string{"direction", "mode"},
		),
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ipc",
				Name:      "messages_received_total",
				Help:      "Messages delivered to listeners",
			},
			[]string{"direction", "mode"},
		),
		PayloadBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "ipc",
				Name:      "payload_bytes",
				Help:      "Encoded payload sizes of sent messages",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"direction"},
		),
		Fragments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ipc",
				Name:      "fragments_total",
				Help:      "Chunk fragments sent during transfers",
			},
			[]string{"direction"},
		),
		Drops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ipc",
				Name:      "drops_total",
				Help:      "Inbound messages discarded before dispatch",
			},
			[]string{"direction", "reason"},
		),
		ListenerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ipc",
				Name:      "listener_failures_total",
				Help:      "Listener invocations that returned an error or panicked",
			},
			[]string{"channel"},
		),
		DocumentsRendered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_rendered_total",
				Help:      "Markdown documents rendered by the viewer",
			},
		),

		WSConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
		WSMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"type"},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal, m.RequestDuration, m.RequestSize, m.ResponseSize,
		m.MessagesSent, m.MessagesReceived, m.PayloadBytes, m.Fragments,
		m.Drops, m.ListenerFailures, m.DocumentsRendered,
		m.WSConnections, m.WSMessages,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds",
		}, func() float64 { return time.Since(m.startTime).Seconds() }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordSend implements ipc.Recorder.
func (m *Metrics) RecordSend(direction, mode string, bytes int) {
	m.MessagesSent.WithLabelValues(direction, mode).Inc()
	m.PayloadBytes.WithLabelValues(direction).Observe(float64(bytes))

	m.mu.Lock()
	m.snapshot.MessagesSent++
	m.mu.Unlock()
}

// RecordFragment implements ipc.Recorder.
func (m *Metrics) RecordFragment(direction string) {
	m.Fragments.WithLabelValues(direction).Inc()
}

// RecordReceive implements ipc.Recorder.
func (m *Metrics) RecordReceive(direction, mode string) {
	m.MessagesReceived.WithLabelValues(direction, mode).Inc()

	m.mu.Lock()
	m.snapshot.MessagesRecv++
	m.mu.Unlock()
}

// RecordDrop implements ipc.Recorder.
func (m *Metrics) RecordDrop(direction string, kind ipc.Kind) {
	m.Drops.WithLabelValues(direction, string(kind)).Inc()

	m.mu.Lock()
	m.snapshot.Drops++
	m.mu.Unlock()
}

// RecordListenerFailure implements ipc.Recorder.
func (m *Metrics) RecordListenerFailure(channel string) {
	m.ListenerFailures.WithLabelValues(channel).Inc()
}

// IncDocuments counts a rendered document.
func (m *Metrics) IncDocuments() {
	m.DocumentsRendered.Inc()

	m.mu.Lock()
	m.snapshot.Documents++
	m.mu.Unlock()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()

	m.mu.Lock()
	m.snapshot.Clients++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()

	m.mu.Lock()
	m.snapshot.Clients--
	m.mu.Unlock()
}

// RecordWSMessage counts an outbound WebSocket message by type.
func (m *Metrics) RecordWSMessage(msgType string) {
	m.WSMessages.WithLabelValues(msgType).Inc()
}

// Snapshot returns a copy of the running totals.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

var _ ipc.Recorder = (*Metrics)(nil)
